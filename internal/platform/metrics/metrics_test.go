package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/health", "GET", "200", time.Millisecond)
		m.IncInFlight()
		m.DecInFlight()
		m.IncRateLimitRejected("minute")
		m.IncRateLimitFailOpen()
	})
}

func TestMetrics_RateLimitCounters(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())
	m.IncRateLimitRejected("minute")
	m.IncRateLimitRejected("minute")
	m.IncRateLimitRejected("hour")
	m.IncRateLimitFailOpen()

	assert.InDelta(t, 2, testutil.ToFloat64(m.RateLimitRejected.WithLabelValues("minute")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RateLimitRejected.WithLabelValues("hour")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RateLimitFailOpens), 0)
}

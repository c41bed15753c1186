package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP-level Prometheus metrics shared by every route.
type Metrics struct {
	RequestDuration    *prometheus.HistogramVec
	RequestsInFlight   prometheus.Gauge
	RateLimitRejected  *prometheus.CounterVec
	RateLimitFailOpens prometheus.Counter
}

// New creates and registers the HTTP metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics on reg so tests can use a private registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "octopus_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route pattern, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status"}),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "octopus_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		}),
		RateLimitRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octopus_ratelimit_rejected_total",
			Help: "Requests rejected by the rate limiter by window",
		}, []string{"window"}),
		RateLimitFailOpens: f.NewCounter(prometheus.CounterOpts{
			Name: "octopus_ratelimit_fail_open_total",
			Help: "Requests admitted because the rate-limit counter store failed",
		}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method, status string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
	}
}

func (m *Metrics) IncInFlight() {
	if m != nil {
		m.RequestsInFlight.Inc()
	}
}

func (m *Metrics) DecInFlight() {
	if m != nil {
		m.RequestsInFlight.Dec()
	}
}

func (m *Metrics) IncRateLimitRejected(window string) {
	if m != nil {
		m.RateLimitRejected.WithLabelValues(window).Inc()
	}
}

func (m *Metrics) IncRateLimitFailOpen() {
	if m != nil {
		m.RateLimitFailOpens.Inc()
	}
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lead funnel.
type Metrics struct {
	// Funnel transitions by target status
	Transitions *prometheus.CounterVec

	// Captures refused before any record was written, by reason
	CaptureRejected *prometheus.CounterVec

	// Attribution lookups by cache result ("hit", "miss", "error")
	AttributionCache *prometheus.CounterVec

	// Attribution verifications by resulting status
	AttributionVerified *prometheus.CounterVec
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octopus_lead_transitions_total",
			Help: "Lead funnel transitions by target status",
		}, []string{"status"}),

		CaptureRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octopus_lead_capture_rejected_total",
			Help: "Lead captures refused before persistence by reason",
		}, []string{"reason"}),

		AttributionCache: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octopus_lead_attribution_cache_total",
			Help: "Attribution cache lookups by result",
		}, []string{"result"}),

		AttributionVerified: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octopus_lead_attribution_verifications_total",
			Help: "Attribution verifications by status",
		}, []string{"status"}),
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncrementCaptureRejected(reason string) {
	if m != nil {
		m.CaptureRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementCache(result string) {
	if m != nil {
		m.AttributionCache.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementVerification(status string) {
	if m != nil {
		m.AttributionVerified.WithLabelValues(status).Inc()
	}
}

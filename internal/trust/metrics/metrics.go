package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for trust evaluations.
type Metrics struct {
	// Agent latency by agent and outcome ("ok" or a failure category)
	AgentLatency *prometheus.HistogramVec

	// Agent outcomes by agent and outcome
	AgentOutcome *prometheus.CounterVec

	// Full orchestration run latency
	EvaluateLatency prometheus.Histogram

	// Decisions by decision and source ("evaluation" or "review")
	DecisionOutcome *prometheus.CounterVec

	// Evaluations where every agent failed
	EvaluationsUnavailable prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AgentLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "octopus_trust_agent_duration_seconds",
			Help:    "Duration of verification agent calls by agent and outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"agent", "outcome"}),

		AgentOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octopus_trust_agent_outcomes_total",
			Help: "Verification agent outcomes by agent and outcome",
		}, []string{"agent", "outcome"}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "octopus_trust_evaluate_duration_seconds",
			Help:    "Duration of a full trust evaluation including every agent",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		DecisionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octopus_trust_decisions_total",
			Help: "Trust decisions by decision and source",
		}, []string{"decision", "source"}),

		EvaluationsUnavailable: f.NewCounter(prometheus.CounterOpts{
			Name: "octopus_trust_evaluations_unavailable_total",
			Help: "Evaluations abandoned because every agent failed",
		}),
	}
}

// ObserveAgent records one agent call.
func (m *Metrics) ObserveAgent(agent, outcome string, d time.Duration) {
	if m != nil {
		m.AgentLatency.WithLabelValues(agent, outcome).Observe(d.Seconds())
		m.AgentOutcome.WithLabelValues(agent, outcome).Inc()
	}
}

func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementDecision(decision, source string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(decision, source).Inc()
	}
}

func (m *Metrics) IncrementUnavailable() {
	if m != nil {
		m.EvaluationsUnavailable.Inc()
	}
}

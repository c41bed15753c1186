package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the booking ledger.
type Metrics struct {
	// Booking transitions by target status
	Transitions *prometheus.CounterVec

	// Settled commission amounts
	Commission prometheus.Histogram

	// Sum of settled commission
	CommissionTotal prometheus.Counter
}

func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "octopus_booking_transitions_total",
			Help: "Booking transitions by target status",
		}, []string{"status"}),

		Commission: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "octopus_booking_commission_amount",
			Help:    "Commission settled per completed booking",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),

		CommissionTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "octopus_booking_commission_total",
			Help: "Total commission settled across completed bookings",
		}),
	}
}

func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.Transitions.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ObserveCommission(amount float64) {
	if m != nil {
		m.Commission.Observe(amount)
		m.CommissionTotal.Add(amount)
	}
}

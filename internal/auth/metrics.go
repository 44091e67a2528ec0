package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeRecorder counts operation outcomes.
type OutcomeRecorder interface {
	Record(op Operation, outcome string)
}

const outcomeRateLimited = "rate_limited"

type noopRecorder struct{}

func (noopRecorder) Record(Operation, string) {}

// Metrics counts auth operations by outcome.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics creates the counters and registers them with reg.
// Panics if registration fails (following prometheus convention).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "session_auth_operations_total",
				Help: "Total number of auth operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
	reg.MustRegister(m.operations)
	return m
}

// Record increments the counter for op and outcome. Outcome is "success",
// "empty" or a lower-cased ErrorKind.
func (m *Metrics) Record(op Operation, outcome string) {
	m.operations.WithLabelValues(string(op), outcome).Inc()
}

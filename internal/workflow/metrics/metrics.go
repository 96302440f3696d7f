// Package metrics provides observability for the workflow module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks assignment throughput, gate outcomes, and the completion
// critical path.
type Metrics struct {
	AssignmentsCreated   prometheus.Counter
	AssignmentsCompleted *prometheus.CounterVec
	GateBlocked          *prometheus.CounterVec
	SecondaryFlagged     prometheus.Counter
	CompleteDuration     prometheus.Histogram
}

// New creates a Metrics instance with all workflow metrics registered.
func New() *Metrics {
	return &Metrics{
		AssignmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_assignments_created_total",
			Help: "Total number of assignments created",
		}),
		AssignmentsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_assignments_completed_total",
			Help: "Total number of assignments completed, by task type",
		}, []string{"task_type"}),
		GateBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "rollcall_gate_blocked_total",
			Help: "Completion attempts refused by the gate, by blocking category",
		}, []string{"category"}),
		SecondaryFlagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "rollcall_secondary_verification_flagged_total",
			Help: "People flagged for secondary verification",
		}),
		CompleteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "rollcall_complete_assignment_duration_seconds",
			Help:    "Duration of CompleteAssignment including the gate scan",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementAssignmentsCreated records a successful assignment creation.
func (m *Metrics) IncrementAssignmentsCreated() {
	m.AssignmentsCreated.Inc()
}

// IncrementAssignmentsCompleted records a completion that passed the gate.
func (m *Metrics) IncrementAssignmentsCompleted(taskType string) {
	m.AssignmentsCompleted.WithLabelValues(taskType).Inc()
}

// IncrementGateBlocked records a completion attempt the gate refused.
func (m *Metrics) IncrementGateBlocked(category string) {
	m.GateBlocked.WithLabelValues(category).Inc()
}

// IncrementSecondaryFlagged records a person escalated for re-review.
func (m *Metrics) IncrementSecondaryFlagged() {
	m.SecondaryFlagged.Inc()
}

// ObserveComplete records the duration of a CompleteAssignment call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveComplete(start time.Time) {
	m.CompleteDuration.Observe(time.Since(start).Seconds())
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeConflict = "conflict"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Fanout results.
const (
	DeliveryDelivered    = "delivered"
	DeliveryDeduplicated = "deduplicated"
	DeliveryFailed       = "failed"
)

// WorkflowMetrics counts request transitions and notification deliveries.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
	deliveries  *prometheus.CounterVec
	accruals    prometheus.Counter
}

// NewWorkflowMetrics registers the workflow counters on reg. A nil registerer
// yields a no-op recorder.
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	if reg == nil {
		return &WorkflowMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_transitions_total",
		Help:      "Request lifecycle transitions by kind and outcome.",
	}, []string{"transition", "outcome"})
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_deliveries_total",
		Help:      "Notification fanout results per recipient.",
	}, []string{"type", "result"})
	accruals := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_accrual_skipped_total",
		Help:      "Approvals whose product could not be resolved for inventory accrual.",
	})
	reg.MustRegister(transitions, deliveries, accruals)
	return &WorkflowMetrics{
		transitions: transitions,
		deliveries:  deliveries,
		accruals:    accruals,
	}
}

func (m *WorkflowMetrics) IncTransition(transition, outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(transition), normalizeLabel(outcome)).Inc()
}

func (m *WorkflowMetrics) IncDelivery(notificationType, result string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(normalizeLabel(notificationType), normalizeLabel(result)).Inc()
}

func (m *WorkflowMetrics) IncAccrualSkipped() {
	if m == nil || m.accruals == nil {
		return
	}
	m.accruals.Inc()
}

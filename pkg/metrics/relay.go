package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay results.
const (
	RelayDispatched   = "dispatched"
	RelayRetried      = "retried"
	RelayDeadLettered = "dead_lettered"
)

// RelayMetrics tracks the outbox relay loop.
type RelayMetrics struct {
	events        *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_events_total",
		Help:      "Outbox rows handled by the relay, by event type and result.",
	}, []string{"event_type", "result"})
	batchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_batch_duration_seconds",
		Help:      "Time spent processing one outbox batch.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(events, batchDuration)
	return &RelayMetrics{events: events, batchDuration: batchDuration}
}

func (m *RelayMetrics) IncEvent(eventType, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

func (m *RelayMetrics) ObserveBatch(d time.Duration) {
	if m == nil || m.batchDuration == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics records outbox relay batches.
type RelayMetrics struct {
	duration  *prometheus.HistogramVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewRelayMetrics registers the relay metrics on the provided registerer.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_batch_duration_seconds",
		Help:    "Duration of outbox relay batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"relay"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_delivered_total",
		Help: "Outbox events delivered by the relay.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_failed_total",
		Help: "Outbox delivery attempts that failed.",
	}, []string{"event_type"})
	reg.MustRegister(duration, delivered, failed)
	return &RelayMetrics{
		duration:  duration,
		delivered: delivered,
		failed:    failed,
	}
}

// ObserveBatch records how long one relay batch took.
func (r *RelayMetrics) ObserveBatch(relay string, d time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(relay)).Observe(d.Seconds())
}

func (r *RelayMetrics) IncDelivered(eventType string) {
	if r == nil || r.delivered == nil {
		return
	}
	r.delivered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (r *RelayMetrics) IncFailed(eventType string) {
	if r == nil || r.failed == nil {
		return
	}
	r.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

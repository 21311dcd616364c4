// Package metrics defines Prometheus metrics for the bot engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookEventsTotal     *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec

	// Engine metrics
	BatchFinalizationsTotal *prometheus.CounterVec
	BatchSizeMessages       prometheus.Histogram
	TimeoutRepliesTotal     prometheus.Counter
	ExpiredSessionsTotal    prometheus.Counter
	ManipulationErrorsTotal *prometheus.CounterVec
	RepliesSentTotal        *prometheus.CounterVec

	// Storage metrics
	StorageDurationSeconds *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		WebhookEventsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rumorbot_webhook_events_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error, dropped
		),

		WebhookDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rumorbot_webhook_duration_seconds",
				Help:    "Event processing duration in seconds by event type",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 15, 30, 60}, // Includes the 500ms batch window and 58s reply deadline
			},
			[]string{"event_type"},
		),

		BatchFinalizationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rumorbot_batch_finalizations_total",
				Help: "Batch waiter outcomes by result",
			},
			[]string{"result"}, // result: finalized, superseded
		),

		BatchSizeMessages: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rumorbot_batch_size_messages",
				Help:    "Number of co-occurred messages per finalized batch",
				Buckets: []float64{1, 2, 3, 5, 8, 13},
			},
		),

		TimeoutRepliesTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "rumorbot_timeout_replies_total",
				Help: "Total number of busy fallback replies sent after the reply deadline",
			},
		),

		ExpiredSessionsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "rumorbot_expired_sessions_total",
				Help: "Total number of postbacks rejected because their session ID was stale",
			},
		),

		ManipulationErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rumorbot_manipulation_errors_total",
				Help: "Total number of invalid user actions caught at the dispatch boundary",
			},
			[]string{"state"},
		),

		RepliesSentTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "rumorbot_replies_sent_total",
				Help: "Total number of reply deliveries by status",
			},
			[]string{"status"}, // status: success, error, no_token
		),

		StorageDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rumorbot_storage_duration_seconds",
				Help:    "Storage operation duration in seconds by operation",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"}, // operation: session_get, session_set, batch_push, ...
		),
	}
}

// RecordWebhook records a processed webhook event.
func (m *Metrics) RecordWebhook(eventType, status string, durationSeconds float64) {
	m.WebhookEventsTotal.WithLabelValues(eventType, status).Inc()
	if durationSeconds > 0 {
		m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(durationSeconds)
	}
}

// RecordBatchFinalized records a finalized batch and its size.
func (m *Metrics) RecordBatchFinalized(size int) {
	m.BatchFinalizationsTotal.WithLabelValues("finalized").Inc()
	m.BatchSizeMessages.Observe(float64(size))
}

// RecordBatchSuperseded records a batch waiter aborted by a newer message.
func (m *Metrics) RecordBatchSuperseded() {
	m.BatchFinalizationsTotal.WithLabelValues("superseded").Inc()
}

// RecordReply records a reply delivery attempt.
func (m *Metrics) RecordReply(status string) {
	m.RepliesSentTotal.WithLabelValues(status).Inc()
}

// ObserveStorage records the duration of a storage operation.
// Implements the storage package's MetricsRecorder.
func (m *Metrics) ObserveStorage(operation string, seconds float64) {
	m.StorageDurationSeconds.WithLabelValues(operation).Observe(seconds)
}

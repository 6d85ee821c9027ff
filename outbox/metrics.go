package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// messagesPublished counts messages delivered and marked processed.
	messagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_outbox_messages_published_total",
			Help: "Total number of outbox messages published",
		},
		[]string{"type"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_outbox_publish_errors_total",
			Help: "Total number of outbox publish failures",
		},
		[]string{"type"},
	)

	// deadLettered counts messages that reached the attempt limit and are no
	// longer swept.
	deadLettered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_outbox_messages_exhausted_total",
			Help: "Total number of outbox messages that exhausted their attempts",
		},
		[]string{"type"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_outbox_publish_duration_seconds",
			Help:    "Duration of outbox publish operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_outbox_batch_size",
			Help:    "Number of messages claimed per outbox sweep",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	// consumerDuplicates counts messages skipped by the idempotency guard.
	consumerDuplicates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_outbox_consumer_duplicates_total",
			Help: "Total number of duplicate messages skipped by the idempotent consumer",
		},
		[]string{"type"},
	)
)

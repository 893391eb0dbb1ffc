// Package metrics provides Prometheus metrics for the Fern service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActivitiesProcessed tracks activities handled per parse by outcome
	ActivitiesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "parse",
			Name:      "activities_total",
			Help:      "Total number of activities processed by outcome",
		},
		[]string{"publisher", "outcome"},
	)

	// NotesRecorded tracks dataset notes written by kind
	NotesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "parse",
			Name:      "notes_total",
			Help:      "Total number of dataset notes recorded by kind",
		},
		[]string{"kind"},
	)

	// DatasetParseDuration tracks full dataset parse duration in seconds
	DatasetParseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "parse",
			Name:      "dataset_duration_seconds",
			Help:      "Duration of full dataset parses in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 180, 600, 1800},
		},
		[]string{"publisher"},
	)

	// AggregationRecomputes tracks aggregation recomputations
	AggregationRecomputes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "aggregation",
			Name:      "recomputes_total",
			Help:      "Total number of per-activity aggregation recomputations",
		},
	)

	// ConversionsSkipped tracks monetary values left unconverted for lack of a rate
	ConversionsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "currency",
			Name:      "conversions_skipped_total",
			Help:      "Total number of values left unconverted because no rate was available",
		},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaMessagesConsumed tracks Kafka messages consumed by status
	KafkaMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "kafka",
			Name:      "messages_consumed_total",
			Help:      "Total number of messages consumed from Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordActivity records one activity outcome (committed, rejected, skipped,
// deleted).
func RecordActivity(publisher, outcome string) {
	ActivitiesProcessed.WithLabelValues(publisher, outcome).Inc()
}

// RecordNote records one dataset note by kind.
func RecordNote(kind string) {
	NotesRecorded.WithLabelValues(kind).Inc()
}

// RecordDatasetParse records a completed dataset parse.
func RecordDatasetParse(publisher string, durationSeconds float64) {
	DatasetParseDuration.WithLabelValues(publisher).Observe(durationSeconds)
}

// RecordKafkaPublish records a Kafka publish operation.
func RecordKafkaPublish(topic, status string) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
}

// RecordKafkaConsume records a consumed Kafka message.
func RecordKafkaConsume(topic, status string) {
	KafkaMessagesConsumed.WithLabelValues(topic, status).Inc()
}

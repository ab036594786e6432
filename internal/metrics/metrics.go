package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "endpoint"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vigil_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "endpoint"},
	)

	// Evaluation metrics
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_evaluations_total",
			Help: "Total number of snapshot evaluations",
		},
		[]string{"component", "decision"},
	)

	EvaluationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_evaluation_errors_total",
			Help: "Total number of failed evaluations",
		},
		[]string{"reason"}, // reason: unknown_component, missing_feature
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_evaluation_duration_seconds",
			Help:    "Time taken to evaluate a snapshot",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
	)

	RulesFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_rules_fired_total",
			Help: "Total number of rule firings",
		},
		[]string{"component", "rule"},
	)

	// Ingest metrics
	IngestSnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_ingest_snapshots_total",
			Help: "Total number of snapshots received",
		},
		[]string{"component", "status"}, // status: accepted, rejected
	)

	IngestValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_ingest_validation_errors_total",
			Help: "Total number of validation errors",
		},
		[]string{"error_type"},
	)

	// Catalog metrics
	CatalogReloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_catalog_reloads_total",
			Help: "Total number of rule catalog reloads",
		},
		[]string{"status"}, // status: applied, skipped, failed
	)

	ThresholdAdjustmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_threshold_adjustments_total",
			Help: "Total number of rule threshold adjustments",
		},
		[]string{"component", "rule"},
	)

	AdjustmentRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_adjustment_runs_total",
			Help: "Total number of threshold adjustment runs",
		},
		[]string{"outcome"}, // outcome: adjusted, no_rejection, failed
	)

	FeedbackEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_feedback_entries_total",
			Help: "Total number of feedback entries appended",
		},
		[]string{"verdict"}, // verdict: Accepted, Rejected, none
	)

	// Worker metrics
	WorkerQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_worker_queue_size",
			Help: "Current size of the worker queue",
		},
	)

	WorkerQueueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vigil_worker_queue_capacity",
			Help: "Capacity of the worker queue",
		},
	)

	WorkerProcessedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_worker_processed_total",
			Help: "Total number of snapshots processed by workers",
		},
	)

	WorkerFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_worker_failed_total",
			Help: "Total number of snapshots failed in workers",
		},
	)

	WorkerBatchPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_worker_batch_publish_duration_seconds",
			Help:    "Time taken to publish a batch of traces to Kafka",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	WorkerQueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_worker_queue_wait_seconds",
			Help:    "Time snapshots spend queued before a worker picks them up",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// Kafka producer metrics
	KafkaPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_kafka_publish_total",
			Help: "Total number of messages published to Kafka",
		},
		[]string{"status"}, // status: success, failed
	)

	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vigil_kafka_publish_duration_seconds",
			Help:    "Time taken to publish to Kafka",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	KafkaPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_kafka_publish_retries_total",
			Help: "Total number of Kafka publish retries",
		},
	)

	KafkaBytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vigil_kafka_bytes_written_total",
			Help: "Total bytes written to Kafka",
		},
	)

	// Kafka consumer metrics
	KafkaConsumeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_kafka_consume_total",
			Help: "Total number of messages consumed from Kafka",
		},
		[]string{"status"}, // status: accepted, invalid, dropped
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vigil_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)

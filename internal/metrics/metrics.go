// Package metrics provides Prometheus metrics for inventory runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API request metrics
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxinv_api_requests_total",
			Help: "Total number of Databricks API requests",
		},
		[]string{"namespace", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbxinv_api_request_duration_seconds",
			Help:    "Databricks API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"namespace"},
	)

	throttleEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxinv_throttle_events_total",
			Help: "Total number of 429 responses received",
		},
		[]string{"namespace"},
	)

	retriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxinv_retries_total",
			Help: "Total number of request retries",
		},
		[]string{"namespace", "reason"},
	)

	// Subject metrics
	subjectsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxinv_subjects_processed_total",
			Help: "Total number of subjects processed",
		},
		[]string{"status"},
	)

	subjectDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dbxinv_subject_duration_seconds",
			Help:    "Time to walk all namespaces for one subject",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	filesSeenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dbxinv_files_seen_total",
			Help: "Total files counted across all subjects",
		},
	)

	bytesSeenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dbxinv_bytes_seen_total",
			Help: "Total bytes counted across all subjects",
		},
	)

	// Checkpoint metrics
	checkpointWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxinv_checkpoint_writes_total",
			Help: "Total checkpoint writes",
		},
		[]string{"status"},
	)

	// Artifact storage metrics
	storageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbxinv_storage_operations_total",
			Help: "Total artifact storage operations",
		},
		[]string{"backend", "operation", "status"},
	)

	storageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbxinv_storage_operation_duration_seconds",
			Help:    "Artifact storage operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest records one listing API call.
func RecordAPIRequest(namespace string, status int, duration time.Duration) {
	apiRequestsTotal.WithLabelValues(namespace, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(namespace).Observe(duration.Seconds())
}

// RecordThrottle records a 429 response.
func RecordThrottle(namespace string) {
	throttleEventsTotal.WithLabelValues(namespace).Inc()
}

// RecordRetry records a retry attempt with its reason ("throttle" or "transient").
func RecordRetry(namespace, reason string) {
	retriesTotal.WithLabelValues(namespace, reason).Inc()
}

// RecordSubject records a completed subject.
func RecordSubject(status string, files, bytes int64, duration time.Duration) {
	subjectsProcessedTotal.WithLabelValues(status).Inc()
	subjectDuration.Observe(duration.Seconds())
	filesSeenTotal.Add(float64(files))
	bytesSeenTotal.Add(float64(bytes))
}

// RecordStorageOperation records an artifact storage operation.
func RecordStorageOperation(backend, operation string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	storageOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	storageOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordCheckpointWrite records a checkpoint save.
func RecordCheckpointWrite(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	checkpointWritesTotal.WithLabelValues(status).Inc()
}

// Package metrics provides Prometheus metrics for the detection grid: HTTP RED metrics
// plus detection runs, flagged records, model fit latency and predictions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gcadg"

var (
	// HTTPRequestTotal counts requests by method, route and status.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by method, path, and status.",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDurationSeconds is request latency by method and route.
	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2.5, 10), // 1ms to ~9.3s
		},
		[]string{"method", "path"},
	)

	// DetectRunsTotal counts batch detection runs by outcome.
	DetectRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detect_runs_total",
			Help:      "Total number of batch anomaly detection runs by result.",
		},
		[]string{"result"},
	)

	// AnomaliesFlaggedTotal counts records flagged as outliers by batch detection.
	AnomaliesFlaggedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomalies_flagged_total",
			Help:      "Total number of records flagged as outliers.",
		},
	)

	// ModelFitDurationSeconds is isolation forest fit latency.
	ModelFitDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_fit_duration_seconds",
			Help:      "Isolation forest fit duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
	)

	// PredictionsTotal counts single-record predictions by label.
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Total number of records scored with the loaded model, by label.",
		},
		[]string{"label"},
	)
)

// Detect run results.
const (
	ResultOK          = "ok"
	ResultEmpty       = "empty"
	ResultUnavailable = "data_unavailable"
	ResultNoFeatures  = "no_usable_features"
	ResultFitFailed   = "fit_failed"
	ResultCanceled    = "canceled"
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EngineOperations tracks envelope encryption operations.
	EngineOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Total number of envelope encryption operations",
		},
		[]string{"operation", "algorithm"}, // encode/decode, aes256-gcm-siv
	)

	// EngineErrors tracks envelope encryption errors.
	EngineErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "errors_total",
			Help:      "Total number of envelope encryption errors",
		},
		[]string{"operation"}, // encode, decode
	)

	// EngineOperationDuration tracks envelope encryption operation durations.
	EngineOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "operation_duration_seconds",
			Help:      "Envelope encryption operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10µs to 163ms
		},
		[]string{"operation", "algorithm"},
	)

	// ClusterKeyAge tracks how old the active cluster key is.
	ClusterKeyAge = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "cluster_key_age_seconds",
			Help:      "Age of the currently active cluster key in seconds",
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RotationsInitiated tracks cluster key rotations started.
	RotationsInitiated = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "initiated_total",
			Help:      "Total number of cluster key rotations initiated",
		},
		[]string{"trigger"}, // schedule, manual
	)

	// RotationsCompleted tracks completed cluster key rotations.
	RotationsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "completed_total",
			Help:      "Total number of cluster key rotations completed",
		},
		[]string{"status"}, // success, failure
	)

	// RotationsFailed tracks failed rotations by error cause.
	RotationsFailed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "failed_total",
			Help:      "Total number of failed cluster key rotations by cause",
		},
		[]string{"cause"}, // kms_error, storage_error
	)

	// RotationDuration tracks rotation stage durations.
	RotationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "duration_seconds",
			Help:      "Cluster key rotation stage duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to 4s
		},
		[]string{"stage"}, // generate, wrap, persist
	)
)

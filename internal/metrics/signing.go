package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignRequestsProcessed tracks processed sign-stream requests.
	SignRequestsProcessed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "requests_processed_total",
			Help:      "Total number of sign-stream requests processed",
		},
		[]string{"key_type", "status"}, // pgp/x509, success/failure
	)

	// PendingOperationsDeduped tracks duplicate delete/revoke requests
	// collapsed by the two-phase pending-operation compactor.
	PendingOperationsDeduped = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "pending_operations_deduped_total",
			Help:      "Total number of duplicate pending delete/revoke requests collapsed",
		},
	)

	// TokenValidations tracks bearer token authentication outcomes.
	TokenValidations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "token_validations_total",
			Help:      "Total number of bearer token validations",
		},
		[]string{"status"}, // valid, invalid, expired
	)

	// SignRequestDuration tracks sign-stream request processing duration.
	SignRequestDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "request_duration_seconds",
			Help:      "Sign-stream request processing duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms to 409ms
		},
	)

	// SignPayloadSize tracks the size of content chunks signed.
	SignPayloadSize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signing",
			Name:      "payload_size_bytes",
			Help:      "Size of content chunks sent to the sign stream",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
		},
	)
)

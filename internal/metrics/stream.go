package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamsOpened tracks sign-stream websocket connections opened.
	StreamsOpened = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "opened_total",
			Help:      "Total number of sign-stream connections opened",
		},
		[]string{"status"}, // success, failure
	)

	// StreamsActive tracks currently open sign-stream connections.
	StreamsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "active",
			Help:      "Number of currently open sign-stream connections",
		},
	)

	// StreamsExpired tracks sign-stream connections closed by idle timeout.
	StreamsExpired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "expired_total",
			Help:      "Total number of sign-stream connections closed by idle timeout",
		},
	)

	// StreamsClosed tracks normally closed sign-stream connections.
	StreamsClosed = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "closed_total",
			Help:      "Total number of sign-stream connections closed normally",
		},
	)

	// StreamChunkDuration tracks per-chunk handling duration within a
	// sign-stream connection.
	StreamChunkDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "chunk_duration_seconds",
			Help:      "Sign-stream chunk handling duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 0.1ms to 1.6s
		},
		[]string{"operation"}, // receive, sign, send
	)

	// StreamChunkSize tracks chunk sizes moving through a sign stream.
	StreamChunkSize = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "chunk_size_bytes",
			Help:      "Size of chunks processed by a sign stream",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10), // 64B to 16MB
		},
		[]string{"direction"}, // inbound, outbound
	)
)

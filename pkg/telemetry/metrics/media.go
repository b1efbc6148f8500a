package metrics

import (
	"time"

	"redveil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// MediaMetrics tracks metrics for relayed media streams.
//
// Metrics:
//   - redveil_media_streams_total: Stream count by route and status class
//   - redveil_media_bytes_total: Bytes relayed to clients by route
//   - redveil_media_stream_duration_seconds: Stream duration histogram
//   - redveil_media_active_streams: Streams currently in flight
type MediaMetrics struct {
	// Completed stream count
	streamsTotal *prometheus.CounterVec

	// Bytes relayed to clients
	bytesTotal *prometheus.CounterVec

	// Stream duration histogram
	streamDuration *prometheus.HistogramVec

	// Streams currently in flight
	activeStreams prometheus.Gauge
}

// NewMediaMetrics creates and registers media metrics with the provided
// registry.
func NewMediaMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *MediaMetrics {
	mm := &MediaMetrics{
		streamsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "media_streams_total",
				Help:      "Total number of relayed media streams by route and status class",
			},
			[]string{"route", "status"},
		),

		bytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "media_bytes_total",
				Help:      "Total bytes relayed to clients by route",
			},
			[]string{"route"},
		),

		streamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "media_stream_duration_seconds",
				Help:      "Duration of relayed media streams in seconds",
				Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 15.0, 60.0, 300.0},
			},
			[]string{"route"},
		),

		activeStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "media_active_streams",
				Help:      "Number of media streams currently in flight",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		mm.streamsTotal,
		mm.bytesTotal,
		mm.streamDuration,
		mm.activeStreams,
	)

	return mm
}

// RecordStream records a completed stream.
//
// Parameters:
//   - route: Route name ("img", "vid", "hls", "thumb", "emoji", ...)
//   - statusClass: Response status class ("2xx", "3xx", ...)
//   - duration: Stream duration
//   - bytes: Bytes relayed to the client
func (mm *MediaMetrics) RecordStream(route, statusClass string, duration time.Duration, bytes int64) {
	mm.streamsTotal.WithLabelValues(route, statusClass).Inc()
	mm.streamDuration.WithLabelValues(route).Observe(duration.Seconds())
	if bytes > 0 {
		mm.bytesTotal.WithLabelValues(route).Add(float64(bytes))
	}
}

// StreamOpened increments the active stream gauge.
func (mm *MediaMetrics) StreamOpened() {
	mm.activeStreams.Inc()
}

// StreamClosed decrements the active stream gauge.
func (mm *MediaMetrics) StreamClosed() {
	mm.activeStreams.Dec()
}

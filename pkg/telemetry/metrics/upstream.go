package metrics

import (
	"time"

	"redveil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics tracks metrics for authenticated upstream API calls.
//
// Metrics:
//   - redveil_upstream_requests_total: Call count by endpoint kind and status class
//   - redveil_upstream_request_duration_seconds: Call duration histogram
//   - redveil_upstream_retries_total: Retried attempts by reason
//   - redveil_upstream_errors_total: Terminal failures by classified type
//   - redveil_upstream_ratelimit_remaining: Remaining request budget
type UpstreamMetrics struct {
	// Total call count
	requestsTotal *prometheus.CounterVec

	// Call duration histogram
	requestDuration *prometheus.HistogramVec

	// Retried attempts
	retriesTotal *prometheus.CounterVec

	// Terminal failures
	errorsTotal *prometheus.CounterVec

	// Remaining request budget from upstream rate limit headers
	ratelimitRemaining prometheus.Gauge
}

// NewUpstreamMetrics creates and registers upstream metrics with the
// provided registry.
func NewUpstreamMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *UpstreamMetrics {
	um := &UpstreamMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_requests_total",
				Help:      "Total number of upstream API calls by endpoint kind and status class",
			},
			[]string{"kind", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Duration of upstream API calls in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"kind"},
		),

		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_retries_total",
				Help:      "Total number of retried upstream attempts by reason",
			},
			[]string{"reason"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of terminal upstream failures by classified type",
			},
			[]string{"error_type"},
		),

		ratelimitRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_ratelimit_remaining",
				Help:      "Remaining request budget reported by upstream rate limit headers",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		um.requestsTotal,
		um.requestDuration,
		um.retriesTotal,
		um.errorsTotal,
		um.ratelimitRemaining,
	)

	return um
}

// RecordRequest records a completed upstream call.
//
// Parameters:
//   - kind: Endpoint kind (e.g., "listing", "comments", "user", "search")
//   - statusClass: Response status class ("2xx", "4xx", ...)
//   - duration: Call duration including retries
func (um *UpstreamMetrics) RecordRequest(kind, statusClass string, duration time.Duration) {
	um.requestsTotal.WithLabelValues(kind, statusClass).Inc()
	um.requestDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordRetry records a retried attempt.
//
// Common reasons:
//   - "server_error": 5xx response
//   - "network": connection failure or timeout
//   - "rate_limited": empty-body rate limit response
//   - "auth": token rejected mid-flight, retried after refresh
func (um *UpstreamMetrics) RecordRetry(reason string) {
	um.retriesTotal.WithLabelValues(reason).Inc()
}

// RecordError records a terminal failure.
//
// Common error types:
//   - "network": connection failure after exhausting retries
//   - "oauth": credential rejected and refresh did not help
//   - "private", "banned", "gated", "quarantined": subreddit access states
//   - "suspended": account suspended
//   - "not_found": resource missing
func (um *UpstreamMetrics) RecordError(errorType string) {
	um.errorsTotal.WithLabelValues(errorType).Inc()
}

// SetRateLimitRemaining updates the remaining request budget gauge.
func (um *UpstreamMetrics) SetRateLimitRemaining(remaining float64) {
	um.ratelimitRemaining.Set(remaining)
}

package metrics

import (
	"time"

	"redveil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics tracks metrics for the credential refresh loop.
//
// Metrics:
//   - redveil_auth_refreshes_total: Refresh attempts by handshake path and outcome
//   - redveil_auth_refresh_duration_seconds: Handshake duration histogram
//   - redveil_auth_failure_streak: Consecutive failed refresh attempts
//   - redveil_auth_token_validity_seconds: Credential lifetime as of last refresh
type AuthMetrics struct {
	// Refresh attempts by path and outcome
	refreshesTotal *prometheus.CounterVec

	// Handshake duration histogram
	refreshDuration prometheus.Histogram

	// Consecutive failed refresh attempts (reset on success)
	failureStreak prometheus.Gauge

	// Credential validity window in seconds, set at refresh time
	tokenValidity prometheus.Gauge
}

// NewAuthMetrics creates and registers auth metrics with the provided
// registry.
func NewAuthMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *AuthMetrics {
	am := &AuthMetrics{
		refreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "auth_refreshes_total",
				Help:      "Total number of token refresh attempts by handshake path and outcome",
			},
			[]string{"path", "outcome"},
		),

		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "auth_refresh_duration_seconds",
				Help:      "Duration of token refresh handshakes in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
		),

		failureStreak: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "auth_failure_streak",
				Help:      "Consecutive failed refresh attempts (0 after a success)",
			},
		),

		tokenValidity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "auth_token_validity_seconds",
				Help:      "Credential validity window in seconds as of the last successful refresh",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		am.refreshesTotal,
		am.refreshDuration,
		am.failureStreak,
		am.tokenValidity,
	)

	return am
}

// RecordRefresh records a refresh attempt.
//
// Parameters:
//   - path: Handshake path ("mobile" for the spoofed app handshake,
//     "fallback" for the generic installed-client grant)
//   - outcome: "success" or "failure"
//   - duration: Handshake duration
func (am *AuthMetrics) RecordRefresh(path, outcome string, duration time.Duration) {
	am.refreshesTotal.WithLabelValues(path, outcome).Inc()
	am.refreshDuration.Observe(duration.Seconds())
}

// SetFailureStreak updates the consecutive failure gauge.
func (am *AuthMetrics) SetFailureStreak(n int) {
	am.failureStreak.Set(float64(n))
}

// SetTokenValidity records the credential validity window, in seconds.
func (am *AuthMetrics) SetTokenValidity(seconds float64) {
	am.tokenValidity.Set(seconds)
}

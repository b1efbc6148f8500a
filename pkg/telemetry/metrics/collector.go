package metrics

import (
	"strconv"
	"time"

	"redveil/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics in redveil.
// It manages metric registration and provides a unified interface for
// recording metrics across all components.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Upstream API metrics
	upstreamMetrics *UpstreamMetrics

	// Token refresh metrics
	authMetrics *AuthMetrics

	// Media relay metrics
	mediaMetrics *MediaMetrics

	// Cache metrics (canonical-path resolver, media host tokens)
	cacheMetrics *CacheMetrics

	// Settings restore counter
	settingsRestores *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "redveil",
//	}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "redveil"
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.upstreamMetrics = NewUpstreamMetrics(cfg, registry)
	c.authMetrics = NewAuthMetrics(cfg, registry)
	c.mediaMetrics = NewMediaMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)

	c.settingsRestores = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "settings_restores_total",
			Help:      "Total number of settings restore operations",
		},
		[]string{"source", "outcome"},
	)
	registry.MustRegister(c.settingsRestores)

	return c
}

// RecordUpstreamRequest records metrics for a completed upstream API call.
//
// Parameters:
//   - kind: Endpoint kind (e.g., "listing", "comments", "user", "search")
//   - statusClass: Response status class ("2xx", "4xx", ...)
//   - duration: Total call duration including retries
func (c *Collector) RecordUpstreamRequest(kind, statusClass string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.upstreamMetrics.RecordRequest(kind, statusClass, duration)
}

// RecordUpstreamRetry records a retried upstream attempt.
//
// Parameters:
//   - reason: Why the attempt was retried (e.g., "server_error",
//     "network", "rate_limited", "auth")
func (c *Collector) RecordUpstreamRetry(reason string) {
	if !c.config.Enabled {
		return
	}

	c.upstreamMetrics.RecordRetry(reason)
}

// RecordUpstreamError records a terminal upstream failure.
//
// Parameters:
//   - errorType: Classified error (e.g., "network", "oauth", "gated",
//     "banned", "private", "suspended")
func (c *Collector) RecordUpstreamError(errorType string) {
	if !c.config.Enabled {
		return
	}

	c.upstreamMetrics.RecordError(errorType)
}

// SetRateLimitRemaining updates the remaining request budget reported by
// the upstream rate limit headers.
func (c *Collector) SetRateLimitRemaining(remaining float64) {
	if !c.config.Enabled {
		return
	}

	c.upstreamMetrics.SetRateLimitRemaining(remaining)
}

// RecordTokenRefresh records a token refresh attempt.
//
// Parameters:
//   - path: Handshake path taken ("mobile", "fallback")
//   - outcome: "success" or "failure"
//   - duration: Handshake duration
func (c *Collector) RecordTokenRefresh(path, outcome string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.authMetrics.RecordRefresh(path, outcome, duration)
}

// SetRefreshFailureStreak updates the count of consecutive failed
// refresh attempts. Reset to zero on success.
func (c *Collector) SetRefreshFailureStreak(n int) {
	if !c.config.Enabled {
		return
	}

	c.authMetrics.SetFailureStreak(n)
}

// SetTokenValidity records how long the current credential remains
// valid, in seconds, as of the last refresh.
func (c *Collector) SetTokenValidity(seconds float64) {
	if !c.config.Enabled {
		return
	}

	c.authMetrics.SetTokenValidity(seconds)
}

// StreamOpened increments the active media stream gauge.
func (c *Collector) StreamOpened() {
	if !c.config.Enabled {
		return
	}

	c.mediaMetrics.StreamOpened()
}

// StreamClosed decrements the active media stream gauge.
func (c *Collector) StreamClosed() {
	if !c.config.Enabled {
		return
	}

	c.mediaMetrics.StreamClosed()
}

// RecordMediaStream records a completed media relay stream.
//
// Parameters:
//   - route: Route name ("img", "vid", "hls", "thumb", ...)
//   - statusClass: Response status class ("2xx", "3xx", ...)
//   - duration: Stream duration
//   - bytes: Bytes relayed to the client
func (c *Collector) RecordMediaStream(route, statusClass string, duration time.Duration, bytes int64) {
	if !c.config.Enabled {
		return
	}

	c.mediaMetrics.RecordStream(route, statusClass, duration, bytes)
}

// RecordCacheHit records a cache hit.
//
// Parameters:
//   - cacheName: Name of the cache (e.g., "canonical", "media_token")
func (c *Collector) RecordCacheHit(cacheName string) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.RecordHit(cacheName)
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheName string) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.RecordMiss(cacheName)
}

// UpdateCacheSize updates the current entry count of a cache.
func (c *Collector) UpdateCacheSize(cacheName string, size int) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.UpdateSize(cacheName, size)
}

// RecordCacheEviction records a cache eviction.
func (c *Collector) RecordCacheEviction(cacheName string) {
	if !c.config.Enabled {
		return
	}

	c.cacheMetrics.RecordEviction(cacheName)
}

// RecordSettingsRestore records a settings restore operation.
//
// Parameters:
//   - source: Restore source ("query", "encoded")
//   - outcome: "ok" when all fields decoded, "fallback" when defaults
//     were substituted for part or all of the payload
func (c *Collector) RecordSettingsRestore(source, outcome string) {
	if !c.config.Enabled {
		return
	}

	c.settingsRestores.WithLabelValues(source, outcome).Inc()
}

// Registry returns the Prometheus registry used by this collector.
// This can be used to create an HTTP handler for the /metrics endpoint:
//
//	http.Handle("/metrics", promhttp.HandlerFor(
//		collector.Registry(),
//		promhttp.HandlerOpts{},
//	))
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// StatusClass converts an HTTP status code to its class label
// ("2xx", "3xx", "4xx", "5xx"). Out-of-range codes map to "other".
func StatusClass(code int) string {
	if code >= 100 && code < 600 {
		return strconv.Itoa(code/100) + "xx"
	}
	return "other"
}

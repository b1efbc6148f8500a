// Package metrics provides Prometheus metrics collection for redveil.
//
// # Overview
//
// The metrics package implements Prometheus metrics for monitoring
// upstream API calls, the credential refresh loop, relayed media
// streams, and internal caches.
//
// # Metrics Categories
//
//   - Upstream Metrics: Call count, duration, retries, terminal errors,
//     and the remaining rate limit budget
//   - Auth Metrics: Refresh attempts, handshake duration, failure streak,
//     and credential validity
//   - Media Metrics: Stream count, bytes relayed, stream duration, and
//     streams in flight
//   - Cache Metrics: Hits, misses, and sizes for the canonical-path
//     resolver and media host token caches
//   - Settings Metrics: Restore operations by source and outcome
//
// # Usage
//
//	// Create collector
//	collector := metrics.NewCollector(cfg, registry)
//
//	// Record an upstream call
//	collector.RecordUpstreamRequest("listing", "2xx", 340*time.Millisecond)
//	collector.SetRateLimitRemaining(87)
//
//	// Record a token refresh
//	collector.RecordTokenRefresh("mobile", "success", 800*time.Millisecond)
//	collector.SetTokenValidity(86399)
//
//	// Record a relayed stream
//	collector.StreamOpened()
//	defer collector.StreamClosed()
//	collector.RecordMediaStream("vid", "2xx", 12*time.Second, 4<<20)
//
// # Prometheus Endpoint
//
// All metrics are exposed on the /metrics endpoint in standard Prometheus format:
//
//	# HELP redveil_upstream_requests_total Total number of upstream API calls
//	# TYPE redveil_upstream_requests_total counter
//	redveil_upstream_requests_total{kind="listing",status="2xx"} 1234
//
// # Cardinality
//
// Label values are drawn from fixed sets (endpoint kinds, route names,
// status classes, error types), so cardinality is bounded by
// construction. Subreddit and user names are never used as labels.
package metrics

// Package telemetry groups the observability subpackages for redveil.
//
// # Components
//
//   - logging: structured slog logging with credential redaction
//   - metrics: Prometheus collectors for upstream, auth, media, cache,
//     and settings activity
//   - health: liveness, readiness, and version probes
//
// There is no per-request tracing layer. Observability is aggregate
// only; the relay keeps no record of individual browsing activity.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	checker := health.New(0)
//
// Each subpackage is independent; the server wires all three in
// pkg/server.
package telemetry

// Package server ties the relay together: it mounts the media route
// table, the settings restore surface, and the operational endpoints on
// one http.Server and manages its lifecycle.
//
// # Routes
//
// The server exposes the following HTTP endpoints:
//
//   - GET /vid/..., /hls/..., /img/..., /thumb/..., /emoji/...,
//     /emote/..., /preview/..., /style/..., /static/... - media relay
//   - GET /redgifs/... - gif host resolution and relay (when enabled)
//   - GET /settings/restore/ - preference restore from query parameters
//   - POST /settings/encoded-restore - preference restore from an
//     encoded settings string
//   - GET /health - liveness probe (always 200)
//   - GET /ready - readiness probe (200 once a credential is held)
//   - GET /version - build metadata
//   - GET /metrics - Prometheus exposition (when enabled)
//
// # Middleware Chain
//
// Requests pass through recovery, logging, request-id, and timeout
// middleware, in that order from the outside in. The timeout layer
// exempts media routes: a stream may legitimately run for minutes, so
// only the server write timeout and the request context bound it.
//
// # Lifecycle
//
// Start binds the listen address and blocks until the context is
// cancelled or SIGINT/SIGTERM arrives, then drains in-flight requests
// for at most the configured shutdown timeout:
//
//	srv := server.NewServer(cfg, server.Deps{...})
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// TLS termination is left to a fronting proxy; instances that need
// direct TLS should sit behind one.
package server

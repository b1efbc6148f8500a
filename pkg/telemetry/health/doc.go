// Package health provides the liveness, readiness, and version probes.
//
// # Endpoints
//
//   - /health: liveness - the process is running
//   - /ready: readiness - the instance can serve traffic
//   - /version: build information - version, commit, build time
//
// # Liveness vs Readiness
//
// Liveness never fails while the process runs; orchestrators use it to
// restart dead pods. Readiness aggregates registered component checks;
// load balancers use it to hold traffic. For this relay the check that
// matters is the credential store: until the first token handshake
// lands, every authenticated route would fail, so the instance reports
// degraded:
//
//	checker := health.New(0)
//	checker.RegisterCheck("credential", func(ctx context.Context) error {
//	    _, err := store.Current()
//	    return err
//	})
//
//	mux.HandleFunc("GET /health", checker.LivenessHandler())
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
//	mux.HandleFunc("GET /version", health.VersionHandler(version, commit, buildTime))
//
// Checks run concurrently with a per-check timeout; one unhealthy
// component degrades the instance and /ready answers 503.
package health

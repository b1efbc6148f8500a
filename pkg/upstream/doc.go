// Package upstream builds, dispatches, and classifies requests to the
// upstream API on behalf of the relay.
//
// # Descriptors and the builder
//
// A Descriptor is the logical form of one upstream call: method, path,
// query, and whether it needs a bearer token. The Builder turns a
// descriptor into an *http.Request carrying the spoofed device
// fingerprint, so every outbound request looks like the same official
// client session. Bearer and session headers are attached only when
// the descriptor requires authentication; the device headers ride on
// everything once a credential exists.
//
// # Dispatch and classification
//
// The Dispatcher owns the outcome policy. A response is exactly one of
// success, retryable (429, 5xx, network failure, empty-body stealth
// rate limit), auth-expired (token rejected; refresh and retry once),
// or fatal. Retryables are retried with capped exponential backoff and
// jitter, honoring Retry-After; exhaustion surfaces UnavailableError.
// Redirects are followed by hand so the public host's soft error page
// is refused instead of proxied.
//
// # Budget
//
// The upstream reports the per-token request allowance in its rate
// limit headers. Budget mirrors it so the dispatcher can roll the
// credential over shortly before the allowance runs out rather than
// after requests start bouncing.
//
// # Resolution
//
// Resolver canonicalizes share links and short links by replaying the
// upstream's redirect chain with HEAD requests, caching results with a
// TTL and pruning the cache on a cron schedule.
package upstream

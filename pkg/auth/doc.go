// Package auth obtains and maintains the upstream OAuth credential the
// relay uses for every API request.
//
// # Handshake
//
// Handshake performs the token exchange. The primary path imitates the
// official Android app's login call, sending a full device header set
// and capturing the session continuity headers from the response. The
// fallback path uses the generic installed-client grant, which survives
// upstream changes that break the mobile imitation.
//
// # Credential store
//
// Store holds the current Credential behind an atomic pointer so the
// request path reads it without locking. Readers that start before the
// first handshake completes can block on AwaitReady.
//
// # Refresher
//
// Refresher renews the credential ahead of expiry and serves reactive
// refreshes when upstream rejects a token early. Concurrent requests
// coalesce into one handshake, a cooldown absorbs rejection storms, and
// consecutive failures shift the exchange to the fallback path. Running
// out of attempts is fatal only while no credential was ever obtained;
// once one exists the refresher retries forever at a capped backoff.
package auth

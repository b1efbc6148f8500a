// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// Middleware functions are chained outermost to innermost:
//
//	handler = Recovery(Logging(RequestID(Timeout(mux))))
//
// Recovery sits outermost so a panic anywhere below it is caught; the
// timeout sits innermost so its deadline covers only handler work, and so
// the exemption predicate can wave streaming routes through.
//
// # Request ID
//
// RequestIDMiddleware assigns a UUID to each request unless the client
// already sent one in X-Request-ID. The ID travels in the request context
// (see redveil/pkg/telemetry/logging) and the response headers; the
// logging and recovery layers read it back from the headers because the
// ID is minted below them.
//
// # Timeouts
//
// TimeoutMiddleware wraps http.TimeoutHandler with an exemption
// predicate. Non-streaming routes (settings, health, metrics) get the
// configured API deadline; media relay routes are exempt and rely on the
// server's write timeout instead.
package middleware

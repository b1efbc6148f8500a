package middleware

import (
	"net/http"
	"time"
)

// TimeoutMiddleware enforces a per-request deadline on every request the
// exempt predicate does not claim. Exempt requests pass through untouched:
// a media stream may legitimately outlive any API deadline, and the
// server's write timeout still bounds it.
//
// Timed-out requests receive 503 Service Unavailable via
// http.TimeoutHandler, which also guards the response writer against late
// writes from the abandoned handler.
//
// Example usage:
//
//	handler = TimeoutMiddleware(30*time.Second, isStream)(handler)
func TimeoutMiddleware(timeout time.Duration, exempt func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		guarded := http.TimeoutHandler(next, timeout, "request timed out\n")
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt != nil && exempt(r) {
				next.ServeHTTP(w, r)
				return
			}
			guarded.ServeHTTP(w, r)
		})
	}
}

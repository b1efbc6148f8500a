package upstream

import (
	"fmt"
	"time"
)

// Access-denial reasons reported by the upstream API. They surface on
// ForbiddenError.Reason so callers can render a specific page instead
// of a generic error.
const (
	ReasonPrivate     = "private"
	ReasonBanned      = "banned"
	ReasonGated       = "gated"
	ReasonQuarantined = "quarantined"
	ReasonSuspended   = "suspended"
)

// NotFoundError reports that the requested resource does not exist.
type NotFoundError struct {
	// Path is the logical upstream path that was requested
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("upstream resource %q not found", e.Path)
}

// ForbiddenError reports that upstream denied access to the resource.
// Reason carries the upstream denial category (private, banned, gated,
// quarantined, suspended) when one was given.
type ForbiddenError struct {
	// Path is the logical upstream path that was requested
	Path string

	// Reason is the upstream denial category, empty if none was given
	Reason string
}

// Error implements the error interface.
func (e *ForbiddenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("upstream denied access to %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("upstream denied access to %q", e.Path)
}

// RateLimitError reports that upstream is rate limiting this instance
// and retries were exhausted without relief.
type RateLimitError struct {
	// Path is the logical upstream path that was requested
	Path string

	// RetryAfter is the wait upstream asked for (if provided)
	RetryAfter time.Duration

	// Reset is the raw x-ratelimit-reset value (if provided)
	Reset string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	switch {
	case e.RetryAfter > 0:
		return fmt.Sprintf("upstream rate limit exceeded for %q (retry after %s)", e.Path, e.RetryAfter)
	case e.Reset != "":
		return fmt.Sprintf("upstream rate limit exceeded for %q (resets in %ss)", e.Path, e.Reset)
	default:
		return fmt.Sprintf("upstream rate limit exceeded for %q", e.Path)
	}
}

// UnavailableError reports that upstream could not be reached or kept
// failing until the retry budget ran out.
type UnavailableError struct {
	// Path is the logical upstream path that was requested
	Path string

	// Attempts is the number of attempts made
	Attempts int

	// Cause is the last underlying failure
	Cause error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable for %q after %d attempts: %v", e.Path, e.Attempts, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// AuthRejectedError reports that upstream rejected the credential even
// after a refresh. This means the client fingerprint itself is being
// refused, not that a token expired.
type AuthRejectedError struct {
	// Path is the logical upstream path that was requested
	Path string
}

// Error implements the error interface.
func (e *AuthRejectedError) Error() string {
	return fmt.Sprintf("upstream rejected credentials for %q after refresh", e.Path)
}

// ParseError reports that the upstream response body could not be
// decoded. The body itself is never included; upstream diagnostics stay
// inside the relay.
type ParseError struct {
	// Path is the logical upstream path that was requested
	Path string

	// Cause is the underlying decode error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to decode upstream response for %q: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RedirectError reports that upstream redirected somewhere the
// dispatcher refuses to follow: the bare public host root (the
// upstream's soft error page) or a chain deeper than the hop limit.
type RedirectError struct {
	// Path is the logical upstream path that was requested
	Path string

	// Location is the redirect target that was refused
	Location string
}

// Error implements the error interface.
func (e *RedirectError) Error() string {
	return fmt.Sprintf("upstream redirected %q to unusable location %q", e.Path, e.Location)
}

// StatusError reports a non-retryable upstream response that fits no
// more specific category, such as a 400 for a malformed path.
type StatusError struct {
	// Path is the logical upstream path that was requested
	Path string

	// StatusCode is the HTTP status upstream returned
	StatusCode int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d for %q", e.StatusCode, e.Path)
}

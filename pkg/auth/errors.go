package auth

import (
	"errors"
	"fmt"
)

// ErrNotReady is returned by Store.Current before the first successful
// handshake has produced a credential.
var ErrNotReady = errors.New("auth: no credential available yet")

// HandshakeError represents a failed token exchange.
type HandshakeError struct {
	// Path is the handshake path that failed ("mobile" or "fallback")
	Path string

	// StatusCode is the HTTP status code (0 if the request never completed)
	StatusCode int

	// Message is the error detail
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *HandshakeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s handshake failed (status %d): %s", e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s handshake failed: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *HandshakeError) Unwrap() error {
	return e.Cause
}

// BootstrapError is returned when the refresher gives up before any
// credential was ever obtained. It is fatal: without a credential the
// relay cannot serve authenticated requests, so startup should abort.
// Once a credential exists the refresher never returns this; it keeps
// retrying at the capped backoff instead.
type BootstrapError struct {
	// Attempts is the number of consecutive failed handshakes
	Attempts int

	// Cause is the last handshake error
	Cause error
}

// Error implements the error interface.
func (e *BootstrapError) Error() string {
	return fmt.Sprintf("credential bootstrap failed after %d attempts: %v", e.Attempts, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *BootstrapError) Unwrap() error {
	return e.Cause
}

// Package logging provides structured logging with credential redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON and text formats
//   - Automatic redaction of bearer tokens and session identifiers
//   - Context-aware logging with request IDs
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	// Create a logger
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//
//	// Log structured data
//	logger.Info("Token refreshed",
//	    "expires_in", 86399,
//	    "authorization", "Bearer abc123",  // Automatically redacted
//	)
//
//	// Create context-aware logger
//	ctx := logging.WithRequestID(ctx, "req-123")
//	ctxLogger := logger.WithContext(ctx)
//	ctxLogger.Info("Dispatching")  // Includes request_id automatically
//
// # Redaction
//
// The relay holds a live OAuth token and per-session headers for its
// entire lifetime, so redaction is applied at the slog.Handler level:
// every record is scrubbed regardless of whether it was logged through
// Logger methods or through the raw *slog.Logger returned by Slog.
//
// Redaction covers:
//   - Authorization header values: Bearer abc123 → Bearer ***
//   - Token fields in JSON bodies: "access_token":"..." → "access_token":"***"
//   - Tokens in URLs and form bodies: access_token=abc → access_token=***
//   - Attributes with sensitive key names (token, session, loid, cookie, ...)
//     are replaced wholesale
package logging

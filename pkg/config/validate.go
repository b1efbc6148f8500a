package config

import (
	"fmt"
	"net/url"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateAuth(&cfg.Auth)...)
	errs = append(errs, validateRelay(&cfg.Relay)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates HTTP server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.APITimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.api_timeout",
			Message: "api timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	return errs
}

// validateUpstream validates upstream client configuration.
func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validateBaseURL("upstream.api_base_url", cfg.APIBaseURL)...)
	errs = append(errs, validateBaseURL("upstream.public_base_url", cfg.PublicBaseURL)...)
	errs = append(errs, validateBaseURL("upstream.short_link_base_url", cfg.ShortLinkBaseURL)...)

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.max_retries",
			Message: "max retries must be non-negative",
		})
	}
	if cfg.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "upstream.max_retries",
			Message: "max retries exceeds reasonable limit (10)",
		})
	}
	if cfg.RetryBackoffBase < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.retry_backoff_base",
			Message: "retry backoff base must be positive",
		})
	}
	if cfg.RetryBackoffMax < cfg.RetryBackoffBase {
		errs = append(errs, FieldError{
			Field:   "upstream.retry_backoff_max",
			Message: "retry backoff max cannot be below retry backoff base",
		})
	}
	if cfg.PacePerMinute < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.pace_per_minute",
			Message: "pace per minute must be non-negative",
		})
	}
	if cfg.PaceBurst < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.pace_burst",
			Message: "pace burst must be non-negative",
		})
	}

	if cfg.SOCKSProxy != "" && cfg.HTTPProxy != "" {
		errs = append(errs, FieldError{
			Field:   "upstream.http_proxy",
			Message: "socks_proxy and http_proxy are mutually exclusive",
		})
	}

	return errs
}

// validateAuth validates credential refresher configuration.
func validateAuth(cfg *AuthConfig) []FieldError {
	var errs []FieldError

	errs = append(errs, validateBaseURL("auth.token_endpoint", cfg.TokenEndpoint)...)

	if cfg.RefreshMargin <= 0 {
		errs = append(errs, FieldError{
			Field:   "auth.refresh_margin",
			Message: "refresh margin must be positive",
		})
	}
	if cfg.RefreshCooldown < 0 {
		errs = append(errs, FieldError{
			Field:   "auth.refresh_cooldown",
			Message: "refresh cooldown must be non-negative",
		})
	}
	if cfg.HandshakeTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "auth.handshake_timeout",
			Message: "handshake timeout must be positive",
		})
	}
	if cfg.RetryBackoffBase < 0 {
		errs = append(errs, FieldError{
			Field:   "auth.retry_backoff_base",
			Message: "retry backoff base must be positive",
		})
	}
	if cfg.RetryBackoffMax < cfg.RetryBackoffBase {
		errs = append(errs, FieldError{
			Field:   "auth.retry_backoff_max",
			Message: "retry backoff max cannot be below retry backoff base",
		})
	}

	if cfg.FallbackAfterFailures < 1 {
		errs = append(errs, FieldError{
			Field:   "auth.fallback_after_failures",
			Message: "fallback after failures must be at least 1",
		})
	}
	if cfg.MaxConsecutiveFailures < 1 {
		errs = append(errs, FieldError{
			Field:   "auth.max_consecutive_failures",
			Message: "max consecutive failures must be at least 1",
		})
	}
	if cfg.FallbackAfterFailures > cfg.MaxConsecutiveFailures {
		errs = append(errs, FieldError{
			Field:   "auth.fallback_after_failures",
			Message: "fallback threshold cannot exceed max consecutive failures",
		})
	}

	if cfg.WatchFingerprint && cfg.FingerprintFile == "" {
		errs = append(errs, FieldError{
			Field:   "auth.watch_fingerprint",
			Message: "fingerprint file is required when watching is enabled",
		})
	}

	return errs
}

// validateRelay validates media relay configuration.
func validateRelay(cfg *RelayConfig) []FieldError {
	var errs []FieldError

	for i, host := range cfg.ExtraAllowedHosts {
		field := fmt.Sprintf("relay.extra_allowed_hosts[%d]", i)
		if host == "" {
			errs = append(errs, FieldError{
				Field:   field,
				Message: "host must not be empty",
			})
			continue
		}
		if strings.Contains(host, "/") || strings.Contains(host, "://") {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("invalid host %q: must be a bare hostname, not a URL", host),
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if cfg.Logging.Level == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: "logging level is required",
		})
	} else if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	// Validate logging format
	validFormats := map[string]bool{"json": true, "text": true}
	if cfg.Logging.Format == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: "logging format is required",
		})
	} else if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	// Validate metrics path
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Path == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path is required when metrics are enabled",
			})
		} else if cfg.Metrics.Path[0] != '/' {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with /",
			})
		}
	}

	return errs
}

// validateBaseURL checks that a base URL is present, parses, and carries an
// http or https scheme. Trailing slashes are tolerated; the upstream request
// builder strips them.
func validateBaseURL(field, raw string) []FieldError {
	if raw == "" {
		return []FieldError{{Field: field, Message: "base URL is required"}}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid URL format: %v", err)}}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid URL %q: scheme must be http or https", raw)}}
	}
	if u.Host == "" {
		return []FieldError{{Field: field, Message: fmt.Sprintf("invalid URL %q: host is required", raw)}}
	}
	return nil
}

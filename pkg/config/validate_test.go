package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := MinimalConfig()
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestFieldError_Error(t *testing.T) {
	err := FieldError{
		Field:   "server.listen_address",
		Message: "listen address is required",
	}

	want := "server.listen_address: listen address is required"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		errs     []FieldError
		contains []string
	}{
		{
			name:     "no errors",
			errs:     nil,
			contains: []string{"configuration validation failed"},
		},
		{
			name: "single error",
			errs: []FieldError{
				{Field: "server.listen_address", Message: "listen address is required"},
			},
			contains: []string{"server.listen_address", "listen address is required"},
		},
		{
			name: "multiple errors",
			errs: []FieldError{
				{Field: "server.listen_address", Message: "listen address is required"},
				{Field: "upstream.api_base_url", Message: "base URL is required"},
			},
			contains: []string{"2 errors", "server.listen_address", "upstream.api_base_url"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidationError{Errors: tt.errs}
			msg := err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("expected error message to contain %q, got %q", want, msg)
				}
			}
		})
	}
}

func TestValidateServer(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "empty listen address",
			mutate:    func(c *Config) { c.Server.ListenAddress = "" },
			wantField: "server.listen_address",
		},
		{
			name:      "negative read timeout",
			mutate:    func(c *Config) { c.Server.ReadTimeout = -time.Second },
			wantField: "server.read_timeout",
		},
		{
			name:      "negative write timeout",
			mutate:    func(c *Config) { c.Server.WriteTimeout = -time.Second },
			wantField: "server.write_timeout",
		},
		{
			name:      "excessive max header bytes",
			mutate:    func(c *Config) { c.Server.MaxHeaderBytes = 20 * 1024 * 1024 },
			wantField: "server.max_header_bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.mutate(cfg)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}
}

func TestValidateUpstream(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "missing api base URL",
			mutate:    func(c *Config) { c.Upstream.APIBaseURL = "" },
			wantField: "upstream.api_base_url",
		},
		{
			name:      "non-http scheme",
			mutate:    func(c *Config) { c.Upstream.APIBaseURL = "ftp://example.com" },
			wantField: "upstream.api_base_url",
		},
		{
			name:      "scheme without host",
			mutate:    func(c *Config) { c.Upstream.PublicBaseURL = "https://" },
			wantField: "upstream.public_base_url",
		},
		{
			name:      "negative max retries",
			mutate:    func(c *Config) { c.Upstream.MaxRetries = -1 },
			wantField: "upstream.max_retries",
		},
		{
			name:      "excessive max retries",
			mutate:    func(c *Config) { c.Upstream.MaxRetries = 50 },
			wantField: "upstream.max_retries",
		},
		{
			name: "backoff max below base",
			mutate: func(c *Config) {
				c.Upstream.RetryBackoffBase = time.Second
				c.Upstream.RetryBackoffMax = 100 * time.Millisecond
			},
			wantField: "upstream.retry_backoff_max",
		},
		{
			name: "both proxies configured",
			mutate: func(c *Config) {
				c.Upstream.SOCKSProxy = "127.0.0.1:9050"
				c.Upstream.HTTPProxy = "http://127.0.0.1:3128"
			},
			wantField: "upstream.http_proxy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.mutate(cfg)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}
}

func TestValidateAuth(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "missing token endpoint",
			mutate:    func(c *Config) { c.Auth.TokenEndpoint = "" },
			wantField: "auth.token_endpoint",
		},
		{
			name:      "negative refresh margin",
			mutate:    func(c *Config) { c.Auth.RefreshMargin = -time.Second },
			wantField: "auth.refresh_margin",
		},
		{
			name:      "negative fallback threshold",
			mutate:    func(c *Config) { c.Auth.FallbackAfterFailures = -1 },
			wantField: "auth.fallback_after_failures",
		},
		{
			name: "fallback above ceiling",
			mutate: func(c *Config) {
				c.Auth.FallbackAfterFailures = 12
				c.Auth.MaxConsecutiveFailures = 10
			},
			wantField: "auth.fallback_after_failures",
		},
		{
			name: "watch without file",
			mutate: func(c *Config) {
				c.Auth.WatchFingerprint = true
				c.Auth.FingerprintFile = ""
			},
			wantField: "auth.watch_fingerprint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.mutate(cfg)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}
}

func TestValidateRelay(t *testing.T) {
	tests := []struct {
		name      string
		hosts     []string
		wantField string
	}{
		{
			name:      "empty host entry",
			hosts:     []string{""},
			wantField: "relay.extra_allowed_hosts[0]",
		},
		{
			name:      "URL instead of host",
			hosts:     []string{"cdn.example.com", "https://cdn.example.com/media"},
			wantField: "relay.extra_allowed_hosts[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			cfg.Relay.ExtraAllowedHosts = tt.hosts
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}

	t.Run("bare hostnames accepted", func(t *testing.T) {
		cfg := MinimalConfig()
		cfg.Relay.ExtraAllowedHosts = []string{"cdn.example.com", "media.example.org"}
		if err := Validate(cfg); err != nil {
			t.Errorf("expected bare hostnames to validate, got: %v", err)
		}
	})
}

func TestValidateTelemetry(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "invalid logging level",
			mutate:    func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantField: "telemetry.logging.level",
		},
		{
			name:      "invalid logging format",
			mutate:    func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantField: "telemetry.logging.format",
		},
		{
			name: "metrics path without slash",
			mutate: func(c *Config) {
				c.Telemetry.Metrics.Enabled = true
				c.Telemetry.Metrics.Path = "metrics"
			},
			wantField: "telemetry.metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.mutate(cfg)
			assertFieldError(t, Validate(cfg), tt.wantField)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Server.ListenAddress = ""
	cfg.Upstream.APIBaseURL = ""
	cfg.Telemetry.Logging.Level = "chatty"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}

	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) < 3 {
		t.Errorf("expected at least 3 collected errors, got %d: %v", len(verr.Errors), verr)
	}
}

// assertFieldError fails the test unless err is a ValidationError containing
// an entry for the given field.
func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected validation error on field %q, got nil", field)
	}
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	for _, fe := range verr.Errors {
		if fe.Field == field {
			return
		}
	}
	t.Errorf("expected error on field %q, got: %v", field, verr)
}

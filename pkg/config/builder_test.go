package config

import "time"

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a new ConfigBuilder with sensible defaults for testing.
// The resulting configuration is valid and can be used immediately.
func NewTestConfig() *ConfigBuilder {
	var cfg Config
	seedBoolDefaults(&cfg)
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithListenAddress sets the server listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithAPIBaseURL sets the authenticated upstream base URL.
func (b *ConfigBuilder) WithAPIBaseURL(u string) *ConfigBuilder {
	b.cfg.Upstream.APIBaseURL = u
	return b
}

// WithPublicBaseURL sets the unauthenticated upstream base URL.
func (b *ConfigBuilder) WithPublicBaseURL(u string) *ConfigBuilder {
	b.cfg.Upstream.PublicBaseURL = u
	return b
}

// WithTokenEndpoint sets the token-exchange base URL.
func (b *ConfigBuilder) WithTokenEndpoint(u string) *ConfigBuilder {
	b.cfg.Auth.TokenEndpoint = u
	return b
}

// WithMaxRetries sets the upstream retry count.
func (b *ConfigBuilder) WithMaxRetries(n int) *ConfigBuilder {
	b.cfg.Upstream.MaxRetries = n
	return b
}

// WithRefreshMargin sets the proactive refresh margin.
func (b *ConfigBuilder) WithRefreshMargin(d time.Duration) *ConfigBuilder {
	b.cfg.Auth.RefreshMargin = d
	return b
}

// WithFingerprintFile sets the fingerprint override file and enables watching.
func (b *ConfigBuilder) WithFingerprintFile(path string, watch bool) *ConfigBuilder {
	b.cfg.Auth.FingerprintFile = path
	b.cfg.Auth.WatchFingerprint = watch
	return b
}

// WithGifHost sets whether the secondary gif media host is enabled.
func (b *ConfigBuilder) WithGifHost(enabled bool) *ConfigBuilder {
	b.cfg.Relay.EnableGifHost = enabled
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithLoggingFormat sets the logging format.
func (b *ConfigBuilder) WithLoggingFormat(format string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Format = format
	return b
}

// WithMetricsEnabled sets whether metrics are enabled.
func (b *ConfigBuilder) WithMetricsEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Telemetry.Metrics.Enabled = enabled
	return b
}

// WithSubscriptions sets the instance default subscriptions.
func (b *ConfigBuilder) WithSubscriptions(subs string) *ConfigBuilder {
	b.cfg.SettingsDefaults.Subscriptions = subs
	return b
}

// MinimalConfig returns a minimal valid configuration for testing.
// This is useful for tests that don't care about most configuration values.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}

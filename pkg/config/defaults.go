package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultAPITimeout      = 30 * time.Second

	// Upstream defaults
	DefaultAPIBaseURL       = "https://oauth.reddit.com"
	DefaultPublicBaseURL    = "https://www.reddit.com"
	DefaultShortLinkBaseURL = "https://redd.it"
	DefaultUpstreamTimeout  = 15 * time.Second
	DefaultMaxRetries       = 3
	DefaultRetryBackoffBase = 250 * time.Millisecond
	DefaultRetryBackoffMax  = 5 * time.Second
	DefaultPacePerMinute    = 60
	DefaultPaceBurst        = 10

	// Auth defaults
	DefaultTokenEndpoint         = "https://www.reddit.com"
	DefaultRefreshMargin         = 2 * time.Minute
	DefaultRefreshCooldown       = 10 * time.Second
	DefaultHandshakeTimeout      = 5 * time.Second
	DefaultAuthBackoffBase       = 5 * time.Second
	DefaultAuthBackoffMax        = time.Minute
	DefaultFallbackAfterFailures = 5
	DefaultMaxConsecutiveFails   = 10

	// Relay defaults
	DefaultEnableGifHost = true

	// Telemetry defaults
	DefaultLoggingLevel     = "info"
	DefaultLoggingFormat    = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "redveil"

	// Maintenance defaults
	DefaultResolverPruneSchedule = "@every 10m"
)

// Default values for instance preferences. These mirror the compiled-in
// fallbacks in pkg/settings and exist so operators see the effective value
// in one place.
const (
	DefaultPrefTheme       = "system"
	DefaultPrefFrontPage   = "default"
	DefaultPrefLayout      = "card"
	DefaultPrefCommentSort = "confidence"
	DefaultPrefPostSort    = "hot"
	DefaultPrefBlurSpoiler = "off"
	DefaultPrefVideoQual   = "best"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
//
// Boolean fields whose default is true (metrics enabled, gif host enabled)
// are seeded by seedBoolDefaults before the YAML is unmarshalled, so an
// explicit false in the file is preserved.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.APITimeout == 0 {
		cfg.Server.APITimeout = DefaultAPITimeout
	}

	// Upstream defaults
	if cfg.Upstream.APIBaseURL == "" {
		cfg.Upstream.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.Upstream.PublicBaseURL == "" {
		cfg.Upstream.PublicBaseURL = DefaultPublicBaseURL
	}
	if cfg.Upstream.ShortLinkBaseURL == "" {
		cfg.Upstream.ShortLinkBaseURL = DefaultShortLinkBaseURL
	}
	if cfg.Upstream.Timeout == 0 {
		cfg.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if cfg.Upstream.MaxRetries == 0 {
		cfg.Upstream.MaxRetries = DefaultMaxRetries
	}
	if cfg.Upstream.RetryBackoffBase == 0 {
		cfg.Upstream.RetryBackoffBase = DefaultRetryBackoffBase
	}
	if cfg.Upstream.RetryBackoffMax == 0 {
		cfg.Upstream.RetryBackoffMax = DefaultRetryBackoffMax
	}
	if cfg.Upstream.PacePerMinute == 0 {
		cfg.Upstream.PacePerMinute = DefaultPacePerMinute
	}
	if cfg.Upstream.PaceBurst == 0 {
		cfg.Upstream.PaceBurst = DefaultPaceBurst
	}

	// Auth defaults
	if cfg.Auth.TokenEndpoint == "" {
		cfg.Auth.TokenEndpoint = DefaultTokenEndpoint
	}
	if cfg.Auth.RefreshMargin == 0 {
		cfg.Auth.RefreshMargin = DefaultRefreshMargin
	}
	if cfg.Auth.RefreshCooldown == 0 {
		cfg.Auth.RefreshCooldown = DefaultRefreshCooldown
	}
	if cfg.Auth.HandshakeTimeout == 0 {
		cfg.Auth.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Auth.RetryBackoffBase == 0 {
		cfg.Auth.RetryBackoffBase = DefaultAuthBackoffBase
	}
	if cfg.Auth.RetryBackoffMax == 0 {
		cfg.Auth.RetryBackoffMax = DefaultAuthBackoffMax
	}
	if cfg.Auth.FallbackAfterFailures == 0 {
		cfg.Auth.FallbackAfterFailures = DefaultFallbackAfterFailures
	}
	if cfg.Auth.MaxConsecutiveFailures == 0 {
		cfg.Auth.MaxConsecutiveFailures = DefaultMaxConsecutiveFails
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}

	// Maintenance defaults
	if cfg.Maintenance.ResolverCachePruneSchedule == "" {
		cfg.Maintenance.ResolverCachePruneSchedule = DefaultResolverPruneSchedule
	}

	applyPreferenceDefaults(cfg)
}

// applyPreferenceDefaults fills the instance preference defaults.
// Only fields with a meaningful compiled-in value are seeded; the rest
// stay empty, which pkg/settings treats as "off".
func applyPreferenceDefaults(cfg *Config) {
	p := &cfg.SettingsDefaults
	if p.Theme == "" {
		p.Theme = DefaultPrefTheme
	}
	if p.FrontPage == "" {
		p.FrontPage = DefaultPrefFrontPage
	}
	if p.Layout == "" {
		p.Layout = DefaultPrefLayout
	}
	if p.CommentSort == "" {
		p.CommentSort = DefaultPrefCommentSort
	}
	if p.PostSort == "" {
		p.PostSort = DefaultPrefPostSort
	}
	if p.BlurSpoiler == "" {
		p.BlurSpoiler = DefaultPrefBlurSpoiler
	}
	if p.VideoQuality == "" {
		p.VideoQuality = DefaultPrefVideoQual
	}
}

// seedBoolDefaults sets boolean fields whose default is true.
// Called on the zero Config before unmarshalling so an explicit false in
// the YAML file overrides the default rather than being clobbered by it.
func seedBoolDefaults(cfg *Config) {
	cfg.Relay.EnableGifHost = DefaultEnableGifHost
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
}

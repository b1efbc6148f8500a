package config

import "time"

// Config is the root configuration structure for redveil.
// It contains all configuration sections for the HTTP server, the upstream
// client, credential acquisition, the media relay, instance preference
// defaults, telemetry, and background maintenance.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and header limits.
	Server ServerConfig `yaml:"server"`

	// Upstream contains configuration for outbound requests to Reddit:
	// base URLs, timeouts, retry policy, pacing, and outbound proxying.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Auth contains configuration for the credential refresher: token
	// endpoint, refresh margins, failure ceilings, and the optional
	// fingerprint override file.
	Auth AuthConfig `yaml:"auth"`

	// Relay contains configuration for the media relay.
	Relay RelayConfig `yaml:"relay"`

	// SettingsDefaults contains the instance-wide defaults for user
	// preferences. Users override these per-browser via cookies; the
	// values here apply when no cookie is present.
	SettingsDefaults SettingsDefaultsConfig `yaml:"settings_defaults"`

	// Telemetry contains observability configuration: logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Maintenance contains schedules for background housekeeping jobs.
	Maintenance MaintenanceConfig `yaml:"maintenance"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Media streams are bounded by this too, so instances that
	// relay long videos should raise it.
	// Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are dropped.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// APITimeout is the per-request deadline applied to non-streaming
	// routes (settings, health). Media routes are exempt and rely on
	// WriteTimeout instead.
	// Default: 30s
	APITimeout time.Duration `yaml:"api_timeout"`
}

// UpstreamConfig contains configuration for outbound requests to Reddit.
type UpstreamConfig struct {
	// APIBaseURL is the authenticated API host. Requests with
	// RequiresAuth set are sent here with a bearer token.
	// Default: "https://oauth.reddit.com"
	APIBaseURL string `yaml:"api_base_url"`

	// PublicBaseURL is the unauthenticated fallback host, also used for
	// share-link resolution.
	// Default: "https://www.reddit.com"
	PublicBaseURL string `yaml:"public_base_url"`

	// ShortLinkBaseURL is the short-link host used when resolving
	// canonical paths for share links.
	// Default: "https://redd.it"
	ShortLinkBaseURL string `yaml:"short_link_base_url"`

	// Timeout is the per-attempt deadline for upstream API requests.
	// Default: 15s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of additional attempts after a retryable
	// failure (429, 5xx, network error). Authentication retries are
	// handled separately and do not count against this.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoffBase is the delay before the first retry; each
	// subsequent retry doubles it, with jitter.
	// Default: 250ms
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base"`

	// RetryBackoffMax caps the computed retry delay.
	// Default: 5s
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`

	// PacePerMinute limits the sustained rate of outbound API requests.
	// Reddit grants roughly 100 requests per minute per token; pacing
	// below that keeps a single busy instance from burning the budget.
	// Zero disables pacing.
	// Default: 60
	PacePerMinute int `yaml:"pace_per_minute"`

	// PaceBurst is the burst allowance on top of the sustained pace.
	// Default: 10
	PaceBurst int `yaml:"pace_burst"`

	// SOCKSProxy routes all upstream traffic through a SOCKS5 proxy
	// (host:port or socks5://host:port). Also read from the SOCKS_PROXY
	// environment variable.
	SOCKSProxy string `yaml:"socks_proxy"`

	// HTTPProxy routes all upstream traffic through an HTTP CONNECT
	// proxy. Also read from HTTP_PROXY / HTTPS_PROXY. SOCKSProxy wins
	// when both are set.
	HTTPProxy string `yaml:"http_proxy"`
}

// AuthConfig contains configuration for credential acquisition and refresh.
type AuthConfig struct {
	// TokenEndpoint is the base URL for the token-exchange handshake.
	// Default: "https://www.reddit.com"
	TokenEndpoint string `yaml:"token_endpoint"`

	// RefreshMargin is how long before expiry the periodic refresher
	// renews the credential. Chosen so callers never observe an expired
	// token under normal operation.
	// Default: 2m
	RefreshMargin time.Duration `yaml:"refresh_margin"`

	// RefreshCooldown is the minimum gap between reactive refreshes.
	// Auth failures arriving within the cooldown reuse the previous
	// outcome instead of issuing another handshake.
	// Default: 10s
	RefreshCooldown time.Duration `yaml:"refresh_cooldown"`

	// HandshakeTimeout bounds a single token-exchange attempt.
	// Default: 5s
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// RetryBackoffBase is the delay after the first failed handshake;
	// doubled per consecutive failure.
	// Default: 5s
	RetryBackoffBase time.Duration `yaml:"retry_backoff_base"`

	// RetryBackoffMax caps the handshake retry delay.
	// Default: 1m
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`

	// FallbackAfterFailures is the number of consecutive spoofed-mobile
	// handshake failures before the generic installed-client handshake
	// is tried instead.
	// Default: 5
	FallbackAfterFailures int `yaml:"fallback_after_failures"`

	// MaxConsecutiveFailures is the hard ceiling of consecutive
	// handshake failures. Reaching it is fatal only when no credential
	// was ever obtained; with a stale credential in hand the refresher
	// keeps retrying at the capped backoff.
	// Default: 10
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`

	// FingerprintFile optionally points to a YAML file overriding the
	// compiled-in client fingerprint (client id, app versions, codec
	// variants). Upstream detection changes can then be tracked without
	// a rebuild.
	FingerprintFile string `yaml:"fingerprint_file"`

	// WatchFingerprint reloads FingerprintFile on change.
	// Default: false
	WatchFingerprint bool `yaml:"watch_fingerprint"`
}

// RelayConfig contains configuration for the media relay.
type RelayConfig struct {
	// EnableGifHost enables resolution and relay for the secondary gif
	// media host (RedGifs).
	// Default: true
	EnableGifHost bool `yaml:"enable_gif_host"`

	// ExtraAllowedHosts extends the compiled-in allowlist of media
	// origins the relay will connect to. Exact host matches only.
	ExtraAllowedHosts []string `yaml:"extra_allowed_hosts"`
}

// SettingsDefaultsConfig contains instance-wide defaults for user
// preferences, applied when a user has not set the preference themselves.
// All values are strings because they travel as cookie values; empty means
// "use the compiled-in default".
type SettingsDefaultsConfig struct {
	Theme                          string `yaml:"theme"`
	FrontPage                      string `yaml:"front_page"`
	Layout                         string `yaml:"layout"`
	Wide                           string `yaml:"wide"`
	BlurSpoiler                    string `yaml:"blur_spoiler"`
	ShowNSFW                       string `yaml:"show_nsfw"`
	BlurNSFW                       string `yaml:"blur_nsfw"`
	HideHLSNotification            string `yaml:"hide_hls_notification"`
	VideoQuality                   string `yaml:"video_quality"`
	HideSidebarAndSummary          string `yaml:"hide_sidebar_and_summary"`
	UseHLS                         string `yaml:"use_hls"`
	AutoplayVideos                 string `yaml:"autoplay_videos"`
	FixedNavbar                    string `yaml:"fixed_navbar"`
	DisableVisitRedditConfirmation string `yaml:"disable_visit_reddit_confirmation"`
	CommentSort                    string `yaml:"comment_sort"`
	PostSort                       string `yaml:"post_sort"`
	HideAwards                     string `yaml:"hide_awards"`
	HideScore                      string `yaml:"hide_score"`
	RemoveDefaultFeeds             string `yaml:"remove_default_feeds"`

	// Subscriptions is a +-separated list of default subscribed feeds.
	Subscriptions string `yaml:"subscriptions"`

	// Filters is a +-separated list of default filtered feeds.
	Filters string `yaml:"filters"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path the metrics handler is mounted on.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the Prometheus namespace prefix for all metrics.
	// Default: "redveil"
	Namespace string `yaml:"namespace"`
}

// MaintenanceConfig contains schedules for background housekeeping.
type MaintenanceConfig struct {
	// ResolverCachePruneSchedule is the cron expression for pruning
	// expired canonical-path cache entries. Standard five-field cron
	// syntax and @every descriptors are accepted. Empty disables the
	// job (entries then expire lazily on read).
	// Default: "@every 10m"
	ResolverCachePruneSchedule string `yaml:"resolver_cache_prune_schedule"`
}

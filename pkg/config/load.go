package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. A missing file is not an error: the instance then runs entirely
// on defaults, which is the common deployment. The configuration is not
// modified by environment variables; use LoadConfigWithEnvOverrides for
// that functionality.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	seedBoolDefaults(&cfg)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// Run on defaults.
	default:
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	// Apply defaults
	ApplyDefaults(&cfg)

	// Validate
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention REDVEIL_SECTION_FIELD (e.g., REDVEIL_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (missing file falls back to defaults)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	// First load from file (this already applies defaults)
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Re-validate after overrides
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format REDVEIL_SECTION_FIELD. The outbound
// proxy additionally honors the conventional SOCKS_PROXY and HTTP_PROXY
// variables so container deployments need no config file.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("REDVEIL_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("REDVEIL_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("REDVEIL_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("REDVEIL_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("REDVEIL_SERVER_API_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.APITimeout = d
		}
	}

	// Upstream overrides
	if val := os.Getenv("REDVEIL_UPSTREAM_API_BASE_URL"); val != "" {
		cfg.Upstream.APIBaseURL = val
	}
	if val := os.Getenv("REDVEIL_UPSTREAM_PUBLIC_BASE_URL"); val != "" {
		cfg.Upstream.PublicBaseURL = val
	}
	if val := os.Getenv("REDVEIL_UPSTREAM_SHORT_LINK_BASE_URL"); val != "" {
		cfg.Upstream.ShortLinkBaseURL = val
	}
	if val := os.Getenv("REDVEIL_UPSTREAM_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Upstream.Timeout = d
		}
	}
	if val := os.Getenv("REDVEIL_UPSTREAM_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Upstream.MaxRetries = i
		}
	}
	if val := os.Getenv("REDVEIL_UPSTREAM_PACE_PER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Upstream.PacePerMinute = i
		}
	}
	if val := os.Getenv("REDVEIL_UPSTREAM_SOCKS_PROXY"); val != "" {
		cfg.Upstream.SOCKSProxy = val
	} else if val := os.Getenv("SOCKS_PROXY"); val != "" && cfg.Upstream.SOCKSProxy == "" {
		cfg.Upstream.SOCKSProxy = val
	}
	if val := os.Getenv("REDVEIL_UPSTREAM_HTTP_PROXY"); val != "" {
		cfg.Upstream.HTTPProxy = val
	} else if val := os.Getenv("HTTP_PROXY"); val != "" && cfg.Upstream.HTTPProxy == "" {
		cfg.Upstream.HTTPProxy = val
	}

	// Auth overrides
	if val := os.Getenv("REDVEIL_AUTH_TOKEN_ENDPOINT"); val != "" {
		cfg.Auth.TokenEndpoint = val
	}
	if val := os.Getenv("REDVEIL_AUTH_REFRESH_MARGIN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Auth.RefreshMargin = d
		}
	}
	if val := os.Getenv("REDVEIL_AUTH_REFRESH_COOLDOWN"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Auth.RefreshCooldown = d
		}
	}
	if val := os.Getenv("REDVEIL_AUTH_FINGERPRINT_FILE"); val != "" {
		cfg.Auth.FingerprintFile = val
	}
	if val := os.Getenv("REDVEIL_AUTH_WATCH_FINGERPRINT"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Auth.WatchFingerprint = b
		}
	}

	// Relay overrides
	if val := os.Getenv("REDVEIL_RELAY_ENABLE_GIF_HOST"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Relay.EnableGifHost = b
		}
	}

	// Telemetry overrides
	if val := os.Getenv("REDVEIL_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("REDVEIL_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("REDVEIL_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("REDVEIL_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}

	// Maintenance overrides
	if val := os.Getenv("REDVEIL_MAINTENANCE_RESOLVER_CACHE_PRUNE_SCHEDULE"); val != "" {
		cfg.Maintenance.ResolverCachePruneSchedule = val
	}

	applyPreferenceEnvOverrides(cfg)
}

// applyPreferenceEnvOverrides applies instance preference defaults from
// REDVEIL_DEFAULT_<PREF> environment variables, the form most operators use
// when deploying without a config file.
func applyPreferenceEnvOverrides(cfg *Config) {
	p := &cfg.SettingsDefaults
	overrides := []struct {
		env    string
		target *string
	}{
		{"REDVEIL_DEFAULT_THEME", &p.Theme},
		{"REDVEIL_DEFAULT_FRONT_PAGE", &p.FrontPage},
		{"REDVEIL_DEFAULT_LAYOUT", &p.Layout},
		{"REDVEIL_DEFAULT_WIDE", &p.Wide},
		{"REDVEIL_DEFAULT_BLUR_SPOILER", &p.BlurSpoiler},
		{"REDVEIL_DEFAULT_SHOW_NSFW", &p.ShowNSFW},
		{"REDVEIL_DEFAULT_BLUR_NSFW", &p.BlurNSFW},
		{"REDVEIL_DEFAULT_HIDE_HLS_NOTIFICATION", &p.HideHLSNotification},
		{"REDVEIL_DEFAULT_VIDEO_QUALITY", &p.VideoQuality},
		{"REDVEIL_DEFAULT_HIDE_SIDEBAR_AND_SUMMARY", &p.HideSidebarAndSummary},
		{"REDVEIL_DEFAULT_USE_HLS", &p.UseHLS},
		{"REDVEIL_DEFAULT_AUTOPLAY_VIDEOS", &p.AutoplayVideos},
		{"REDVEIL_DEFAULT_FIXED_NAVBAR", &p.FixedNavbar},
		{"REDVEIL_DEFAULT_DISABLE_VISIT_REDDIT_CONFIRMATION", &p.DisableVisitRedditConfirmation},
		{"REDVEIL_DEFAULT_COMMENT_SORT", &p.CommentSort},
		{"REDVEIL_DEFAULT_POST_SORT", &p.PostSort},
		{"REDVEIL_DEFAULT_HIDE_AWARDS", &p.HideAwards},
		{"REDVEIL_DEFAULT_HIDE_SCORE", &p.HideScore},
		{"REDVEIL_DEFAULT_REMOVE_DEFAULT_FEEDS", &p.RemoveDefaultFeeds},
		{"REDVEIL_DEFAULT_SUBSCRIPTIONS", &p.Subscriptions},
		{"REDVEIL_DEFAULT_FILTERS", &p.Filters},
	}
	for _, o := range overrides {
		if val := os.Getenv(o.env); val != "" {
			*o.target = val
		}
	}
}

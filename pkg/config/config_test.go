package config

import (
	"testing"
	"time"
)

func TestNewTestConfig(t *testing.T) {
	cfg := NewTestConfig().Build()

	// Verify defaults are applied
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected listen address %q, got %q", DefaultListenAddress, cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != DefaultReadTimeout {
		t.Errorf("expected read timeout %v, got %v", DefaultReadTimeout, cfg.Server.ReadTimeout)
	}
	if cfg.Upstream.APIBaseURL != DefaultAPIBaseURL {
		t.Errorf("expected api base URL %q, got %q", DefaultAPIBaseURL, cfg.Upstream.APIBaseURL)
	}
	if cfg.Auth.TokenEndpoint != DefaultTokenEndpoint {
		t.Errorf("expected token endpoint %q, got %q", DefaultTokenEndpoint, cfg.Auth.TokenEndpoint)
	}
	if !cfg.Relay.EnableGifHost {
		t.Error("expected gif host to be enabled")
	}
}

func TestConfigBuilder_WithListenAddress(t *testing.T) {
	cfg := NewTestConfig().
		WithListenAddress("0.0.0.0:9090").
		Build()

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
}

func TestConfigBuilder_WithFingerprintFile(t *testing.T) {
	cfg := NewTestConfig().
		WithFingerprintFile("/etc/redveil/fingerprint.yaml", true).
		Build()

	if cfg.Auth.FingerprintFile != "/etc/redveil/fingerprint.yaml" {
		t.Errorf("expected fingerprint file %q, got %q", "/etc/redveil/fingerprint.yaml", cfg.Auth.FingerprintFile)
	}
	if !cfg.Auth.WatchFingerprint {
		t.Error("expected fingerprint watching to be enabled")
	}
}

func TestConfigBuilder_ChainedCalls(t *testing.T) {
	cfg := NewTestConfig().
		WithListenAddress("0.0.0.0:8080").
		WithAPIBaseURL("https://gateway.example.com").
		WithRefreshMargin(time.Minute).
		WithLoggingLevel("debug").
		WithMetricsEnabled(false).
		Build()

	if cfg.Server.ListenAddress != "0.0.0.0:8080" {
		t.Error("chained WithListenAddress failed")
	}
	if cfg.Upstream.APIBaseURL != "https://gateway.example.com" {
		t.Error("chained WithAPIBaseURL failed")
	}
	if cfg.Auth.RefreshMargin != time.Minute {
		t.Error("chained WithRefreshMargin failed")
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Error("chained WithLoggingLevel failed")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("chained WithMetricsEnabled failed")
	}
}

func TestMinimalConfig(t *testing.T) {
	cfg := MinimalConfig()

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	// Verify it's a valid config that would pass validation
	if err := Validate(cfg); err != nil {
		t.Errorf("minimal config should be valid, got error: %v", err)
	}
}

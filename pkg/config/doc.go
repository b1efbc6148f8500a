// Package config provides configuration loading, validation, and defaults
// for redveil.
//
// Configuration is read from a YAML file, with optional environment variable
// overrides. A missing file is not an error: every field has a usable
// default, so a bare `redveil run` starts a working instance.
//
// # Loading
//
// Use LoadConfig to load from a file only, or LoadConfigWithEnvOverrides to
// also honor environment variables:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("redveil.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention REDVEIL_SECTION_FIELD:
//
//	REDVEIL_SERVER_LISTEN_ADDRESS=0.0.0.0:8080
//	REDVEIL_UPSTREAM_MAX_RETRIES=5
//	REDVEIL_TELEMETRY_LOGGING_LEVEL=debug
//
// Instance preference defaults use REDVEIL_DEFAULT_<PREF>:
//
//	REDVEIL_DEFAULT_THEME=dark
//	REDVEIL_DEFAULT_SHOW_NSFW=on
//
// The conventional SOCKS_PROXY and HTTP_PROXY variables configure the
// outbound proxy when the redveil-specific variables are unset.
// Environment variables always take precedence over file values.
//
// # Precedence
//
// From lowest to highest: compiled-in defaults, YAML file, environment
// variables.
//
// # Validation
//
// Validate collects all problems into a single ValidationError rather than
// failing on the first, so operators can fix a config file in one pass.
package config

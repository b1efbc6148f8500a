package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"redveil/pkg/auth"
	"redveil/pkg/cli"
	"redveil/pkg/config"
	"redveil/pkg/fingerprint"
	"redveil/pkg/telemetry/logging"
	"redveil/pkg/upstream"
)

var checkFlags struct {
	timeout time.Duration
	format  string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credential and rate limit plumbing",
	Long: `Verify that this instance can authenticate and is granted its own
rate limit window.

The check performs the spoofed mobile handshake, fetches one listing and
asserts the mirrored rate limit budget synced to a full window, then rolls
the credential over and asserts the same for the fresh token. A mismatch
on the second probe means upstream is keying the window to this instance's
address rather than to the token.

Examples:
  # Check with default config
  redveil check

  # Check a custom config, JSON result
  redveil check --config /etc/redveil/config.yaml --format json`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().DurationVar(&checkFlags.timeout, "timeout", time.Minute, "overall check deadline")
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
}

// checkResult is the machine-readable outcome for --format json.
type checkResult struct {
	Status          string `json:"status"`
	CredentialTTL   string `json:"credential_ttl,omitempty"`
	SessionHeaders  bool   `json:"session_headers"`
	BudgetRemaining int    `json:"budget_remaining"`
	Error           string `json:"error,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Config{
		Level:         level,
		Format:        cfg.Telemetry.Logging.Format,
		RedactSecrets: true,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger := log.Slog()
	slog.SetDefault(logger)

	// Ctrl+C aborts the probes instead of killing the process mid-request.
	ctx, cancel := context.WithTimeout(cli.SetupSignalHandler(), checkFlags.timeout)
	defer cancel()

	apiClient, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	fingerprints := fingerprint.NewProvider(logger)
	if cfg.Auth.FingerprintFile != "" {
		if err := fingerprints.LoadFile(cfg.Auth.FingerprintFile); err != nil {
			logger.Warn("Fingerprint file not loaded, using compiled defaults",
				"path", cfg.Auth.FingerprintFile,
				"error", err,
			)
		}
	}

	store := auth.NewStore()
	handshake := auth.NewHandshake(apiClient, cfg.Auth.TokenEndpoint, logger)
	refresher := auth.NewRefresher(store, handshake, fingerprints, cfg.Auth, logger, nil)

	asText := checkFlags.format != string(cli.FormatJSON)
	if asText {
		fmt.Println("Checking credential handshake...")
	}

	if err := refresher.Refresh(ctx); err != nil {
		return reportCheck(checkResult{Status: "failed", Error: fmt.Sprintf("handshake: %v", err)}, asText)
	}
	cred, err := store.Current()
	if err != nil {
		return cli.NewCommandError("check", err)
	}

	result := checkResult{
		CredentialTTL:  cred.TTL().Round(time.Second).String(),
		SessionHeaders: len(cred.SessionHeaders) > 0,
	}
	if asText {
		fmt.Printf("✓ Credential obtained (valid for %s)\n", result.CredentialTTL)
		fmt.Println("Checking rate limit sync...")
	}

	builder := upstream.NewBuilder(cfg.Upstream.APIBaseURL, cfg.Upstream.PublicBaseURL)
	dispatcher := upstream.NewDispatcher(apiClient, builder, store, refresher, cfg.Upstream, logger, nil)

	if err := upstream.SelfCheck(ctx, dispatcher, refresher); err != nil {
		result.Status = "failed"
		result.Error = err.Error()
		result.BudgetRemaining = dispatcher.Budget().Remaining()
		return reportCheck(result, asText)
	}

	result.Status = "ok"
	result.BudgetRemaining = dispatcher.Budget().Remaining()
	return reportCheck(result, asText)
}

// reportCheck prints the result in the selected format. A failed result
// also makes the command exit non-zero.
func reportCheck(result checkResult, asText bool) error {
	if asText {
		switch result.Status {
		case "ok":
			fmt.Println("✓ Rate limit check passed")
			fmt.Printf("  Budget remaining: %d\n", result.BudgetRemaining)
		default:
			fmt.Printf("✗ Check failed: %s\n", result.Error)
		}
	} else {
		formatter := cli.NewFormatter(cli.FormatJSON)
		if err := formatter.FormatTo(os.Stdout, result); err != nil {
			return cli.NewCommandError("check", err)
		}
	}

	if result.Status != "ok" {
		return cli.NewCommandError("check", fmt.Errorf("%s", result.Error))
	}
	return nil
}

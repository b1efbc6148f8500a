package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"redveil/pkg/auth"
	"redveil/pkg/cli"
	"redveil/pkg/config"
	"redveil/pkg/fingerprint"
	"redveil/pkg/relay"
	"redveil/pkg/server"
	"redveil/pkg/settings"
	"redveil/pkg/telemetry/logging"
	"redveil/pkg/telemetry/metrics"
	"redveil/pkg/upstream"
)

// selfCheckTimeout bounds the startup credential wait plus the rate
// limit self-check. Startup continues either way; the check only warns.
const selfCheckTimeout = 45 * time.Second

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	skipCheck     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay server",
	Long: `Start the relay server with the specified configuration.

The server obtains a spoofed mobile-client credential, keeps it renewed in
the background, and serves the media relay, settings restore, and
operational endpoints on the configured address.

Examples:
  # Start with default config
  redveil run

  # Start with custom config
  redveil run --config /etc/redveil/config.yaml

  # Override listen address
  redveil run --listen 0.0.0.0:8080

  # Validate config without starting server
  redveil run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.skipCheck, "skip-check", false, "skip the startup rate limit self-check")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	// Tokens and session identifiers must never reach the log output,
	// whatever the configured level.
	log, err := logging.New(logging.Config{
		Level:         cfg.Telemetry.Logging.Level,
		Format:        cfg.Telemetry.Logging.Format,
		RedactSecrets: true,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger := log.Slog()
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	printBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	// Outbound clients: one timeout-bounded client for API traffic, a
	// derived one without an overall deadline for media streams.
	apiClient, err := upstream.NewClient(cfg.Upstream)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	mediaClient := upstream.NewMediaClient(apiClient)

	fingerprints := fingerprint.NewProvider(logger)
	if cfg.Auth.FingerprintFile != "" {
		if err := fingerprints.LoadFile(cfg.Auth.FingerprintFile); err != nil {
			logger.Warn("Fingerprint file not loaded, using compiled defaults",
				"path", cfg.Auth.FingerprintFile,
				"error", err,
			)
		}
		if cfg.Auth.WatchFingerprint {
			go func() {
				if err := fingerprints.Watch(ctx, cfg.Auth.FingerprintFile); err != nil {
					logger.Warn("Fingerprint watcher stopped", "error", err)
				}
			}()
		}
	}

	// Credential store + background refresher
	store := auth.NewStore()
	handshake := auth.NewHandshake(apiClient, cfg.Auth.TokenEndpoint, logger)
	refresher := auth.NewRefresher(store, handshake, fingerprints, cfg.Auth, logger, collector)

	refreshErr := make(chan error, 1)
	go func() {
		refreshErr <- refresher.Run(ctx)
	}()

	builder := upstream.NewBuilder(cfg.Upstream.APIBaseURL, cfg.Upstream.PublicBaseURL)
	dispatcher := upstream.NewDispatcher(apiClient, builder, store, refresher, cfg.Upstream, logger, collector)

	if !runFlags.skipCheck {
		startupSelfCheck(ctx, dispatcher, store, refresher, logger)
	}

	// Relay surface
	relayCore := relay.NewRelay(mediaClient, store, logger)
	var gifHost *relay.GifHost
	if cfg.Relay.EnableGifHost {
		gifHost = relay.NewGifHost(apiClient, relayCore, logger, collector)
	}

	codec := settings.NewCodec(settings.Defaults(cfg.SettingsDefaults))
	restore := settings.NewRestoreHandler(codec, logger, collector)

	srv := server.NewServer(cfg, server.Deps{
		Relay:     relayCore,
		GifHost:   gifHost,
		Restore:   restore,
		Store:     store,
		Collector: collector,
		Logger:    logger,
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	// Start drains on SIGINT/SIGTERM itself; the channel here lets us
	// report the signal before waiting the drain out.
	sigChan := cli.WaitForShutdown()

	select {
	case err := <-serverErr:
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		fmt.Println("✓ Server stopped")
		return nil

	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()
		if err := <-serverErr; err != nil {
			return cli.NewCommandError("run", err)
		}
		fmt.Println("✓ Server stopped")
		return nil

	case err := <-refreshErr:
		// nil means the refresher stopped with the context; anything
		// else is a bootstrap failure with no credential ever obtained.
		if err == nil {
			if serr := <-serverErr; serr != nil {
				return cli.NewCommandError("run", serr)
			}
			return nil
		}
		logger.Error("Credential bootstrap failed, stopping server", "error", err)
		cancel()
		<-serverErr
		return cli.NewCommandError("run", err)
	}
}

// startupSelfCheck waits for the first credential and runs the rate
// limit self-check. Failures are warnings: the relay still serves, but
// upstream may throttle it harder than the pacer assumes.
func startupSelfCheck(ctx context.Context, dispatcher *upstream.Dispatcher, store *auth.Store, refresher *auth.Refresher, logger *slog.Logger) {
	checkCtx, checkCancel := context.WithTimeout(ctx, selfCheckTimeout)
	defer checkCancel()

	if err := store.AwaitReady(checkCtx); err != nil {
		logger.Warn("No credential before the self-check deadline, continuing startup", "error", err)
		return
	}

	if err := upstream.SelfCheck(checkCtx, dispatcher, refresher); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("Rate limit self-check timed out, continuing startup", "error", err)
			return
		}
		logger.Warn("Rate limit self-check failed; upstream may throttle this instance",
			"error", err,
		)
		fmt.Printf("⚠ Rate limit check failed: %v\n", err)
		return
	}

	logger.Info("Rate limit self-check passed")
	fmt.Println("✓ Rate limit check passed")
}

func printBanner(cfg *config.Config) {
	fmt.Printf("Redveil v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	slog.Debug("upstream hosts",
		"api", cfg.Upstream.APIBaseURL,
		"public", cfg.Upstream.PublicBaseURL,
	)
	slog.Debug("gif host", "enabled", cfg.Relay.EnableGifHost)
	if cfg.Auth.FingerprintFile != "" {
		slog.Debug("fingerprint file", "path", cfg.Auth.FingerprintFile, "watch", cfg.Auth.WatchFingerprint)
	}
}

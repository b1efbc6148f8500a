// Package server provides the public HTTP surface of the relay.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"redveil/pkg/auth"
	"redveil/pkg/config"
	"redveil/pkg/relay"
	"redveil/pkg/server/middleware"
	"redveil/pkg/settings"
	"redveil/pkg/telemetry/health"
	"redveil/pkg/telemetry/metrics"
)

// Server is the HTTP front of the relay: the media route table, the
// settings restore surface, and the operational endpoints.
type Server struct {
	cfg          *config.Config
	deps         Deps
	logger       *slog.Logger
	health       *health.Checker
	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// Deps carries the assembled components the server mounts.
type Deps struct {
	// Relay streams media bodies from allowlisted origins.
	Relay *relay.Relay

	// GifHost resolves and relays the secondary gif host. Only mounted
	// when the relay config enables it; may be nil otherwise.
	GifHost *relay.GifHost

	// Restore serves the settings restore endpoints.
	Restore *settings.RestoreHandler

	// Store answers readiness: the instance is ready once a credential
	// has been obtained.
	Store *auth.Store

	// Collector serves the metrics endpoint and feeds the relay
	// handlers. May be nil when metrics are disabled.
	Collector *metrics.Collector

	// Logger is used by the server and its middleware. Defaults to
	// slog.Default.
	Logger *slog.Logger

	// Version, Commit, and BuildTime are reported by the version
	// endpoint. Usually injected at link time.
	Version   string
	Commit    string
	BuildTime string
}

// NewServer creates the relay server. It does not bind the listen
// address until Start is called.
func NewServer(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	checker := health.New(0)
	if deps.Store != nil {
		store := deps.Store
		checker.RegisterCheck("credential", func(ctx context.Context) error {
			_, err := store.Current()
			return err
		})
	}

	return &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		health: checker,
	}
}

// Start starts the HTTP server and blocks until the context is
// cancelled, a shutdown signal arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.cfg.Server.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting relay server",
			"address", s.cfg.Server.ListenAddress,
			"gif_host", s.cfg.Relay.EnableGifHost,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server, draining in-flight
// requests for at most the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown",
			"timeout", s.cfg.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("relay server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler with the full middleware
// chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// setupRoutes builds the route table and applies the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	var handler http.Handler = s.routes()

	handler = middleware.TimeoutMiddleware(s.cfg.Server.APITimeout, streamExempt())(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(s.logger)(handler)
	handler = middleware.RecoveryMiddleware(s.logger)(handler)

	return handler
}

// routes registers every endpoint on a fresh mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	policy := relay.NewHostPolicy(s.cfg.Relay.ExtraAllowedHosts)
	for _, rt := range relay.DefaultRoutes() {
		mux.Handle("GET "+rt.Pattern, relay.NewHandler(s.deps.Relay, rt, policy, s.logger, s.deps.Collector))
	}

	if s.cfg.Relay.EnableGifHost && s.deps.GifHost != nil {
		mux.Handle("GET /redgifs/{path...}", s.deps.GifHost)
	}

	mux.HandleFunc("GET /settings/restore/{$}", s.deps.Restore.Restore)
	mux.HandleFunc("POST /settings/encoded-restore", s.deps.Restore.EncodedRestore)

	mux.HandleFunc("GET /health", s.health.LivenessHandler())
	mux.HandleFunc("GET /ready", s.health.ReadinessHandler())
	mux.HandleFunc("GET /version", health.VersionHandler(s.deps.Version, s.deps.Commit, s.deps.BuildTime))

	if s.cfg.Telemetry.Metrics.Enabled && s.deps.Collector != nil {
		path := s.cfg.Telemetry.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, s.deps.Collector.Handler())
	}

	return mux
}

// streamExempt returns the predicate that waves streaming routes past
// the API timeout. Every media route prefix is exempt, as is the gif
// host; their streams are bounded by the server write timeout and the
// request context instead.
func streamExempt() func(*http.Request) bool {
	prefixes := make(map[string]struct{})
	for _, rt := range relay.DefaultRoutes() {
		prefixes[firstSegment(rt.Pattern)] = struct{}{}
	}
	prefixes["redgifs"] = struct{}{}

	return func(r *http.Request) bool {
		_, ok := prefixes[firstSegment(r.URL.Path)]
		return ok
	}
}

// firstSegment extracts the leading path segment: "/vid/{id}" -> "vid".
func firstSegment(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	return path
}

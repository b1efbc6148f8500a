package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"redveil/pkg/config"
	"redveil/pkg/fingerprint"
	"redveil/pkg/telemetry/metrics"
)

// Refresher keeps the credential store populated. It runs a periodic
// renewal loop and also serves reactive refresh requests from the
// request path when upstream rejects a token early. Concurrent refresh
// requests coalesce into a single handshake.
type Refresher struct {
	store        *Store
	handshake    *Handshake
	fingerprints *fingerprint.Provider
	cfg          config.AuthConfig
	logger       *slog.Logger
	metrics      *metrics.Collector

	group singleflight.Group

	mu          sync.Mutex
	device      *fingerprint.Device
	deviceSpec  *fingerprint.Spec
	failures    int
	lastAttempt time.Time
	lastErr     error
}

// NewRefresher creates a refresher writing into store. A nil logger
// falls back to slog.Default; a nil collector disables refresh metrics.
func NewRefresher(store *Store, handshake *Handshake, fingerprints *fingerprint.Provider, cfg config.AuthConfig, logger *slog.Logger, collector *metrics.Collector) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	if fingerprints == nil {
		fingerprints = fingerprint.NewProvider(logger)
	}
	return &Refresher{
		store:        store,
		handshake:    handshake,
		fingerprints: fingerprints,
		cfg:          cfg,
		logger:       logger,
		metrics:      collector,
	}
}

// Refresh obtains a fresh credential and stores it. Calls arriving
// while a handshake is in flight wait for and share its outcome; calls
// arriving within the cooldown after a completed attempt reuse that
// attempt's outcome instead of issuing another handshake.
func (r *Refresher) Refresh(ctx context.Context) error {
	return r.refresh(ctx, false)
}

// ForceRefresh rolls the credential over unconditionally, ignoring the
// cooldown. Used by the startup self-test, which must observe two
// distinct tokens.
func (r *Refresher) ForceRefresh(ctx context.Context) error {
	return r.refresh(ctx, true)
}

func (r *Refresher) refresh(ctx context.Context, force bool) error {
	_, err, _ := r.group.Do("refresh", func() (interface{}, error) {
		return nil, r.refreshOnce(ctx, force)
	})
	return err
}

// refreshOnce performs a single token exchange. Only one invocation
// runs at a time (callers go through the singleflight group).
func (r *Refresher) refreshOnce(parent context.Context, force bool) error {
	r.mu.Lock()

	if !force && r.cfg.RefreshCooldown > 0 && time.Since(r.lastAttempt) < r.cfg.RefreshCooldown {
		if cred, err := r.store.Current(); err == nil && cred.Valid() {
			r.mu.Unlock()
			return nil
		}
		if r.lastErr != nil {
			err := r.lastErr
			r.mu.Unlock()
			return err
		}
	}

	r.lastAttempt = time.Now()
	device := r.currentDeviceLocked()
	clientID := r.deviceSpec.ClientID

	path := PathMobile
	if r.cfg.FallbackAfterFailures > 0 && r.failures >= r.cfg.FallbackAfterFailures {
		path = PathFallback
	}
	r.mu.Unlock()

	// The handshake outlives the triggering request: a cancelled caller
	// must not abort an exchange other callers are waiting on.
	ctx := context.WithoutCancel(parent)
	if r.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.HandshakeTimeout)
		defer cancel()
	}

	start := time.Now()
	var cred *Credential
	var err error
	if path == PathFallback {
		cred, err = r.handshake.Fallback(ctx, device, clientID)
	} else {
		cred, err = r.handshake.Mobile(ctx, device, clientID)
	}
	elapsed := time.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.failures++
		r.lastErr = err
		if r.metrics != nil {
			r.metrics.RecordTokenRefresh(path, "failure", elapsed)
			r.metrics.SetRefreshFailureStreak(r.failures)
		}
		r.logger.Warn("Token refresh failed",
			"path", path,
			"consecutive_failures", r.failures,
			"error", err,
		)

		if r.cfg.MaxConsecutiveFailures > 0 && r.failures >= r.cfg.MaxConsecutiveFailures {
			if _, serr := r.store.Current(); serr != nil {
				return &BootstrapError{Attempts: r.failures, Cause: err}
			}
		}
		return err
	}

	r.failures = 0
	r.lastErr = nil
	r.store.Set(cred)
	if r.metrics != nil {
		r.metrics.RecordTokenRefresh(path, "success", elapsed)
		r.metrics.SetRefreshFailureStreak(0)
		r.metrics.SetTokenValidity(time.Until(cred.ExpiresAt).Seconds())
	}
	r.logger.Info("Credential refreshed",
		"path", path,
		"expires_in", cred.TTL().Round(time.Second).String(),
		"device_id", device.ID,
	)
	return nil
}

// currentDeviceLocked returns the process-stable device identity,
// drawing a new one when the fingerprint spec has been swapped. Callers
// must hold r.mu.
func (r *Refresher) currentDeviceLocked() *fingerprint.Device {
	spec := r.fingerprints.Current()
	if r.device == nil || r.deviceSpec != spec {
		r.device = fingerprint.NewDevice(spec)
		r.deviceSpec = spec
		r.logger.Info("Client identity drawn",
			"device_id", r.device.ID,
			"user_agent", r.device.UserAgent,
		)
	}
	return r.device
}

// Run drives the periodic renewal loop: refresh immediately, then
// re-refresh at expiry minus the configured margin, backing off
// exponentially across consecutive failures. This is a blocking
// operation that runs until the context is cancelled. It returns an
// error only when the failure ceiling is reached before any credential
// was ever obtained.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("Credential refresher started",
		"refresh_margin", r.cfg.RefreshMargin.String(),
		"fallback_after_failures", r.cfg.FallbackAfterFailures,
	)

	backoff := r.cfg.RetryBackoffBase
	for {
		err := r.refresh(ctx, true)

		var fatal *BootstrapError
		if errors.As(err, &fatal) {
			r.logger.Error("Credential bootstrap failed, giving up", "attempts", fatal.Attempts, "error", fatal.Cause)
			return fatal
		}

		var wait time.Duration
		if err != nil {
			wait = backoff
			backoff *= 2
			if backoff > r.cfg.RetryBackoffMax {
				backoff = r.cfg.RetryBackoffMax
			}
		} else {
			backoff = r.cfg.RetryBackoffBase
			wait = r.cfg.RefreshCooldown
			if cred, cerr := r.store.Current(); cerr == nil {
				wait = cred.TTL() - r.cfg.RefreshMargin
				if wait < r.cfg.RefreshCooldown {
					wait = r.cfg.RefreshCooldown
				}
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Credential refresher stopped (context cancelled)")
			return nil
		case <-time.After(wait):
		}
	}
}

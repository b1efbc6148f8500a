package upstream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"redveil/pkg/auth"
	"redveil/pkg/config"
	"redveil/pkg/telemetry/metrics"
)

const (
	// canonicalTries bounds how many permanent-redirect hops a single
	// resolution follows.
	canonicalTries = 3

	// canonicalCacheTTL is how long a resolved path stays cached.
	canonicalCacheTTL = 10 * time.Minute

	// canonicalCacheSize caps the number of cached resolutions.
	canonicalCacheSize = 1024

	// canonicalCacheName labels the resolver cache in telemetry.
	canonicalCacheName = "canonical"
)

// Resolver turns share links and short links into canonical API paths
// by replaying the upstream's redirect chain with HEAD requests.
// Results, including "no canonical form", are cached with a TTL; a
// cron janitor prunes expired entries between requests.
type Resolver struct {
	client  *http.Client
	builder *Builder
	store   *auth.Store
	cfg     config.UpstreamConfig
	logger  *slog.Logger
	metrics *metrics.Collector

	mu    sync.Mutex
	cache map[string]canonicalEntry

	cronMu  sync.Mutex
	cron    *cron.Cron
	running bool
}

type canonicalEntry struct {
	path    string
	expires time.Time
}

// NewResolver creates a resolver sharing the dispatcher's client,
// builder, and credential store.
func NewResolver(client *http.Client, builder *Builder, store *auth.Store, cfg config.UpstreamConfig, logger *slog.Logger, collector *metrics.Collector) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:  client,
		builder: builder,
		store:   store,
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		cache:   make(map[string]canonicalEntry),
		cron:    cron.New(),
	}
}

// Canonical resolves path to its canonical API path. An empty result
// with a nil error means the upstream offers no canonical form for it.
func (r *Resolver) Canonical(ctx context.Context, path string) (string, error) {
	if cached, ok := r.lookup(path); ok {
		if r.metrics != nil {
			r.metrics.RecordCacheHit(canonicalCacheName)
		}
		return cached, nil
	}
	if r.metrics != nil {
		r.metrics.RecordCacheMiss(canonicalCacheName)
	}

	resolved, err := r.resolve(ctx, path, canonicalTries)
	if err != nil {
		return "", err
	}
	r.insert(path, resolved)
	return resolved, nil
}

// resolve performs one resolution step and recurses on permanent
// redirects until the hop budget runs out.
func (r *Resolver) resolve(ctx context.Context, path string, tries int) (string, error) {
	if tries <= 0 {
		return "", nil
	}

	resp, err := r.head(ctx, path)
	if err != nil {
		return "", err
	}
	status := resp.StatusCode
	retryAfter := resp.Header.Get("Retry-After")
	location := resp.Header.Get("Location")
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()

	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusForbidden && retryAfter != "":
		return "", &RateLimitError{Path: path, RetryAfter: parseRetryAfter(retryAfter)}

	case status >= 200 && status < 300:
		return path, nil

	case status == http.StatusMovedPermanently:
		if location == "" {
			return "", nil
		}
		next := location
		if i := strings.IndexByte(next, '?'); i >= 0 {
			next = next[:i]
		}
		next = strings.TrimSuffix(next, ".json")
		next = r.relativize(next)
		r.logger.Debug("Following canonical redirect",
			"path", path,
			"next", next,
			"tries_left", tries-1,
		)
		return r.resolve(ctx, next, tries-1)

	case status >= 300 && status < 400:
		return "", nil

	default:
		// Some error replies still point at the canonical location.
		if location != "" {
			return r.relativize(location), nil
		}
		return "", nil
	}
}

// head issues a HEAD for path against the public host, falling back to
// the short-link host when the public host answers with a client error.
// Bare share-link IDs only resolve on the short-link host.
func (r *Resolver) head(ctx context.Context, path string) (*http.Response, error) {
	desc := Descriptor{Method: http.MethodHead, Path: path, Kind: "resolve"}
	hosts := []string{
		strings.TrimSuffix(r.cfg.PublicBaseURL, "/"),
		strings.TrimSuffix(r.cfg.ShortLinkBaseURL, "/"),
	}

	var resp *http.Response
	for _, host := range hosts {
		if resp != nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
		}

		req, err := r.builder.request(ctx, http.MethodHead, desc.target(host), desc, currentCredential(r.store))
		if err != nil {
			return nil, err
		}
		resp, err = r.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("resolving %q: %w", path, err)
		}
		if resp.StatusCode < 400 || resp.StatusCode >= 500 {
			break
		}
	}
	return resp, nil
}

// relativize strips the known upstream hosts from a location.
func (r *Resolver) relativize(location string) string {
	for _, base := range []string{r.cfg.APIBaseURL, r.cfg.PublicBaseURL, r.cfg.ShortLinkBaseURL} {
		location = strings.TrimPrefix(location, strings.TrimSuffix(base, "/"))
	}
	return location
}

func (r *Resolver) lookup(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[path]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(r.cache, path)
		return "", false
	}
	return entry.path, true
}

func (r *Resolver) insert(path, resolved string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.cache) >= canonicalCacheSize {
		r.evictLocked()
	}
	r.cache[path] = canonicalEntry{path: resolved, expires: time.Now().Add(canonicalCacheTTL)}
	if r.metrics != nil {
		r.metrics.UpdateCacheSize(canonicalCacheName, len(r.cache))
	}
}

// evictLocked drops one entry, preferring anything already expired.
func (r *Resolver) evictLocked() {
	now := time.Now()
	var victim string
	for key, entry := range r.cache {
		victim = key
		if now.After(entry.expires) {
			break
		}
	}
	if victim == "" {
		return
	}
	delete(r.cache, victim)
	if r.metrics != nil {
		r.metrics.RecordCacheEviction(canonicalCacheName)
	}
}

// StartJanitor schedules periodic pruning of expired cache entries.
// An empty schedule disables the job; entries then expire lazily on
// read. The janitor stops when ctx is cancelled.
func (r *Resolver) StartJanitor(ctx context.Context, schedule string) error {
	r.cronMu.Lock()
	defer r.cronMu.Unlock()

	if schedule == "" {
		r.logger.Info("Resolver cache pruning not scheduled")
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid resolver cache prune schedule %q: %w", schedule, err)
	}
	if _, err := r.cron.AddFunc(schedule, r.prune); err != nil {
		return fmt.Errorf("scheduling resolver cache pruning: %w", err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("Resolver cache janitor started", "schedule", schedule)

	go func() {
		<-ctx.Done()
		r.StopJanitor()
	}()

	return nil
}

// StopJanitor stops the janitor and waits for a running prune to
// finish.
func (r *Resolver) StopJanitor() {
	r.cronMu.Lock()
	defer r.cronMu.Unlock()

	if r.cron != nil && r.running {
		stopCtx := r.cron.Stop()
		<-stopCtx.Done()
		r.running = false
		r.logger.Info("Resolver cache janitor stopped")
	}
}

// prune drops expired cache entries.
func (r *Resolver) prune() {
	now := time.Now()

	r.mu.Lock()
	removed := 0
	for key, entry := range r.cache {
		if now.After(entry.expires) {
			delete(r.cache, key)
			removed++
		}
	}
	size := len(r.cache)
	r.mu.Unlock()

	if r.metrics != nil {
		for i := 0; i < removed; i++ {
			r.metrics.RecordCacheEviction(canonicalCacheName)
		}
		r.metrics.UpdateCacheSize(canonicalCacheName, size)
	}
	if removed > 0 {
		r.logger.Debug("Pruned canonical path cache", "removed", removed, "remaining", size)
	}
}

// currentCredential returns the store's credential, nil before the
// first handshake completes.
func currentCredential(store *auth.Store) *auth.Credential {
	cred, err := store.Current()
	if err != nil {
		return nil
	}
	return cred
}

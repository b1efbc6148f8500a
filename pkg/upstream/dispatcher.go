package upstream

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"redveil/pkg/auth"
	"redveil/pkg/config"
	"redveil/pkg/telemetry/metrics"
)

// maxRedirectHops bounds how many upstream redirects one attempt will
// follow before giving up.
const maxRedirectHops = 3

// maxBodyBytes caps how much of an upstream API response is read into
// memory. Listings are well under this; anything larger is not a JSON
// API response.
const maxBodyBytes = 10 << 20

// Refresher triggers a coalesced credential refresh. Implemented by
// *auth.Refresher.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Dispatcher sends built requests, classifies responses, and applies
// the bounded retry policy. It is safe for concurrent use; every call
// is independent apart from the shared credential store, budget, and
// pacer.
type Dispatcher struct {
	client    *http.Client
	builder   *Builder
	store     *auth.Store
	refresher Refresher
	budget    *Budget
	pacer     *rate.Limiter
	cfg       config.UpstreamConfig
	logger    *slog.Logger
	metrics   *metrics.Collector

	rollingOver atomic.Bool
}

// NewDispatcher creates a dispatcher. A nil logger falls back to
// slog.Default; a nil collector disables dispatch metrics.
func NewDispatcher(client *http.Client, builder *Builder, store *auth.Store, refresher Refresher, cfg config.UpstreamConfig, logger *slog.Logger, collector *metrics.Collector) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	burst := 0
	if cfg.PacePerMinute > 0 {
		limit = rate.Limit(float64(cfg.PacePerMinute) / 60.0)
		burst = cfg.PaceBurst
		if burst < 1 {
			burst = 1
		}
	}

	return &Dispatcher{
		client:    client,
		builder:   builder,
		store:     store,
		refresher: refresher,
		budget:    NewBudget(),
		pacer:     rate.NewLimiter(limit, burst),
		cfg:       cfg,
		logger:    logger,
		metrics:   collector,
	}
}

// Budget returns the shared rate-limit budget, for readiness probes and
// the startup self-test.
func (d *Dispatcher) Budget() *Budget {
	return d.budget
}

// Fetch executes the descriptor and returns the response body. The
// caller observes only terminal outcomes: transient failures and token
// expiry are absorbed by the retry policy, and the surfaced errors are
// the typed kinds in this package.
func (d *Dispatcher) Fetch(ctx context.Context, desc Descriptor) ([]byte, error) {
	if err := d.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	if desc.RequiresAuth {
		if err := d.store.AwaitReady(ctx); err != nil {
			return nil, err
		}
		d.budget.Spend()
		if d.budget.Low() {
			d.logger.Warn("Rate limit budget low, rolling credential over", "remaining", d.budget.Remaining())
			d.rollover()
		}
	}

	start := time.Now()
	body, status, err := d.dispatch(ctx, desc)
	if d.metrics != nil {
		d.metrics.RecordUpstreamRequest(desc.kind(), metrics.StatusClass(status), time.Since(start))
	}
	if err != nil {
		d.recordError(err)
		return nil, err
	}
	return body, nil
}

// FetchJSON executes the descriptor and decodes the JSON body into v.
// Error envelopes that arrive with a 2xx status (account suspension,
// access-denial reasons, late token rejection) are mapped to the same
// typed errors as their status-coded equivalents.
func (d *Dispatcher) FetchJSON(ctx context.Context, desc Descriptor, v interface{}) error {
	body, err := d.Fetch(ctx, desc)
	if err != nil {
		return err
	}

	env := parseEnvelope(body)
	if env.Data.IsSuspended {
		err := &ForbiddenError{Path: desc.Path, Reason: ReasonSuspended}
		d.recordError(err)
		return err
	}
	if env.Error != 0 {
		err := d.envelopeError(desc, env)
		d.recordError(err)
		return err
	}

	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			perr := &ParseError{Path: desc.Path, Cause: err}
			d.recordError(perr)
			return perr
		}
	}
	return nil
}

// dispatch runs the retry state machine for one descriptor. It returns
// the last observed status code alongside the outcome for telemetry.
func (d *Dispatcher) dispatch(ctx context.Context, desc Descriptor) ([]byte, int, error) {
	refreshed := false
	var lastErr error
	var lastStatus int
	var retryAfter time.Duration

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := d.backoff(attempt, retryAfter)
			d.logger.Debug("Retrying upstream request",
				"path", desc.Path,
				"attempt", attempt,
				"max_retries", d.cfg.MaxRetries,
				"backoff", wait,
			)
			select {
			case <-ctx.Done():
				return nil, lastStatus, ctx.Err()
			case <-time.After(wait):
			}
			retryAfter = 0
		}

		res, err := d.send(ctx, desc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, lastStatus, ctx.Err()
			}
			var redirErr *RedirectError
			if errors.As(err, &redirErr) {
				return nil, lastStatus, redirErr
			}
			lastErr = err
			d.countRetry("network")
			d.logger.Warn("Upstream request failed, will retry",
				"path", desc.Path,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		lastStatus = res.status
		reset := d.budget.Observe(res.header)
		if d.metrics != nil {
			d.metrics.SetRateLimitRemaining(float64(d.budget.Remaining()))
		}

		switch {
		case res.status >= 200 && res.status < 300:
			if desc.RequiresAuth && desc.method() == http.MethodGet && len(res.body) == 0 {
				// A 2xx with an empty body is the upstream's stealth
				// rate limit. Roll the credential and retry.
				d.rollover()
				lastErr = &RateLimitError{Path: desc.Path, Reset: reset}
				d.countRetry("rate_limited")
				d.logger.Warn("Empty-body rate limit detected, rolling credential over",
					"path", desc.Path,
					"attempt", attempt+1,
				)
				continue
			}
			return res.body, res.status, nil

		case res.status == http.StatusTooManyRequests ||
			(res.status == http.StatusForbidden && res.header.Get("Retry-After") != ""):
			ra := parseRetryAfter(res.header.Get("Retry-After"))
			lastErr = &RateLimitError{Path: desc.Path, RetryAfter: ra, Reset: reset}
			retryAfter = ra
			d.countRetry("rate_limited")
			d.logger.Warn("Upstream rate limited, will retry",
				"path", desc.Path,
				"attempt", attempt+1,
				"retry_after", ra,
			)
			continue

		case res.status == http.StatusUnauthorized ||
			(res.status == http.StatusForbidden && parseEnvelope(res.body).Message == "Unauthorized"):
			if refreshed {
				return nil, res.status, &AuthRejectedError{Path: desc.Path}
			}
			refreshed = true
			d.logger.Info("Credential rejected, refreshing",
				"path", desc.Path,
				"status", res.status,
			)
			if err := d.refresher.Refresh(ctx); err != nil {
				return nil, res.status, &AuthRejectedError{Path: desc.Path}
			}
			d.countRetry("auth")
			// The single post-refresh retry does not consume a slot
			// from the transient-failure budget.
			attempt--
			continue

		case res.status >= 400 && res.status < 500:
			return nil, res.status, d.fatalError(desc, res)

		default:
			lastErr = fmt.Errorf("upstream status %d", res.status)
			d.countRetry("server_error")
			d.logger.Warn("Upstream returned server error, will retry",
				"path", desc.Path,
				"status", res.status,
				"attempt", attempt+1,
			)
		}
	}

	var rlErr *RateLimitError
	if errors.As(lastErr, &rlErr) {
		return nil, lastStatus, rlErr
	}
	return nil, lastStatus, &UnavailableError{
		Path:     desc.Path,
		Attempts: d.cfg.MaxRetries + 1,
		Cause:    lastErr,
	}
}

// result is one fully-read upstream response.
type result struct {
	status int
	header http.Header
	body   []byte
}

// send performs one attempt: build the request from the current
// credential, follow upstream redirects up to the hop limit, and read
// the (decompressed) body.
func (d *Dispatcher) send(ctx context.Context, desc Descriptor) (*result, error) {
	target := desc.target(d.builder.host(desc))

	for hop := 0; ; hop++ {
		req, err := d.builder.request(ctx, desc.method(), target, desc, currentCredential(d.store))
		if err != nil {
			return nil, err
		}

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()

			if hop >= maxRedirectHops {
				return nil, &RedirectError{Path: desc.Path, Location: location}
			}
			rewritten, err := d.rewriteRedirect(desc, location)
			if err != nil {
				return nil, err
			}
			d.logger.Debug("Following upstream redirect",
				"path", desc.Path,
				"target", rewritten,
				"hop", hop+1,
			)
			target = rewritten
			continue
		}

		body, err := readBody(resp)
		if err != nil {
			return nil, err
		}
		return &result{status: resp.StatusCode, header: resp.Header, body: body}, nil
	}
}

// rewriteRedirect maps an upstream Location onto the descriptor's own
// host. The bare public host root is the upstream's soft error page;
// following it would bounce the user out of the relay, so it is
// refused, as is any redirect to a foreign host.
func (d *Dispatcher) rewriteRedirect(desc Descriptor, location string) (string, error) {
	if location == "" {
		return "", &RedirectError{Path: desc.Path, Location: location}
	}

	publicBase := strings.TrimSuffix(d.cfg.PublicBaseURL, "/")
	if location == publicBase || location == publicBase+"/" {
		return "", &RedirectError{Path: desc.Path, Location: location}
	}

	path := strings.TrimPrefix(location, strings.TrimSuffix(d.cfg.APIBaseURL, "/"))
	path = strings.TrimPrefix(path, publicBase)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return "", &RedirectError{Path: desc.Path, Location: location}
	}

	if strings.Contains(path, "?") {
		path += "&raw_json=1"
	} else {
		path += "?raw_json=1"
	}
	return d.builder.host(desc) + path, nil
}

// rollover starts a coalesced background credential refresh unless one
// is already in flight.
func (d *Dispatcher) rollover() {
	if !d.rollingOver.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer d.rollingOver.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		defer cancel()
		if err := d.refresher.Refresh(ctx); err != nil {
			d.logger.Warn("Credential rollover failed", "error", err)
		}
	}()
}

// backoff computes the delay before retry number attempt: exponential
// from the configured base, capped, jittered in the upper half, and
// stretched to honor any Retry-After the upstream sent.
func (d *Dispatcher) backoff(attempt int, retryAfter time.Duration) time.Duration {
	wait := time.Duration(math.Pow(2, float64(attempt-1)) * float64(d.cfg.RetryBackoffBase))
	if wait > d.cfg.RetryBackoffMax {
		wait = d.cfg.RetryBackoffMax
	}
	if wait > 0 {
		wait = wait/2 + rand.N(wait/2+1)
	}
	if retryAfter > wait {
		wait = retryAfter
	}
	return wait
}

// fatalError maps a non-retryable 4xx response to a typed error,
// preferring the denial reason from the body envelope when present.
func (d *Dispatcher) fatalError(desc Descriptor, res *result) error {
	env := parseEnvelope(res.body)
	if isDenialReason(env.Reason) {
		return &ForbiddenError{Path: desc.Path, Reason: env.Reason}
	}
	switch res.status {
	case http.StatusNotFound:
		return &NotFoundError{Path: desc.Path}
	case http.StatusForbidden:
		return &ForbiddenError{Path: desc.Path}
	default:
		return &StatusError{Path: desc.Path, StatusCode: res.status}
	}
}

// envelopeError maps a 2xx body that carries the upstream error
// envelope to a typed error.
func (d *Dispatcher) envelopeError(desc Descriptor, env errorEnvelope) error {
	switch {
	case env.Message == "Unauthorized":
		// The token died between dispatch and body generation. Roll it
		// over for the next caller; this response is already lost.
		d.rollover()
		return &AuthRejectedError{Path: desc.Path}
	case isDenialReason(env.Reason):
		return &ForbiddenError{Path: desc.Path, Reason: env.Reason}
	case env.Error == http.StatusNotFound:
		return &NotFoundError{Path: desc.Path}
	default:
		return &StatusError{Path: desc.Path, StatusCode: env.Error}
	}
}

func (d *Dispatcher) countRetry(reason string) {
	if d.metrics != nil {
		d.metrics.RecordUpstreamRetry(reason)
	}
}

func (d *Dispatcher) recordError(err error) {
	if d.metrics != nil {
		d.metrics.RecordUpstreamError(errorType(err))
	}
}

// errorEnvelope is the error shape the upstream API embeds in JSON
// bodies, for both error statuses and some 2xx responses.
type errorEnvelope struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
	Data    struct {
		IsSuspended bool `json:"is_suspended"`
	} `json:"data"`
}

// parseEnvelope decodes the error envelope, tolerating bodies that are
// not JSON objects at all.
func parseEnvelope(body []byte) errorEnvelope {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)
	return env
}

// isDenialReason reports whether the envelope reason is one of the
// access-denial categories.
func isDenialReason(reason string) bool {
	switch reason {
	case ReasonPrivate, ReasonBanned, ReasonGated, ReasonQuarantined:
		return true
	}
	return false
}

// errorType maps a surfaced error to its telemetry label.
func errorType(err error) string {
	var forbidden *ForbiddenError
	var notFound *NotFoundError
	var authRej *AuthRejectedError
	var rateLimited *RateLimitError
	var parseErr *ParseError
	var redirErr *RedirectError

	switch {
	case errors.As(err, &forbidden):
		if forbidden.Reason != "" {
			return forbidden.Reason
		}
		return "forbidden"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &authRej):
		return "oauth"
	case errors.As(err, &rateLimited):
		return "rate_limited"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &redirErr):
		return "redirect"
	default:
		return "network"
	}
}

// readBody drains and closes the response body, decompressing gzip
// content the way the official client asks for it.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	switch encoding := resp.Header.Get("Content-Encoding"); encoding {
	case "", "identity":
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("opening gzip body: %w", err)
		}
		defer gz.Close()
		reader = gz
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}

// parseRetryAfter parses a Retry-After header value, supporting both
// delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}

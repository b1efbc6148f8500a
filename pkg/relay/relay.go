package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"redveil/pkg/auth"
)

// strippedHeaders are upstream diagnostic and identity headers that are
// never forwarded downstream. Everything here either names the CDN
// topology or enables origin-side reporting, and none of it is needed
// for playback or caching.
var strippedHeaders = []string{
	"Access-Control-Expose-Headers",
	"Server",
	"Vary",
	"Etag",
	"X-Cdn",
	"X-Cdn-Client-Region",
	"X-Cdn-Name",
	"X-Cdn-Server-Region",
	"X-Reddit-Cdn",
	"X-Reddit-Video-Features",
	"Nel",
	"Report-To",
}

// StreamOptions carries the conditional and range headers copied from
// the downstream request. Values are forwarded to the origin verbatim;
// empty values are omitted.
type StreamOptions struct {
	Range           string
	IfModifiedSince string
	CacheControl    string
}

// StreamedResponse is one open media stream. StatusCode and Header are
// the origin's, minus the stripped diagnostics; Body is the unread
// origin body and the caller owns closing it.
type StreamedResponse struct {
	StatusCode    int
	Header        http.Header
	Body          io.ReadCloser
	ContentLength int64
}

// MediaError reports that a media origin could not serve a target
// before any bytes were forwarded downstream.
type MediaError struct {
	// Target is the upstream URL that failed.
	Target string

	// StatusCode is the origin's status when it responded with an
	// error, zero when the request never completed.
	StatusCode int

	// Cause is the transport error, nil when the origin responded.
	Cause error
}

func (e *MediaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("media origin unreachable for %q: %v", e.Target, e.Cause)
	}
	return fmt.Sprintf("media origin returned status %d for %q", e.StatusCode, e.Target)
}

func (e *MediaError) Unwrap() error {
	return e.Cause
}

// Relay opens streams against media origins on behalf of clients. It
// presents the same spoofed device identity as the API traffic and
// sanitizes origin headers, but never buffers bodies: responses stream
// through as they arrive.
type Relay struct {
	client *http.Client
	store  *auth.Store
	logger *slog.Logger
}

// NewRelay builds a relay around the given client. The client should
// come from upstream.NewMediaClient so streams are not cut off by the
// API timeout. store may be nil for relays that never impersonate a
// device.
func NewRelay(client *http.Client, store *auth.Store, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		client: client,
		store:  store,
		logger: logger,
	}
}

// Stream opens target and hands back the origin response for piping.
// Origin statuses below 400 pass through unchanged, including partial
// content and redirects; 4xx and 5xx responses are drained and reported
// as a MediaError so no origin error page reaches the client.
func (r *Relay) Stream(ctx context.Context, target string, opts StreamOptions) (*StreamedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &MediaError{Target: target, Cause: err}
	}

	if opts.Range != "" {
		req.Header.Set("Range", opts.Range)
	}
	if opts.IfModifiedSince != "" {
		req.Header.Set("If-Modified-Since", opts.IfModifiedSince)
	}
	if opts.CacheControl != "" {
		req.Header.Set("Cache-Control", opts.CacheControl)
	}

	// Media origins see the same device identity as the API host.
	if r.store != nil {
		if cred, credErr := r.store.Current(); credErr == nil && cred.Device != nil {
			req.Header.Set("User-Agent", cred.Device.UserAgent)
		}
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &MediaError{Target: target, Cause: err}
	}

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &MediaError{Target: target, StatusCode: resp.StatusCode}
	}

	header := resp.Header.Clone()
	for _, name := range strippedHeaders {
		header.Del(name)
	}

	return &StreamedResponse{
		StatusCode:    resp.StatusCode,
		Header:        header,
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
	}, nil
}

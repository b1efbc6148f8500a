package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"redveil/pkg/fingerprint"
)

// Handshake paths on the token endpoint host.
const (
	mobileTokenPath   = "/auth/v2/oauth/access-token/loid"
	fallbackTokenPath = "/api/v1/access_token"

	// installedClientGrant is the OAuth grant type for app installs
	// that have no user account.
	installedClientGrant = "https://oauth.reddit.com/grants/installed_client"
)

// PathMobile and PathFallback name the two handshake paths in errors,
// logs, and metrics.
const (
	PathMobile   = "mobile"
	PathFallback = "fallback"
)

// sessionHeaderNames are the response headers captured from the mobile
// handshake and replayed on subsequent API requests for session
// continuity.
var sessionHeaderNames = []string{"x-reddit-loid", "x-reddit-session"}

// tokenResponse is the JSON body returned by both token endpoints.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Handshake performs token exchanges against the upstream token
// endpoint, impersonating the official mobile client.
type Handshake struct {
	client   *http.Client
	endpoint string
	logger   *slog.Logger
}

// NewHandshake creates a Handshake targeting the given token endpoint
// base URL (scheme and host, no path). A nil client falls back to
// http.DefaultClient; a nil logger falls back to slog.Default.
func NewHandshake(client *http.Client, endpoint string, logger *slog.Logger) *Handshake {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handshake{
		client:   client,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		logger:   logger,
	}
}

// Mobile performs the spoofed mobile-app login. The request carries the
// device's header set and HTTP basic auth with the public client id; on
// success the returned credential includes the session headers echoed
// by the endpoint.
func (h *Handshake) Mobile(ctx context.Context, device *fingerprint.Device, clientID string) (*Credential, error) {
	body := `{"scopes":["*","email","pii"]}`

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+mobileTokenPath, strings.NewReader(body))
	if err != nil {
		return nil, &HandshakeError{Path: PathMobile, Message: "building request", Cause: err}
	}

	device.Apply(req)
	req.Header.Set("Authorization", basicAuth(clientID))

	h.logger.Debug("Sending token handshake", "path", PathMobile)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &HandshakeError{Path: PathMobile, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	cred, err := h.parseToken(resp, PathMobile)
	if err != nil {
		return nil, err
	}

	cred.Device = device
	cred.SessionHeaders = captureSessionHeaders(resp.Header)
	return cred, nil
}

// Fallback performs the generic installed-client grant. It needs no
// app-specific endpoint and survives upstream changes that break the
// mobile handshake, at the cost of a weaker disguise.
func (h *Handshake) Fallback(ctx context.Context, device *fingerprint.Device, clientID string) (*Credential, error) {
	form := url.Values{
		"grant_type": {installedClientGrant},
		"device_id":  {randomDeviceID()},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint+fallbackTokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &HandshakeError{Path: PathFallback, Message: "building request", Cause: err}
	}

	// Form content type must win over the device's JSON default.
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	device.Apply(req)
	req.Header.Set("Authorization", basicAuth(clientID))

	h.logger.Debug("Sending token handshake", "path", PathFallback)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &HandshakeError{Path: PathFallback, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	cred, err := h.parseToken(resp, PathFallback)
	if err != nil {
		return nil, err
	}

	cred.Device = device
	return cred, nil
}

// parseToken validates the response status and decodes the token body.
func (h *Handshake) parseToken(resp *http.Response, path string) (*Credential, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &HandshakeError{Path: path, StatusCode: resp.StatusCode, Message: "reading response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HandshakeError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var token tokenResponse
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, &HandshakeError{Path: path, StatusCode: resp.StatusCode, Message: "malformed token response", Cause: err}
	}

	if token.AccessToken == "" {
		return nil, &HandshakeError{Path: path, StatusCode: resp.StatusCode, Message: "empty access token"}
	}
	if token.ExpiresIn <= 0 {
		return nil, &HandshakeError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("non-positive expiry %d", token.ExpiresIn),
		}
	}

	return &Credential{
		AccessToken: token.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(token.ExpiresIn) * time.Second),
	}, nil
}

// captureSessionHeaders copies the session continuity headers out of a
// handshake response.
func captureSessionHeaders(src http.Header) http.Header {
	out := make(http.Header)
	for _, name := range sessionHeaderNames {
		if v := src.Get(name); v != "" {
			out.Set(name, v)
		}
	}
	return out
}

// basicAuth builds the Authorization value for the public client id
// with an empty secret, matching what the installed app sends.
func basicAuth(clientID string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"))
}

const deviceIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// randomDeviceID generates the 20-character alphanumeric device id the
// installed-client grant expects.
func randomDeviceID() string {
	var b strings.Builder
	b.Grow(20)
	for i := 0; i < 20; i++ {
		b.WriteByte(deviceIDAlphabet[rand.IntN(len(deviceIDAlphabet))])
	}
	return b.String()
}

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"testing"
	"time"

	"redveil/internal/upstreamtest"
	"redveil/pkg/fingerprint"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDevice() *fingerprint.Device {
	return fingerprint.NewDevice(fingerprint.DefaultSpec())
}

func TestHandshake_Mobile(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()
	server.QueueTokenResponse(upstreamtest.TokenSuccess("mobile-token", 86400))

	device := testDevice()
	hs := NewHandshake(nil, server.URL(), discardLogger())

	cred, err := hs.Mobile(context.Background(), device, fingerprint.DefaultClientID)
	if err != nil {
		t.Fatalf("failed to perform mobile handshake: %v", err)
	}

	if cred.AccessToken != "mobile-token" {
		t.Errorf("expected token mobile-token, got %s", cred.AccessToken)
	}
	if ttl := cred.TTL(); ttl < 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("expected roughly a day of validity, got %v", ttl)
	}
	if cred.Device != device {
		t.Error("expected credential to carry the handshake device")
	}

	rr := server.LastRequest()
	if rr == nil {
		t.Fatal("expected a recorded request")
	}
	if rr.Method != "POST" || rr.Path != upstreamtest.MobileTokenPath {
		t.Errorf("expected POST %s, got %s %s", upstreamtest.MobileTokenPath, rr.Method, rr.Path)
	}
	if err := upstreamtest.ExpectBasicAuth(rr, fingerprint.DefaultClientID); err != nil {
		t.Error(err)
	}
	if got := rr.Header.Get("User-Agent"); got != device.UserAgent {
		t.Errorf("expected user agent %q, got %q", device.UserAgent, got)
	}
	if err := upstreamtest.ExpectHeader(rr, "Content-Type", "application/json; charset=UTF-8"); err != nil {
		t.Error(err)
	}
	if err := upstreamtest.ExpectJSONBody(rr, map[string]interface{}{"scopes": []interface{}{"*", "email", "pii"}}); err != nil {
		t.Error(err)
	}
}

func TestHandshake_Mobile_CapturesSessionHeaders(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	hs := NewHandshake(nil, server.URL(), discardLogger())
	cred, err := hs.Mobile(context.Background(), testDevice(), fingerprint.DefaultClientID)
	if err != nil {
		t.Fatalf("failed to perform mobile handshake: %v", err)
	}

	if got := cred.SessionHeaders.Get("x-reddit-loid"); got == "" {
		t.Error("expected x-reddit-loid to be captured")
	}
	if got := cred.SessionHeaders.Get("x-reddit-session"); got == "" {
		t.Error("expected x-reddit-session to be captured")
	}
}

func TestHandshake_Mobile_Failure(t *testing.T) {
	tests := []struct {
		name       string
		wantStatus int
	}{
		{name: "unauthorized", wantStatus: 401},
		{name: "rate limited", wantStatus: 429},
		{name: "server error", wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := upstreamtest.NewServer()
			defer server.Close()
			server.QueueTokenResponse(upstreamtest.TokenFailure(tt.wantStatus))

			hs := NewHandshake(nil, server.URL(), discardLogger())
			_, err := hs.Mobile(context.Background(), testDevice(), fingerprint.DefaultClientID)

			var hsErr *HandshakeError
			if !errors.As(err, &hsErr) {
				t.Fatalf("expected HandshakeError, got %T: %v", err, err)
			}
			if hsErr.StatusCode != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, hsErr.StatusCode)
			}
			if hsErr.Path != PathMobile {
				t.Errorf("expected path %s, got %s", PathMobile, hsErr.Path)
			}
		})
	}
}

func TestHandshake_Mobile_EmptyToken(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()
	server.QueueTokenResponse(upstreamtest.Response{
		StatusCode: 200,
		Body:       map[string]interface{}{"access_token": "", "expires_in": 86400},
	})

	hs := NewHandshake(nil, server.URL(), discardLogger())
	_, err := hs.Mobile(context.Background(), testDevice(), fingerprint.DefaultClientID)

	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("expected HandshakeError for empty token, got %T: %v", err, err)
	}
}

func TestHandshake_Mobile_MalformedBody(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()
	server.QueueTokenResponse(upstreamtest.Response{StatusCode: 200, Body: "<html>not json</html>"})

	hs := NewHandshake(nil, server.URL(), discardLogger())
	_, err := hs.Mobile(context.Background(), testDevice(), fingerprint.DefaultClientID)

	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("expected HandshakeError for malformed body, got %T: %v", err, err)
	}
	if hsErr.Cause == nil {
		t.Error("expected decode error to be preserved as cause")
	}
}

func TestHandshake_Fallback(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()
	server.QueueTokenResponse(upstreamtest.TokenSuccess("fallback-token", 3600))

	device := testDevice()
	hs := NewHandshake(nil, server.URL(), discardLogger())

	cred, err := hs.Fallback(context.Background(), device, fingerprint.DefaultClientID)
	if err != nil {
		t.Fatalf("failed to perform fallback handshake: %v", err)
	}

	if cred.AccessToken != "fallback-token" {
		t.Errorf("expected token fallback-token, got %s", cred.AccessToken)
	}
	if len(cred.SessionHeaders) != 0 {
		t.Errorf("expected no session headers on the fallback path, got %v", cred.SessionHeaders)
	}

	rr := server.LastRequest()
	if rr == nil {
		t.Fatal("expected a recorded request")
	}
	if rr.Path != upstreamtest.FallbackTokenPath {
		t.Errorf("expected path %s, got %s", upstreamtest.FallbackTokenPath, rr.Path)
	}
	if err := upstreamtest.ExpectBasicAuth(rr, fingerprint.DefaultClientID); err != nil {
		t.Error(err)
	}
	if err := upstreamtest.ExpectHeader(rr, "Content-Type", "application/x-www-form-urlencoded"); err != nil {
		t.Error(err)
	}
	if got := rr.Header.Get("User-Agent"); got != device.UserAgent {
		t.Errorf("expected user agent %q, got %q", device.UserAgent, got)
	}

	form, err := url.ParseQuery(string(rr.Body))
	if err != nil {
		t.Fatalf("failed to parse form body: %v", err)
	}
	if got := form.Get("grant_type"); got != "https://oauth.reddit.com/grants/installed_client" {
		t.Errorf("expected installed-client grant type, got %q", got)
	}
	if got := form.Get("device_id"); !regexp.MustCompile(`^[a-zA-Z0-9]{20}$`).MatchString(got) {
		t.Errorf("expected 20-character alphanumeric device id, got %q", got)
	}
}

func TestHandshake_Fallback_Failure(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()
	server.QueueTokenResponse(upstreamtest.TokenFailure(503))

	hs := NewHandshake(nil, server.URL(), discardLogger())
	_, err := hs.Fallback(context.Background(), testDevice(), fingerprint.DefaultClientID)

	var hsErr *HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("expected HandshakeError, got %T: %v", err, err)
	}
	if hsErr.Path != PathFallback {
		t.Errorf("expected path %s, got %s", PathFallback, hsErr.Path)
	}
}

func TestHandshake_ContextCancellation(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()
	server.QueueTokenResponse(upstreamtest.Response{
		StatusCode: 200,
		Body:       map[string]interface{}{"access_token": "slow", "expires_in": 3600},
		Delay:      2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	hs := NewHandshake(nil, server.URL(), discardLogger())
	if _, err := hs.Mobile(ctx, testDevice(), fingerprint.DefaultClientID); err == nil {
		t.Error("expected cancellation error")
	}
}

func TestRandomDeviceID(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-zA-Z0-9]{20}$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := randomDeviceID()
		if !pattern.MatchString(id) {
			t.Fatalf("expected 20-character alphanumeric id, got %q", id)
		}
		seen[id] = true
	}
	if len(seen) != 100 {
		t.Errorf("expected 100 distinct ids, got %d", len(seen))
	}
}

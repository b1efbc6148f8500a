package relay

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"redveil/internal/upstreamtest"
	"redveil/pkg/auth"
	"redveil/pkg/config"
	"redveil/pkg/upstream"
)

func newTestGifHost(t *testing.T, server *upstreamtest.Server) *GifHost {
	t.Helper()

	apiClient, err := upstream.NewClient(config.UpstreamConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client := upstream.NewMediaClient(apiClient)
	relay := NewRelay(client, auth.NewStore(), discardLogger())

	host := NewGifHost(client, relay, discardLogger(), nil)
	host.apiBase = server.URL()
	host.mediaBase = server.URL() + "/"
	return host
}

func gifMux(host *GifHost) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/redgifs/{path...}", host)
	return mux
}

func setGifResponses(server *upstreamtest.Server, id, hd, sd string) {
	server.SetResponse("/v2/auth/temporary", upstreamtest.Response{
		Body: map[string]string{"token": "gif-token"},
	})
	server.SetResponse("/v2/gifs/"+id, upstreamtest.Response{
		Body: map[string]any{
			"gif": map[string]any{
				"urls": map[string]string{"hd": hd, "sd": sd},
			},
		},
	})
}

func TestGifHost_WatchRedirectsToVideo(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	host := newTestGifHost(t, server)
	setGifResponses(server, "abc", host.mediaBase+"abc-hd.mp4", host.mediaBase+"abc-sd.mp4")

	rec := httptest.NewRecorder()
	gifMux(host).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/abc", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/redgifs/abc-hd.mp4" {
		t.Errorf("Location = %q, want /redgifs/abc-hd.mp4", loc)
	}

	var tokenReq, lookupReq *upstreamtest.RecordedRequest
	for _, req := range server.Requests() {
		switch req.Path {
		case "/v2/auth/temporary":
			tokenReq = &req
		case "/v2/gifs/abc":
			lookupReq = &req
		}
	}
	if tokenReq == nil || lookupReq == nil {
		t.Fatal("expected both a token request and a lookup request")
	}
	if got := tokenReq.Header.Get("Authorization"); got != "" {
		t.Errorf("token request Authorization = %q, want none", got)
	}
	if got := lookupReq.Header.Get("Authorization"); got != "Bearer gif-token" {
		t.Errorf("lookup Authorization = %q, want Bearer gif-token", got)
	}
	if got := lookupReq.Header.Get("User-Agent"); got != gifUserAgent {
		t.Errorf("lookup User-Agent = %q, want browser identity", got)
	}
	if got := lookupReq.Query; got != "views=yes" {
		t.Errorf("lookup query = %q, want views=yes", got)
	}
}

func TestGifHost_WatchFallsBackToSD(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	host := newTestGifHost(t, server)
	setGifResponses(server, "abc", "", host.mediaBase+"abc-sd.mp4")

	rec := httptest.NewRecorder()
	gifMux(host).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/abc", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/redgifs/abc-sd.mp4" {
		t.Errorf("Location = %q, want /redgifs/abc-sd.mp4", loc)
	}
}

func TestGifHost_WatchPathNormalized(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	host := newTestGifHost(t, server)
	setGifResponses(server, "abc", host.mediaBase+"abc-hd.mp4", "")

	// Full watch-page paths resolve by their trailing id segment.
	rec := httptest.NewRecorder()
	gifMux(host).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/watch/abc", nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if countPath(server, "/v2/gifs/abc") != 1 {
		t.Error("lookup did not use the trailing id segment")
	}
}

func TestGifHost_WatchNotFound(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	host := newTestGifHost(t, server)
	server.SetResponse("/v2/auth/temporary", upstreamtest.Response{
		Body: map[string]string{"token": "gif-token"},
	})

	rec := httptest.NewRecorder()
	gifMux(host).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGifHost_DirectFileStreams(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	data := mediaPayload(256)
	server.ServeMedia("/abc-hd.mp4", data, "video/mp4")

	host := newTestGifHost(t, server)

	rec := httptest.NewRecorder()
	gifMux(host).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/abc-hd.mp4", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Errorf("body mismatch: got %d bytes, want %d", rec.Body.Len(), len(data))
	}
	if countPath(server, "/v2/auth/temporary") != 0 {
		t.Error("direct file fetch should not need an API token")
	}
}

func TestGifHost_TokenReused(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	host := newTestGifHost(t, server)
	setGifResponses(server, "abc", host.mediaBase+"abc-hd.mp4", "")

	mux := gifMux(host)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/abc", nil))
		if rec.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302", rec.Code)
		}
	}

	if got := countPath(server, "/v2/auth/temporary"); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}

func TestGifHost_TokenRefetchedAfterExpiry(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	host := newTestGifHost(t, server)
	setGifResponses(server, "abc", host.mediaBase+"abc-hd.mp4", "")

	mux := gifMux(host)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/abc", nil))

	host.mu.Lock()
	host.expires = time.Now().Add(-time.Minute)
	host.mu.Unlock()

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/abc", nil))

	if got := countPath(server, "/v2/auth/temporary"); got != 2 {
		t.Errorf("token requests = %d, want 2", got)
	}
}

func TestGifHost_TokenFailureIsNotFound(t *testing.T) {
	server := upstreamtest.NewServer()
	defer server.Close()

	host := newTestGifHost(t, server)
	server.SetResponse("/v2/auth/temporary", upstreamtest.ServerError())

	rec := httptest.NewRecorder()
	gifMux(host).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/redgifs/abc", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if countPath(server, "/v2/gifs/abc") != 0 {
		t.Error("lookup attempted without a token")
	}
}

package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"redveil/pkg/telemetry/metrics"
)

const (
	gifAPIBase   = "https://api.redgifs.com"
	gifMediaBase = "https://media.redgifs.com/"
	gifReferer   = "https://www.redgifs.com/"
	gifOrigin    = "https://www.redgifs.com"

	// gifUserAgent is what the gif host expects from a browser; its API
	// rejects clients that do not look like one.
	gifUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// gifTokenLifetime is how long an anonymous API token is reused:
	// the advertised 24 hours minus a few minutes of safety margin.
	gifTokenLifetime = 86000 * time.Second

	// gifTokenCache labels the token cache in metrics.
	gifTokenCache = "gif_token"

	// gifRouteName labels gif traffic in logs and stream metrics.
	gifRouteName = "redgifs"
)

// GifHost resolves and relays media from the secondary gif host
// (RedGifs). Direct .mp4 paths stream through the relay like any other
// origin; watch-page ids are resolved through the host's API, which
// needs an anonymous bearer token, and answered with a redirect to the
// resolved file path.
type GifHost struct {
	client  *http.Client
	relay   *Relay
	logger  *slog.Logger
	metrics *metrics.Collector

	// apiBase and mediaBase exist so tests can point the host at a
	// local origin; production always uses the defaults.
	apiBase   string
	mediaBase string

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewGifHost builds the gif host around its own API client and the
// shared relay. collector may be nil.
func NewGifHost(client *http.Client, rl *Relay, logger *slog.Logger, collector *metrics.Collector) *GifHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &GifHost{
		client:    client,
		relay:     rl,
		logger:    logger,
		metrics:   collector,
		apiBase:   gifAPIBase,
		mediaBase: gifMediaBase,
	}
}

// ServeHTTP handles the {path...} wildcard under the gif route: file
// paths ending in .mp4 stream directly, anything else is treated as a
// watch id and redirected to its resolved file.
func (g *GifHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(path, ".mp4") {
		serveStream(w, r, g.relay, g.mediaBase+escapeParam(path), gifRouteName, g.logger, g.metrics)
		return
	}

	videoURL, err := g.resolve(r.Context(), path)
	if err != nil {
		g.logger.Warn("Gif lookup failed", "id", path, "error", err)
		http.Error(w, "video not found", http.StatusNotFound)
		return
	}

	filename := strings.TrimPrefix(videoURL, g.mediaBase)
	http.Redirect(w, r, "/redgifs/"+filename, http.StatusFound)
}

// resolve maps a watch id to its direct video URL, preferring the HD
// rendition and falling back to SD.
func (g *GifHost) resolve(ctx context.Context, id string) (string, error) {
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
	}
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}

	token, err := g.tokenValue(ctx)
	if err != nil {
		return "", err
	}

	req, err := g.apiRequest(ctx, g.apiBase+"/v2/gifs/"+url.PathEscape(id)+"?views=yes", token)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("looking up gif %q: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gif lookup for %q returned status %d", id, resp.StatusCode)
	}

	var payload struct {
		Gif struct {
			URLs struct {
				HD string `json:"hd"`
				SD string `json:"sd"`
			} `json:"urls"`
		} `json:"gif"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding gif lookup for %q: %w", id, err)
	}

	switch {
	case payload.Gif.URLs.HD != "":
		return payload.Gif.URLs.HD, nil
	case payload.Gif.URLs.SD != "":
		return payload.Gif.URLs.SD, nil
	default:
		return "", fmt.Errorf("gif lookup for %q returned no renditions", id)
	}
}

// tokenValue returns the cached anonymous bearer, fetching a fresh one
// when missing or expired. The mutex is held across the fetch so a
// burst of expired callers produces a single token request.
func (g *GifHost) tokenValue(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token != "" && time.Now().Before(g.expires) {
		if g.metrics != nil {
			g.metrics.RecordCacheHit(gifTokenCache)
		}
		return g.token, nil
	}
	if g.metrics != nil {
		g.metrics.RecordCacheMiss(gifTokenCache)
	}

	req, err := g.apiRequest(ctx, g.apiBase+"/v2/auth/temporary", "")
	if err != nil {
		return "", err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting gif token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gif token request returned status %d", resp.StatusCode)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding gif token: %w", err)
	}
	if payload.Token == "" {
		return "", fmt.Errorf("gif token response carried no token")
	}

	g.token = payload.Token
	g.expires = time.Now().Add(gifTokenLifetime)
	g.logger.Debug("Gif token refreshed", "valid_for", gifTokenLifetime)
	return g.token, nil
}

// apiRequest builds a browser-shaped request for the gif host API.
func (g *GifHost) apiRequest(ctx context.Context, target, token string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", gifUserAgent)
	req.Header.Set("Referer", gifReferer)
	req.Header.Set("Origin", gifOrigin)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

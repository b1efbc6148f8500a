package relay

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"redveil/pkg/telemetry/metrics"
)

// streamBufferSize is the chunk size for piping media bodies. Chunks
// are flushed individually so playback starts before the body ends and
// a slow client exerts back-pressure on the origin read.
const streamBufferSize = 32 * 1024

// Handler serves one relay route. It expands the route template from
// the request's path values, enforces the origin policy on the result,
// and pipes the origin response straight through.
type Handler struct {
	relay   *Relay
	route   Route
	params  []string
	policy  *HostPolicy
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewHandler builds the handler for a single route. collector may be
// nil when metrics are disabled.
func NewHandler(relay *Relay, route Route, policy *HostPolicy, logger *slog.Logger, collector *metrics.Collector) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		relay:   relay,
		route:   route,
		params:  patternParams(route.Pattern),
		policy:  policy,
		logger:  logger,
		metrics: collector,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	values := make(map[string]string, len(h.params))
	for _, name := range h.params {
		values[name] = r.PathValue(name)
	}
	target := expand(h.route.Template, values)

	parsed, err := parseTarget(target)
	if err != nil || !h.policy.Allowed(parsed) {
		h.logger.Warn("Refused media target outside the origin allowlist",
			"route", h.route.Name,
			"target", target)
		http.Error(w, "unsupported media origin", http.StatusForbidden)
		return
	}

	// Origins key variants and signatures off the query string, so it
	// travels with the path.
	if q := r.URL.RawQuery; q != "" {
		if strings.Contains(target, "?") {
			target += "&" + q
		} else {
			target += "?" + q
		}
	}

	serveStream(w, r, h.relay, target, h.route.Name, h.logger, h.metrics)
}

// parseTarget pulls the host out of an expanded target URL.
func parseTarget(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	return u.Host, nil
}

// serveStream opens target through the relay and pipes it to the
// client: origin status and sanitized headers pass through unchanged,
// the body is copied in fixed chunks with a flush after each.
func serveStream(w http.ResponseWriter, r *http.Request, rl *Relay, target, route string, logger *slog.Logger, collector *metrics.Collector) {
	start := time.Now()

	if collector != nil {
		collector.StreamOpened()
		defer collector.StreamClosed()
	}

	stream, err := rl.Stream(r.Context(), target, StreamOptions{
		Range:           r.Header.Get("Range"),
		IfModifiedSince: r.Header.Get("If-Modified-Since"),
		CacheControl:    r.Header.Get("Cache-Control"),
	})
	if err != nil {
		logger.Warn("Media stream failed before any bytes were sent",
			"route", route,
			"error", err)
		if collector != nil {
			collector.RecordMediaStream(route, "error", time.Since(start), 0)
		}
		status := http.StatusBadGateway
		var mediaErr *MediaError
		if errors.As(err, &mediaErr) && mediaErr.StatusCode == http.StatusNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, "media unavailable", status)
		return
	}
	defer stream.Body.Close()

	copyHeader(w.Header(), stream.Header)
	w.WriteHeader(stream.StatusCode)

	written := copyBody(w, stream.Body)

	if collector != nil {
		collector.RecordMediaStream(route, metrics.StatusClass(stream.StatusCode), time.Since(start), written)
	}
}

func copyHeader(dst, src http.Header) {
	for name, values := range src {
		for _, value := range values {
			dst.Add(name, value)
		}
	}
}

// copyBody pipes body to the client until either side gives up. A
// write failure means the client went away; a read failure means the
// origin did. Both end the stream abruptly, which is all that can be
// done once the status line is out.
func copyBody(w http.ResponseWriter, body io.Reader) int64 {
	flusher, canFlush := w.(http.Flusher)
	buf := make([]byte, streamBufferSize)

	var written int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			wn, writeErr := w.Write(buf[:n])
			written += int64(wn)
			if writeErr != nil {
				return written
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if err != nil {
			return written
		}
	}
}

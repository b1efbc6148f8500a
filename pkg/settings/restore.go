package settings

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"redveil/pkg/telemetry/metrics"
)

const (
	// cookieTTL matches the one-year preference lifetime users expect
	// from cookie-backed settings.
	cookieTTL = 52 * 7 * 24 * time.Hour

	// cookieChunkLimit leaves headroom under the 4096-byte cookie cap
	// for the name and attributes when chunking list preferences.
	cookieChunkLimit = 4000

	// maxRestoreBody bounds the encoded-restore request body.
	maxRestoreBody = 1 << 20
)

// RestoreHandler implements the cross-instance settings transfer
// surface: the query-form restore endpoint that writes preference
// cookies, and the encoded-restore endpoint that unwraps a portable
// blob into the former.
type RestoreHandler struct {
	codec   *Codec
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewRestoreHandler builds the restore surface. collector may be nil.
func NewRestoreHandler(codec *Codec, logger *slog.Logger, collector *metrics.Collector) *RestoreHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RestoreHandler{
		codec:   codec,
		logger:  logger,
		metrics: collector,
	}
}

// Restore handles the query-form restore: every preference named in the
// query becomes a cookie, every preference absent is cleared, and list
// preferences are chunked across their numbered cookie family. The
// response redirects to the "redirect" query parameter, or the root.
func (h *RestoreHandler) Restore(w http.ResponseWriter, r *http.Request) {
	form := r.URL.Query()

	for _, f := range prefFields {
		if f.list {
			h.applyListCookies(w, r, f.name, form)
			continue
		}
		if form.Has(f.name) {
			setCookie(w, f.name, form.Get(f.name))
		} else {
			clearCookie(w, f.name)
		}
	}

	if h.metrics != nil {
		h.metrics.RecordSettingsRestore("query", "ok")
	}
	h.logger.Info("Settings restored from query", "preferences", len(form))
	http.Redirect(w, r, redirectPath(form.Get("redirect")), http.StatusFound)
}

// EncodedRestore handles the portable-blob restore: a posted
// encoded_prefs value decodes through the codec and bounces into the
// query restore flow so both paths share one cookie-writing code path.
func (h *RestoreHandler) EncodedRestore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRestoreBody)
	if err := r.ParseForm(); err != nil {
		h.recordEncoded("rejected")
		http.Error(w, "request body too large or malformed", http.StatusBadRequest)
		return
	}

	encoded := r.PostFormValue("encoded_prefs")
	if encoded == "" {
		h.recordEncoded("rejected")
		http.Error(w, "encoded_prefs parameter not found", http.StatusBadRequest)
		return
	}

	restored, clean := h.codec.DecodeString(encoded)
	if clean {
		h.recordEncoded("ok")
	} else {
		h.recordEncoded("fallback")
		h.logger.Warn("Encoded settings did not decode cleanly, missing fields fall back to defaults")
	}

	http.Redirect(w, r, "/settings/restore/?"+ToRestoreQuery(restored), http.StatusFound)
}

func (h *RestoreHandler) recordEncoded(outcome string) {
	if h.metrics != nil {
		h.metrics.RecordSettingsRestore("encoded", outcome)
	}
}

// applyListCookies writes one list preference as its numbered cookie
// family and clears whatever stale numbered cookies the request still
// carries beyond the new family's length.
func (h *RestoreHandler) applyListCookies(w http.ResponseWriter, r *http.Request, name string, form url.Values) {
	if !form.Has(name) {
		clearCookie(w, name)
		clearNumberedCookies(w, r, name, 1)
		return
	}

	chunks := chunkBySize(splitPlus(form.Get(name)), cookieChunkLimit)
	for i, chunk := range chunks {
		setCookie(w, numberedName(name, i), chunk)
	}
	clearNumberedCookies(w, r, name, len(chunks))
}

// chunkBySize joins items with "+" into chunks small enough for one
// cookie each. Every chunk except the last keeps a trailing separator
// so concatenating the family's values reads back as a single list.
func chunkBySize(items []string, limit int) []string {
	chunks := []string{}
	current := ""
	currentSize := 0

	for _, item := range items {
		if currentSize+len(item) > limit {
			chunks = append(chunks, current+"+")
			current = ""
		}
		if current != "" {
			current += "+"
		}
		current += item
		currentSize = len(current) + len(item)
	}
	return append(chunks, current)
}

func numberedName(name string, i int) string {
	if i == 0 {
		return name
	}
	return name + strconv.Itoa(i)
}

// clearNumberedCookies clears the numbered family from index from
// upward, for as long as the inbound request shows members existing.
func clearNumberedCookies(w http.ResponseWriter, r *http.Request, name string, from int) {
	for i := from; ; i++ {
		if _, err := r.Cookie(numberedName(name, i)); err != nil {
			return
		}
		clearCookie(w, numberedName(name, i))
	}
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(cookieTTL),
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// redirectPath sanitizes the restore redirect target: relative paths
// only, with the doubled escaping the cross-instance flow applies to
// ampersands and fragments undone.
func redirectPath(raw string) string {
	if raw == "" {
		return "/"
	}
	raw = strings.ReplaceAll(raw, "%26", "&")
	raw = strings.ReplaceAll(raw, "%23", "#")
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	// A protocol-relative target would leave the instance.
	if strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}

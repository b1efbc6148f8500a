package logging

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// redactedPlaceholder replaces values that must never reach log output.
const redactedPlaceholder = "***"

// Credential pattern names.
const (
	PatternBearerToken = "bearer_token"
	PatternBasicAuth   = "basic_auth"
	PatternTokenField  = "token_field"
	PatternTokenParam  = "token_param"
)

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Redactor scrubs credential material from log text. The relay holds a
// live bearer token and per-session headers at all times; none of them
// may appear in log output, including inside error strings and URLs.
type Redactor struct {
	patterns map[string]*redactPattern
}

// NewRedactor creates a Redactor with the built-in credential patterns.
func NewRedactor() *Redactor {
	r := &Redactor{patterns: make(map[string]*redactPattern)}

	patterns := map[string]struct {
		regex       string
		replacement string
	}{
		// Authorization header values
		PatternBearerToken: {
			regex:       `(?i)\bbearer\s+[a-zA-Z0-9\-._~+/]+=*`,
			replacement: "Bearer ***",
		},
		PatternBasicAuth: {
			regex:       `(?i)\bbasic\s+[a-zA-Z0-9+/]+=*`,
			replacement: "Basic ***",
		},

		// Token fields in JSON payloads
		PatternTokenField: {
			regex:       `"(access_token|refresh_token|client_secret)"\s*:\s*"[^"]*"`,
			replacement: `"$1":"***"`,
		},

		// Tokens in URLs and form bodies
		PatternTokenParam: {
			regex:       `\b(access_token|refresh_token|token)=[^&\s"']+`,
			replacement: "$1=***",
		},
	}

	for name, p := range patterns {
		r.patterns[name] = &redactPattern{
			name:        name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		}
	}

	return r
}

// RedactString redacts credential material from a string value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}

	redacted := value
	for _, pattern := range r.patterns {
		redacted = pattern.regex.ReplaceAllString(redacted, pattern.replacement)
	}

	return redacted
}

// isSensitiveKey checks if a key name indicates credential material.
// Matching is case-insensitive substring matching, so "access_token",
// "AuthToken" and "session_cookie" are all caught.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)

	sensitiveKeys := []string{
		"token", "secret", "password",
		"auth", "authorization",
		"cookie", "session", "loid",
		"credential",
	}

	for _, sensitive := range sensitiveKeys {
		if strings.Contains(lowerKey, sensitive) {
			return true
		}
	}

	return false
}

// redactHandler wraps a slog.Handler and scrubs records before they are
// written. Redaction lives in the handler rather than the Logger methods
// so that the raw *slog.Logger handed to other packages via Slog is
// covered as well.
type redactHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

func newRedactHandler(inner slog.Handler, redactor *Redactor) *redactHandler {
	return &redactHandler{inner: inner, redactor: redactor}
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, h.redactor.RedactString(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, out)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = h.redactAttr(a)
	}
	return &redactHandler{inner: h.inner.WithAttrs(redacted), redactor: h.redactor}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

// redactAttr scrubs a single attribute. Sensitive keys lose their value
// entirely; string and error values are pattern-scrubbed; groups recurse.
func (h *redactHandler) redactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedPlaceholder)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactor.RedactString(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = h.redactAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		// Errors routinely wrap request URLs, which can carry tokens.
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, h.redactor.RedactString(err.Error()))
		}
	}

	return a
}

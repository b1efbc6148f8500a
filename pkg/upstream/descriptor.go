package upstream

import (
	"net/http"
	"net/url"
	"strings"
)

// Descriptor is a logical upstream operation before it becomes an HTTP
// request. Descriptors are immutable once built; the dispatcher derives
// a fresh request (URL, headers, credential) from the descriptor on
// every attempt, so retries automatically pick up a refreshed token.
type Descriptor struct {
	// Method is the HTTP method, GET if empty.
	Method string

	// Path is the upstream path, starting with a slash.
	Path string

	// Query holds the query parameters. Order is not significant.
	Query url.Values

	// RequiresAuth selects the authenticated API host and attaches the
	// bearer credential. Unset, the request goes to the public host.
	RequiresAuth bool

	// Quarantine opts in to quarantined and gated content via the
	// opt-in cookie the official client sends.
	Quarantine bool

	// Kind names the operation class for telemetry (listing, post,
	// user, search, resolve). Defaults to "api".
	Kind string
}

// NewGet builds an authenticated GET descriptor for a JSON API path.
// The raw_json query flag is always set: it stops upstream from
// HTML-escaping body text inside JSON strings.
func NewGet(path string) Descriptor {
	return Descriptor{
		Method:       http.MethodGet,
		Path:         path,
		Query:        url.Values{"raw_json": {"1"}},
		RequiresAuth: true,
	}
}

// WithQuery returns a copy of the descriptor with the query parameter
// set. The receiver is not modified.
func (d Descriptor) WithQuery(key, value string) Descriptor {
	q := make(url.Values, len(d.Query)+1)
	for k, vs := range d.Query {
		q[k] = append([]string(nil), vs...)
	}
	q.Set(key, value)
	d.Query = q
	return d
}

// WithKind returns a copy of the descriptor with the telemetry kind
// set.
func (d Descriptor) WithKind(kind string) Descriptor {
	d.Kind = kind
	return d
}

// WithQuarantine returns a copy of the descriptor with the quarantine
// opt-in set.
func (d Descriptor) WithQuarantine(on bool) Descriptor {
	d.Quarantine = on
	return d
}

// method returns the effective HTTP method.
func (d Descriptor) method() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return d.Method
}

// kind returns the effective telemetry kind.
func (d Descriptor) kind() string {
	if d.Kind == "" {
		return "api"
	}
	return d.Kind
}

// target joins a base URL with the descriptor's path and query.
func (d Descriptor) target(base string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSuffix(base, "/"))
	b.WriteString(d.Path)
	if len(d.Query) > 0 {
		if strings.Contains(d.Path, "?") {
			b.WriteString("&")
		} else {
			b.WriteString("?")
		}
		b.WriteString(d.Query.Encode())
	}
	return b.String()
}

package upstream

import (
	"context"
	"net/http"
	"strings"

	"redveil/pkg/auth"
)

// quarantineOptIn is the cookie the official client sends to opt in to
// quarantined and gated content, percent-encoded JSON.
const quarantineOptIn = `_options=%7B%22pref_quarantine_optin%22%3A%20true%2C%20%22pref_gated_sr_optin%22%3A%20true%7D`

// Builder turns descriptors into fully-formed outbound requests.
// Keeping header construction in one place guarantees every outbound
// request carries the same client fingerprint, which is load-bearing
// for staying under the upstream's detection threshold.
type Builder struct {
	apiBase    string
	publicBase string
}

// NewBuilder creates a builder targeting the authenticated API host and
// the public fallback host.
func NewBuilder(apiBase, publicBase string) *Builder {
	return &Builder{
		apiBase:    strings.TrimSuffix(apiBase, "/"),
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}
}

// Build derives an outbound request from the descriptor and the current
// credential. The header set is rebuilt from scratch on every call so a
// retry after a refresh carries the new token.
func (b *Builder) Build(ctx context.Context, d Descriptor, cred *auth.Credential) (*http.Request, error) {
	return b.request(ctx, d.method(), d.target(b.host(d)), d, cred)
}

// request builds a fingerprinted request for an explicit URL. The
// dispatcher uses this directly when following upstream redirects,
// where the target comes from a Location header instead of the
// descriptor.
func (b *Builder) request(ctx context.Context, method, url string, d Descriptor, cred *auth.Credential) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}

	// Upstream compresses JSON bodies with gzip when asked; HEAD and
	// other methods skip it, matching the official client.
	if method == http.MethodGet {
		req.Header.Set("Accept-Encoding", "gzip")
	} else {
		req.Header.Set("Accept-Encoding", "identity")
	}

	if d.Quarantine {
		req.Header.Set("Cookie", quarantineOptIn)
	}

	if cred != nil {
		if d.RequiresAuth && cred.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
			for name, values := range cred.SessionHeaders {
				for _, v := range values {
					req.Header.Add(name, v)
				}
			}
		}
		if cred.Device != nil {
			cred.Device.Apply(req)
		}
	}

	return req, nil
}

// host selects the authenticated API host when the descriptor requires
// auth, the public host otherwise.
func (b *Builder) host(d Descriptor) string {
	if d.RequiresAuth {
		return b.apiBase
	}
	return b.publicBase
}

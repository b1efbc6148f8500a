package relay

import (
	"net/url"
	"regexp"
	"strings"
)

// Route binds a serve-mux pattern to an upstream URL template. Pattern
// wildcards and template placeholders share names: every {name} in
// Template is filled from the request's corresponding path value.
type Route struct {
	// Name labels the route in logs and metrics.
	Name string

	// Pattern is the mux registration pattern, e.g. "/img/{path...}".
	Pattern string

	// Template is the origin URL with {name} placeholders.
	Template string
}

// DefaultRoutes returns the compiled-in media route table. Each entry
// mirrors one class of origin URL found in listing payloads; the
// rendering side rewrites origin URLs to these local paths so clients
// only ever talk to the relay.
func DefaultRoutes() []Route {
	return []Route{
		{Name: "vid", Pattern: "/vid/{id}/{size}", Template: "https://v.redd.it/{id}/DASH_{size}"},
		{Name: "hls", Pattern: "/hls/{id}/{path...}", Template: "https://v.redd.it/{id}/{path}"},
		{Name: "img", Pattern: "/img/{path...}", Template: "https://i.redd.it/{path}"},
		{Name: "thumb", Pattern: "/thumb/{point}/{id}", Template: "https://{point}.thumbs.redditmedia.com/{id}"},
		{Name: "emoji", Pattern: "/emoji/{id}/{name}", Template: "https://emoji.redditmedia.com/{id}/{name}"},
		{Name: "emote", Pattern: "/emote/{subreddit_id}/{filename}", Template: "https://reddit-econ-prod-assets-permanent.s3.amazonaws.com/asset-manager/{subreddit_id}/{filename}"},
		{Name: "preview_award", Pattern: "/preview/{loc}/award_images/{fullname}/{id}", Template: "https://{loc}view.redd.it/award_images/{fullname}/{id}"},
		{Name: "preview", Pattern: "/preview/{loc}/{id}", Template: "https://{loc}view.redd.it/{id}"},
		{Name: "style", Pattern: "/style/{path...}", Template: "https://styles.redditmedia.com/{path}"},
		{Name: "static", Pattern: "/static/{path...}", Template: "https://www.redditstatic.com/{path}"},
	}
}

// defaultHosts are the origins the compiled-in routes can expand to.
var defaultHosts = []string{
	"v.redd.it",
	"i.redd.it",
	"preview.redd.it",
	"external-preview.redd.it",
	"emoji.redditmedia.com",
	"styles.redditmedia.com",
	"www.redditstatic.com",
	"reddit-econ-prod-assets-permanent.s3.amazonaws.com",
	"media.redgifs.com",
}

// defaultHostSuffixes admit sharded origins where the leading label
// varies, such as the thumbnail shards.
var defaultHostSuffixes = []string{
	".thumbs.redditmedia.com",
}

// HostPolicy decides whether an expanded target may be fetched. Route
// templates carry path parameters into the host position (thumb shards,
// preview variants), so expansion alone does not pin the origin; the
// policy does.
type HostPolicy struct {
	exact  map[string]struct{}
	suffix []string
}

// NewHostPolicy builds the relay origin allowlist: the compiled-in
// hosts plus any instance-configured extras. Extras match exactly,
// including any port.
func NewHostPolicy(extra []string) *HostPolicy {
	exact := make(map[string]struct{}, len(defaultHosts)+len(extra))
	for _, host := range defaultHosts {
		exact[host] = struct{}{}
	}
	for _, host := range extra {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			exact[host] = struct{}{}
		}
	}
	return &HostPolicy{exact: exact, suffix: defaultHostSuffixes}
}

// Allowed reports whether host is a permitted media origin.
func (p *HostPolicy) Allowed(host string) bool {
	host = strings.ToLower(host)
	if _, ok := p.exact[host]; ok {
		return true
	}
	for _, suffix := range p.suffix {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

var paramPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)(\.\.\.)?\}`)

// patternParams extracts the wildcard names from a mux pattern, in
// order of appearance.
func patternParams(pattern string) []string {
	matches := paramPattern.FindAllStringSubmatch(pattern, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// expand fills template placeholders with escaped parameter values.
func expand(template string, params map[string]string) string {
	out := template
	for name, value := range params {
		out = strings.ReplaceAll(out, "{"+name+"}", escapeParam(value))
	}
	return out
}

// escapeParam escapes a path parameter for embedding in an origin URL.
// Multi-segment values keep their slashes, but every segment is escaped
// on its own so a crafted parameter cannot smuggle in a query string or
// shift the host the template pinned.
func escapeParam(value string) string {
	segments := strings.Split(value, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

package relay

import (
	"net/url"
	"reflect"
	"testing"
)

func TestDefaultRoutes_Expansion(t *testing.T) {
	routes := make(map[string]Route)
	for _, route := range DefaultRoutes() {
		routes[route.Name] = route
	}

	tests := []struct {
		route  string
		params map[string]string
		want   string
	}{
		{
			route:  "vid",
			params: map[string]string{"id": "abc123", "size": "720.mp4"},
			want:   "https://v.redd.it/abc123/DASH_720.mp4",
		},
		{
			route:  "hls",
			params: map[string]string{"id": "abc123", "path": "HLSPlaylist.m3u8"},
			want:   "https://v.redd.it/abc123/HLSPlaylist.m3u8",
		},
		{
			route:  "img",
			params: map[string]string{"path": "pic.jpg"},
			want:   "https://i.redd.it/pic.jpg",
		},
		{
			route:  "thumb",
			params: map[string]string{"point": "a", "id": "thumb.jpg"},
			want:   "https://a.thumbs.redditmedia.com/thumb.jpg",
		},
		{
			route:  "emoji",
			params: map[string]string{"id": "t5_abc", "name": "smile.png"},
			want:   "https://emoji.redditmedia.com/t5_abc/smile.png",
		},
		{
			route:  "emote",
			params: map[string]string{"subreddit_id": "t5_abc", "filename": "emote.gif"},
			want:   "https://reddit-econ-prod-assets-permanent.s3.amazonaws.com/asset-manager/t5_abc/emote.gif",
		},
		{
			route:  "preview_award",
			params: map[string]string{"loc": "pre", "fullname": "award_123", "id": "icon.png"},
			want:   "https://preview.redd.it/award_images/award_123/icon.png",
		},
		{
			route:  "preview",
			params: map[string]string{"loc": "external-pre", "id": "img.jpg"},
			want:   "https://external-preview.redd.it/img.jpg",
		},
		{
			route:  "style",
			params: map[string]string{"path": "t5_abc/styles.css"},
			want:   "https://styles.redditmedia.com/t5_abc/styles.css",
		},
		{
			route:  "static",
			params: map[string]string{"path": "icon.png"},
			want:   "https://www.redditstatic.com/icon.png",
		},
	}

	policy := NewHostPolicy(nil)
	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			route, ok := routes[tt.route]
			if !ok {
				t.Fatalf("route %q not in table", tt.route)
			}
			got := expand(route.Template, tt.params)
			if got != tt.want {
				t.Errorf("expand() = %q, want %q", got, tt.want)
			}

			u, err := url.Parse(got)
			if err != nil {
				t.Fatalf("expanded target does not parse: %v", err)
			}
			if !policy.Allowed(u.Host) {
				t.Errorf("host %q of own route table not allowed", u.Host)
			}
		})
	}
}

func TestPatternParams(t *testing.T) {
	tests := []struct {
		pattern string
		want    []string
	}{
		{"/vid/{id}/{size}", []string{"id", "size"}},
		{"/img/{path...}", []string{"path"}},
		{"/preview/{loc}/award_images/{fullname}/{id}", []string{"loc", "fullname", "id"}},
		{"/health", []string{}},
	}

	for _, tt := range tests {
		got := patternParams(tt.pattern)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("patternParams(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestEscapeParam(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain.png", "plain.png"},
		{"a b.png", "a%20b.png"},
		{"a?b.png", "a%3Fb.png"},
		{"dir/file.png", "dir/file.png"},
		{"dir/a#b.png", "dir/a%23b.png"},
	}

	for _, tt := range tests {
		if got := escapeParam(tt.in); got != tt.want {
			t.Errorf("escapeParam(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestHostPolicy_Allowed(t *testing.T) {
	policy := NewHostPolicy([]string{" Cdn.Example.Com "})

	tests := []struct {
		host string
		want bool
	}{
		{"v.redd.it", true},
		{"V.REDD.IT", true},
		{"i.redd.it", true},
		{"a.thumbs.redditmedia.com", true},
		{"b.thumbs.redditmedia.com", true},
		{"preview.redd.it", true},
		{"external-preview.redd.it", true},
		{"media.redgifs.com", true},
		{"cdn.example.com", true},
		{"evil.example.net", false},
		{"redd.it.evil.example.net", false},
		{"thumbs.redditmedia.com.evil.example.net", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := policy.Allowed(tt.host); got != tt.want {
			t.Errorf("Allowed(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

package settings

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"redveil/pkg/config"
)

// Settings is the full user preference set. Every preference travels as
// a cookie value and in the portable encoding, so scalar fields stay
// strings; the declaration order here is the codec's wire order and
// must never be reordered, only appended to under a new revision.
type Settings struct {
	Theme                          string
	FrontPage                      string
	Layout                         string
	Wide                           string
	BlurSpoiler                    string
	ShowNSFW                       string
	BlurNSFW                       string
	HideHLSNotification            string
	VideoQuality                   string
	HideSidebarAndSummary          string
	UseHLS                         string
	AutoplayVideos                 string
	FixedNavbar                    string
	DisableVisitRedditConfirmation string
	CommentSort                    string
	PostSort                       string

	// Subscriptions and Filters are feed name lists. On the wire they
	// are single values joined with "+".
	Subscriptions []string
	Filters       []string

	HideAwards         string
	HideScore          string
	RemoveDefaultFeeds string
}

// prefField adapts one Settings field to its wire name and string form.
type prefField struct {
	name string
	list bool
	get  func(*Settings) string
	set  func(*Settings, string)
}

func stringField(name string, ptr func(*Settings) *string) prefField {
	return prefField{
		name: name,
		get:  func(s *Settings) string { return *ptr(s) },
		set:  func(s *Settings, v string) { *ptr(s) = v },
	}
}

func listField(name string, ptr func(*Settings) *[]string) prefField {
	return prefField{
		name: name,
		list: true,
		get:  func(s *Settings) string { return strings.Join(*ptr(s), "+") },
		set:  func(s *Settings, v string) { *ptr(s) = splitPlus(v) },
	}
}

// prefFields drives the codec, the restore query, and the cookie
// surface. Order matches the Settings declaration order.
var prefFields = []prefField{
	stringField("theme", func(s *Settings) *string { return &s.Theme }),
	stringField("front_page", func(s *Settings) *string { return &s.FrontPage }),
	stringField("layout", func(s *Settings) *string { return &s.Layout }),
	stringField("wide", func(s *Settings) *string { return &s.Wide }),
	stringField("blur_spoiler", func(s *Settings) *string { return &s.BlurSpoiler }),
	stringField("show_nsfw", func(s *Settings) *string { return &s.ShowNSFW }),
	stringField("blur_nsfw", func(s *Settings) *string { return &s.BlurNSFW }),
	stringField("hide_hls_notification", func(s *Settings) *string { return &s.HideHLSNotification }),
	stringField("video_quality", func(s *Settings) *string { return &s.VideoQuality }),
	stringField("hide_sidebar_and_summary", func(s *Settings) *string { return &s.HideSidebarAndSummary }),
	stringField("use_hls", func(s *Settings) *string { return &s.UseHLS }),
	stringField("autoplay_videos", func(s *Settings) *string { return &s.AutoplayVideos }),
	stringField("fixed_navbar", func(s *Settings) *string { return &s.FixedNavbar }),
	stringField("disable_visit_reddit_confirmation", func(s *Settings) *string { return &s.DisableVisitRedditConfirmation }),
	stringField("comment_sort", func(s *Settings) *string { return &s.CommentSort }),
	stringField("post_sort", func(s *Settings) *string { return &s.PostSort }),
	listField("subscriptions", func(s *Settings) *[]string { return &s.Subscriptions }),
	listField("filters", func(s *Settings) *[]string { return &s.Filters }),
	stringField("hide_awards", func(s *Settings) *string { return &s.HideAwards }),
	stringField("hide_score", func(s *Settings) *string { return &s.HideScore }),
	stringField("remove_default_feeds", func(s *Settings) *string { return &s.RemoveDefaultFeeds }),
}

// Defaults builds the instance's baseline settings: the compiled-in
// defaults overlaid with every non-empty instance configuration value.
func Defaults(cfg config.SettingsDefaultsConfig) Settings {
	s := Settings{
		// The only preference whose absent state means "enabled".
		FixedNavbar: "on",
	}

	values := map[string]string{
		"theme":                             cfg.Theme,
		"front_page":                        cfg.FrontPage,
		"layout":                            cfg.Layout,
		"wide":                              cfg.Wide,
		"blur_spoiler":                      cfg.BlurSpoiler,
		"show_nsfw":                         cfg.ShowNSFW,
		"blur_nsfw":                         cfg.BlurNSFW,
		"hide_hls_notification":             cfg.HideHLSNotification,
		"video_quality":                     cfg.VideoQuality,
		"hide_sidebar_and_summary":          cfg.HideSidebarAndSummary,
		"use_hls":                           cfg.UseHLS,
		"autoplay_videos":                   cfg.AutoplayVideos,
		"fixed_navbar":                      cfg.FixedNavbar,
		"disable_visit_reddit_confirmation": cfg.DisableVisitRedditConfirmation,
		"comment_sort":                      cfg.CommentSort,
		"post_sort":                         cfg.PostSort,
		"subscriptions":                     cfg.Subscriptions,
		"filters":                           cfg.Filters,
		"hide_awards":                       cfg.HideAwards,
		"hide_score":                        cfg.HideScore,
		"remove_default_feeds":              cfg.RemoveDefaultFeeds,
	}
	for _, f := range prefFields {
		if v := values[f.name]; v != "" {
			f.set(&s, v)
		}
	}
	return s
}

// FromRequest assembles the effective settings for one request: the
// given defaults overlaid with every preference cookie present. List
// preferences reassemble from their numbered cookie family.
func FromRequest(r *http.Request, defaults Settings) Settings {
	out := defaults.clone()
	for _, f := range prefFields {
		if f.list {
			if v, ok := readNumberedCookies(r, f.name); ok {
				f.set(&out, v)
			}
			continue
		}
		if c, err := r.Cookie(f.name); err == nil {
			f.set(&out, c.Value)
		}
	}
	return out
}

// ToRestoreQuery renders settings as the urlencoded query consumed by
// the restore endpoint. Every preference is present, including empty
// ones, so a restore fully replaces the previous state.
func ToRestoreQuery(s Settings) string {
	values := url.Values{}
	for _, f := range prefFields {
		values.Set(f.name, f.get(&s))
	}
	return values.Encode()
}

func (s Settings) clone() Settings {
	out := s
	out.Subscriptions = append([]string(nil), s.Subscriptions...)
	out.Filters = append([]string(nil), s.Filters...)
	return out
}

// splitPlus splits a "+"-joined list value, dropping empty entries so
// stray separators from cookie chunking cannot produce ghost feeds.
func splitPlus(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, "+")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// readNumberedCookies concatenates a numbered cookie family (name,
// name1, name2, ...) back into one list value. Chunks carry their own
// trailing separators, so plain concatenation is enough.
func readNumberedCookies(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}

	var joined strings.Builder
	joined.WriteString(c.Value)
	for i := 1; ; i++ {
		c, err := r.Cookie(name + strconv.Itoa(i))
		if err != nil {
			break
		}
		joined.WriteString(c.Value)
	}
	return joined.String(), true
}

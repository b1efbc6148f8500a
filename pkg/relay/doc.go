// Package relay streams media from upstream origins to clients so the
// client never connects to the origin itself.
//
// # Routes
//
// A fixed table maps local paths to origin URL templates: videos,
// images, thumbnails, emoji, subreddit styles and static assets each
// get a route. Path parameters are escaped before substitution and the
// expanded target must land on an allowlisted origin host, so the
// relay cannot be driven to arbitrary servers.
//
// # Streaming
//
// Relay.Stream opens the origin request with the inbound Range,
// If-Modified-Since and Cache-Control values and the spoofed device
// User-Agent, then hands the unread body back. The handler pipes it
// through in fixed chunks, flushing each one, so playback starts
// immediately and nothing is buffered. Origin statuses below 400 pass
// through unchanged together with the range and caching headers;
// diagnostic and identity headers are stripped. An origin error before
// the first byte becomes a MediaError; after the first byte the stream
// simply ends.
//
// # Gif host
//
// GifHost handles the secondary gif origin: direct file paths stream
// like any other route, watch ids are resolved through the host's API
// using a cached anonymous token and answered with a redirect to the
// resolved file.
package relay

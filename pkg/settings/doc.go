// Package settings holds the user preference schema, its portable
// encoding, and the HTTP restore surface that moves preferences
// between instances.
//
// Preferences are cookie-backed: the instance never stores them.
// Settings carries every preference as a string plus two feed lists,
// with instance-wide defaults supplied by configuration.
//
// # Encoding
//
// Codec renders the whole preference set as a revision tag followed by
// each field in declaration order, length-prefixed, then DEFLATE
// compressed; EncodeString armors that in base64url for cookies and
// URLs. Decoding never fails: corrupt or truncated payloads keep
// whatever fields survive and default the rest, unknown revisions are
// read best-effort, and decompression is bounded. The round-trip
// Decode(Encode(s)) == s holds for every valid value.
//
// # Restore
//
// RestoreHandler exposes the transfer flow: the query-form endpoint
// writes a cookie per preference (chunking feed lists across numbered
// cookies under the 4 KiB cap and clearing stale family members), and
// the encoded-restore endpoint decodes a posted blob and redirects
// into the query form.
package settings

package settings

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/binary"
	"io"
	"strings"
)

const (
	// codecRevision tags the wire layout. Bump it when fields are
	// appended; existing fields keep their positions forever.
	codecRevision = 1

	// maxDecodedBytes bounds decompression so a crafted tiny payload
	// cannot balloon in memory.
	maxDecodedBytes = 1 << 20
)

// Codec translates Settings to and from the portable encoding used for
// cookies and cross-instance transfer: a revision tag followed by every
// field in declaration order as uvarint-length-prefixed UTF-8, DEFLATE
// compressed, and for the string form base64url armored.
//
// Decoding never fails. Whatever prefix of the payload survives decodes
// field by field; everything else falls back to the defaults the codec
// was built with.
type Codec struct {
	defaults Settings
}

// NewCodec builds a codec that falls back to the given defaults for
// fields a payload does not carry.
func NewCodec(defaults Settings) *Codec {
	return &Codec{defaults: defaults}
}

// Encode renders s into the compressed binary form.
func (c *Codec) Encode(s Settings) []byte {
	raw := make([]byte, 0, 256)
	raw = binary.AppendUvarint(raw, codecRevision)
	for _, f := range prefFields {
		v := f.get(&s)
		raw = binary.AppendUvarint(raw, uint64(len(v)))
		raw = append(raw, v...)
	}

	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		// Only reachable with an invalid level constant.
		return raw
	}
	_, _ = fw.Write(raw)
	_ = fw.Close()
	return buf.Bytes()
}

// EncodeString renders s in the armored string form safe for cookies
// and URLs.
func (c *Codec) EncodeString(s Settings) string {
	return base64.RawURLEncoding.EncodeToString(c.Encode(s))
}

// Decode reconstructs Settings from the binary form. The bool reports
// whether the payload decoded cleanly: a known revision and every field
// present. Corrupt, truncated, or future-revision payloads still yield
// a usable value, with missing fields defaulted and trailing unknown
// data ignored.
func (c *Codec) Decode(data []byte) (Settings, bool) {
	out := c.defaults.clone()

	fr := flate.NewReader(bytes.NewReader(data))
	raw, err := io.ReadAll(io.LimitReader(fr, maxDecodedBytes))
	fr.Close()
	clean := err == nil && len(raw) < maxDecodedBytes

	rest := raw
	rev, n := binary.Uvarint(rest)
	if n <= 0 {
		return out, false
	}
	rest = rest[n:]
	if rev != codecRevision {
		clean = false
	}

	for _, f := range prefFields {
		v, ok := readPrefixed(&rest)
		if !ok {
			clean = false
			break
		}
		f.set(&out, v)
	}
	return out, clean
}

// DecodeString reconstructs Settings from the armored string form,
// tolerating padded base64 variants.
func (c *Codec) DecodeString(raw string) (Settings, bool) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return c.defaults.clone(), false
	}
	return c.Decode(data)
}

// readPrefixed consumes one uvarint-length-prefixed string from rest.
func readPrefixed(rest *[]byte) (string, bool) {
	n, w := binary.Uvarint(*rest)
	if w <= 0 {
		return "", false
	}
	b := (*rest)[w:]
	if uint64(len(b)) < n {
		return "", false
	}
	*rest = b[n:]
	return string(b[:n]), true
}

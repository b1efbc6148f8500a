package fingerprint

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultClientID is the OAuth client id of the official Android app.
const DefaultClientID = "ohXpoqrZYub1kg"

// Codec capability strings advertised by real devices. Roughly half the
// installed base reports VP9 support, so both variants stay in the pool.
const (
	codecsBaseline = "available-codecs=video/avc, video/hevc"
	codecsVP9      = "available-codecs=video/avc, video/hevc, video/x-vnd.on2.vp9"
)

// androidAppVersions is the compiled-in pool of app release strings, newest
// releases last. Entries follow the store's "Version x.y.z/Build n" format
// verbatim because they are embedded into the user agent unchanged.
var androidAppVersions = []string{
	"Version 2023.48.0/Build 1319123",
	"Version 2023.49.0/Build 1321715",
	"Version 2023.49.1/Build 1322281",
	"Version 2023.50.0/Build 1332338",
	"Version 2023.50.1/Build 1345844",
	"Version 2024.2.0/Build 1368985",
	"Version 2024.3.0/Build 1379408",
	"Version 2024.4.0/Build 1387108",
	"Version 2024.5.0/Build 1395672",
	"Version 2024.6.0/Build 1407368",
	"Version 2024.7.0/Build 1416601",
	"Version 2024.8.0/Build 1423615",
	"Version 2024.10.0/Build 1429651",
	"Version 2024.10.1/Build 1436948",
	"Version 2024.11.0/Build 1445531",
	"Version 2024.12.0/Build 1452344",
	"Version 2024.13.0/Build 1462160",
	"Version 2024.14.0/Build 1471467",
	"Version 2024.15.0/Build 1482464",
	"Version 2024.16.0/Build 1492664",
	"Version 2024.17.0/Build 1502584",
	"Version 2024.18.0/Build 1512534",
	"Version 2024.18.1/Build 1517651",
	"Version 2024.19.0/Build 1523771",
	"Version 2024.20.0/Build 1535013",
	"Version 2024.20.1/Build 1538283",
	"Version 2024.21.0/Build 1545358",
	"Version 2024.22.0/Build 1556201",
	"Version 2024.22.1/Build 1559281",
}

// Spec describes the pool of client identities a Device can be drawn from.
type Spec struct {
	// ClientID is the OAuth client id presented during the token handshake.
	ClientID string `yaml:"client_id"`

	// AppVersions is the pool of app release strings, in the store's
	// "Version x.y.z/Build n" format.
	AppVersions []string `yaml:"app_versions"`

	// AndroidVersionMin and AndroidVersionMax bound the advertised OS
	// version (inclusive).
	AndroidVersionMin int `yaml:"android_version_min"`
	AndroidVersionMax int `yaml:"android_version_max"`

	// CodecVariants is the pool of media codec capability strings.
	CodecVariants []string `yaml:"codec_variants"`
}

// DefaultSpec returns the compiled-in fingerprint specification.
func DefaultSpec() *Spec {
	return &Spec{
		ClientID:          DefaultClientID,
		AppVersions:       append([]string(nil), androidAppVersions...),
		AndroidVersionMin: 9,
		AndroidVersionMax: 14,
		CodecVariants:     []string{codecsBaseline, codecsVP9},
	}
}

// ParseSpec parses a YAML fingerprint specification. Fields left empty fall
// back to the compiled-in defaults, so an override file only needs to name
// what it changes.
func ParseSpec(data []byte) (*Spec, error) {
	var file Spec
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fingerprint spec: %w", err)
	}

	spec := DefaultSpec()
	if file.ClientID != "" {
		spec.ClientID = file.ClientID
	}
	if len(file.AppVersions) > 0 {
		spec.AppVersions = file.AppVersions
	}
	if file.AndroidVersionMin != 0 {
		spec.AndroidVersionMin = file.AndroidVersionMin
	}
	if file.AndroidVersionMax != 0 {
		spec.AndroidVersionMax = file.AndroidVersionMax
	}
	if len(file.CodecVariants) > 0 {
		spec.CodecVariants = file.CodecVariants
	}

	if err := spec.validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// LoadSpecFile reads and parses a fingerprint specification from disk.
func LoadSpecFile(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fingerprint spec %q: %w", path, err)
	}
	return ParseSpec(data)
}

func (s *Spec) validate() error {
	if s.ClientID == "" {
		return fmt.Errorf("invalid fingerprint spec: client id is required")
	}
	if len(s.AppVersions) == 0 {
		return fmt.Errorf("invalid fingerprint spec: app version pool is empty")
	}
	for i, v := range s.AppVersions {
		if v == "" {
			return fmt.Errorf("invalid fingerprint spec: app version %d is empty", i)
		}
	}
	if s.AndroidVersionMin <= 0 || s.AndroidVersionMax <= 0 {
		return fmt.Errorf("invalid fingerprint spec: android version bounds must be positive")
	}
	if s.AndroidVersionMin > s.AndroidVersionMax {
		return fmt.Errorf("invalid fingerprint spec: android version min %d exceeds max %d",
			s.AndroidVersionMin, s.AndroidVersionMax)
	}
	if len(s.CodecVariants) == 0 {
		return fmt.Errorf("invalid fingerprint spec: codec variant pool is empty")
	}
	return nil
}

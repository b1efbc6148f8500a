package fingerprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultSpec(t *testing.T) {
	spec := DefaultSpec()

	if spec.ClientID != DefaultClientID {
		t.Errorf("expected client id %q, got %q", DefaultClientID, spec.ClientID)
	}
	if len(spec.AppVersions) == 0 {
		t.Fatal("expected non-empty app version pool")
	}
	for i, v := range spec.AppVersions {
		if !strings.HasPrefix(v, "Version ") || !strings.Contains(v, "/Build ") {
			t.Errorf("app version %d has unexpected format: %q", i, v)
		}
	}
	if spec.AndroidVersionMin != 9 || spec.AndroidVersionMax != 14 {
		t.Errorf("expected android bounds 9..14, got %d..%d", spec.AndroidVersionMin, spec.AndroidVersionMax)
	}
	if len(spec.CodecVariants) != 2 {
		t.Fatalf("expected 2 codec variants, got %d", len(spec.CodecVariants))
	}
	for _, c := range spec.CodecVariants {
		if !strings.HasPrefix(c, "available-codecs=video/avc") {
			t.Errorf("codec variant has unexpected format: %q", c)
		}
	}

	if err := spec.validate(); err != nil {
		t.Errorf("default spec should validate, got: %v", err)
	}
}

func TestDefaultSpec_ReturnsCopies(t *testing.T) {
	a := DefaultSpec()
	b := DefaultSpec()

	a.AppVersions[0] = "mutated"
	if b.AppVersions[0] == "mutated" {
		t.Error("specs share the app version slice")
	}
}

func TestParseSpec_PartialOverride(t *testing.T) {
	data := []byte(`
client_id: "customclient123"
android_version_max: 15
`)

	spec, err := ParseSpec(data)
	if err != nil {
		t.Fatalf("failed to parse spec: %v", err)
	}

	if spec.ClientID != "customclient123" {
		t.Errorf("expected overridden client id, got %q", spec.ClientID)
	}
	if spec.AndroidVersionMax != 15 {
		t.Errorf("expected overridden android max 15, got %d", spec.AndroidVersionMax)
	}
	// Untouched fields keep defaults.
	if spec.AndroidVersionMin != 9 {
		t.Errorf("expected default android min 9, got %d", spec.AndroidVersionMin)
	}
	if len(spec.AppVersions) != len(androidAppVersions) {
		t.Errorf("expected default app version pool, got %d entries", len(spec.AppVersions))
	}
}

func TestParseSpec_FullOverride(t *testing.T) {
	data := []byte(`
client_id: "abc"
app_versions:
  - "Version 2025.1.0/Build 1700000"
android_version_min: 12
android_version_max: 15
codec_variants:
  - "available-codecs=video/avc"
`)

	spec, err := ParseSpec(data)
	if err != nil {
		t.Fatalf("failed to parse spec: %v", err)
	}

	if len(spec.AppVersions) != 1 || spec.AppVersions[0] != "Version 2025.1.0/Build 1700000" {
		t.Errorf("expected single overridden app version, got %v", spec.AppVersions)
	}
	if len(spec.CodecVariants) != 1 {
		t.Errorf("expected single codec variant, got %v", spec.CodecVariants)
	}
}

func TestParseSpec_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "malformed yaml",
			data: "client_id: [",
		},
		{
			name: "min above max",
			data: "android_version_min: 14\nandroid_version_max: 10",
		},
		{
			name: "empty app version entry",
			data: "app_versions: [\"Version 2024.1.0/Build 1\", \"\"]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSpec([]byte(tt.data)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestLoadSpecFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprint.yaml")
	if err := os.WriteFile(path, []byte(`client_id: "fromfile"`), 0644); err != nil {
		t.Fatalf("failed to write spec file: %v", err)
	}

	spec, err := LoadSpecFile(path)
	if err != nil {
		t.Fatalf("failed to load spec file: %v", err)
	}
	if spec.ClientID != "fromfile" {
		t.Errorf("expected client id %q, got %q", "fromfile", spec.ClientID)
	}
}

func TestLoadSpecFile_Missing(t *testing.T) {
	if _, err := LoadSpecFile("/nonexistent/fingerprint.yaml"); err == nil {
		t.Error("expected error for missing spec file")
	}
}

package layercfg

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func loadFrameCapture(t *testing.T) *Configuration {
	t.Helper()
	path := filepath.Join("testdata", "configurations", "Frame Capture.json")
	cfg, err := UnmarshalConfiguration(mustReadFile(t, path), path)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return cfg
}

func TestUnmarshalConfigurationFixture(t *testing.T) {
	cfg := loadFrameCapture(t)

	if cfg.Name != "Frame Capture" {
		t.Fatalf("unexpected name %q", cfg.Name)
	}
	if cfg.Preset != PresetUnknown {
		t.Fatalf("empty preset id must decode as unknown, got %s", cfg.Preset)
	}
	if !bytes.Equal(cfg.EditorState, []byte{1, 2, 3}) {
		t.Fatalf("unexpected editor state %v", cfg.EditorState)
	}

	want := []string{validationLayer, screenshotLayer, "VK_LAYER_vendor_removed"}
	if got := parameterNames(cfg); !slices.Equal(got, want) {
		t.Fatalf("expected rank order:\nwant: %v\n got: %v", want, got)
	}
	for i, p := range cfg.Parameters {
		if p.Rank != i {
			t.Fatalf("%s: expected rank %d, got %d", p.Name, i, p.Rank)
		}
	}
	if cfg.Parameters[2].State != StateExcluded {
		t.Fatalf("expected excluded state, got %s", cfg.Parameters[2].State)
	}

	validation := cfg.Parameters[0]
	cases := map[string]string{
		"enables":          "",
		"disables":         disableUniqueHandles,
		"printf_to_stdout": "FALSE",
	}
	for key, want := range cases {
		got, ok := validation.SettingValue(key)
		if !ok || got != want {
			t.Fatalf("%s: expected %q, got %q (%v)", key, want, got, ok)
		}
	}
}

func TestMarshalConfigurationRoundTrip(t *testing.T) {
	cfg := loadFrameCapture(t)
	data, err := MarshalConfiguration(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	text := string(data)
	if !strings.Contains(text, `"file_format_version": "2.0.0"`) {
		t.Fatalf("missing format version:\n%s", text)
	}
	if !strings.Contains(text, `"preset": "user_defined"`) {
		t.Fatalf("unknown preset must be written as user_defined:\n%s", text)
	}
	if strings.Index(text, validationLayer) > strings.Index(text, screenshotLayer) {
		t.Fatalf("parameters must be written in sequence order:\n%s", text)
	}
	if strings.Index(text, `"frames"`) > strings.Index(text, `"retired_option"`) {
		t.Fatalf("settings must be written in sequence order:\n%s", text)
	}

	decoded, err := UnmarshalConfiguration(data, "round-trip")
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Preset != PresetUserDefined {
		t.Fatalf("expected user_defined after round trip, got %s", decoded.Preset)
	}
	if !bytes.Equal(decoded.EditorState, cfg.EditorState) {
		t.Fatalf("editor state changed: %v", decoded.EditorState)
	}
	if !slices.Equal(parameterNames(decoded), parameterNames(cfg)) {
		t.Fatalf("parameter order changed: %v", parameterNames(decoded))
	}
	for i, p := range decoded.Parameters {
		original := cfg.Parameters[i]
		if p.State != original.State || p.Rank != original.Rank {
			t.Fatalf("%s: state or rank changed", p.Name)
		}
		if !slices.EqualFunc(p.Settings, original.Settings, func(a, b LayerSetting) bool {
			return a.Key == b.Key && a.Value == b.Value
		}) {
			t.Fatalf("%s: settings changed", p.Name)
		}
	}
}

func TestUnmarshalConfigurationErrors(t *testing.T) {
	cases := []struct {
		name  string
		data  string
		field string
	}{
		{name: "invalid json", data: `{`},
		{name: "missing version", data: `{"configuration":{}}`, field: "file_format_version"},
		{name: "bad version", data: `{"file_format_version":"two","configuration":{}}`, field: "file_format_version"},
		{name: "missing body", data: `{"file_format_version":"2.0.0"}`, field: "configuration"},
		{
			name:  "unknown state",
			data:  `{"file_format_version":"2.0.0","configuration":{"name":"x","layer_options":{"VK_LAYER_x":{"state":"FORCED"}}}}`,
			field: "configuration.layer_options.VK_LAYER_x.state",
		},
		{
			name:  "bad editor state",
			data:  `{"file_format_version":"2.0.0","configuration":{"name":"x","editor_state":"%%%"}}`,
			field: "configuration.editor_state",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalConfiguration([]byte(tc.data), "cfg.json")
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if parseErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, parseErr.Field)
			}
		})
	}
}

func TestUnmarshalConfigurationExtremeRanks(t *testing.T) {
	data := fmt.Sprintf(`{
    "file_format_version": "2.0.0",
    "configuration": {
        "name": "extreme",
        "layer_options": {
            "VK_LAYER_a": {"state": "OVERRIDDEN", "rank": %d},
            "VK_LAYER_b": {"state": "OVERRIDDEN", "rank": %d},
            "VK_LAYER_c": {"state": "EXCLUDED", "rank": 0}
        }
    }
}`, math.MaxInt, -math.MaxInt)

	cfg, err := UnmarshalConfiguration([]byte(data), "extreme.json")
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []string{"VK_LAYER_b", "VK_LAYER_c", "VK_LAYER_a"}
	if got := parameterNames(cfg); !slices.Equal(got, want) {
		t.Fatalf("expected rank order %v, got %v", want, got)
	}
	assertDenseRanks(t, cfg)
}

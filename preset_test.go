package layercfg

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"testing/fstest"
)

const (
	disableUniqueHandles = "VK_VALIDATION_FEATURE_DISABLE_UNIQUE_HANDLES_EXT"
	disableThreadSafety  = "VK_VALIDATION_FEATURE_DISABLE_THREAD_SAFETY_EXT"
	enableBestPractices  = "VK_VALIDATION_FEATURE_ENABLE_BEST_PRACTICES_EXT"
)

func testPresets(t *testing.T) *PresetLibrary {
	t.Helper()
	lib, err := BundledPresets()
	if err != nil {
		t.Fatalf("bundled presets: %v", err)
	}
	return lib
}

func validationConfiguration(t *testing.T) *Configuration {
	t.Helper()
	cfg := NewConfiguration("presets")
	Reconcile(cfg, loadTestLayers(t), nil)
	return cfg
}

func TestBundledPresetsHaveTemplates(t *testing.T) {
	lib := testPresets(t)
	for _, preset := range Presets() {
		_, err := lib.Template(preset)
		if preset == PresetUserDefined {
			if !errors.Is(err, ErrUnknownPreset) {
				t.Fatalf("user defined has no template, got %v", err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", preset, err)
		}
	}
}

func TestApplyPresetOnlyTouchesEnablesAndDisables(t *testing.T) {
	lib := testPresets(t)
	cfg := validationConfiguration(t)
	param, _ := cfg.Parameter(validationLayer)
	flags, _ := param.FindSetting("report_flags")
	flags.AddValue("debug")
	before := param.Clone()

	if err := lib.Apply(cfg, validationLayer, PresetBestPractices); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Preset != PresetBestPractices {
		t.Fatalf("expected preset recorded, got %s", cfg.Preset)
	}

	param, _ = cfg.Parameter(validationLayer)
	for i, setting := range param.Settings {
		switch setting.Key {
		case SettingEnables:
			if setting.Value != enableBestPractices {
				t.Fatalf("unexpected enables %q", setting.Value)
			}
		case SettingDisables:
			if !setting.HasValue(disableThreadSafety) || !setting.HasValue(disableUniqueHandles) {
				t.Fatalf("unexpected disables %q", setting.Value)
			}
		default:
			if setting.Value != before.Settings[i].Value {
				t.Fatalf("%s changed from %q to %q", setting.Key, before.Settings[i].Value, setting.Value)
			}
		}
		if setting.Type != before.Settings[i].Type {
			t.Fatalf("%s: descriptor changed", setting.Key)
		}
	}

	other, _ := cfg.Parameter(apiDumpLayer)
	fresh := loadTestLayer(t, "explicit/VkLayer_api_dump.json", LayerTypeExplicit)
	if !slices.EqualFunc(other.Settings, fresh.Settings, func(a, b LayerSetting) bool { return a.Value == b.Value }) {
		t.Fatalf("preset changed a different layer")
	}
}

func TestApplyPresetErrors(t *testing.T) {
	lib := testPresets(t)

	empty := NewConfiguration("empty")
	if err := lib.Apply(empty, validationLayer, PresetStandard); !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("expected ErrPresetNotFound, got %v", err)
	}

	cfg := validationConfiguration(t)
	cfg.Preset = PresetStandard
	if err := lib.Apply(cfg, validationLayer, PresetUserDefined); err != nil {
		t.Fatalf("user defined must be a no-op, got %v", err)
	}
	if cfg.Preset != PresetStandard {
		t.Fatalf("user defined must not change the recorded preset")
	}

	partial, err := NewPresetLibrary(fstest.MapFS{
		"standard.json": &fstest.MapFile{Data: mustReadFile(t, filepath.Join("presets", "standard.json"))},
	})
	if err != nil {
		t.Fatalf("partial library: %v", err)
	}
	if err := partial.Apply(cfg, validationLayer, PresetGPUAssisted); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestDetectPreset(t *testing.T) {
	lib := testPresets(t)
	cfg := validationConfiguration(t)

	if got := lib.Detect(cfg, validationLayer); got != PresetStandard {
		t.Fatalf("manifest defaults should match standard, got %s", got)
	}

	for _, preset := range Presets()[1:] {
		if err := lib.Apply(cfg, validationLayer, preset); err != nil {
			t.Fatalf("apply %s: %v", preset, err)
		}
		if got := lib.Detect(cfg, validationLayer); got != preset {
			t.Fatalf("expected %s after apply, got %s", preset, got)
		}
	}

	if err := lib.Apply(cfg, validationLayer, PresetBestPractices); err != nil {
		t.Fatalf("apply: %v", err)
	}
	param, _ := cfg.Parameter(validationLayer)
	disables, _ := param.FindSetting(SettingDisables)
	values := disables.Values()
	slices.Reverse(values)
	disables.Value = joinList(values)
	if got := lib.Detect(cfg, validationLayer); got != PresetBestPractices {
		t.Fatalf("element order must not matter, got %s", got)
	}

	disables.RemoveValue(disableThreadSafety)
	OnSettingsManuallyEdited(cfg)
	if cfg.Preset != PresetUserDefined {
		t.Fatalf("manual edit must select user defined, got %s", cfg.Preset)
	}
	if got := lib.Detect(cfg, validationLayer); got != PresetUserDefined {
		t.Fatalf("edited values must not match a preset, got %s", got)
	}

	if got := lib.Detect(NewConfiguration("none"), validationLayer); got != PresetUserDefined {
		t.Fatalf("absent designated layer must detect user defined, got %s", got)
	}
}

func TestAvailablePresets(t *testing.T) {
	cases := []struct {
		name string
		api  Version
		want []ValidationPreset
	}{
		{
			name: "current",
			api:  NewVersion(1, 2, 148),
			want: Presets(),
		},
		{
			name: "older",
			api:  NewVersion(1, 1, 130),
			want: []ValidationPreset{PresetUserDefined, PresetStandard, PresetGPUAssisted, PresetBestPractices},
		},
		{
			name: "oldest",
			api:  NewVersion(1, 1, 0),
			want: []ValidationPreset{PresetUserDefined, PresetStandard, PresetBestPractices},
		},
	}
	for _, tc := range cases {
		got := AvailablePresets(&Layer{Name: validationLayer, APIVersion: tc.api})
		if !slices.Equal(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestPresetIdentifiers(t *testing.T) {
	for _, preset := range Presets() {
		parsed, ok := ParsePreset(preset.ID())
		if !ok || parsed != preset {
			t.Fatalf("%s: id does not round trip", preset)
		}
	}
	if got, ok := ParsePreset("shader_based"); ok || got != PresetUnknown {
		t.Fatalf("expected unknown preset, got %s", got)
	}
	if PresetUnknown.ID() != "user_defined" {
		t.Fatalf("unknown presets are written as user_defined, got %q", PresetUnknown.ID())
	}
}

func mustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	layercfg "github.com/goliatone/go-layercfg"
	"github.com/goliatone/go-layercfg/pkg/state"
)

type harness struct {
	settingsPath string
	configDir    string
}

func newHarness(t *testing.T) harness {
	t.Helper()
	layers, err := filepath.Abs("../../testdata/layers")
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	dir := t.TempDir()
	configDir := filepath.Join(dir, "configurations")
	body := fmt.Sprintf(`configuration_dir: %q
log_level: error
search_paths:
  - path: %q
    type: custom
  - path: %q
    type: explicit
  - path: %q
    type: implicit
`, configDir, filepath.Join(layers, "custom"), filepath.Join(layers, "explicit"), filepath.Join(layers, "implicit"))
	path := filepath.Join(dir, "layercfg.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return harness{settingsPath: path, configDir: configDir}
}

func (h harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetArgs(append([]string{"--config", h.settingsPath}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h harness) load(t *testing.T, name string) *layercfg.Configuration {
	t.Helper()
	cfg, err := state.NewFileStore(h.configDir).Load(context.Background(), name)
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return cfg
}

func TestLayersCommand(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "layers", "--failures")
	if err != nil {
		t.Fatalf("layers: %v", err)
	}
	for _, want := range []string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_LUNARG_screenshot", "Custom Path", "broken.json"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestCreateEditAndShow(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(t, "create", "Capture"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.run(t, "create", "Capture"); !errors.Is(err, layercfg.ErrOverwriteExisting) {
		t.Fatalf("expected overwrite warning, got %v", err)
	}
	if exitCode(layercfg.ErrOverwriteExisting) != ExitCodeInvalid {
		t.Fatalf("expected overwrite to map to invalid exit code")
	}

	steps := [][]string{
		{"state", "Capture", "VK_LAYER_KHRONOS_validation", "overridden"},
		{"state", "Capture", "VK_LAYER_LUNARG_api_dump", "overridden"},
		{"move", "Capture", "VK_LAYER_LUNARG_api_dump", "up"},
		{"set", "Capture", "VK_LAYER_LUNARG_api_dump", "output_format", "JSON"},
		{"preset", "Capture", "best_practices"},
	}
	for _, step := range steps {
		if _, err := h.run(t, step...); err != nil {
			t.Fatalf("%v: %v", step, err)
		}
	}

	cfg := h.load(t, "Capture")
	if len(cfg.Parameters) != 2 {
		t.Fatalf("expected only ranked parameters persisted, got %+v", cfg.Parameters)
	}
	if cfg.Parameters[0].Name != "VK_LAYER_LUNARG_api_dump" || cfg.Parameters[0].Rank != 0 {
		t.Fatalf("expected api_dump first, got %+v", cfg.Parameters[0])
	}
	if value, _ := cfg.Parameters[0].SettingValue("output_format"); value != "JSON" {
		t.Fatalf("expected output_format JSON, got %q", value)
	}
	if cfg.Preset != layercfg.PresetBestPractices {
		t.Fatalf("expected best practices preset, got %v", cfg.Preset)
	}

	if _, err := h.run(t, "set", "Capture", "VK_LAYER_KHRONOS_validation", "enables", "VK_VALIDATION_FEATURE_ENABLE_DEBUG_PRINTF_EXT", "--add"); err != nil {
		t.Fatalf("set --add: %v", err)
	}
	if cfg := h.load(t, "Capture"); cfg.Preset != layercfg.PresetUserDefined {
		t.Fatalf("expected manual edit to reset preset, got %v", cfg.Preset)
	}

	out, err := h.run(t, "show", "Capture", "--settings")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"Capture (preset: User Defined)", "Overridden / Forced On", "output_format", "Application-Controlled"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestExcludingImplicitLayerNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(t, "create", "Quiet"); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := h.run(t, "state", "Quiet", "VK_LAYER_LUNARG_device_simulation", "excluded")
	if !errors.Is(err, layercfg.ErrExcludesImplicitLayer) {
		t.Fatalf("expected implicit layer warning, got %v", err)
	}
	if exitCode(err) != ExitCodeInvalid {
		t.Fatalf("expected invalid exit code")
	}
	if _, err := h.run(t, "state", "Quiet", "VK_LAYER_LUNARG_device_simulation", "excluded", "--yes"); err != nil {
		t.Fatalf("state --yes: %v", err)
	}
	param, ok := h.load(t, "Quiet").Parameter("VK_LAYER_LUNARG_device_simulation")
	if !ok || param.State != layercfg.StateExcluded {
		t.Fatalf("expected excluded implicit layer, got %+v", param)
	}
}

func TestValidateReportsMissingLayers(t *testing.T) {
	h := newHarness(t)
	data, err := os.ReadFile("../../testdata/configurations/Frame Capture.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if err := os.MkdirAll(h.configDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(h.configDir, "Frame Capture.json"), data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	out, err := h.run(t, "validate", "Frame Capture")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "missing layer: VK_LAYER_vendor_removed") {
		t.Fatalf("expected missing layer report:\n%s", out)
	}

	out, err = h.run(t, "show", "Frame Capture")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "VK_LAYER_vendor_removed"+layercfg.MissingSuffix) {
		t.Fatalf("expected missing marker:\n%s", out)
	}
}

func TestSchemaCommand(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "schema", "VK_LAYER_LUNARG_api_dump")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(out, `"openapi": "3.0.3"`) || !strings.Contains(out, `"output_format"`) {
		t.Fatalf("unexpected schema output:\n%s", out)
	}
	if _, err := h.run(t, "schema", "VK_LAYER_nope"); err == nil {
		t.Fatalf("expected error for unknown layer")
	}
}

func TestPresetsAndUnknownPreset(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "presets")
	if err != nil {
		t.Fatalf("presets: %v", err)
	}
	if !strings.Contains(out, "synchronization") {
		t.Fatalf("expected synchronization preset for 1.2.148 layer:\n%s", out)
	}
	if _, err := h.run(t, "create", "P"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := h.run(t, "preset", "P", "turbo"); !errors.Is(err, layercfg.ErrUnknownPreset) {
		t.Fatalf("expected ErrUnknownPreset, got %v", err)
	}
}

func etagFrom(t *testing.T, out string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if _, tag, ok := strings.Cut(line, "etag: "); ok {
			return strings.TrimSpace(tag)
		}
	}
	t.Fatalf("no etag in output:\n%s", out)
	return ""
}

func TestEditWithIfMatchDetectsStaleWrites(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run(t, "create", "Guarded"); err != nil {
		t.Fatalf("create: %v", err)
	}
	out, err := h.run(t, "show", "Guarded")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	original := etagFrom(t, out)

	_, err = h.run(t, "--if-match", "0000", "state", "Guarded", "VK_LAYER_KHRONOS_validation", "overridden")
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected etag mismatch, got %v", err)
	}
	if exitCode(err) != ExitCodeInvalid {
		t.Fatalf("expected etag mismatch to map to invalid exit code")
	}
	if cfg := h.load(t, "Guarded"); len(cfg.Parameters) != 0 {
		t.Fatalf("rejected edit must not be written, got %+v", cfg.Parameters)
	}

	out, err = h.run(t, "--if-match", original, "state", "Guarded", "VK_LAYER_KHRONOS_validation", "overridden")
	if err != nil {
		t.Fatalf("state with current etag: %v", err)
	}
	updated := etagFrom(t, out)
	if updated == original {
		t.Fatalf("expected a new etag after the edit")
	}

	_, err = h.run(t, "--if-match", original, "state", "Guarded", "VK_LAYER_LUNARG_api_dump", "overridden")
	if !errors.Is(err, state.ErrETagMismatch) {
		t.Fatalf("expected the previous etag to be stale, got %v", err)
	}
}

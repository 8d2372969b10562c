package layercfg

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sync"
)

// ValidationPreset identifies a bundled, read-only bundle of enables and
// disables values for the designated validation layer.
type ValidationPreset int

const (
	// PresetUnknown is what a configuration decodes to when its preset id is
	// missing or not recognized. Loading repairs it with DetectPreset.
	PresetUnknown ValidationPreset = iota - 1
	// PresetUserDefined means the values do not come from a bundled preset.
	PresetUserDefined
	PresetStandard
	PresetGPUAssisted
	PresetDebugPrintf
	PresetBestPractices
	PresetSynchronization
)

const (
	// SettingEnables and SettingDisables are the only keys a preset writes.
	SettingEnables  = "enables"
	SettingDisables = "disables"
)

// DesignatedLayer is the validation-capable layer presets apply to by
// default.
const DesignatedLayer = "VK_LAYER_KHRONOS_validation"

type presetInfo struct {
	id    string
	label string
	// minAPI hides the preset from layers older than this version.
	minAPI Version
}

var presetTable = map[ValidationPreset]presetInfo{
	PresetUserDefined:     {id: "user_defined", label: "User Defined"},
	PresetStandard:        {id: "standard", label: "Standard"},
	PresetGPUAssisted:     {id: "gpu_assisted", label: "GPU-Assisted", minAPI: NewVersion(1, 1, 106)},
	PresetDebugPrintf:     {id: "debug_printf", label: "Debug Printf", minAPI: NewVersion(1, 2, 135)},
	PresetBestPractices:   {id: "best_practices", label: "Best Practices"},
	PresetSynchronization: {id: "synchronization", label: "Synchronization", minAPI: NewVersion(1, 2, 148)},
}

// Presets lists every preset in display order, UserDefined first.
func Presets() []ValidationPreset {
	return []ValidationPreset{
		PresetUserDefined,
		PresetStandard,
		PresetGPUAssisted,
		PresetDebugPrintf,
		PresetBestPractices,
		PresetSynchronization,
	}
}

// ID returns the persisted identifier. PresetUnknown is written as
// user_defined.
func (p ValidationPreset) ID() string {
	if info, ok := presetTable[p]; ok {
		return info.id
	}
	return presetTable[PresetUserDefined].id
}

// Label returns the display label.
func (p ValidationPreset) Label() string {
	if info, ok := presetTable[p]; ok {
		return info.label
	}
	return "Unknown"
}

func (p ValidationPreset) String() string {
	if p == PresetUnknown {
		return "unknown"
	}
	return p.ID()
}

// ParsePreset looks up a persisted preset id.
func ParsePreset(id string) (ValidationPreset, bool) {
	for preset, info := range presetTable {
		if info.id == id {
			return preset, true
		}
	}
	return PresetUnknown, false
}

// AvailablePresets returns the presets that apply to layer, in display order.
// Presets that need a newer layer than the one installed are left out.
func AvailablePresets(layer *Layer) []ValidationPreset {
	var out []ValidationPreset
	for _, preset := range Presets() {
		minAPI := presetTable[preset].minAPI
		if minAPI != 0 && (layer == nil || layer.APIVersion < minAPI) {
			continue
		}
		out = append(out, preset)
	}
	return out
}

//go:embed presets/*.json
var bundledPresetFS embed.FS

var bundledPresets = sync.OnceValues(func() (*PresetLibrary, error) {
	sub, err := fs.Sub(bundledPresetFS, "presets")
	if err != nil {
		return nil, err
	}
	return NewPresetLibrary(sub)
})

// BundledPresets returns the library compiled into the binary.
func BundledPresets() (*PresetLibrary, error) {
	return bundledPresets()
}

// PresetLibrary holds the parsed preset templates. It is read-only after
// construction and safe to share.
type PresetLibrary struct {
	templates map[ValidationPreset]*Configuration
}

// NewPresetLibrary loads "<id>.json" from fsys for every preset except
// UserDefined. Missing files are skipped; applying that preset later returns
// ErrUnknownPreset.
func NewPresetLibrary(fsys fs.FS) (*PresetLibrary, error) {
	lib := &PresetLibrary{templates: make(map[ValidationPreset]*Configuration)}
	for _, preset := range Presets() {
		if preset == PresetUserDefined {
			continue
		}
		name := preset.ID() + ConfigurationExt
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, wrapIO("read preset", name, err)
		}
		template, err := UnmarshalConfiguration(data, path.Join("presets", name))
		if err != nil {
			return nil, err
		}
		lib.templates[preset] = template
	}
	return lib, nil
}

// Template returns a copy of the template for preset.
func (l *PresetLibrary) Template(preset ValidationPreset) (*Configuration, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
	}
	template, ok := l.templates[preset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPreset, preset)
	}
	return template.Duplicate(), nil
}

// templateSettings returns the enables/disables settings a template defines
// for the designated layer. A template that names a different layer
// contributes its first parameter.
func (l *PresetLibrary) templateSettings(preset ValidationPreset, designated string) ([]LayerSetting, error) {
	template, err := l.Template(preset)
	if err != nil {
		return nil, err
	}
	param, ok := template.Parameter(designated)
	if !ok {
		if len(template.Parameters) == 0 {
			return nil, fmt.Errorf("%w: %s has no parameters", ErrUnknownPreset, preset)
		}
		param = &template.Parameters[0]
	}
	var out []LayerSetting
	for _, key := range []string{SettingEnables, SettingDisables} {
		if s, ok := param.FindSetting(key); ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

// Apply overwrites the enables and disables values of the designated
// parameter with the preset's and records the preset on cfg. Every other
// setting is left untouched. UserDefined is a no-op.
func (l *PresetLibrary) Apply(cfg *Configuration, designated string, preset ValidationPreset) error {
	if preset == PresetUserDefined {
		return nil
	}
	param, ok := cfg.Parameter(designated)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPresetNotFound, designated)
	}
	values, err := l.templateSettings(preset, designated)
	if err != nil {
		return err
	}
	for _, value := range values {
		if target, ok := param.FindSetting(value.Key); ok {
			target.Value = value.Value
		}
	}
	cfg.Preset = preset
	return nil
}

// Detect returns the first preset whose enables and disables match the
// designated parameter, comparing values as sets. UserDefined is returned
// when nothing matches or the parameter is absent.
func (l *PresetLibrary) Detect(cfg *Configuration, designated string) ValidationPreset {
	param, ok := cfg.Parameter(designated)
	if !ok {
		return PresetUserDefined
	}
	for _, preset := range Presets() {
		if preset == PresetUserDefined {
			continue
		}
		values, err := l.templateSettings(preset, designated)
		if err != nil || len(values) == 0 {
			continue
		}
		if matchesPreset(param, values) {
			return preset
		}
	}
	return PresetUserDefined
}

func matchesPreset(param *Parameter, values []LayerSetting) bool {
	for _, want := range values {
		got, ok := param.FindSetting(want.Key)
		if !ok || !sameValueSet(got.Value, want.Value) {
			return false
		}
	}
	return true
}

func sameValueSet(a, b string) bool {
	left := slices.Compact(slices.Sorted(slices.Values(splitList(a))))
	right := slices.Compact(slices.Sorted(slices.Values(splitList(b))))
	return slices.Equal(left, right)
}

// ApplyPreset applies a bundled preset to the designated parameter of cfg.
func ApplyPreset(cfg *Configuration, designated string, preset ValidationPreset) error {
	if preset == PresetUserDefined {
		return nil
	}
	lib, err := BundledPresets()
	if err != nil {
		return err
	}
	return lib.Apply(cfg, designated, preset)
}

// DetectPreset matches the designated parameter against the bundled presets.
func DetectPreset(cfg *Configuration, designated string) ValidationPreset {
	lib, err := BundledPresets()
	if err != nil {
		return PresetUserDefined
	}
	return lib.Detect(cfg, designated)
}

// OnSettingsManuallyEdited records that the designated parameter no longer
// matches a preset. Call it after any edit that did not come from
// ApplyPreset.
func OnSettingsManuallyEdited(cfg *Configuration) {
	if cfg != nil {
		cfg.Preset = PresetUserDefined
	}
}

package layercfg

import (
	"slices"
	"strings"
)

// SettingType is the closed set of setting kinds a manifest may declare.
type SettingType int

const (
	SettingBool SettingType = iota
	SettingBoolNumeric
	SettingString
	SettingSaveFile
	SettingLoadFile
	SettingSaveFolder
	SettingExclusiveList
	SettingInclusiveList
	SettingVUIDFilter
)

// settingTypeNames maps manifest type strings onto SettingType. The table is
// the whole schema: anything else is a SchemaError.
var settingTypeNames = map[string]SettingType{
	"bool":         SettingBool,
	"bool_numeric": SettingBoolNumeric,
	"string":       SettingString,
	"save_file":    SettingSaveFile,
	"load_file":    SettingLoadFile,
	"save_folder":  SettingSaveFolder,
	"enum":         SettingExclusiveList,
	"multi_enum":   SettingInclusiveList,
	"vuid_exclude": SettingVUIDFilter,
}

// ParseSettingType looks up a manifest type string.
func ParseSettingType(value string) (SettingType, bool) {
	t, ok := settingTypeNames[value]
	return t, ok
}

// String returns the manifest spelling of the type.
func (t SettingType) String() string {
	for name, candidate := range settingTypeNames {
		if candidate == t {
			return name
		}
	}
	return "unknown"
}

// IsList reports whether values are comma-joined sequences.
func (t SettingType) IsList() bool {
	return t == SettingInclusiveList || t == SettingVUIDFilter
}

// HasOptions reports whether the manifest declares an options map for t.
func (t SettingType) HasOptions() bool {
	return t == SettingExclusiveList || t == SettingInclusiveList
}

// IsBool reports whether t is one of the boolean encodings.
func (t SettingType) IsBool() bool {
	return t == SettingBool || t == SettingBoolNumeric
}

// IsPath reports whether t holds a file system path.
func (t SettingType) IsPath() bool {
	return t == SettingSaveFile || t == SettingLoadFile || t == SettingSaveFolder
}

// ListSeparator joins multi-valued settings. Embedded separators are not
// escaped.
const ListSeparator = ","

// LayerSetting is one setting descriptor together with its current value.
type LayerSetting struct {
	Key         string
	Label       string
	Description string
	Type        SettingType
	Value       string

	// OptionValues and OptionLabels are parallel, in manifest order. Only
	// exclusive and inclusive lists carry them.
	OptionValues []string
	OptionLabels []string
}

// Clone returns a deep copy of s.
func (s LayerSetting) Clone() LayerSetting {
	out := s
	out.OptionValues = slices.Clone(s.OptionValues)
	out.OptionLabels = slices.Clone(s.OptionLabels)
	return out
}

// ExclusiveValues returns the option keys of an exclusive list.
func (s LayerSetting) ExclusiveValues() []string {
	if s.Type != SettingExclusiveList {
		return nil
	}
	return slices.Clone(s.OptionValues)
}

// ExclusiveLabels returns the option labels of an exclusive list.
func (s LayerSetting) ExclusiveLabels() []string {
	if s.Type != SettingExclusiveList {
		return nil
	}
	return slices.Clone(s.OptionLabels)
}

// InclusiveValues returns the option keys of an inclusive list.
func (s LayerSetting) InclusiveValues() []string {
	if s.Type != SettingInclusiveList {
		return nil
	}
	return slices.Clone(s.OptionValues)
}

// InclusiveLabels returns the option labels of an inclusive list.
func (s LayerSetting) InclusiveLabels() []string {
	if s.Type != SettingInclusiveList {
		return nil
	}
	return slices.Clone(s.OptionLabels)
}

// OptionLabel returns the display label for an option key.
func (s LayerSetting) OptionLabel(value string) (string, bool) {
	i := slices.Index(s.OptionValues, value)
	if i < 0 || i >= len(s.OptionLabels) {
		return "", false
	}
	return s.OptionLabels[i], true
}

// Values splits the current value. Scalar settings yield a single element,
// or none when empty.
func (s LayerSetting) Values() []string {
	if s.Value == "" {
		return nil
	}
	if !s.Type.IsList() {
		return []string{s.Value}
	}
	return splitList(s.Value)
}

// HasValue reports whether value is one of the current values. Matching is
// per element, never by substring.
func (s LayerSetting) HasValue(value string) bool {
	return slices.Contains(s.Values(), value)
}

// AddValue appends value to a list setting if it is not already present.
func (s *LayerSetting) AddValue(value string) bool {
	if value == "" || s.HasValue(value) {
		return false
	}
	s.Value = joinList(append(s.Values(), value))
	return true
}

// RemoveValue drops the first element equal to value.
func (s *LayerSetting) RemoveValue(value string) bool {
	values := s.Values()
	i := slices.Index(values, value)
	if i < 0 {
		return false
	}
	s.Value = joinList(slices.Delete(values, i, i+1))
	return true
}

// Bool decodes a boolean setting. Both "TRUE"/"FALSE" and "1"/"0" are
// accepted regardless of the declared encoding.
func (s LayerSetting) Bool() bool {
	switch strings.ToUpper(strings.TrimSpace(s.Value)) {
	case "TRUE", "1", "ON", "YES":
		return true
	default:
		return false
	}
}

// SetBool encodes b using the setting's declared boolean encoding.
func (s *LayerSetting) SetBool(b bool) {
	switch {
	case s.Type == SettingBoolNumeric && b:
		s.Value = "1"
	case s.Type == SettingBoolNumeric:
		s.Value = "0"
	case b:
		s.Value = "TRUE"
	default:
		s.Value = "FALSE"
	}
}

// UnknownValues lists current values that are not declared options. They are
// kept verbatim; the list exists so a presentation layer can flag them.
func (s LayerSetting) UnknownValues() []string {
	if !s.Type.HasOptions() {
		return nil
	}
	var unknown []string
	for _, value := range s.Values() {
		if !slices.Contains(s.OptionValues, value) {
			unknown = append(unknown, value)
		}
	}
	return unknown
}

// cloneSettings deep-copies a settings slice, keeping nil as nil.
func cloneSettings(settings []LayerSetting) []LayerSetting {
	if settings == nil {
		return nil
	}
	out := make([]LayerSetting, len(settings))
	for i := range settings {
		out[i] = settings[i].Clone()
	}
	return out
}

func findSetting(settings []LayerSetting, key string) int {
	return slices.IndexFunc(settings, func(s LayerSetting) bool { return s.Key == key })
}

func joinList(values []string) string {
	return strings.Join(values, ListSeparator)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ListSeparator)
}

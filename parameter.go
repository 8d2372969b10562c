package layercfg

import "strings"

// LayerState is the activation state of a layer within a configuration.
type LayerState int

const (
	// StateApplicationControlled leaves the layer to the application.
	StateApplicationControlled LayerState = iota
	// StateOverridden forces the layer on.
	StateOverridden
	// StateExcluded forces the layer off.
	StateExcluded
)

func (s LayerState) String() string {
	switch s {
	case StateApplicationControlled:
		return "APPLICATION_CONTROLLED"
	case StateOverridden:
		return "OVERRIDDEN"
	case StateExcluded:
		return "EXCLUDED"
	default:
		return "UNKNOWN"
	}
}

// Label is the user-facing description of the state.
func (s LayerState) Label() string {
	switch s {
	case StateApplicationControlled:
		return "Application-Controlled"
	case StateOverridden:
		return "Overridden / Forced On"
	case StateExcluded:
		return "Excluded / Forced Off"
	default:
		return "Unknown"
	}
}

// Ranked reports whether parameters in state s take part in rank ordering.
func (s LayerState) Ranked() bool {
	return s == StateOverridden || s == StateExcluded
}

// ParseLayerState accepts the persisted spelling and a few short aliases.
func ParseLayerState(value string) (LayerState, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "APPLICATION_CONTROLLED", "APP", "APPLICATION", "DEFAULT":
		return StateApplicationControlled, true
	case "OVERRIDDEN", "OVERRIDE", "ON":
		return StateOverridden, true
	case "EXCLUDED", "EXCLUDE", "OFF":
		return StateExcluded, true
	default:
		return StateApplicationControlled, false
	}
}

// Parameter binds one layer to a state, a rank and a private copy of its
// settings inside one configuration.
type Parameter struct {
	Name     string
	State    LayerState
	Rank     int
	Settings []LayerSetting
}

// NewParameter creates an application-controlled parameter with a copy of the
// layer defaults.
func NewParameter(layer *Layer) Parameter {
	return Parameter{
		Name:     layer.Name,
		State:    StateApplicationControlled,
		Settings: layer.DefaultSettings(),
	}
}

// Clone returns a deep copy of p.
func (p Parameter) Clone() Parameter {
	out := p
	out.Settings = cloneSettings(p.Settings)
	return out
}

// FindSetting returns a pointer into p's own settings for in-place edits.
func (p *Parameter) FindSetting(key string) (*LayerSetting, bool) {
	i := findSetting(p.Settings, key)
	if i < 0 {
		return nil, false
	}
	return &p.Settings[i], true
}

// SettingValue returns the current value for key.
func (p Parameter) SettingValue(key string) (string, bool) {
	i := findSetting(p.Settings, key)
	if i < 0 {
		return "", false
	}
	return p.Settings[i].Value, true
}

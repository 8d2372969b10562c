package layercfg

import (
	"slices"
	"strings"

	"github.com/goliatone/go-layercfg/layering"
)

// ConfigurationExt is appended to a configuration name to derive its file.
const ConfigurationExt = ".json"

// Configuration is an ordered set of parameters plus the selected validation
// preset and an opaque editor state blob. It is the unit of save and load.
type Configuration struct {
	Name       string
	Parameters []Parameter
	Preset     ValidationPreset

	// EditorState belongs to the presentation layer. The engine stores and
	// returns it byte for byte.
	EditorState []byte
}

// NewConfiguration returns an empty configuration named name.
func NewConfiguration(name string) *Configuration {
	return &Configuration{Name: name, Preset: PresetUserDefined}
}

// File returns the file name the configuration is persisted under.
func (c *Configuration) File() string {
	return c.Name + ConfigurationExt
}

// Duplicate returns a deep copy; parameters and settings are not shared.
func (c *Configuration) Duplicate() *Configuration {
	if c == nil {
		return nil
	}
	return layering.Clone(c)
}

// FindParameter returns the index of the first parameter named name.
func (c *Configuration) FindParameter(name string) int {
	if c == nil {
		return -1
	}
	return slices.IndexFunc(c.Parameters, func(p Parameter) bool { return p.Name == name })
}

// Parameter returns a pointer to the parameter named name.
func (c *Configuration) Parameter(name string) (*Parameter, bool) {
	i := c.FindParameter(name)
	if i < 0 {
		return nil, false
	}
	return &c.Parameters[i], true
}

// Ranked returns copies of the ranked parameters in rank order.
func (c *Configuration) Ranked() []Parameter {
	if c == nil {
		return nil
	}
	var out []Parameter
	for _, p := range c.Parameters {
		if p.State.Ranked() {
			out = append(out, p.Clone())
		}
	}
	return out
}

// RankedCount returns the number of parameters that take part in ordering.
func (c *Configuration) RankedCount() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, p := range c.Parameters {
		if p.State.Ranked() {
			n++
		}
	}
	return n
}

// ParametersInState returns copies of every parameter in state, in sequence
// order.
func (c *Configuration) ParametersInState(state LayerState) []Parameter {
	if c == nil {
		return nil
	}
	var out []Parameter
	for _, p := range c.Parameters {
		if p.State == state {
			out = append(out, p.Clone())
		}
	}
	return out
}

// HasBlankName reports whether the name is empty or whitespace only.
func (c *Configuration) HasBlankName() bool {
	return c == nil || strings.TrimSpace(c.Name) == ""
}

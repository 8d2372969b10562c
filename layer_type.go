package layercfg

import "strings"

// LayerType classifies a layer by how it was discovered.
type LayerType int

const (
	LayerTypeExplicit LayerType = iota
	LayerTypeImplicit
	LayerTypeCustom
)

func (t LayerType) String() string {
	switch t {
	case LayerTypeExplicit:
		return "explicit"
	case LayerTypeImplicit:
		return "implicit"
	case LayerTypeCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Label returns the display label used next to layer names.
func (t LayerType) Label() string {
	switch t {
	case LayerTypeExplicit:
		return "Explicit"
	case LayerTypeImplicit:
		return "Implicit"
	case LayerTypeCustom:
		return "Custom Path"
	default:
		return "Unknown"
	}
}

// ParseLayerType converts a string representation into a LayerType. The
// boolean is false for unrecognised values.
func ParseLayerType(value string) (LayerType, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "explicit":
		return LayerTypeExplicit, true
	case "implicit":
		return LayerTypeImplicit, true
	case "custom", "custom path":
		return LayerTypeCustom, true
	default:
		return LayerTypeExplicit, false
	}
}

package layercfg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Layer is one parsed manifest. Layers in a catalog are shared read-only;
// configurations copy settings out of them and never write back.
type Layer struct {
	Name        string
	Type        LayerType
	Kind        string
	Description string
	LayerPath   string
	LibraryPath string

	APIVersion            Version
	ImplementationVersion Version
	FileFormatVersion     Version

	Settings []LayerSetting
}

// Clone returns a deep copy of l.
func (l *Layer) Clone() *Layer {
	if l == nil {
		return nil
	}
	out := *l
	out.Settings = cloneSettings(l.Settings)
	return &out
}

// DefaultSettings returns an independently owned copy of the manifest
// defaults.
func (l *Layer) DefaultSettings() []LayerSetting {
	if l == nil {
		return nil
	}
	return cloneSettings(l.Settings)
}

// FindSetting returns the descriptor for key.
func (l *Layer) FindSetting(key string) (LayerSetting, bool) {
	if l == nil {
		return LayerSetting{}, false
	}
	i := findSetting(l.Settings, key)
	if i < 0 {
		return LayerSetting{}, false
	}
	return l.Settings[i], true
}

// LibraryFullPath resolves LibraryPath relative to the manifest directory.
func (l *Layer) LibraryFullPath() string {
	if l == nil || l.LibraryPath == "" {
		return ""
	}
	if filepath.IsAbs(l.LibraryPath) || l.LayerPath == "" {
		return l.LibraryPath
	}
	return filepath.Join(filepath.Dir(l.LayerPath), l.LibraryPath)
}

// DisplayName decorates the name with the type label for non-explicit layers.
func (l *Layer) DisplayName() string {
	if l == nil {
		return ""
	}
	if l.Type == LayerTypeExplicit {
		return l.Name
	}
	return fmt.Sprintf("%s (%s)", l.Name, l.Type.Label())
}

// Details renders the multi-line description shown next to a selected layer.
func (l *Layer) Details() string {
	if l == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(l.Description)
	b.WriteString("\n")
	fmt.Fprintf(&b, "(%s)\n\n", l.Type.Label())
	b.WriteString(l.LibraryPath)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "API Version: %s\n", l.APIVersion)
	fmt.Fprintf(&b, "Implementation Version: %s\n\n", l.ImplementationVersion)
	fmt.Fprintf(&b, "File format: %s\n\n", l.FileFormatVersion)
	fmt.Fprintf(&b, "Full path: %s", l.LayerPath)
	return b.String()
}

// FindLayer returns the first layer named name.
func FindLayer(layers []*Layer, name string) (*Layer, bool) {
	for _, layer := range layers {
		if layer != nil && layer.Name == name {
			return layer, true
		}
	}
	return nil, false
}

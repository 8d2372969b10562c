package layercfg

import (
	"errors"
	"fmt"
	"sort"
)

// Recommended source priorities. Higher numbers win when two sources provide
// a layer with the same name.
const (
	PriorityImplicit = 100
	PriorityExplicit = 200
	PriorityCustom   = 300
)

// DefaultPriority returns the recommended priority for a source of type t.
func DefaultPriority(t LayerType) int {
	switch t {
	case LayerTypeCustom:
		return PriorityCustom
	case LayerTypeExplicit:
		return PriorityExplicit
	default:
		return PriorityImplicit
	}
}

// Source names one place layers are discovered from, such as a search path.
type Source struct {
	Name     string
	Label    string
	Priority int
	Type     LayerType
}

// NewSource builds a Source with the default priority for t.
func NewSource(name string, t LayerType) Source {
	return Source{Name: name, Label: t.Label(), Priority: DefaultPriority(t), Type: t}
}

// CatalogEntry pairs a source with the layers found there.
type CatalogEntry struct {
	Source Source
	Layers []*Layer
}

// Provenance records which source provides a layer.
type Provenance struct {
	Source Source
	Layer  *Layer
}

var (
	// ErrSourceNameRequired indicates a catalog entry without a source name.
	ErrSourceNameRequired = errors.New("layercfg: source name must be provided")
	// ErrDuplicateSourceName indicates two entries share a source name.
	ErrDuplicateSourceName = errors.New("layercfg: source names must be unique")
	// ErrPriorityOrder indicates duplicate source priorities.
	ErrPriorityOrder = errors.New("layercfg: source priorities must be strictly ordered")
)

// Catalog is the read-only set of discoverable layers ordered from strongest
// to weakest source. It is safe to share between configurations; layers are
// copied on construction and must not be mutated afterwards.
type Catalog struct {
	entries []CatalogEntry
}

// NewCatalog validates and sorts entries so the strongest source is first.
func NewCatalog(entries ...CatalogEntry) (*Catalog, error) {
	if len(entries) == 0 {
		return &Catalog{}, nil
	}

	seen := make(map[string]struct{}, len(entries))
	copied := make([]CatalogEntry, len(entries))
	for i, entry := range entries {
		if entry.Source.Name == "" {
			return nil, ErrSourceNameRequired
		}
		if _, ok := seen[entry.Source.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSourceName, entry.Source.Name)
		}
		seen[entry.Source.Name] = struct{}{}
		copied[i] = cloneEntry(entry)
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Source.Priority == copied[j].Source.Priority {
			return copied[i].Source.Name < copied[j].Source.Name
		}
		return copied[i].Source.Priority > copied[j].Source.Priority
	})

	for i := 1; i < len(copied); i++ {
		if copied[i-1].Source.Priority <= copied[i].Source.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Source.Priority)
		}
	}
	return &Catalog{entries: copied}, nil
}

// CatalogFromLayers groups layers by their type into one source per type.
func CatalogFromLayers(layers ...*Layer) (*Catalog, error) {
	byType := make(map[LayerType][]*Layer)
	var order []LayerType
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		if _, ok := byType[layer.Type]; !ok {
			order = append(order, layer.Type)
		}
		byType[layer.Type] = append(byType[layer.Type], layer)
	}
	entries := make([]CatalogEntry, 0, len(order))
	for _, t := range order {
		entries = append(entries, CatalogEntry{Source: NewSource(t.String(), t), Layers: byType[t]})
	}
	return NewCatalog(entries...)
}

func cloneEntry(entry CatalogEntry) CatalogEntry {
	out := CatalogEntry{Source: entry.Source}
	for _, layer := range entry.Layers {
		if layer != nil {
			out.Layers = append(out.Layers, layer.Clone())
		}
	}
	return out
}

// Sources returns the sources strongest first.
func (c *Catalog) Sources() []Source {
	if c == nil {
		return nil
	}
	out := make([]Source, len(c.entries))
	for i := range c.entries {
		out[i] = c.entries[i].Source
	}
	return out
}

// Layers returns every layer strongest source first, duplicates included.
func (c *Catalog) Layers() []*Layer {
	if c == nil {
		return nil
	}
	var out []*Layer
	for _, entry := range c.entries {
		out = append(out, entry.Layers...)
	}
	return out
}

// Unique returns one layer per name, the one from the strongest source.
func (c *Catalog) Unique() []*Layer {
	seen := make(map[string]struct{})
	var out []*Layer
	for _, layer := range c.Layers() {
		if _, ok := seen[layer.Name]; ok {
			continue
		}
		seen[layer.Name] = struct{}{}
		out = append(out, layer)
	}
	return out
}

// Len returns the number of layers, duplicates included.
func (c *Catalog) Len() int {
	n := 0
	if c == nil {
		return n
	}
	for _, entry := range c.entries {
		n += len(entry.Layers)
	}
	return n
}

// Find implements LayerResolver, returning the layer from the strongest
// source.
func (c *Catalog) Find(name string) (*Layer, bool) {
	if c == nil {
		return nil, false
	}
	for _, entry := range c.entries {
		if layer, ok := FindLayer(entry.Layers, name); ok {
			return layer, true
		}
	}
	return nil, false
}

// Trace lists every source providing name, strongest first. The first entry
// is the one Find returns.
func (c *Catalog) Trace(name string) []Provenance {
	if c == nil {
		return nil
	}
	var out []Provenance
	for _, entry := range c.entries {
		for _, layer := range entry.Layers {
			if layer.Name == name {
				out = append(out, Provenance{Source: entry.Source, Layer: layer})
			}
		}
	}
	return out
}

package discovery

import (
	"path/filepath"
	"slices"

	layercfg "github.com/goliatone/go-layercfg"
)

// SearchPath is one directory scanned for layer manifests.
type SearchPath struct {
	Dir  string             `yaml:"path" json:"path" validate:"required"`
	Type layercfg.LayerType `yaml:"-" json:"-"`
}

// SearchPaths is an ordered, duplicate-free list of directories. Earlier
// entries of the same type win over later ones.
type SearchPaths struct {
	paths []SearchPath
}

// NewSearchPaths builds a list from paths, dropping duplicates.
func NewSearchPaths(paths ...SearchPath) *SearchPaths {
	s := &SearchPaths{}
	for _, p := range paths {
		s.Add(p.Dir, p.Type)
	}
	return s
}

// Add appends dir unless it is already listed. It reports whether the list
// changed.
func (s *SearchPaths) Add(dir string, t layercfg.LayerType) bool {
	if dir == "" {
		return false
	}
	dir = filepath.Clean(dir)
	if s.index(dir) >= 0 {
		return false
	}
	s.paths = append(s.paths, SearchPath{Dir: dir, Type: t})
	return true
}

// Remove drops dir. It reports whether the list changed.
func (s *SearchPaths) Remove(dir string) bool {
	i := s.index(filepath.Clean(dir))
	if i < 0 {
		return false
	}
	s.paths = slices.Delete(s.paths, i, i+1)
	return true
}

// Custom returns the directories added as custom paths.
func (s *SearchPaths) Custom() []string {
	var out []string
	for _, p := range s.paths {
		if p.Type == layercfg.LayerTypeCustom {
			out = append(out, p.Dir)
		}
	}
	return out
}

// List returns a copy of the paths in order.
func (s *SearchPaths) List() []SearchPath {
	return slices.Clone(s.paths)
}

// Len returns the number of paths.
func (s *SearchPaths) Len() int { return len(s.paths) }

func (s *SearchPaths) index(dir string) int {
	return slices.IndexFunc(s.paths, func(p SearchPath) bool { return p.Dir == dir })
}

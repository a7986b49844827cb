// Package texture resolves which texture images are available on disk.
// Resolution happens once at startup; geometry code never probes the
// filesystem mid-run.
package texture

import (
	"os"
	"path/filepath"
	"sort"
)

// Resolved is the outcome for one texture key: either a file that exists
// (Loaded) or a flat-colour fallback tied to a category (Procedural).
type Resolved struct {
	Key      string
	Path     string // empty when procedural
	Category string
}

// Loaded reports whether a real image backs this key.
func (r Resolved) Loaded() bool { return r.Path != "" }

// DefaultFiles maps texture keys to their expected file names.
var DefaultFiles = map[string]string{
	"facade_atlas":        "facade_atlas.png",
	"facade_normal_atlas": "facade_normal_atlas.png",
	"terrain":             "terrain.png",
	"road_asphalt":        "road_asphalt.png",
	"rail_ballast":        "rail_ballast.png",
	"water":               "water.png",
}

// Source resolves texture keys against a directory.
type Source interface {
	// Resolve returns the outcome for one key.
	Resolve(key string) Resolved
	// All returns every known key's outcome, sorted by key.
	All() []Resolved
}

// DirSource probes a directory once at construction.
type DirSource struct {
	resolved map[string]Resolved
}

// NewDirSource stats every file in files under dir. Missing keys resolve to
// procedural fallbacks using the key itself as the category.
func NewDirSource(dir string, files map[string]string) *DirSource {
	s := &DirSource{resolved: make(map[string]Resolved, len(files))}
	for key, name := range files {
		path := filepath.Join(dir, name)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			s.resolved[key] = Resolved{Key: key, Path: path}
		} else {
			s.resolved[key] = Resolved{Key: key, Category: key}
		}
	}
	return s
}

// Resolve returns the outcome for one key. Unknown keys are procedural.
func (s *DirSource) Resolve(key string) Resolved {
	if r, ok := s.resolved[key]; ok {
		return r
	}
	return Resolved{Key: key, Category: key}
}

// All returns every configured key's outcome, sorted by key.
func (s *DirSource) All() []Resolved {
	out := make([]Resolved, 0, len(s.resolved))
	for _, r := range s.resolved {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

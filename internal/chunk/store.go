package chunk

import (
	"sort"
	"sync"

	"github.com/tidemark/twinmesh/internal/mesh"
)

// Fragment is one primitive's geometry destined for a cell. FeatureID is the
// stable source identity (zero for surfaces without per-feature identity).
type Fragment struct {
	Mesh      *mesh.Mesh
	FeatureID int64
}

// FaceRange records which triangles of a combined mesh came from one source
// feature. The JSON shape matches the selection metadata the viewer reads.
type FaceRange struct {
	FeatureID int64 `json:"building_id"`
	StartFace int   `json:"start_face"`
	EndFace   int   `json:"end_face"`
}

// Combined is the merged mesh for one (asset type, cell) pair.
type Combined struct {
	Mesh       *mesh.Mesh
	FaceRanges []FaceRange
}

// Store is an append-only fragment accumulator. Workers either share one
// store (Add locks) or fill private stores merged after the barrier.
type Store struct {
	mu    sync.Mutex
	cells map[AssetType]map[Key][]Fragment
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{cells: make(map[AssetType]map[Key][]Fragment)}
}

// Add appends a fragment to a cell.
func (s *Store) Add(at AssetType, key Key, f Fragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey, ok := s.cells[at]
	if !ok {
		byKey = make(map[Key][]Fragment)
		s.cells[at] = byKey
	}
	byKey[key] = append(byKey[key], f)
}

// Merge moves all fragments from other into s. other is left empty.
func (s *Store) Merge(other *Store) {
	other.mu.Lock()
	cells := other.cells
	other.cells = make(map[AssetType]map[Key][]Fragment)
	other.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for at, byKey := range cells {
		dst, ok := s.cells[at]
		if !ok {
			s.cells[at] = byKey
			continue
		}
		for key, frags := range byKey {
			dst[key] = append(dst[key], frags...)
		}
	}
}

// Types returns the asset types with at least one fragment, sorted.
func (s *Store) Types() []AssetType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AssetType, 0, len(s.cells))
	for at := range s.cells {
		out = append(out, at)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Keys returns the populated cells for an asset type in deterministic order.
func (s *Store) Keys(at AssetType) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	byKey := s.cells[at]
	out := make([]Key, 0, len(byKey))
	for key := range byKey {
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

// Combine merges a cell's fragments into one mesh. Fragments are ordered by
// feature identity so output is deterministic regardless of worker timing;
// face ranges are recorded for fragments carrying a non-zero identity.
func (s *Store) Combine(at AssetType, key Key) *Combined {
	s.mu.Lock()
	frags := append([]Fragment(nil), s.cells[at][key]...)
	s.mu.Unlock()

	if len(frags) == 0 {
		return nil
	}
	sort.SliceStable(frags, func(i, j int) bool { return frags[i].FeatureID < frags[j].FeatureID })

	var vertices int
	for _, f := range frags {
		vertices += f.Mesh.VertexCount()
	}

	combined := &Combined{Mesh: mesh.New(vertices)}
	for _, f := range frags {
		start, end := combined.Mesh.Append(f.Mesh)
		if f.FeatureID != 0 {
			combined.FaceRanges = append(combined.FaceRanges, FaceRange{
				FeatureID: f.FeatureID,
				StartFace: start,
				EndFace:   end,
			})
		}
	}
	return combined
}

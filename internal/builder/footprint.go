package builder

import (
	"github.com/flywave/go3d/float64/vec2"
	"github.com/flywave/go3d/float64/vec3"
	"github.com/paulmach/orb"

	"github.com/tidemark/twinmesh/internal/mesh"
)

// FootprintMesh triangulates a footprint ring into a flat selection surface
// at the given elevation. Callers lift z slightly above the ground so the
// surface never coincides with the terrain.
func FootprintMesh(ring orb.Ring, z float64) *mesh.Mesh {
	tris := triangulateRing(ring)
	if len(tris) == 0 {
		return nil
	}
	n := len(ring) - 1
	m := mesh.New(n)
	idx := make([]uint32, n)
	for i := 0; i < n; i++ {
		idx[i] = m.AddVertex(
			vec3.T{ring[i][0], ring[i][1], z},
			vec2.T{ring[i][0] / 10, ring[i][1] / 10},
		)
	}
	for _, tri := range tris {
		m.AddTriangle(idx[tri[0]], idx[tri[1]], idx[tri[2]])
	}
	return m
}

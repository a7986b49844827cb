// Package mesh holds triangle geometry in the local planar frame (z up) and
// serialises it to binary glTF. Triangles wind counter-clockwise seen from
// outside, so face normals point out of closed envelopes and up from ground
// surfaces.
package mesh

import (
	"math"

	"github.com/flywave/go3d/float64/vec2"
	"github.com/flywave/go3d/float64/vec3"
)

// Mesh is an indexed triangle mesh. FeatureIDs carries one value per vertex
// so a viewer can trace a triangle back to the primitive that produced it;
// it stays zero-valued for surfaces without per-feature identity.
type Mesh struct {
	Positions  []vec3.T
	UVs        []vec2.T
	FeatureIDs []float32
	Indices    []uint32
}

// New returns an empty mesh with capacity hints for the expected vertex count.
func New(vertexHint int) *Mesh {
	return &Mesh{
		Positions:  make([]vec3.T, 0, vertexHint),
		UVs:        make([]vec2.T, 0, vertexHint),
		FeatureIDs: make([]float32, 0, vertexHint),
		Indices:    make([]uint32, 0, vertexHint*3),
	}
}

// AddVertex appends a vertex and returns its index.
func (m *Mesh) AddVertex(pos vec3.T, uv vec2.T) uint32 {
	m.Positions = append(m.Positions, pos)
	m.UVs = append(m.UVs, uv)
	m.FeatureIDs = append(m.FeatureIDs, 0)
	return uint32(len(m.Positions) - 1)
}

// AddTriangle appends one face with the given winding.
func (m *Mesh) AddTriangle(a, b, c uint32) {
	m.Indices = append(m.Indices, a, b, c)
}

// AddQuad appends two triangles for the quad a-b-c-d (counter-clockwise).
func (m *Mesh) AddQuad(a, b, c, d uint32) {
	m.AddTriangle(a, b, c)
	m.AddTriangle(a, c, d)
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// FaceCount returns the number of triangles.
func (m *Mesh) FaceCount() int { return len(m.Indices) / 3 }

// SetFeatureID stamps every vertex with the same feature identity.
func (m *Mesh) SetFeatureID(id float32) {
	for i := range m.FeatureIDs {
		m.FeatureIDs[i] = id
	}
}

// Append copies other into m, offsetting indices, and returns the face range
// [startFace, endFace) other's triangles occupy in the combined mesh.
func (m *Mesh) Append(other *Mesh) (startFace, endFace int) {
	startFace = m.FaceCount()
	offset := uint32(len(m.Positions))
	m.Positions = append(m.Positions, other.Positions...)
	m.UVs = append(m.UVs, other.UVs...)
	m.FeatureIDs = append(m.FeatureIDs, other.FeatureIDs...)
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, idx+offset)
	}
	return startFace, m.FaceCount()
}

// Bounds returns the axis-aligned extent of the vertex positions.
func (m *Mesh) Bounds() (min, max vec3.T) {
	if len(m.Positions) == 0 {
		return vec3.Zero, vec3.Zero
	}
	min, max = m.Positions[0], m.Positions[0]
	for _, p := range m.Positions[1:] {
		for i := 0; i < 3; i++ {
			min[i] = math.Min(min[i], p[i])
			max[i] = math.Max(max[i], p[i])
		}
	}
	return min, max
}

// SignedVolume integrates the divergence theorem over the faces. Positive for
// a closed mesh with outward-facing normals.
func (m *Mesh) SignedVolume() float64 {
	var v float64
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a := m.Positions[m.Indices[i]]
		b := m.Positions[m.Indices[i+1]]
		c := m.Positions[m.Indices[i+2]]
		v += a[0]*(b[1]*c[2]-c[1]*b[2]) -
			a[1]*(b[0]*c[2]-c[0]*b[2]) +
			a[2]*(b[0]*c[1]-c[0]*b[1])
	}
	return v / 6
}

// IsWatertight reports whether every edge is shared by exactly two faces
// with opposite direction. Duplicate vertices at the same position are
// merged before counting, since builders emit seams with repeated positions
// to keep UVs discontinuous.
func (m *Mesh) IsWatertight() bool {
	if m.FaceCount() == 0 {
		return false
	}

	// Collapse positionally identical vertices.
	canon := make(map[vec3.T]uint32, len(m.Positions))
	remap := make([]uint32, len(m.Positions))
	for i, p := range m.Positions {
		key := vec3.T{round6(p[0]), round6(p[1]), round6(p[2])}
		if id, ok := canon[key]; ok {
			remap[i] = id
		} else {
			canon[key] = uint32(i)
			remap[i] = uint32(i)
		}
	}

	type edge struct{ a, b uint32 }
	counts := make(map[edge]int)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a := remap[m.Indices[i]]
		b := remap[m.Indices[i+1]]
		c := remap[m.Indices[i+2]]
		for _, e := range [3]edge{{a, b}, {b, c}, {c, a}} {
			if e.a == e.b {
				return false
			}
			if e.a < e.b {
				counts[edge{e.a, e.b}]++
			} else {
				counts[edge{e.b, e.a}]--
			}
		}
	}
	for _, n := range counts {
		if n != 0 {
			return false
		}
	}
	return true
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

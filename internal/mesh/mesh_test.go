package mesh

import (
	"path/filepath"
	"testing"

	"github.com/flywave/go3d/float64/vec2"
	"github.com/flywave/go3d/float64/vec3"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unitCube builds a closed axis-aligned cube [0,1]^3 with outward winding.
func unitCube() *Mesh {
	m := New(8)
	var idx [8]uint32
	for i := 0; i < 8; i++ {
		p := vec3.T{float64(i & 1), float64((i >> 1) & 1), float64((i >> 2) & 1)}
		idx[i] = m.AddVertex(p, vec2.T{p[0], p[1]})
	}
	// Bottom (z=0, normal down) and top (z=1, normal up).
	m.AddQuad(idx[0], idx[2], idx[3], idx[1])
	m.AddQuad(idx[4], idx[5], idx[7], idx[6])
	// South and north.
	m.AddQuad(idx[0], idx[1], idx[5], idx[4])
	m.AddQuad(idx[3], idx[2], idx[6], idx[7])
	// West and east.
	m.AddQuad(idx[2], idx[0], idx[4], idx[6])
	m.AddQuad(idx[1], idx[3], idx[7], idx[5])
	return m
}

func TestMeshBasics(t *testing.T) {
	m := New(4)
	a := m.AddVertex(vec3.T{0, 0, 0}, vec2.T{0, 0})
	b := m.AddVertex(vec3.T{1, 0, 0}, vec2.T{1, 0})
	c := m.AddVertex(vec3.T{1, 1, 0}, vec2.T{1, 1})
	d := m.AddVertex(vec3.T{0, 1, 0}, vec2.T{0, 1})
	m.AddQuad(a, b, c, d)

	assert.Equal(t, 4, m.VertexCount())
	assert.Equal(t, 2, m.FaceCount())

	min, max := m.Bounds()
	assert.Equal(t, vec3.T{0, 0, 0}, min)
	assert.Equal(t, vec3.T{1, 1, 0}, max)

	m.SetFeatureID(7)
	for _, id := range m.FeatureIDs {
		assert.Equal(t, float32(7), id)
	}
}

func TestAppendFaceRange(t *testing.T) {
	combined := New(16)

	first := unitCube()
	first.SetFeatureID(1)
	start, end := combined.Append(first)
	assert.Equal(t, 0, start)
	assert.Equal(t, 12, end)

	second := unitCube()
	second.SetFeatureID(2)
	start, end = combined.Append(second)
	assert.Equal(t, 12, start)
	assert.Equal(t, 24, end)

	assert.Equal(t, 16, combined.VertexCount())
	assert.Equal(t, float32(1), combined.FeatureIDs[0])
	assert.Equal(t, float32(2), combined.FeatureIDs[8])

	// Indices of the second cube reference its own vertices.
	for _, idx := range combined.Indices[36:] {
		assert.GreaterOrEqual(t, idx, uint32(8))
	}
}

func TestSignedVolume(t *testing.T) {
	cube := unitCube()
	assert.InDelta(t, 1.0, cube.SignedVolume(), 1e-9)
}

func TestIsWatertight(t *testing.T) {
	t.Run("closed cube", func(t *testing.T) {
		assert.True(t, unitCube().IsWatertight())
	})

	t.Run("open quad", func(t *testing.T) {
		m := New(4)
		a := m.AddVertex(vec3.T{0, 0, 0}, vec2.T{})
		b := m.AddVertex(vec3.T{1, 0, 0}, vec2.T{})
		c := m.AddVertex(vec3.T{1, 1, 0}, vec2.T{})
		d := m.AddVertex(vec3.T{0, 1, 0}, vec2.T{})
		m.AddQuad(a, b, c, d)
		assert.False(t, m.IsWatertight())
	})

	t.Run("seam with duplicated positions still counts as closed", func(t *testing.T) {
		cube := unitCube()
		// Re-add a corner at the same position with a different UV, and
		// rewire one triangle to it. Positional merging keeps it closed.
		dup := cube.AddVertex(vec3.T{0, 0, 0}, vec2.T{5, 5})
		for i, idx := range cube.Indices {
			if idx == 0 {
				cube.Indices[i] = dup
				break
			}
		}
		assert.True(t, cube.IsWatertight())
	})

	t.Run("empty mesh", func(t *testing.T) {
		assert.False(t, New(0).IsWatertight())
	})
}

func TestWriteGLB(t *testing.T) {
	cube := unitCube()
	cube.SetFeatureID(42)
	path := filepath.Join(t.TempDir(), "cube.glb")

	require.NoError(t, WriteGLB(path, cube, Surface{Name: "buildings"}))

	doc, err := gltf.Open(path)
	require.NoError(t, err)
	require.Len(t, doc.Meshes, 1)
	require.Len(t, doc.Meshes[0].Primitives, 1)

	prim := doc.Meshes[0].Primitives[0]
	assert.Contains(t, prim.Attributes, gltf.POSITION)
	assert.Contains(t, prim.Attributes, gltf.TEXCOORD_0)
	assert.Contains(t, prim.Attributes, "_FEATURE_ID")
	require.NotNil(t, prim.Indices)

	idxAccessor := doc.Accessors[*prim.Indices]
	assert.Equal(t, uint32(36), idxAccessor.Count)

	posAccessor := doc.Accessors[prim.Attributes[gltf.POSITION]]
	assert.Equal(t, uint32(8), posAccessor.Count)

	require.Len(t, doc.Materials, 1)
	assert.NotNil(t, doc.Materials[0].PBRMetallicRoughness.BaseColorFactor)
}

func TestWriteGLBEmptyMesh(t *testing.T) {
	err := WriteGLB(filepath.Join(t.TempDir(), "x.glb"), New(0), Surface{Name: "empty"})
	require.Error(t, err)
}

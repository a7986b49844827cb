package builder

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/twinmesh/internal/chunk"
	"github.com/tidemark/twinmesh/internal/geo"
	"github.com/tidemark/twinmesh/internal/raster"
)

// testGrid builds a 5x5 grid, cell size 25, covering [0,125)^2 in planar
// coordinates with a zero local origin.
func testGrid(values []float64) *raster.Grid {
	return raster.NewGrid(5, 5, 25, 0, 0, -9999, values)
}

func constValues(v float64) []float64 {
	out := make([]float64, 25)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestTerrainBuildChunks(t *testing.T) {
	mesher := NewTerrainMesher(50, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{125, 125}})
	loc := geo.LocalizerAt(nil, 0, 0)

	chunks := mesher.BuildChunks(testGrid(constValues(5)), loc)

	// Sample columns at x 0..100 and rows at y 125..25 populate a 2x2
	// block of 50m cells (the single-sample bands are too thin to mesh).
	require.Len(t, chunks, 4)
	for _, key := range []chunk.Key{{X: 0, Y: 1}, {X: 0, Y: 2}, {X: 1, Y: 1}, {X: 1, Y: 2}} {
		require.Contains(t, chunks, key)
	}

	t.Run("two triangles per cell", func(t *testing.T) {
		// Chunk (0,1) spans cols 0..2 and rows 2..4: a 2x2 cell window.
		m := chunks[chunk.Key{X: 0, Y: 1}]
		assert.Equal(t, 9, m.VertexCount())
		assert.Equal(t, 8, m.FaceCount())
	})

	t.Run("elevation from samples", func(t *testing.T) {
		for _, m := range chunks {
			for _, p := range m.Positions {
				assert.Equal(t, 5.0, p[2])
			}
		}
	})

	t.Run("uvs fractional within full extent", func(t *testing.T) {
		for _, m := range chunks {
			for i, p := range m.Positions {
				assert.InDelta(t, p[0]/125, m.UVs[i][0], 1e-9)
				assert.InDelta(t, p[1]/125, m.UVs[i][1], 1e-9)
			}
		}
	})

	t.Run("adjacent chunks share boundary samples", func(t *testing.T) {
		left := chunks[chunk.Key{X: 0, Y: 1}]
		right := chunks[chunk.Key{X: 1, Y: 1}]
		// x=50 appears in both.
		var inLeft, inRight bool
		for _, p := range left.Positions {
			if p[0] == 50 {
				inLeft = true
			}
		}
		for _, p := range right.Positions {
			if p[0] == 50 {
				inRight = true
			}
		}
		assert.True(t, inLeft)
		assert.True(t, inRight)
	})
}

func TestTerrainNodataWindowOmitted(t *testing.T) {
	values := constValues(7)
	// Wipe the samples owned by chunk (1,1): cols 2..3, rows 2..3.
	for _, row := range []int{2, 3} {
		for _, col := range []int{2, 3} {
			values[row*5+col] = -9999
		}
	}

	mesher := NewTerrainMesher(50, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{125, 125}})
	chunks := mesher.BuildChunks(testGrid(values), geo.LocalizerAt(nil, 0, 0))

	assert.NotContains(t, chunks, chunk.Key{X: 1, Y: 1})
	assert.Contains(t, chunks, chunk.Key{X: 0, Y: 1})

	t.Run("nodata stitch samples become zero elevation", func(t *testing.T) {
		m := chunks[chunk.Key{X: 0, Y: 1}]
		var sawZero bool
		for _, p := range m.Positions {
			if p[0] == 50 && p[2] == 0 {
				sawZero = true
			}
		}
		assert.True(t, sawZero)
	})
}

func TestTerrainTooSmallGrid(t *testing.T) {
	mesher := NewTerrainMesher(50, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{25, 25}})
	g := raster.NewGrid(1, 1, 25, 0, 0, -9999, []float64{3})
	assert.Empty(t, mesher.BuildChunks(g, geo.LocalizerAt(nil, 0, 0)))
}

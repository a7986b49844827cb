package builder

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRibbonWidthLookup(t *testing.T) {
	b := NewRibbonBuilder(map[string]float64{"primary": 8, "residential": 5}, 4, 0.05)
	assert.Equal(t, 8.0, b.Width("primary"))
	assert.Equal(t, 5.0, b.Width("residential"))
	assert.Equal(t, 4.0, b.Width("service"))
	assert.Equal(t, 4.0, b.Width(""))
}

func TestRibbonBuild(t *testing.T) {
	b := NewRibbonBuilder(map[string]float64{"residential": 5}, 4, 0.1)

	// Two segments: east for 10m, then north for 20m.
	line := orb.LineString{{0, 0}, {10, 0}, {10, 20}}
	ground := []float64{1, 1, 2}

	m := b.Build(line, ground, "residential")
	require.NotNil(t, m)

	// Two segments, two triangles each.
	assert.Equal(t, 4, m.FaceCount())
	assert.Equal(t, 8, m.VertexCount())

	t.Run("u accumulates polyline length", func(t *testing.T) {
		var minU, maxU float64
		for _, uv := range m.UVs {
			minU = math.Min(minU, uv[0])
			maxU = math.Max(maxU, uv[0])
		}
		assert.Equal(t, 0.0, minU)
		assert.Equal(t, 30.0, maxU)
	})

	t.Run("v spans the width", func(t *testing.T) {
		for _, uv := range m.UVs {
			assert.True(t, uv[1] == 0 || uv[1] == 1)
		}
	})

	t.Run("offset is exactly half width", func(t *testing.T) {
		// First segment runs along y=0; vertices sit at y = -2.5 and +2.5.
		for _, p := range m.Positions[:4] {
			assert.InDelta(t, 2.5, math.Abs(p[1]), 1e-9)
		}
	})

	t.Run("lifted above ground by the offset", func(t *testing.T) {
		assert.InDelta(t, 1.1, m.Positions[0][2], 1e-9)
		// Last segment's far end sits above the third point's ground.
		assert.InDelta(t, 2.1, m.Positions[5][2], 1e-9)
	})
}

func TestRibbonSkipsShortSegments(t *testing.T) {
	b := NewRibbonBuilder(nil, 4, 0)

	t.Run("tiny segment dropped", func(t *testing.T) {
		line := orb.LineString{{0, 0}, {0.001, 0}, {10, 0}}
		m := b.Build(line, []float64{0, 0, 0}, "")
		require.NotNil(t, m)
		assert.Equal(t, 2, m.FaceCount())
	})

	t.Run("all segments degenerate", func(t *testing.T) {
		line := orb.LineString{{0, 0}, {0.001, 0}, {0.002, 0}}
		assert.Nil(t, b.Build(line, []float64{0, 0, 0}, ""))
	})

	t.Run("too few points", func(t *testing.T) {
		assert.Nil(t, b.Build(orb.LineString{{0, 0}}, []float64{0}, ""))
	})

	t.Run("elevation count mismatch", func(t *testing.T) {
		assert.Nil(t, b.Build(orb.LineString{{0, 0}, {10, 0}}, []float64{0}, ""))
	})
}

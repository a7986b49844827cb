package builder

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/twinmesh/internal/feature"
)

var testPitches = map[string]float64{"terraced": 35, "garage": 20, "church": 45}

func newTestEnvelopeBuilder() *EnvelopeBuilder {
	return NewEnvelopeBuilder(4, 3, testPitches)
}

func squareRing(side float64) orb.Ring {
	return orb.Ring{{0, 0}, {side, 0}, {side, side}, {0, side}, {0, 0}}
}

func TestBuildFlatRoof(t *testing.T) {
	b := newTestEnvelopeBuilder()
	m := b.Build(squareRing(10), 0, 12, feature.CategoryApartments)
	require.NotNil(t, m)

	assert.True(t, m.IsWatertight())
	assert.InDelta(t, 10*10*12, m.SignedVolume(), 1e-6)

	min, max := m.Bounds()
	assert.Equal(t, 0.0, min[2])
	assert.Equal(t, 12.0, max[2])
}

func TestBuildGabledRoof(t *testing.T) {
	b := newTestEnvelopeBuilder()
	ring := orb.Ring{{0, 0}, {20, 0}, {20, 10}, {0, 10}, {0, 0}}
	m := b.Build(ring, 0, 10, feature.CategoryTerraced)
	require.NotNil(t, m)

	assert.True(t, m.IsWatertight())
	assert.Positive(t, m.SignedVolume())

	// Walls stop at 80% of the height; the ridge rises by
	// min(halfDepth*tan(35deg), 0.7*wallHeight) above the eaves.
	wallHeight := 0.8 * 10.0
	_, max := m.Bounds()
	assert.Greater(t, max[2], wallHeight)
	assert.InDelta(t, wallHeight+3.501, max[2], 0.01)

	// Volume sits between the wall prism and the full bounding prism.
	prism := 20.0 * 10 * wallHeight
	assert.Greater(t, m.SignedVolume(), prism)
	assert.Less(t, m.SignedVolume(), 20.0*10*max[2])
}

func TestBuildHipFallback(t *testing.T) {
	b := newTestEnvelopeBuilder()

	t.Run("pentagon", func(t *testing.T) {
		ring := orb.Ring{{0, 0}, {10, 0}, {13, 6}, {5, 11}, {-3, 6}, {0, 0}}
		m := b.Build(ring, 2, 8, feature.CategoryChurch)
		require.NotNil(t, m)
		assert.True(t, m.IsWatertight())
		assert.Positive(t, m.SignedVolume())

		// Peak is above the eaves but capped at 60% of wall height.
		wallTop := 2 + 0.8*8.0
		_, max := m.Bounds()
		assert.Greater(t, max[2], wallTop)
		assert.LessOrEqual(t, max[2], wallTop+0.6*0.8*8.0+1e-9)
	})

	t.Run("skewed quad falls back to hip", func(t *testing.T) {
		// End edges do not project onto a single ridge point.
		ring := orb.Ring{{0, 0}, {20, 4}, {22, 12}, {-2, 8}, {0, 0}}
		m := b.Build(ring, 0, 10, feature.CategoryTerraced)
		require.NotNil(t, m)
		assert.True(t, m.IsWatertight())
		assert.Positive(t, m.SignedVolume())
	})
}

func TestBuildGarage(t *testing.T) {
	b := newTestEnvelopeBuilder()
	m := b.Build(orb.Ring{{0, 0}, {6, 0}, {6, 3}, {0, 3}, {0, 0}}, 0, 3, feature.CategoryGarage)
	require.NotNil(t, m)
	assert.True(t, m.IsWatertight())
	assert.Positive(t, m.SignedVolume())
}

func TestBuildDegenerateRing(t *testing.T) {
	b := newTestEnvelopeBuilder()
	assert.Nil(t, b.Build(orb.Ring{{0, 0}, {1, 1}, {0, 0}}, 0, 6, feature.CategoryTerraced))
}

func TestWallUVTiling(t *testing.T) {
	b := newTestEnvelopeBuilder()
	m := b.Build(squareRing(8), 0, 6, feature.CategoryApartments)
	require.NotNil(t, m)

	// First wall quad: four vertices, U spans edge length / tile width,
	// V spans wall height / tile height.
	assert.InDelta(t, 0.0, m.UVs[0][0], 1e-9)
	assert.InDelta(t, 8.0/4.0, m.UVs[1][0], 1e-9)
	assert.InDelta(t, 0.0, m.UVs[0][1], 1e-9)
	assert.InDelta(t, 6.0/3.0, m.UVs[2][1], 1e-9)

	// Second wall continues the perimeter accumulation, no seam reset.
	assert.InDelta(t, 8.0/4.0, m.UVs[4][0], 1e-9)
	assert.InDelta(t, 16.0/4.0, m.UVs[5][0], 1e-9)
}

func TestPrincipalAxes(t *testing.T) {
	// Long axis of a 20x10 rectangle is x.
	ux, uy, vx, vy := principalAxes(orb.Ring{{0, 0}, {20, 0}, {20, 10}, {0, 10}, {0, 0}})
	assert.InDelta(t, 1, ux*ux, 1e-9)
	assert.InDelta(t, 0, uy, 1e-9)
	assert.InDelta(t, 0, vx, 1e-9)
	assert.InDelta(t, 1, vy*vy, 1e-9)

	// Rotated rectangle keeps its long axis along the diagonal.
	ux, uy, _, _ = principalAxes(orb.Ring{{0, 0}, {14, 14}, {7, 21}, {-7, 7}, {0, 0}})
	assert.InDelta(t, 0.7071, absf(ux), 1e-3)
	assert.InDelta(t, 0.7071, absf(uy), 1e-3)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestTriangulateRing(t *testing.T) {
	t.Run("convex ring fully covered", func(t *testing.T) {
		tris := triangulateRing(squareRing(10))
		assert.Len(t, tris, 2)
	})

	t.Run("concave ring keeps only interior triangles", func(t *testing.T) {
		// L-shape: the notch quadrant must not be covered.
		ring := orb.Ring{{0, 0}, {10, 0}, {10, 5}, {5, 5}, {5, 10}, {0, 10}, {0, 0}}
		tris := triangulateRing(ring)
		require.NotEmpty(t, tris)
		var area float64
		for _, tri := range tris {
			a, b, c := ring[tri[0]], ring[tri[1]], ring[tri[2]]
			area += ((b[0]-a[0])*(c[1]-a[1]) - (c[0]-a[0])*(b[1]-a[1])) / 2
		}
		assert.InDelta(t, 75, area, 1e-6)
	})

	t.Run("degenerate", func(t *testing.T) {
		assert.Nil(t, triangulateRing(orb.Ring{{0, 0}, {1, 1}, {0, 0}}))
	})
}

package builder

import (
	"math"

	"github.com/flywave/go3d/float64/vec2"
	"github.com/flywave/go3d/float64/vec3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"

	"github.com/tidemark/twinmesh/internal/mesh"
)

// Water surfaces below this area are dropped after clipping.
const minWaterArea = 1.0

const chainJoinEpsilon = 1e-6

// OpenSide names the AOI edge the sea extends to.
type OpenSide string

const (
	OpenEast  OpenSide = "east"
	OpenWest  OpenSide = "west"
	OpenNorth OpenSide = "north"
	OpenSouth OpenSide = "south"
)

// CoastLine is one localized coastline polyline. Island segments never
// contribute to the sea polygon.
type CoastLine struct {
	Line   orb.LineString
	Island bool
}

// WaterResolver clips standing water to the AOI and synthesizes the sea
// surface from coastline geometry.
type WaterResolver struct {
	surfaceOffset float64 // water lift above sampled ground, metres
	seaLevel      float64
	openSide      OpenSide
	waterTile     float64 // texture tile size for flat water, metres
}

// NewWaterResolver builds a resolver. openSide is the AOI edge the sea runs
// out to when closing the coastline chain.
func NewWaterResolver(surfaceOffset, seaLevel float64, openSide OpenSide) *WaterResolver {
	return &WaterResolver{
		surfaceOffset: surfaceOffset,
		seaLevel:      seaLevel,
		openSide:      openSide,
		waterTile:     10,
	}
}

// WaterBody clips one polygon to the AOI bound, keeps the largest part, and
// emits a flat surface at the ground elevation sampled at its centroid plus
// the configured offset. Returns nil for empty or sub-minimum intersections.
func (r *WaterResolver) WaterBody(poly orb.Polygon, bound orb.Bound, groundZ func(x, y float64) float64) *mesh.Mesh {
	ring := r.largestClippedRing(poly, bound)
	if ring == nil {
		return nil
	}
	centroid, _ := planar.CentroidArea(ring)
	z := groundZ(centroid[0], centroid[1]) + r.surfaceOffset
	return r.flatRing(ring, z)
}

// Sea builds the sea surface. Non-island segments are merged into connected
// chains; the longest chain is closed against the AOI's open side, clipped,
// and flattened to the configured sea level. A missing or island-only
// coastline returns nil, which is a normal outcome rather than an error.
func (r *WaterResolver) Sea(segments []CoastLine, bound orb.Bound) *mesh.Mesh {
	var lines []orb.LineString
	for _, s := range segments {
		if !s.Island && len(s.Line) >= 2 {
			lines = append(lines, s.Line)
		}
	}
	if len(lines) == 0 {
		return nil
	}

	chain := longestChain(mergeChains(lines))
	if len(chain) < 2 {
		return nil
	}

	ring := r.closeAgainstBound(chain, bound)
	clipped := r.largestClippedRing(orb.Polygon{ring}, bound)
	if clipped == nil {
		return nil
	}
	return r.flatRing(clipped, r.seaLevel)
}

// closeAgainstBound appends the two far corners on the open side so the
// chain becomes a closed ring covering the seaward half.
func (r *WaterResolver) closeAgainstBound(chain orb.LineString, bound orb.Bound) orb.Ring {
	first, last := chain[0], chain[len(chain)-1]

	ring := make(orb.Ring, 0, len(chain)+3)
	for _, pt := range chain {
		ring = append(ring, pt)
	}
	switch r.openSide {
	case OpenWest:
		ring = append(ring, orb.Point{bound.Min[0], last[1]}, orb.Point{bound.Min[0], first[1]})
	case OpenNorth:
		ring = append(ring, orb.Point{last[0], bound.Max[1]}, orb.Point{first[0], bound.Max[1]})
	case OpenSouth:
		ring = append(ring, orb.Point{last[0], bound.Min[1]}, orb.Point{first[0], bound.Min[1]})
	default: // east
		ring = append(ring, orb.Point{bound.Max[0], last[1]}, orb.Point{bound.Max[0], first[1]})
	}
	ring = append(ring, ring[0])
	return ring
}

// largestClippedRing intersects a polygon with the bound and returns the
// outer ring of the largest surviving part, or nil when nothing above the
// minimum area remains.
func (r *WaterResolver) largestClippedRing(poly orb.Polygon, bound orb.Bound) orb.Ring {
	clipped := clip.Geometry(bound, poly.Clone())

	var best orb.Ring
	var bestArea float64
	consider := func(p orb.Polygon) {
		if len(p) == 0 || len(p[0]) < 4 {
			return
		}
		area := math.Abs(planar.Area(p[0]))
		if area > bestArea {
			best = p[0]
			bestArea = area
		}
	}
	switch g := clipped.(type) {
	case orb.Polygon:
		consider(g)
	case orb.MultiPolygon:
		for _, p := range g {
			consider(p)
		}
	}
	if bestArea < minWaterArea {
		return nil
	}
	if planar.Area(best) < 0 {
		best.Reverse()
	}
	return best
}

// flatRing triangulates a ring at a fixed elevation with upward winding.
func (r *WaterResolver) flatRing(ring orb.Ring, z float64) *mesh.Mesh {
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
			vec2.T{ring[i][0] / r.waterTile, ring[i][1] / r.waterTile},
		)
	}
	for _, tri := range tris {
		m.AddTriangle(idx[tri[0]], idx[tri[1]], idx[tri[2]])
	}
	return m
}

// mergeChains greedily joins polylines whose endpoints coincide.
func mergeChains(lines []orb.LineString) []orb.LineString {
	chains := make([]orb.LineString, len(lines))
	for i, l := range lines {
		chains[i] = append(orb.LineString(nil), l...)
	}

	merged := true
	for merged {
		merged = false
	outer:
		for i := 0; i < len(chains); i++ {
			for j := i + 1; j < len(chains); j++ {
				joined, ok := joinChains(chains[i], chains[j])
				if !ok {
					continue
				}
				chains[i] = joined
				chains = append(chains[:j], chains[j+1:]...)
				merged = true
				break outer
			}
		}
	}
	return chains
}

func joinChains(a, b orb.LineString) (orb.LineString, bool) {
	same := func(p, q orb.Point) bool {
		return math.Abs(p[0]-q[0]) < chainJoinEpsilon && math.Abs(p[1]-q[1]) < chainJoinEpsilon
	}
	switch {
	case same(a[len(a)-1], b[0]):
		return append(a, b[1:]...), true
	case same(a[len(a)-1], b[len(b)-1]):
		return append(a, reversed(b)[1:]...), true
	case same(a[0], b[len(b)-1]):
		return append(b, a[1:]...), true
	case same(a[0], b[0]):
		return append(reversed(b), a[1:]...), true
	}
	return nil, false
}

func reversed(l orb.LineString) orb.LineString {
	out := make(orb.LineString, len(l))
	for i, pt := range l {
		out[len(l)-1-i] = pt
	}
	return out
}

// longestChain picks the chain with the greatest planar length.
func longestChain(chains []orb.LineString) orb.LineString {
	var best orb.LineString
	var bestLen float64
	for _, c := range chains {
		var length float64
		for i := 0; i < len(c)-1; i++ {
			length += math.Hypot(c[i+1][0]-c[i][0], c[i+1][1]-c[i][1])
		}
		if length > bestLen {
			best = c
			bestLen = length
		}
	}
	return best
}

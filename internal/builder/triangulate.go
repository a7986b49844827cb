// Package builder synthesizes the mesh families: building envelopes, ribbon
// strips for linear features, terrain surfaces and water/sea polygons. All
// geometry is in the local planar frame with z up and CCW outward winding.
package builder

import (
	"github.com/fogleman/delaunay"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// triangulateRing triangulates a closed ring's interior, returning index
// triples into ring (excluding the closing point) with CCW winding seen from
// above. Delaunay over the boundary points is filtered to triangles whose
// centroid lies inside the ring; concave rings keep only interior triangles.
// A fan fallback covers the degenerate cases Delaunay rejects.
func triangulateRing(ring orb.Ring) [][3]int {
	n := len(ring) - 1
	if n < 3 {
		return nil
	}

	pts := make([]delaunay.Point, n)
	for i := 0; i < n; i++ {
		pts[i] = delaunay.Point{X: ring[i][0], Y: ring[i][1]}
	}

	tri, err := delaunay.Triangulate(pts)
	if err == nil && len(tri.Triangles) >= 3 {
		var out [][3]int
		for i := 0; i+2 < len(tri.Triangles); i += 3 {
			a, b, c := tri.Triangles[i], tri.Triangles[i+1], tri.Triangles[i+2]
			cx := (ring[a][0] + ring[b][0] + ring[c][0]) / 3
			cy := (ring[a][1] + ring[b][1] + ring[c][1]) / 3
			if !planar.RingContains(ring, orb.Point{cx, cy}) {
				continue
			}
			out = append(out, orientCCW(ring, a, b, c))
		}
		if len(out) > 0 {
			return out
		}
	}

	// Fan fallback.
	out := make([][3]int, 0, n-2)
	for i := 1; i < n-1; i++ {
		out = append(out, orientCCW(ring, 0, i, i+1))
	}
	return out
}

func orientCCW(ring orb.Ring, a, b, c int) [3]int {
	signed := (ring[b][0]-ring[a][0])*(ring[c][1]-ring[a][1]) -
		(ring[c][0]-ring[a][0])*(ring[b][1]-ring[a][1])
	if signed < 0 {
		return [3]int{a, c, b}
	}
	return [3]int{a, b, c}
}

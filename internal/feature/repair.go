package feature

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrUnrepairable reports geometry that cannot be fixed by the best-effort
// repair pass. Callers treat it as a per-primitive skip.
var ErrUnrepairable = errors.New("feature: geometry unrepairable")

const duplicateEpsilon = 1e-6

// RepairRing normalises a planar footprint ring: consecutive duplicate
// points are dropped, the ring is closed, and winding is forced
// counter-clockwise. Self-intersecting rings get one best-effort salvage
// pass, the planar equivalent of a zero-distance buffer: the ring is split
// at its crossings and the largest simple lobe survives. Rings that remain
// degenerate or enclose less than minArea square metres return
// ErrUnrepairable.
func RepairRing(ring orb.Ring, minArea float64) (orb.Ring, error) {
	out := dedupeClose(ring)
	if out == nil {
		return nil, fmt.Errorf("%w: fewer than 3 distinct vertices", ErrUnrepairable)
	}

	if selfIntersects(out) {
		out = largestLobe(out)
		if out == nil {
			return nil, fmt.Errorf("%w: no simple lobe survives the self-intersection split", ErrUnrepairable)
		}
	}

	area := planar.Area(out)
	if area < 0 {
		out.Reverse()
		area = -area
	}
	if area < minArea {
		return nil, fmt.Errorf("%w: area %.3f below minimum %.1f", ErrUnrepairable, area, minArea)
	}
	return out, nil
}

// dedupeClose drops consecutive duplicate points and closes the ring.
// Returns nil when fewer than three distinct vertices remain.
func dedupeClose(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(ring)+1)
	for _, pt := range ring {
		if n := len(out); n > 0 {
			last := out[n-1]
			if math.Abs(pt[0]-last[0]) < duplicateEpsilon && math.Abs(pt[1]-last[1]) < duplicateEpsilon {
				continue
			}
		}
		out = append(out, pt)
	}

	// Drop a trailing point that duplicates the first, then close explicitly.
	if n := len(out); n > 1 {
		first, last := out[0], out[n-1]
		if math.Abs(first[0]-last[0]) < duplicateEpsilon && math.Abs(first[1]-last[1]) < duplicateEpsilon {
			out = out[:n-1]
		}
	}
	if len(out) < 3 {
		return nil
	}
	return append(out, out[0])
}

// largestLobe splits a self-intersecting ring at its first crossing into the
// two sub-rings on either side of the crossing point and keeps the larger
// simple one, recursing while crossings remain. Returns nil when no lobe
// with three distinct vertices survives.
func largestLobe(ring orb.Ring) orb.Ring {
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			x, ok := segmentIntersection(ring[i], ring[i+1], ring[j], ring[j+1])
			if !ok {
				continue
			}
			a := lobeRing(x, ring[i+1:j+1])
			rest := append(append(orb.Ring{}, ring[j+1:n]...), ring[:i+1]...)
			b := lobeRing(x, rest)
			return largerLobe(a, b)
		}
	}
	return ring
}

// lobeRing closes the crossing point against a vertex run, recursing when
// the lobe itself still self-intersects.
func lobeRing(x orb.Point, pts orb.Ring) orb.Ring {
	raw := make(orb.Ring, 0, len(pts)+1)
	raw = append(raw, x)
	raw = append(raw, pts...)
	closed := dedupeClose(raw)
	if closed == nil {
		return nil
	}
	if selfIntersects(closed) {
		return largestLobe(closed)
	}
	return closed
}

func largerLobe(a, b orb.Ring) orb.Ring {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	if math.Abs(planar.Area(a)) >= math.Abs(planar.Area(b)) {
		return a
	}
	return b
}

// selfIntersects tests every non-adjacent segment pair. Quadratic, but
// footprint rings are small.
func selfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1 // closed ring, last point repeats the first
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			// Adjacent segments share an endpoint; the first and last
			// segments are adjacent through the closure.
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsCross(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsCross(a, b, c, d orb.Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

// segmentIntersection returns the proper crossing point of segments ab and
// cd, excluding shared endpoints and collinear overlaps.
func segmentIntersection(a, b, c, d orb.Point) (orb.Point, bool) {
	r0, r1 := b[0]-a[0], b[1]-a[1]
	s0, s1 := d[0]-c[0], d[1]-c[1]
	denom := r0*s1 - r1*s0
	if denom == 0 {
		return orb.Point{}, false
	}
	t := ((c[0]-a[0])*s1 - (c[1]-a[1])*s0) / denom
	u := ((c[0]-a[0])*r1 - (c[1]-a[1])*r0) / denom
	if t <= 0 || t >= 1 || u <= 0 || u >= 1 {
		return orb.Point{}, false
	}
	return orb.Point{a[0] + t*r0, a[1] + t*r1}, true
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

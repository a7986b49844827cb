package builder

import (
	"math"

	"github.com/flywave/go3d/float64/vec2"
	"github.com/flywave/go3d/float64/vec3"
	"github.com/paulmach/orb"

	"github.com/tidemark/twinmesh/internal/feature"
	"github.com/tidemark/twinmesh/internal/mesh"
)

// Fraction of total height taken by walls under a pitched roof.
const pitchedWallShare = 0.8

// EnvelopeBuilder extrudes footprint rings into watertight building volumes.
// Wall quads are emitted independently (no vertex sharing between faces) so
// per-face UV seams render correctly; watertightness holds positionally.
type EnvelopeBuilder struct {
	wallTileU float64 // facade texture tile width, metres
	wallTileV float64 // facade texture tile height, metres
	pitches   map[string]float64
}

// NewEnvelopeBuilder configures wall UV tiling and per-category roof pitches.
func NewEnvelopeBuilder(wallTileU, wallTileV float64, pitches map[string]float64) *EnvelopeBuilder {
	return &EnvelopeBuilder{wallTileU: wallTileU, wallTileV: wallTileV, pitches: pitches}
}

// Build extrudes a repaired CCW footprint ring (local coordinates, closed)
// into an envelope. Returns nil for rings with fewer than three distinct
// vertices; callers count that as a skip.
func (b *EnvelopeBuilder) Build(ring orb.Ring, groundZ, height float64, cat feature.Category) *mesh.Mesh {
	n := len(ring) - 1
	if n < 3 {
		return nil
	}

	pitched := cat.Pitched()
	wallHeight := height
	if pitched {
		wallHeight = pitchedWallShare * height
	}
	topZ := groundZ + wallHeight

	m := mesh.New(n * 8)
	b.addWalls(m, ring, groundZ, topZ)
	b.addCap(m, ring, groundZ, false)
	if pitched {
		b.addPitchedRoof(m, ring, topZ, wallHeight, cat.PitchDegrees(b.pitches))
	} else {
		b.addCap(m, ring, topZ, true)
	}
	return m
}

// addWalls emits one quad per boundary edge. U accumulates perimeter metres
// so a repeating facade texture tiles seamlessly around corners; V maps the
// wall height into texture rows.
func (b *EnvelopeBuilder) addWalls(m *mesh.Mesh, ring orb.Ring, bottomZ, topZ float64) {
	vTop := (topZ - bottomZ) / b.wallTileV
	var along float64
	for i := 0; i < len(ring)-1; i++ {
		p, q := ring[i], ring[i+1]
		length := math.Hypot(q[0]-p[0], q[1]-p[1])
		u0 := along / b.wallTileU
		u1 := (along + length) / b.wallTileU
		along += length

		a := m.AddVertex(vec3.T{p[0], p[1], bottomZ}, vec2.T{u0, 0})
		bb := m.AddVertex(vec3.T{q[0], q[1], bottomZ}, vec2.T{u1, 0})
		c := m.AddVertex(vec3.T{q[0], q[1], topZ}, vec2.T{u1, vTop})
		d := m.AddVertex(vec3.T{p[0], p[1], topZ}, vec2.T{u0, vTop})
		m.AddQuad(a, bb, c, d)
	}
}

// addCap triangulates the ring interior at a fixed elevation. up selects the
// winding: roofs face up, floors face down.
func (b *EnvelopeBuilder) addCap(m *mesh.Mesh, ring orb.Ring, z float64, up bool) {
	n := len(ring) - 1
	base := make([]uint32, n)
	for i := 0; i < n; i++ {
		base[i] = m.AddVertex(
			vec3.T{ring[i][0], ring[i][1], z},
			vec2.T{ring[i][0] / b.wallTileU, ring[i][1] / b.wallTileU},
		)
	}
	for _, tri := range triangulateRing(ring) {
		if up {
			m.AddTriangle(base[tri[0]], base[tri[1]], base[tri[2]])
		} else {
			m.AddTriangle(base[tri[0]], base[tri[2]], base[tri[1]])
		}
	}
}

// addPitchedRoof covers the eave ring with a gabled roof when the footprint
// classifies cleanly against the ridge, and a centroid-peak hip roof
// otherwise. The hip form is watertight for any simple ring, so it is the
// unconditional fallback.
func (b *EnvelopeBuilder) addPitchedRoof(m *mesh.Mesh, ring orb.Ring, roofZ, wallHeight, pitchDeg float64) {
	n := len(ring) - 1
	cx, cy := ringCentroid(ring)
	ux, uy, vx, vy := principalAxes(ring)

	// Per-vertex ridge parameter (along the long axis) and signed side
	// distance (across it).
	s := make([]float64, n)
	d := make([]float64, n)
	var halfDepth float64
	for i := 0; i < n; i++ {
		dx, dy := ring[i][0]-cx, ring[i][1]-cy
		s[i] = dx*ux + dy*uy
		d[i] = dx*vx + dy*vy
		halfDepth = math.Max(halfDepth, math.Abs(d[i]))
	}

	tan := math.Tan(pitchDeg * math.Pi / 180)

	if sA, sB, ok := gableApexes(ring, s, d); ok {
		rise := math.Min(halfDepth*tan, 0.7*wallHeight)
		b.addGableRoof(m, ring, s, d, cx, cy, ux, uy, sA, sB, roofZ, roofZ+rise)
		return
	}

	// Hip fallback: one peak above the centroid.
	var avgDist float64
	for i := 0; i < n; i++ {
		avgDist += math.Hypot(ring[i][0]-cx, ring[i][1]-cy)
	}
	avgDist /= float64(n)
	rise := math.Min(avgDist*tan*0.5, 0.6*wallHeight)

	peak := m.AddVertex(vec3.T{cx, cy, roofZ + rise}, vec2.T{0, 0})
	for i := 0; i < n; i++ {
		p, q := ring[i], ring[i+1]
		a := m.AddVertex(vec3.T{p[0], p[1], roofZ}, vec2.T{p[0] / b.wallTileU, p[1] / b.wallTileU})
		bb := m.AddVertex(vec3.T{q[0], q[1], roofZ}, vec2.T{q[0] / b.wallTileU, q[1] / b.wallTileU})
		m.AddTriangle(a, bb, peak)
	}
}

// gableApexes classifies each edge by which side of the ridge its endpoints
// fall on. The gabled form is used only when the outline is quad-like:
// exactly one sloped edge per side, exactly two edges straddling the ridge,
// and each straddling edge's endpoints projecting onto the same ridge point.
// Anything else (concave outlines, skewed ends) is handed to the hip
// fallback, which is watertight by construction.
func gableApexes(ring orb.Ring, s, d []float64) (sA, sB float64, ok bool) {
	n := len(ring) - 1
	if n != 4 {
		return 0, 0, false
	}

	var extent float64
	for i := 0; i < n; i++ {
		extent = math.Max(extent, math.Abs(s[i]))
	}
	sideEps := extent * 1e-6
	ridgeEps := extent * 0.05

	var slopePos, slopeNeg int
	var apexes []float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		switch {
		case d[i] > sideEps && d[j] > sideEps:
			slopePos++
		case d[i] < -sideEps && d[j] < -sideEps:
			slopeNeg++
		case d[i]*d[j] < 0:
			if math.Abs(s[i]-s[j]) > ridgeEps {
				return 0, 0, false
			}
			apexes = append(apexes, (s[i]+s[j])/2)
		default:
			return 0, 0, false
		}
	}
	if slopePos != 1 || slopeNeg != 1 || len(apexes) != 2 {
		return 0, 0, false
	}
	return apexes[0], apexes[1], true
}

func (b *EnvelopeBuilder) addGableRoof(m *mesh.Mesh, ring orb.Ring, s, d []float64, cx, cy, ux, uy, sA, sB, roofZ, ridgeZ float64) {
	n := len(ring) - 1
	ridgePoint := func(param float64) vec3.T {
		apex := sA
		if math.Abs(param-sB) < math.Abs(param-sA) {
			apex = sB
		}
		return vec3.T{cx + ux*apex, cy + uy*apex, ridgeZ}
	}
	uv := func(p orb.Point) vec2.T {
		return vec2.T{p[0] / b.wallTileU, p[1] / b.wallTileU}
	}

	for i := 0; i < n; i++ {
		j := (i + 1) % n
		p, q := ring[i], ring[j]
		pa := m.AddVertex(vec3.T{p[0], p[1], roofZ}, uv(p))
		qa := m.AddVertex(vec3.T{q[0], q[1], roofZ}, uv(q))

		if d[i]*d[j] < 0 {
			// Straddling edge: triangular gable end up to its apex.
			r := ridgePoint((s[i] + s[j]) / 2)
			apex := m.AddVertex(r, vec2.T{r[0] / b.wallTileU, r[1] / b.wallTileU})
			m.AddTriangle(pa, qa, apex)
			continue
		}

		// Sloped edge: quad from the eave up to the ridge span.
		rq := ridgePoint(s[j])
		rp := ridgePoint(s[i])
		c := m.AddVertex(rq, vec2.T{rq[0] / b.wallTileU, rq[1] / b.wallTileU})
		dd := m.AddVertex(rp, vec2.T{rp[0] / b.wallTileU, rp[1] / b.wallTileU})
		m.AddQuad(pa, qa, c, dd)
	}
}

// ringCentroid averages the distinct ring vertices.
func ringCentroid(ring orb.Ring) (cx, cy float64) {
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		cx += ring[i][0]
		cy += ring[i][1]
	}
	return cx / float64(n), cy / float64(n)
}

// principalAxes runs a 2-D PCA over the ring vertices and returns the long
// axis (ux, uy) and its perpendicular (vx, vy), both unit length.
func principalAxes(ring orb.Ring) (ux, uy, vx, vy float64) {
	n := len(ring) - 1
	cx, cy := ringCentroid(ring)

	var cxx, cyy, cxy float64
	for i := 0; i < n; i++ {
		dx, dy := ring[i][0]-cx, ring[i][1]-cy
		cxx += dx * dx
		cyy += dy * dy
		cxy += dx * dy
	}

	theta := 0.5 * math.Atan2(2*cxy, cxx-cyy)
	ux, uy = math.Cos(theta), math.Sin(theta)
	vx, vy = -uy, ux

	// Make sure u is the longer extent.
	var extU, extV float64
	for i := 0; i < n; i++ {
		dx, dy := ring[i][0]-cx, ring[i][1]-cy
		extU = math.Max(extU, math.Abs(dx*ux+dy*uy))
		extV = math.Max(extV, math.Abs(dx*vx+dy*vy))
	}
	if extV > extU {
		ux, uy, vx, vy = vx, vy, -vy, vx
	}
	return ux, uy, vx, vy
}

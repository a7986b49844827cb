package builder

import (
	"math"

	"github.com/flywave/go3d/float64/vec2"
	"github.com/flywave/go3d/float64/vec3"
	"github.com/paulmach/orb"

	"github.com/tidemark/twinmesh/internal/mesh"
)

// Segments shorter than this emit no quad.
const minSegmentLength = 0.01

// RibbonBuilder extrudes polylines into width-offset strip meshes. One
// builder per family (roads, railways, waterways), each with its own width
// table and elevation offset.
type RibbonBuilder struct {
	widths       map[string]float64
	defaultWidth float64
	zOffset      float64
}

// NewRibbonBuilder configures a ribbon family. widths maps a feature class
// to its extrusion width in metres; classes not present use defaultWidth.
func NewRibbonBuilder(widths map[string]float64, defaultWidth, zOffset float64) *RibbonBuilder {
	return &RibbonBuilder{widths: widths, defaultWidth: defaultWidth, zOffset: zOffset}
}

// Width returns the extrusion width for a feature class.
func (b *RibbonBuilder) Width(class string) float64 {
	if w, ok := b.widths[class]; ok {
		return w
	}
	return b.defaultWidth
}

// Build emits one quad per polyline segment, offset by half the class width
// on both sides of the segment direction and lifted by the family z offset
// above the per-point ground elevation. U accumulates metres travelled so a
// repeating texture tiles seamlessly along the path; V spans 0 to 1 across
// the width. Returns nil when every segment is degenerate.
func (b *RibbonBuilder) Build(line orb.LineString, groundZ []float64, class string) *mesh.Mesh {
	if len(line) < 2 || len(groundZ) != len(line) {
		return nil
	}
	half := b.Width(class) / 2

	m := mesh.New((len(line) - 1) * 4)
	var along float64
	for i := 0; i < len(line)-1; i++ {
		p, q := line[i], line[i+1]
		dx, dy := q[0]-p[0], q[1]-p[1]
		length := math.Hypot(dx, dy)
		if length < minSegmentLength {
			continue
		}
		// Unit perpendicular, left of travel direction.
		px, py := -dy/length, dx/length

		u0 := along
		u1 := along + length
		along = u1

		pz := groundZ[i] + b.zOffset
		qz := groundZ[i+1] + b.zOffset

		right0 := m.AddVertex(vec3.T{p[0] - px*half, p[1] - py*half, pz}, vec2.T{u0, 0})
		right1 := m.AddVertex(vec3.T{q[0] - px*half, q[1] - py*half, qz}, vec2.T{u1, 0})
		left1 := m.AddVertex(vec3.T{q[0] + px*half, q[1] + py*half, qz}, vec2.T{u1, 1})
		left0 := m.AddVertex(vec3.T{p[0] + px*half, p[1] + py*half, pz}, vec2.T{u0, 1})
		m.AddQuad(right0, right1, left1, left0)
	}
	if m.FaceCount() == 0 {
		return nil
	}
	return m
}

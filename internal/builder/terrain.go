package builder

import (
	"math"

	"github.com/flywave/go3d/float64/vec2"
	"github.com/flywave/go3d/float64/vec3"
	"github.com/paulmach/orb"

	"github.com/tidemark/twinmesh/internal/chunk"
	"github.com/tidemark/twinmesh/internal/geo"
	"github.com/tidemark/twinmesh/internal/mesh"
	"github.com/tidemark/twinmesh/internal/raster"
)

// TerrainMesher rasterizes an elevation grid into per-chunk triangulated
// surfaces. Windows are aligned to the global chunk grid, and neighbouring
// windows share their boundary samples so the surface is seamless.
type TerrainMesher struct {
	chunkSize float64
	extent    orb.Bound // full buffered AOI extent, local coordinates
}

// NewTerrainMesher builds a mesher. extent is the full area the terrain
// texture is draped over; UVs are each vertex's fractional position within
// it, so one texture image spans every chunk without seams.
func NewTerrainMesher(chunkSize float64, extent orb.Bound) *TerrainMesher {
	return &TerrainMesher{chunkSize: chunkSize, extent: extent}
}

// axisSpan is a run of consecutive sample indices belonging to one chunk
// band, extended by one stitch sample into the next band.
type axisSpan struct {
	cell  int
	start int // first vertex index
	core  int // last index whose own coordinate falls in this band
	end   int // last vertex index, including the stitch sample
}

// BuildChunks meshes the grid into one surface per populated chunk window.
// Nodata samples become zero elevation (sea-level fallback), but a window
// whose own samples are all nodata is omitted entirely.
func (t *TerrainMesher) BuildChunks(g *raster.Grid, loc *geo.Localizer) map[chunk.Key]*mesh.Mesh {
	if g.Width < 2 || g.Height < 2 {
		return nil
	}

	// Local coordinate per column and per row (row 0 is the northern edge).
	xs := make([]float64, g.Width)
	ys := make([]float64, g.Height)
	for col := 0; col < g.Width; col++ {
		x, _ := loc.FromPlanar(g.MinX+float64(col)*g.CellSize, 0)
		xs[col] = x
	}
	for row := 0; row < g.Height; row++ {
		_, y := loc.FromPlanar(0, g.MaxY()-float64(row)*g.CellSize)
		ys[row] = y
	}

	colSpans := spansFor(xs, t.chunkSize)
	rowSpans := spansFor(ys, t.chunkSize)

	uRange := t.extent.Max[0] - t.extent.Min[0]
	vRange := t.extent.Max[1] - t.extent.Min[1]

	out := make(map[chunk.Key]*mesh.Mesh)
	for _, rs := range rowSpans {
		for _, cs := range colSpans {
			if !t.windowUsable(g, rs, cs) {
				continue
			}

			cols := cs.end - cs.start + 1
			rows := rs.end - rs.start + 1
			if cols < 2 || rows < 2 {
				continue
			}

			m := mesh.New(cols * rows)
			for row := rs.start; row <= rs.end; row++ {
				for col := cs.start; col <= cs.end; col++ {
					z := 0.0
					if g.Usable(row, col) {
						z = g.Value(row, col)
					}
					m.AddVertex(
						vec3.T{xs[col], ys[row], z},
						vec2.T{(xs[col] - t.extent.Min[0]) / uRange, (ys[row] - t.extent.Min[1]) / vRange},
					)
				}
			}
			for r := 0; r < rows-1; r++ {
				for c := 0; c < cols-1; c++ {
					a := uint32(r*cols + c)       // north-west
					b := uint32(r*cols + c + 1)   // north-east
					cc := uint32((r+1)*cols + c + 1) // south-east
					d := uint32((r+1)*cols + c)   // south-west
					m.AddQuad(a, d, cc, b)
				}
			}
			out[chunk.Key{X: cs.cell, Y: rs.cell}] = m
		}
	}
	return out
}

// windowUsable counts the window's own samples (stitch row/column excluded)
// that are not nodata.
func (t *TerrainMesher) windowUsable(g *raster.Grid, rs, cs axisSpan) bool {
	for row := rs.start; row <= rs.core; row++ {
		for col := cs.start; col <= cs.core; col++ {
			if g.Usable(row, col) {
				return true
			}
		}
	}
	return false
}

// spansFor groups sample coordinates into chunk bands. coords may ascend
// (columns) or descend (rows); runs of equal floor-division cells are
// contiguous either way.
func spansFor(coords []float64, size float64) []axisSpan {
	var spans []axisSpan
	start := 0
	cell := int(math.Floor(coords[0] / size))
	for i := 1; i <= len(coords); i++ {
		var c int
		if i < len(coords) {
			c = int(math.Floor(coords[i] / size))
		}
		if i == len(coords) || c != cell {
			end := i - 1
			stitched := end
			if i < len(coords) {
				stitched = i // share the first sample of the next band
			}
			spans = append(spans, axisSpan{cell: cell, start: start, core: end, end: stitched})
			if i < len(coords) {
				start = i
				cell = c
			}
		}
	}
	return spans
}

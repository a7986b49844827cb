// Package raster models single-band elevation grids (ground and surface
// models) in the projected planar CRS. Grids are read-only inputs: sampling
// and downsampling never mutate the source.
package raster

import (
	"errors"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrOutOfBounds reports a sample point outside the grid extent.
var ErrOutOfBounds = errors.New("raster: point outside grid extent")

// Grid is a rectangular elevation raster. Values are stored row-major with
// row 0 at the northern edge, matching the on-disk layout.
type Grid struct {
	Width    int
	Height   int
	CellSize float64 // metres per pixel
	MinX     float64 // planar extent
	MinY     float64
	NoData   float64

	values []float64
}

// NewGrid wraps a row-major value slice. len(values) must be width*height.
func NewGrid(width, height int, cellSize, minX, minY, noData float64, values []float64) *Grid {
	return &Grid{
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		MinX:     minX,
		MinY:     minY,
		NoData:   noData,
		values:   values,
	}
}

// MaxX returns the eastern edge of the extent.
func (g *Grid) MaxX() float64 { return g.MinX + float64(g.Width)*g.CellSize }

// MaxY returns the northern edge of the extent.
func (g *Grid) MaxY() float64 { return g.MinY + float64(g.Height)*g.CellSize }

// Value returns the raw sample at (row, col) without nodata handling.
func (g *Grid) Value(row, col int) float64 {
	return g.values[row*g.Width+col]
}

// Usable reports whether the sample at (row, col) is neither nodata nor NaN.
func (g *Grid) Usable(row, col int) bool {
	v := g.Value(row, col)
	return v != g.NoData && !math.IsNaN(v)
}

// SampleAt returns the elevation at an absolute planar coordinate. The
// second return is false when the point is outside the extent or the cell
// holds nodata; callers treat that as a per-primitive skip, never an error.
func (g *Grid) SampleAt(x, y float64) (float64, bool) {
	col := int(math.Floor((x - g.MinX) / g.CellSize))
	row := int(math.Floor((g.MaxY() - y) / g.CellSize))
	if row < 0 || row >= g.Height || col < 0 || col >= g.Width {
		return 0, false
	}
	if !g.Usable(row, col) {
		return 0, false
	}
	return g.Value(row, col), true
}

// Downsample strides the grid by the given factor, keeping every factor-th
// sample. A factor of 1 returns a copy-free view of the same data.
func (g *Grid) Downsample(factor int) *Grid {
	if factor <= 1 {
		return g
	}
	w := (g.Width + factor - 1) / factor
	h := (g.Height + factor - 1) / factor
	values := make([]float64, 0, w*h)
	for row := 0; row < g.Height; row += factor {
		for col := 0; col < g.Width; col += factor {
			values = append(values, g.Value(row, col))
		}
	}
	return &Grid{
		Width:    w,
		Height:   h,
		CellSize: g.CellSize * float64(factor),
		MinX:     g.MinX,
		MinY:     g.MaxY() - float64(h)*g.CellSize*float64(factor),
		NoData:   g.NoData,
		values:   values,
	}
}

// cellCenter returns the planar coordinate at the middle of a cell.
func (g *Grid) cellCenter(row, col int) (x, y float64) {
	x = g.MinX + (float64(col)+0.5)*g.CellSize
	y = g.MaxY() - (float64(row)+0.5)*g.CellSize
	return x, y
}

// PercentileInRing computes the given percentile of the usable, strictly
// positive samples whose cell centres fall inside the ring (absolute planar
// coordinates). Returns false when the ring covers no usable cell.
func (g *Grid) PercentileInRing(ring orb.Ring, percentile float64) (float64, bool) {
	if len(ring) < 4 {
		return 0, false
	}
	b := ring.Bound()

	colMin := int(math.Floor((b.Min[0] - g.MinX) / g.CellSize))
	colMax := int(math.Ceil((b.Max[0] - g.MinX) / g.CellSize))
	rowMin := int(math.Floor((g.MaxY() - b.Max[1]) / g.CellSize))
	rowMax := int(math.Ceil((g.MaxY() - b.Min[1]) / g.CellSize))

	colMin = max(colMin, 0)
	rowMin = max(rowMin, 0)
	colMax = min(colMax, g.Width-1)
	rowMax = min(rowMax, g.Height-1)

	var samples []float64
	for row := rowMin; row <= rowMax; row++ {
		for col := colMin; col <= colMax; col++ {
			if !g.Usable(row, col) {
				continue
			}
			v := g.Value(row, col)
			if v <= 0 {
				continue
			}
			cx, cy := g.cellCenter(row, col)
			if planar.RingContains(ring, orb.Point{cx, cy}) {
				samples = append(samples, v)
			}
		}
	}
	if len(samples) == 0 {
		return 0, false
	}
	sort.Float64s(samples)

	// Linear interpolation between closest ranks.
	rank := percentile / 100 * float64(len(samples)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return samples[lo], true
	}
	frac := rank - float64(lo)
	return samples[lo]*(1-frac) + samples[hi]*frac, true
}

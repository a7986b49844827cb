package geo

import (
	"github.com/paulmach/orb"
)

// AreaOfInterest is the square region a twin is generated for. The local
// origin is the planar projection of the centre point; it is computed once
// when the AOI is created and never recomputed mid-run, so every stage
// translates geometry with the same offset.
type AreaOfInterest struct {
	CenterLat  float64
	CenterLon  float64
	SideLength float64
	Buffer     float64

	// Planar coordinates of the centre, used as the local origin.
	OriginX float64
	OriginY float64
}

// NewAreaOfInterest projects the centre point and fixes the local origin.
func NewAreaOfInterest(p *Projection, lat, lon, sideLength, buffer float64) AreaOfInterest {
	x, y := p.ToPlanar(lon, lat)
	return AreaOfInterest{
		CenterLat:  lat,
		CenterLon:  lon,
		SideLength: sideLength,
		Buffer:     buffer,
		OriginX:    x,
		OriginY:    y,
	}
}

// Bound is the AOI square in local coordinates, centred on the origin.
func (a AreaOfInterest) Bound() orb.Bound {
	half := a.SideLength / 2
	return orb.Bound{
		Min: orb.Point{-half, -half},
		Max: orb.Point{half, half},
	}
}

// BufferedBound extends Bound by the buffer distance on every side. Raster
// clipping uses the buffered extent so terrain edges reach past the AOI.
func (a AreaOfInterest) BufferedBound() orb.Bound {
	half := a.SideLength/2 + a.Buffer
	return orb.Bound{
		Min: orb.Point{-half, -half},
		Max: orb.Point{half, half},
	}
}

// Localizer binds the AOI origin to a projection so callers can map
// geographic coordinates straight into the local frame.
type Localizer struct {
	proj    *Projection
	originX float64
	originY float64
}

// Localizer returns a converter into this AOI's local frame.
func (a AreaOfInterest) Localizer(p *Projection) *Localizer {
	return &Localizer{proj: p, originX: a.OriginX, originY: a.OriginY}
}

// LocalizerAt binds an explicit planar origin. p may be nil when only the
// planar conversions are needed.
func LocalizerAt(p *Projection, originX, originY float64) *Localizer {
	return &Localizer{proj: p, originX: originX, originY: originY}
}

// ToLocal projects a WGS84 coordinate and translates it by the local origin.
func (l *Localizer) ToLocal(lon, lat float64) (x, y float64) {
	px, py := l.proj.ToPlanar(lon, lat)
	return px - l.originX, py - l.originY
}

// ToPlanar projects without translating, for raster lookups that operate in
// absolute planar coordinates.
func (l *Localizer) ToPlanar(lon, lat float64) (x, y float64) {
	return l.proj.ToPlanar(lon, lat)
}

// FromPlanar translates an absolute planar coordinate into the local frame.
func (l *Localizer) FromPlanar(x, y float64) (float64, float64) {
	return x - l.originX, y - l.originY
}

// LocalRing converts a geographic ring into local coordinates.
func (l *Localizer) LocalRing(ring orb.Ring) orb.Ring {
	out := make(orb.Ring, len(ring))
	for i, pt := range ring {
		x, y := l.ToLocal(pt[0], pt[1])
		out[i] = orb.Point{x, y}
	}
	return out
}

// LocalLine converts a geographic polyline into local coordinates.
func (l *Localizer) LocalLine(line orb.LineString) orb.LineString {
	out := make(orb.LineString, len(line))
	for i, pt := range line {
		x, y := l.ToLocal(pt[0], pt[1])
		out[i] = orb.Point{x, y}
	}
	return out
}

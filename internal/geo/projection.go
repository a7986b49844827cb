// Package geo converts geographic WGS84 coordinates into the projected planar
// CRS the rest of the pipeline works in, and anchors all geometry to a fixed
// local origin so vertex coordinates stay numerically small.
package geo

import (
	"fmt"

	"github.com/wroge/wgs84"
)

// Projection transforms WGS84 longitude/latitude into a projected planar CRS
// identified by its EPSG code (metres on both axes).
type Projection struct {
	epsg int
	fwd  wgs84.Func
}

// NewProjection builds a transform into the given EPSG code.
func NewProjection(epsg int) (*Projection, error) {
	crs := wgs84.EPSG().Code(epsg)
	if crs == nil {
		return nil, fmt.Errorf("geo: unsupported EPSG code %d", epsg)
	}
	return &Projection{
		epsg: epsg,
		fwd:  wgs84.LonLat().To(crs),
	}, nil
}

// EPSG returns the target CRS code, recorded in the output manifest.
func (p *Projection) EPSG() int { return p.epsg }

// ToPlanar projects a WGS84 coordinate to planar easting/northing in metres.
func (p *Projection) ToPlanar(lon, lat float64) (x, y float64) {
	x, y, _ = p.fwd(lon, lat, 0)
	return x, y
}

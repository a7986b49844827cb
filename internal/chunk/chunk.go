// Package chunk partitions generated geometry into a fixed grid. Keys are a
// pure function of a primitive's representative point, so every asset type
// lands on the same grid and viewer-side spatial queries stay consistent.
package chunk

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// AssetType names one family of chunked output.
type AssetType string

const (
	AssetTerrain    AssetType = "terrain"
	AssetBuildings  AssetType = "buildings"
	AssetRoads      AssetType = "roads"
	AssetRailways   AssetType = "railways"
	AssetWaterways  AssetType = "waterways"
	AssetWater      AssetType = "water"
	AssetSea        AssetType = "sea"
	AssetFootprints AssetType = "footprints"
)

// Key identifies one grid cell.
type Key struct {
	X int
	Y int
}

// KeyFor floor-divides a local coordinate by the chunk size. Points in
// [k*size, (k+1)*size) on both axes map to cell k.
func KeyFor(x, y, size float64) Key {
	return Key{
		X: int(math.Floor(x / size)),
		Y: int(math.Floor(y / size)),
	}
}

// String renders the key as it appears in asset file names.
func (k Key) String() string { return fmt.Sprintf("%d_%d", k.X, k.Y) }

// Bound returns the cell's extent in local coordinates.
func (k Key) Bound(size float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{float64(k.X) * size, float64(k.Y) * size},
		Max: orb.Point{float64(k.X+1) * size, float64(k.Y+1) * size},
	}
}

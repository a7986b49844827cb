// Command genfixture writes a synthetic input set (elevation raster plus
// GeoJSON vector layers) into a data directory laid out the way the
// generation pipeline expects. The fixtures are deterministic, so test runs
// and demos produce identical output.
//
// Usage:
//
//	go run ./cmd/genfixture -data-dir data -lat 51.5 -lon -0.12
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tidemark/twinmesh/internal/geo"
	"github.com/tidemark/twinmesh/internal/raster"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "data", "output data directory")
	lat := flag.Float64("lat", 51.5, "AOI centre latitude")
	lon := flag.Float64("lon", -0.12, "AOI centre longitude")
	side := flag.Float64("side", 1000, "AOI side length in metres")
	epsg := flag.Int("epsg", 27700, "planar EPSG code")
	flag.Parse()

	proj, err := geo.NewProjection(*epsg)
	if err != nil {
		return err
	}
	originX, originY := proj.ToPlanar(*lon, *lat)

	g := newFixtureGen(*lat, *lon, *side)

	if err := writeRaster(filepath.Join(*dataDir, "interim", "dtm.asc"), originX, originY, *side, terrainElevation); err != nil {
		return err
	}
	if err := writeRaster(filepath.Join(*dataDir, "interim", "ndsm.asc"), originX, originY, *side, surfaceHeight); err != nil {
		return err
	}

	osmDir := filepath.Join(*dataDir, "osm")
	layers := []struct {
		name string
		fc   *geojson.FeatureCollection
	}{
		{"buildings.geojson", g.buildings()},
		{"roads.geojson", g.roads()},
		{"railways.geojson", g.railways()},
		{"waterways.geojson", g.waterways()},
		{"water.geojson", g.water()},
		{"coastline.geojson", g.coastline()},
	}
	for _, layer := range layers {
		if err := writeCollection(filepath.Join(osmDir, layer.name), layer.fc); err != nil {
			return err
		}
	}

	fmt.Printf("fixtures written under %s\n", *dataDir)
	return nil
}

// terrainElevation is a gentle east-facing slope with a low ridge, in metres
// above the local zero at a local (x, y) offset from the AOI centre.
func terrainElevation(x, y float64) float64 {
	return 12 + x*0.005 + 3*math.Sin(y/180)
}

// surfaceHeight fakes a normalised surface model: a few metres of canopy
// noise, zeroed over the south-west quadrant so the nDSM height tier has
// gaps to fall through.
func surfaceHeight(x, y float64) float64 {
	if x < 0 && y < 0 {
		return 0
	}
	return 6 + 2*math.Sin(x/40)*math.Cos(y/55)
}

func writeRaster(path string, originX, originY, side float64, elevation func(x, y float64) float64) error {
	const cell = 10.0
	half := side/2 + 200
	size := int(2 * half / cell)

	values := make([]float64, 0, size*size)
	for row := 0; row < size; row++ {
		y := half - (float64(row)+0.5)*cell
		for col := 0; col < size; col++ {
			x := -half + (float64(col)+0.5)*cell
			values = append(values, round2(elevation(x, y)))
		}
	}
	g := raster.NewGrid(size, size, cell, originX-half, originY-half, -9999, values)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return raster.WriteASCIIGrid(path, g)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// fixtureGen emits vector features in geographic coordinates around the AOI
// centre, using small-angle degree offsets.
type fixtureGen struct {
	lat, lon float64
	side     float64
	mLat     float64 // degrees latitude per metre
	mLon     float64 // degrees longitude per metre
}

func newFixtureGen(lat, lon, side float64) *fixtureGen {
	return &fixtureGen{
		lat:  lat,
		lon:  lon,
		side: side,
		mLat: 1 / 111320.0,
		mLon: 1 / (111320.0 * math.Cos(lat*math.Pi/180)),
	}
}

// at converts a local metre offset to geographic coordinates.
func (g *fixtureGen) at(x, y float64) orb.Point {
	return orb.Point{g.lon + x*g.mLon, g.lat + y*g.mLat}
}

func (g *fixtureGen) rect(x, y, w, h float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		g.at(x, y), g.at(x+w, y), g.at(x+w, y+h), g.at(x, y+h), g.at(x, y),
	}}
}

func (g *fixtureGen) buildings() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	kinds := []struct {
		building string
		props    map[string]any
	}{
		{"house", map[string]any{"height": "8.5", "name": "Corner House"}},
		{"apartments", map[string]any{"building:levels": "6"}},
		{"commercial", map[string]any{"shop": "supermarket"}},
		{"garage", map[string]any{}},
		{"church", map[string]any{"name": "St Mark"}},
		{"industrial", map[string]any{}},
	}

	id := int64(1000)
	quarter := g.side / 4
	for i := -2; i <= 1; i++ {
		for j := -2; j <= 1; j++ {
			k := kinds[((i+2)*4+(j+2))%len(kinds)]
			f := geojson.NewFeature(g.rect(float64(i)*quarter+20, float64(j)*quarter+20, 14, 10))
			f.ID = id
			f.Properties = map[string]any{"building": k.building}
			for key, v := range k.props {
				f.Properties[key] = v
			}
			fc.Append(f)
			id++
		}
	}
	return fc
}

func (g *fixtureGen) roads() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	half := g.side / 2

	ns := geojson.NewFeature(orb.LineString{g.at(0, -half), g.at(0, 0), g.at(0, half)})
	ns.ID = int64(2001)
	ns.Properties = map[string]any{"highway": "primary", "name": "North Road"}
	fc.Append(ns)

	ew := geojson.NewFeature(orb.LineString{g.at(-half, 40), g.at(half, 40)})
	ew.ID = int64(2002)
	ew.Properties = map[string]any{"highway": "residential"}
	fc.Append(ew)

	return fc
}

func (g *fixtureGen) railways() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	half := g.side / 2
	f := geojson.NewFeature(orb.LineString{g.at(-half, -120), g.at(half, -140)})
	f.ID = int64(3001)
	f.Properties = map[string]any{"railway": "rail"}
	fc.Append(f)
	return fc
}

func (g *fixtureGen) waterways() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	half := g.side / 2
	f := geojson.NewFeature(orb.LineString{g.at(-half, 200), g.at(-60, 230), g.at(half, 210)})
	f.ID = int64(4001)
	f.Properties = map[string]any{"waterway": "stream"}
	fc.Append(f)
	return fc
}

func (g *fixtureGen) water() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(g.rect(-200, -220, 90, 60))
	f.ID = int64(5001)
	f.Properties = map[string]any{"natural": "water", "name": "Mill Pond"}
	fc.Append(f)
	return fc
}

func (g *fixtureGen) coastline() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	half := g.side / 2
	f := geojson.NewFeature(orb.LineString{
		g.at(half-80, -half), g.at(half-110, 0), g.at(half-70, half),
	})
	f.ID = int64(6001)
	f.Properties = map[string]any{"natural": "coastline"}
	fc.Append(f)
	return fc
}

func writeCollection(path string, fc *geojson.FeatureCollection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

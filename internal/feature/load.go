package feature

import (
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadBuildings reads a GeoJSON footprint file. Polygons contribute their
// outer ring; multipolygons contribute one building per part. Inner rings
// (courtyards) are ignored.
func LoadBuildings(path string) ([]Building, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}
	var out []Building
	for i, f := range fc.Features {
		tags := tagsFrom(f.Properties)
		id := featureID(f, int64(i+1))
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			if len(geom) > 0 {
				out = append(out, Building{ID: id, Ring: geom[0], Tags: tags})
			}
		case orb.MultiPolygon:
			for _, poly := range geom {
				if len(poly) > 0 {
					out = append(out, Building{ID: id, Ring: poly[0], Tags: tags})
				}
			}
		}
	}
	return out, nil
}

// LoadLinear reads a GeoJSON polyline file for one ribbon family. The class
// key names the tag whose value selects the ribbon width ("highway",
// "railway" or "waterway").
func LoadLinear(path string, kind LinearKind, classKey string) ([]LinearFeature, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}
	var out []LinearFeature
	for i, f := range fc.Features {
		tags := tagsFrom(f.Properties)
		id := featureID(f, int64(i+1))
		class := tags.Get(classKey)
		switch geom := f.Geometry.(type) {
		case orb.LineString:
			out = append(out, LinearFeature{ID: id, Line: geom, Kind: kind, Class: class, Tags: tags})
		case orb.MultiLineString:
			for _, line := range geom {
				out = append(out, LinearFeature{ID: id, Line: line, Kind: kind, Class: class, Tags: tags})
			}
		}
	}
	return out, nil
}

// LoadWater reads standing-water polygons.
func LoadWater(path string) ([]WaterBody, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}
	var out []WaterBody
	for i, f := range fc.Features {
		tags := tagsFrom(f.Properties)
		id := featureID(f, int64(i+1))
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			out = append(out, WaterBody{ID: id, Polygon: geom, Tags: tags})
		case orb.MultiPolygon:
			for _, poly := range geom {
				out = append(out, WaterBody{ID: id, Polygon: poly, Tags: tags})
			}
		}
	}
	return out, nil
}

// LoadCoastline reads coastline polylines. Segments tagged place=island or
// place=islet are marked so the sea resolver can exclude them.
func LoadCoastline(path string) ([]CoastSegment, error) {
	fc, err := readCollection(path)
	if err != nil {
		return nil, err
	}
	var out []CoastSegment
	for i, f := range fc.Features {
		tags := tagsFrom(f.Properties)
		island := tags.Get("place") == "island" || tags.Get("place") == "islet"
		id := featureID(f, int64(i+1))
		switch geom := f.Geometry.(type) {
		case orb.LineString:
			out = append(out, CoastSegment{ID: id, Line: geom, Island: island})
		case orb.MultiLineString:
			for _, line := range geom {
				out = append(out, CoastSegment{ID: id, Line: line, Island: island})
			}
		}
	}
	return out, nil
}

func readCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("feature: read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("feature: parse %s: %w", path, err)
	}
	return fc, nil
}

// featureID resolves a stable identifier from the feature ID or the osm_id
// property, falling back to the feature's position in the file.
func featureID(f *geojson.Feature, fallback int64) int64 {
	switch id := f.ID.(type) {
	case float64:
		return int64(id)
	case int64:
		return id
	case string:
		if v, err := strconv.ParseInt(id, 10, 64); err == nil {
			return v
		}
	}
	if raw, ok := f.Properties["osm_id"]; ok {
		switch v := raw.(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
	}
	return fallback
}

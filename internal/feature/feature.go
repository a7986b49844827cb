// Package feature decodes GeoJSON inputs into typed features and repairs
// their geometry. Raw tag maps stop at this boundary: geometry code receives
// categories and typed fields, never free-form maps.
package feature

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Tags is the free-form key/value map carried by source features.
type Tags map[string]string

// Get returns the value for key, or "" when absent.
func (t Tags) Get(key string) string { return t[key] }

// Has reports whether key is present with a non-empty value.
func (t Tags) Has(key string) bool { return t[key] != "" }

// Building is one footprint in geographic coordinates. Height and its
// provenance are resolved later by the height engine; Category is assigned
// after that, since short/tall inference needs the resolved height.
type Building struct {
	ID       int64
	Ring     orb.Ring
	Tags     Tags
	Height   float64
	Source   string
	Category Category
}

// LinearKind distinguishes the ribbon families.
type LinearKind string

const (
	KindRoad     LinearKind = "road"
	KindRailway  LinearKind = "railway"
	KindWaterway LinearKind = "waterway"
)

// LinearFeature is an ordered polyline extruded into a ribbon. Class is the
// category value used for width lookup (highway class, railway type or
// waterway type).
type LinearFeature struct {
	ID    int64
	Line  orb.LineString
	Kind  LinearKind
	Class string
	Tags  Tags
}

// WaterBody is a standing-water polygon (lake, pond, basin).
type WaterBody struct {
	ID      int64
	Polygon orb.Polygon
	Tags    Tags
}

// CoastSegment is one piece of coastline. Island segments are excluded from
// sea construction.
type CoastSegment struct {
	ID     int64
	Line   orb.LineString
	Island bool
}

// tagsFrom flattens GeoJSON properties into string values. Non-scalar
// values are dropped.
func tagsFrom(props geojson.Properties) Tags {
	tags := make(Tags, len(props))
	for k, v := range props {
		switch val := v.(type) {
		case string:
			tags[k] = val
		case float64:
			tags[k] = fmt.Sprintf("%g", val)
		case int:
			tags[k] = fmt.Sprintf("%d", val)
		case bool:
			tags[k] = fmt.Sprintf("%t", val)
		}
	}
	return tags
}

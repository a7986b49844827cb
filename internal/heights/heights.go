// Package heights resolves one height value with a provenance tag per
// building footprint. Resolution tiers are tried in order and the first
// match wins; raster failures fall through to the next tier, never out.
package heights

import (
	"regexp"
	"strconv"

	"github.com/paulmach/orb"

	"github.com/tidemark/twinmesh/internal/feature"
	"github.com/tidemark/twinmesh/internal/raster"
)

// Source tags where a height came from.
type Source string

const (
	SourceExplicit Source = "explicit-tag"
	SourceLevels   Source = "levels"
	SourceNDSM     Source = "ndsm"
	SourceDefault  Source = "default"
)

// heightPattern accepts a numeric prefix with an optional metre suffix,
// as in "12", "12.5", "12 m" or "12m".
var heightPattern = regexp.MustCompile(`^\s*([\d.]+)\s*m?\s*$`)

// Engine derives building heights. The nDSM grid is optional; when absent
// the raster tier is skipped.
type Engine struct {
	storeyHeight float64
	minHeight    float64
	maxHeight    float64
	percentile   float64
	ndsm         *raster.Grid
}

// NewEngine builds an engine. ndsm may be nil.
func NewEngine(storeyHeight, minHeight, maxHeight, percentile float64, ndsm *raster.Grid) *Engine {
	return &Engine{
		storeyHeight: storeyHeight,
		minHeight:    minHeight,
		maxHeight:    maxHeight,
		percentile:   percentile,
		ndsm:         ndsm,
	}
}

// HasSurfaceModel reports whether the raster tier is available.
func (e *Engine) HasSurfaceModel() bool { return e.ndsm != nil }

// Derive resolves the height for one footprint. planarRing is the footprint
// in absolute planar coordinates, used to sample the nDSM; it may be nil
// when no surface model is loaded.
func (e *Engine) Derive(tags feature.Tags, planarRing orb.Ring) (float64, Source) {
	if h, ok := parseExplicit(tags.Get("height")); ok {
		return e.clamp(h), SourceExplicit
	}
	if levels, ok := parseLevels(tags.Get("building:levels")); ok {
		return e.clamp(levels * e.storeyHeight), SourceLevels
	}
	if e.ndsm != nil && len(planarRing) >= 4 {
		if h, ok := e.ndsm.PercentileInRing(planarRing, e.percentile); ok {
			return e.clamp(h), SourceNDSM
		}
	}
	return e.clamp(2 * e.storeyHeight), SourceDefault
}

func (e *Engine) clamp(h float64) float64 {
	if h < e.minHeight {
		return e.minHeight
	}
	if h > e.maxHeight {
		return e.maxHeight
	}
	return h
}

func parseExplicit(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	m := heightPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func parseLevels(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

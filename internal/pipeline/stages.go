package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/paulmach/orb"

	"github.com/tidemark/twinmesh/internal/builder"
	"github.com/tidemark/twinmesh/internal/chunk"
	"github.com/tidemark/twinmesh/internal/feature"
	"github.com/tidemark/twinmesh/internal/geo"
	"github.com/tidemark/twinmesh/internal/heights"
	"github.com/tidemark/twinmesh/internal/mesh"
	"github.com/tidemark/twinmesh/internal/packager"
	"github.com/tidemark/twinmesh/internal/raster"
)

// runState carries the data flowing between stages of one run.
type runState struct {
	aoi geo.AreaOfInterest
	loc *geo.Localizer

	dtm  *raster.Grid
	ndsm *raster.Grid

	buildings []feature.Building
	roads     []feature.LinearFeature
	railways  []feature.LinearFeature
	waterways []feature.LinearFeature
	water     []feature.WaterBody
	coast     []feature.CoastSegment

	store *chunk.Store
	infos []packager.BuildingInfo

	stats *Stats
}

// groundLookup samples the ground model at a local coordinate. ok is false
// outside the raster or over nodata.
func (r *runState) groundLookup(x, y float64) (float64, bool) {
	return r.dtm.SampleAt(x+r.aoi.OriginX, y+r.aoi.OriginY)
}

func (p *Pipeline) skip(stage, reason string, id int64, detail any) {
	p.metrics.PrimitivesSkipped.WithLabelValues(stage, reason).Inc()
	p.logger.Warn("skipping primitive", "stage", stage, "reason", reason, "id", id, "detail", detail)
}

// shardResult is one worker's share of the building stage.
type shardResult struct {
	store   *chunk.Store
	infos   []packager.BuildingInfo
	built   int
	skipped int
}

// buildBuildings resolves heights, classifies, and extrudes every footprint.
// Workers fill private stores that are merged once all of them finish, so
// output never depends on scheduling.
func (p *Pipeline) buildBuildings(_ context.Context, run *runState) error {
	run.store = chunk.NewStore()
	if len(run.buildings) == 0 {
		return nil
	}

	engine := heights.NewEngine(
		p.cfg.StoreyHeightM, p.cfg.MinHeightM, p.cfg.MaxHeightM, p.cfg.NDSMPercentile, run.ndsm)
	envelopes := builder.NewEnvelopeBuilder(
		p.cfg.WallTileWidthM, p.cfg.WallTileHeightM, p.cfg.RoofPitchesDeg)

	workers := p.cfg.Workers
	if workers > len(run.buildings) {
		workers = len(run.buildings)
	}
	results := make([]shardResult, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			res := shardResult{store: chunk.NewStore()}
			for i := w; i < len(run.buildings); i += workers {
				p.buildOne(run, engine, envelopes, run.buildings[i], &res)
			}
			results[w] = res
		}(w)
	}
	wg.Wait()

	for _, res := range results {
		run.store.Merge(res.store)
		run.infos = append(run.infos, res.infos...)
		run.stats.Buildings += res.built
		run.stats.Skipped += res.skipped
	}
	sort.Slice(run.infos, func(i, j int) bool { return run.infos[i].ID < run.infos[j].ID })

	p.metrics.PrimitivesProcessed.WithLabelValues("buildings").Add(float64(run.stats.Buildings))
	return nil
}

func (p *Pipeline) buildOne(run *runState, engine *heights.Engine, envelopes *builder.EnvelopeBuilder, b feature.Building, res *shardResult) {
	local, err := feature.RepairRing(run.loc.LocalRing(b.Ring), minFootprintAreaM2)
	if err != nil {
		p.skip("buildings", "unrepairable", b.ID, err)
		res.skipped++
		return
	}

	cx, cy := ringCenter(local)
	groundZ, ok := run.groundLookup(cx, cy)
	if !ok {
		p.skip("buildings", "no_elevation", b.ID, nil)
		res.skipped++
		return
	}

	var planarRing orb.Ring
	if engine.HasSurfaceModel() {
		planarRing = make(orb.Ring, len(b.Ring))
		for i, pt := range b.Ring {
			x, y := run.loc.ToPlanar(pt[0], pt[1])
			planarRing[i] = orb.Point{x, y}
		}
	}
	height, source := engine.Derive(b.Tags, planarRing)
	p.metrics.HeightSource.WithLabelValues(string(source)).Inc()
	cat := feature.Classify(b.Tags, height)

	m := envelopes.Build(local, groundZ, height, cat)
	if m == nil {
		p.skip("buildings", "degenerate", b.ID, nil)
		res.skipped++
		return
	}
	m.SetFeatureID(float32(b.ID))

	key := chunk.KeyFor(cx, cy, p.cfg.ChunkSizeM)
	res.store.Add(chunk.AssetBuildings, key, chunk.Fragment{Mesh: m, FeatureID: b.ID})

	if fp := builder.FootprintMesh(local, groundZ+footprintLiftM); fp != nil {
		fp.SetFeatureID(float32(b.ID))
		res.store.Add(chunk.AssetFootprints, key, chunk.Fragment{Mesh: fp, FeatureID: b.ID})
	}

	res.infos = append(res.infos, packager.BuildingInfo{
		ID:           b.ID,
		Name:         b.Tags.Get("name"),
		Category:     string(cat),
		Height:       height,
		HeightSource: string(source),
		Address:      addressOf(b.Tags),
	})
	res.built++
}

// buildRibbons extrudes the three linear families with their own width
// tables and elevation offsets.
func (p *Pipeline) buildRibbons(_ context.Context, run *runState) error {
	families := []struct {
		stage string
		at    chunk.AssetType
		feats []feature.LinearFeature
		rb    *builder.RibbonBuilder
		count *int
	}{
		{"roads", chunk.AssetRoads, run.roads,
			builder.NewRibbonBuilder(p.cfg.RoadWidthsM, p.cfg.RoadDefaultM, p.cfg.RoadZOffsetM),
			&run.stats.Roads},
		{"railways", chunk.AssetRailways, run.railways,
			builder.NewRibbonBuilder(nil, p.cfg.RailWidthM, p.cfg.RailZOffsetM),
			&run.stats.Railways},
		{"waterways", chunk.AssetWaterways, run.waterways,
			builder.NewRibbonBuilder(p.cfg.WaterwayWidthsM, p.cfg.WaterwayDefaultM, p.cfg.WaterwayZOffsetM),
			&run.stats.Waterways},
	}

	for _, fam := range families {
		for _, f := range fam.feats {
			line := run.loc.LocalLine(f.Line)
			groundZ, ok := p.lineElevations(run, line)
			if !ok {
				p.skip(fam.stage, "no_elevation", f.ID, nil)
				run.stats.Skipped++
				continue
			}
			m := fam.rb.Build(line, groundZ, f.Class)
			if m == nil {
				p.skip(fam.stage, "degenerate", f.ID, nil)
				run.stats.Skipped++
				continue
			}
			m.SetFeatureID(float32(f.ID))

			cx, cy := lineCenter(line)
			run.store.Add(fam.at, chunk.KeyFor(cx, cy, p.cfg.ChunkSizeM), chunk.Fragment{Mesh: m, FeatureID: f.ID})
			*fam.count++
			p.metrics.PrimitivesProcessed.WithLabelValues(fam.stage).Inc()
		}
	}
	return nil
}

// lineElevations samples the ground under every vertex. Points outside the
// raster inherit the nearest sampled value along the line; a line with no
// usable sample at all is reported as unusable.
func (p *Pipeline) lineElevations(run *runState, line orb.LineString) ([]float64, bool) {
	zs := make([]float64, len(line))
	known := make([]bool, len(line))
	any := false
	for i, pt := range line {
		v, ok := run.dtm.SampleAt(pt[0]+run.aoi.OriginX, pt[1]+run.aoi.OriginY)
		if ok {
			zs[i] = v
			known[i] = true
			any = true
		}
	}
	if !any {
		return nil, false
	}
	last, has := 0.0, false
	for i := range zs {
		if known[i] {
			last, has = zs[i], true
		} else if has {
			zs[i], known[i] = last, true
		}
	}
	last, has = 0, false
	for i := len(zs) - 1; i >= 0; i-- {
		if known[i] {
			last, has = zs[i], true
		} else if has {
			zs[i], known[i] = last, true
		}
	}
	return zs, true
}

// buildWater emits standing-water surfaces and the synthesized sea.
func (p *Pipeline) buildWater(_ context.Context, run *runState) error {
	resolver := builder.NewWaterResolver(
		p.cfg.WaterZOffsetM, p.cfg.SeaLevelM, builder.OpenSide(p.cfg.SeaOpenSide))
	bound := run.aoi.BufferedBound()

	for _, wb := range run.water {
		local := make(orb.Polygon, len(wb.Polygon))
		for i, ring := range wb.Polygon {
			local[i] = run.loc.LocalRing(ring)
		}
		groundZ := func(x, y float64) float64 {
			v, ok := run.groundLookup(x, y)
			if !ok {
				p.logger.Warn("water ground sample outside raster, using zero",
					"id", wb.ID, "x", x, "y", y)
				return 0
			}
			return v
		}
		m := resolver.WaterBody(local, bound, groundZ)
		if m == nil {
			p.skip("water", "empty_clip", wb.ID, nil)
			run.stats.Skipped++
			continue
		}
		cx, cy := meshCenter(m)
		run.store.Add(chunk.AssetWater, chunk.KeyFor(cx, cy, p.cfg.ChunkSizeM), chunk.Fragment{Mesh: m, FeatureID: wb.ID})
		run.stats.WaterBodies++
		p.metrics.PrimitivesProcessed.WithLabelValues("water").Inc()
	}

	segments := make([]builder.CoastLine, len(run.coast))
	for i, c := range run.coast {
		segments[i] = builder.CoastLine{Line: run.loc.LocalLine(c.Line), Island: c.Island}
	}
	if sea := resolver.Sea(segments, bound); sea != nil {
		cx, cy := meshCenter(sea)
		run.store.Add(chunk.AssetSea, chunk.KeyFor(cx, cy, p.cfg.ChunkSizeM), chunk.Fragment{Mesh: sea})
		run.stats.Sea = true
		p.metrics.PrimitivesProcessed.WithLabelValues("sea").Inc()
	}
	return nil
}

// buildTerrain meshes the ground model into chunk-aligned surfaces. A raster
// with no usable window is fatal: every twin needs ground.
func (p *Pipeline) buildTerrain(_ context.Context, run *runState) error {
	mesher := builder.NewTerrainMesher(p.cfg.ChunkSizeM, run.aoi.BufferedBound())
	chunks := mesher.BuildChunks(run.dtm, run.loc)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: terrain raster has no usable samples", ErrMissingInput)
	}
	for key, m := range chunks {
		run.store.Add(chunk.AssetTerrain, key, chunk.Fragment{Mesh: m})
	}
	run.stats.TerrainChunks = len(chunks)
	p.metrics.PrimitivesProcessed.WithLabelValues("terrain").Add(float64(len(chunks)))
	return nil
}

// packageAssets combines each populated cell, writes the asset set, and
// publishes the manifest when a publisher is wired.
func (p *Pipeline) packageAssets(ctx context.Context, run *runState) error {
	var items []packager.Item
	footprints := packager.FootprintIndex{}

	for _, at := range run.store.Types() {
		for _, key := range run.store.Keys(at) {
			combined := run.store.Combine(at, key)
			if combined == nil || combined.Mesh.FaceCount() == 0 {
				continue
			}
			if at == chunk.AssetFootprints {
				footprints[key.String()] = combined.FaceRanges
			}
			items = append(items, packager.Item{
				Type:       at,
				Key:        key,
				Mesh:       combined.Mesh,
				Surface:    p.surfaceFor(at),
				FaceRanges: combined.FaceRanges,
			})
			p.metrics.ChunksWritten.WithLabelValues(string(at)).Inc()
		}
	}

	var textures []packager.TextureRef
	for _, r := range p.textures.All() {
		if r.Loaded() {
			textures = append(textures, packager.TextureRef{Key: r.Key, Path: r.Path})
		}
	}

	packer := packager.New(p.cfg.DistDir, p.cfg.Compress, p.logger)
	manifest, err := packer.Pack(items, textures, packager.Info{
		Name:       p.cfg.ProjectName,
		CRS:        fmt.Sprintf("EPSG:%d", p.cfg.EPSGCode),
		OriginX:    run.aoi.OriginX,
		OriginY:    run.aoi.OriginY,
		CentreLat:  p.cfg.AOICenterLat,
		CentreLon:  p.cfg.AOICenterLon,
		SideLength: p.cfg.AOISideM,
		Buffer:     p.cfg.AOIBufferM,
	})
	if err != nil {
		return err
	}
	if err := packer.WriteFootprintIndex(footprints); err != nil {
		return err
	}
	if err := packer.WriteBuildingMetadata(run.infos); err != nil {
		return err
	}
	run.stats.Assets = len(manifest.Assets)

	if p.publisher != nil {
		if err := p.publisher.PublishManifest(ctx, manifest); err != nil {
			return err
		}
	}
	return nil
}

// surfaceFor picks the material for an asset family: a texture when one is
// on disk, a flat colour otherwise.
func (p *Pipeline) surfaceFor(at chunk.AssetType) mesh.Surface {
	var texKey string
	var color [4]float64
	switch at {
	case chunk.AssetTerrain:
		texKey, color = "terrain", [4]float64{0.43, 0.52, 0.38, 1}
	case chunk.AssetBuildings:
		texKey, color = "facade_atlas", [4]float64{0.84, 0.80, 0.74, 1}
	case chunk.AssetRoads:
		texKey, color = "road_asphalt", [4]float64{0.22, 0.22, 0.23, 1}
	case chunk.AssetRailways:
		texKey, color = "rail_ballast", [4]float64{0.35, 0.32, 0.30, 1}
	case chunk.AssetWaterways, chunk.AssetWater, chunk.AssetSea:
		texKey, color = "water", [4]float64{0.18, 0.38, 0.58, 1}
	case chunk.AssetFootprints:
		return mesh.Surface{Name: string(at), BaseColor: [4]float64{1, 0.78, 0.25, 0.35}}
	default:
		color = [4]float64{0.7, 0.7, 0.7, 1}
	}

	s := mesh.Surface{Name: string(at), BaseColor: color}
	if r := p.textures.Resolve(texKey); r.Loaded() {
		s.TexturePath = r.Path
	}
	return s
}

func addressOf(tags feature.Tags) map[string]string {
	addr := make(map[string]string)
	for _, key := range []string{"addr:housenumber", "addr:street", "addr:postcode", "addr:city"} {
		if tags.Has(key) {
			addr[key] = tags.Get(key)
		}
	}
	if len(addr) == 0 {
		return nil
	}
	return addr
}

func ringCenter(ring orb.Ring) (cx, cy float64) {
	n := len(ring) - 1
	for i := 0; i < n; i++ {
		cx += ring[i][0]
		cy += ring[i][1]
	}
	return cx / float64(n), cy / float64(n)
}

func lineCenter(line orb.LineString) (cx, cy float64) {
	for _, pt := range line {
		cx += pt[0]
		cy += pt[1]
	}
	n := float64(len(line))
	return cx / n, cy / n
}

func meshCenter(m *mesh.Mesh) (cx, cy float64) {
	min, max := m.Bounds()
	return (min[0] + max[0]) / 2, (min[1] + max[1]) / 2
}

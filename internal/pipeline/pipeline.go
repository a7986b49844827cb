// Package pipeline orchestrates one generation run: load inputs, derive
// heights, build per-primitive geometry, partition it into chunks, and
// package the result. Stages run in a fixed order; a stage only starts once
// everything it reads from is complete.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tidemark/twinmesh/internal/config"
	"github.com/tidemark/twinmesh/internal/feature"
	"github.com/tidemark/twinmesh/internal/geo"
	"github.com/tidemark/twinmesh/internal/observability"
	"github.com/tidemark/twinmesh/internal/packager"
	"github.com/tidemark/twinmesh/internal/raster"
	"github.com/tidemark/twinmesh/internal/texture"
)

// ErrMissingInput reports an absent input the run cannot proceed without.
// Missing optional inputs (surface model, individual vector categories) are
// logged and skipped instead.
var ErrMissingInput = errors.New("pipeline: required input missing")

// Footprints at or below this area after repair are unrepairable noise.
const minFootprintAreaM2 = 1.0

// Selection footprints float this far above the sampled ground.
const footprintLiftM = 0.5

// ManifestPublisher announces a completed run to downstream consumers.
type ManifestPublisher interface {
	PublishManifest(ctx context.Context, m *packager.Manifest) error
}

// Stats summarises what one run produced.
type Stats struct {
	Buildings     int
	Roads         int
	Railways      int
	Waterways     int
	WaterBodies   int
	Sea           bool
	TerrainChunks int
	Assets        int
	Skipped       int
}

// Pipeline runs the full generation sequence.
type Pipeline struct {
	cfg       *config.Config
	textures  texture.Source
	publisher ManifestPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a pipeline. publisher may be nil when event publishing is
// disabled.
func New(cfg *config.Config, tex texture.Source, publisher ManifestPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		textures:  tex,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness reports whether the required inputs are present on disk:
// the terrain raster plus at least one vector category.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if _, err := os.Stat(p.cfg.DTMPath()); err != nil {
		return fmt.Errorf("terrain raster: %w", err)
	}
	for _, path := range p.vectorPaths() {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
	}
	return errors.New("no vector inputs present")
}

func (p *Pipeline) vectorPaths() []string {
	return []string{
		p.cfg.BuildingsPath(),
		p.cfg.RoadsPath(),
		p.cfg.RailwaysPath(),
		p.cfg.WaterwaysPath(),
		p.cfg.WaterPath(),
		p.cfg.CoastlinePath(),
	}
}

// Run executes one generation run and returns its statistics.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	p.logger.Info("pipeline started",
		"centre_lat", p.cfg.AOICenterLat,
		"centre_lon", p.cfg.AOICenterLon,
		"side_m", p.cfg.AOISideM,
		"workers", p.cfg.Workers,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	proj, err := geo.NewProjection(p.cfg.EPSGCode)
	if err != nil {
		return nil, err
	}
	aoi := geo.NewAreaOfInterest(proj, p.cfg.AOICenterLat, p.cfg.AOICenterLon, p.cfg.AOISideM, p.cfg.AOIBufferM)
	loc := aoi.Localizer(proj)

	run := &runState{aoi: aoi, loc: loc, stats: &Stats{}}

	steps := []struct {
		name string
		fn   func(context.Context, *runState) error
	}{
		{"load-terrain", p.loadTerrain},
		{"load-surface-model", p.loadSurfaceModel},
		{"load-vectors", p.loadVectors},
		{"buildings", p.buildBuildings},
		{"ribbons", p.buildRibbons},
		{"water", p.buildWater},
		{"terrain", p.buildTerrain},
		{"package", p.packageAssets},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.stage(ctx, step.name, run, step.fn); err != nil {
			return nil, err
		}
	}

	p.logger.Info("pipeline finished",
		"buildings", run.stats.Buildings,
		"terrain_chunks", run.stats.TerrainChunks,
		"assets", run.stats.Assets,
		"skipped", run.stats.Skipped,
	)
	return run.stats, nil
}

// stage times one step and records its duration.
func (p *Pipeline) stage(ctx context.Context, name string, run *runState, fn func(context.Context, *runState) error) error {
	start := time.Now()
	err := fn(ctx, run)
	elapsed := time.Since(start)
	p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	p.logger.Debug("stage complete", "stage", name, "elapsed", elapsed)
	return nil
}

// loadTerrain reads the ground model and applies the configured downsample.
// A missing raster is fatal.
func (p *Pipeline) loadTerrain(_ context.Context, run *runState) error {
	g, err := raster.ReadASCIIGrid(p.cfg.DTMPath())
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: terrain raster %s", ErrMissingInput, p.cfg.DTMPath())
	}
	if err != nil {
		return err
	}
	run.dtm = g.Downsample(p.cfg.Downsample)
	p.logger.Info("terrain raster loaded",
		"width", run.dtm.Width, "height", run.dtm.Height, "cell_m", run.dtm.CellSize)
	return nil
}

// loadSurfaceModel reads the optional normalised surface model. Absence only
// disables the raster height tier.
func (p *Pipeline) loadSurfaceModel(_ context.Context, run *runState) error {
	g, err := raster.ReadASCIIGrid(p.cfg.NDSMPath())
	if errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("surface model absent, height raster tier disabled", "path", p.cfg.NDSMPath())
		return nil
	}
	if err != nil {
		return err
	}
	run.ndsm = g
	return nil
}

// loadVectors reads every vector category. Each file is individually
// optional, but a run with no vector data at all is refused.
func (p *Pipeline) loadVectors(_ context.Context, run *runState) error {
	present := 0
	load := func(path, what string, fn func(string) error) error {
		err := fn(path)
		if errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("vector input absent", "input", what, "path", path)
			return nil
		}
		if err != nil {
			return err
		}
		present++
		return nil
	}

	steps := []struct {
		path string
		what string
		fn   func(string) error
	}{
		{p.cfg.BuildingsPath(), "buildings", func(path string) error {
			var err error
			run.buildings, err = feature.LoadBuildings(path)
			return err
		}},
		{p.cfg.RoadsPath(), "roads", func(path string) error {
			var err error
			run.roads, err = feature.LoadLinear(path, feature.KindRoad, "highway")
			return err
		}},
		{p.cfg.RailwaysPath(), "railways", func(path string) error {
			var err error
			run.railways, err = feature.LoadLinear(path, feature.KindRailway, "railway")
			return err
		}},
		{p.cfg.WaterwaysPath(), "waterways", func(path string) error {
			var err error
			run.waterways, err = feature.LoadLinear(path, feature.KindWaterway, "waterway")
			return err
		}},
		{p.cfg.WaterPath(), "water", func(path string) error {
			var err error
			run.water, err = feature.LoadWater(path)
			return err
		}},
		{p.cfg.CoastlinePath(), "coastline", func(path string) error {
			var err error
			run.coast, err = feature.LoadCoastline(path)
			return err
		}},
	}
	for _, s := range steps {
		if err := load(s.path, s.what, s.fn); err != nil {
			return err
		}
	}

	if present == 0 {
		return fmt.Errorf("%w: no vector inputs under %s", ErrMissingInput, p.cfg.DataDir)
	}
	p.logger.Info("vector inputs loaded",
		"buildings", len(run.buildings),
		"roads", len(run.roads),
		"railways", len(run.railways),
		"waterways", len(run.waterways),
		"water_bodies", len(run.water),
		"coast_segments", len(run.coast),
	)
	return nil
}

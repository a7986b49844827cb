// Command twinmesh runs one mesh generation pass: it reads the prepared
// vector and raster inputs, builds chunked 3-D assets, and writes them with
// a manifest under the dist directory. When METRICS_ADDR is set the process
// also serves health and metrics endpoints for the duration of the run.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"log/slog"

	httpadapter "github.com/tidemark/twinmesh/internal/adapter/http"
	kafkaadapter "github.com/tidemark/twinmesh/internal/adapter/kafka"
	"github.com/tidemark/twinmesh/internal/config"
	"github.com/tidemark/twinmesh/internal/observability"
	"github.com/tidemark/twinmesh/internal/pipeline"
	"github.com/tidemark/twinmesh/internal/texture"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	tex := texture.NewDirSource(cfg.TexturesDir(), texture.DefaultFiles)

	var publisher pipeline.ManifestPublisher
	var kafkaPub *kafkaadapter.Publisher
	if cfg.PublishEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPub
		logger.Info("asset event publishing enabled", "topic", cfg.KafkaTopic)
	}

	p := pipeline.New(cfg, tex, publisher, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, p, filepath.Join(cfg.DistDir, "manifest.json"), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	stats, runErr := p.Run(ctx)
	if runErr != nil {
		logger.Error("generation failed", "error", runErr)
	} else {
		logger.Info("generation complete",
			"buildings", stats.Buildings,
			"roads", stats.Roads,
			"railways", stats.Railways,
			"waterways", stats.Waterways,
			"water_bodies", stats.WaterBodies,
			"sea", stats.Sea,
			"terrain_chunks", stats.TerrainChunks,
			"assets", stats.Assets,
			"skipped", stats.Skipped,
		)
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}

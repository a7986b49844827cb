// Package observability wires structured logging and Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// mesh pipeline.
type Metrics struct {
	PrimitivesProcessed *prometheus.CounterVec // labels: stage={buildings,roads,railways,waterways,water,sea,terrain}
	PrimitivesSkipped   *prometheus.CounterVec // labels: stage, reason={degenerate,unrepairable,no_elevation,empty_clip}
	HeightSource        *prometheus.CounterVec // labels: source={explicit-tag,levels,ndsm,default}
	ChunksWritten       *prometheus.CounterVec // labels: asset type
	PipelineRunning     prometheus.Gauge

	StageDuration *prometheus.HistogramVec // labels: stage
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PrimitivesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twinmesh",
			Name:      "primitives_processed_total",
			Help:      "Source primitives successfully meshed, by stage.",
		}, []string{"stage"}),
		PrimitivesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twinmesh",
			Name:      "primitives_skipped_total",
			Help:      "Source primitives dropped, by stage and reason.",
		}, []string{"stage", "reason"}),
		HeightSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twinmesh",
			Name:      "height_source_total",
			Help:      "Building height resolutions by provenance tier.",
		}, []string{"source"}),
		ChunksWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "twinmesh",
			Name:      "chunks_written_total",
			Help:      "Packaged chunk assets by type.",
		}, []string{"type"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "twinmesh",
			Name:      "pipeline_running",
			Help:      "1 while a generation run is active, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "twinmesh",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration per pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
	}

	prometheus.MustRegister(
		m.PrimitivesProcessed,
		m.PrimitivesSkipped,
		m.HeightSource,
		m.ChunksWritten,
		m.PipelineRunning,
		m.StageDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PrimitivesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "twinmesh", Name: "primitives_processed_total"}, []string{"stage"}),
		PrimitivesSkipped:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "twinmesh", Name: "primitives_skipped_total"}, []string{"stage", "reason"}),
		HeightSource:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "twinmesh", Name: "height_source_total"}, []string{"source"}),
		ChunksWritten:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "twinmesh", Name: "chunks_written_total"}, []string{"type"}),
		PipelineRunning:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "twinmesh", Name: "pipeline_running"}),
		StageDuration:       prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "twinmesh", Name: "stage_duration_seconds"}, []string{"stage"}),
	}
}

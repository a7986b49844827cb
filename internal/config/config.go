// Package config loads all pipeline settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	ProjectName string
	DataDir     string
	DistDir     string

	// Area of interest.
	AOICenterLat float64
	AOICenterLon float64
	AOISideM     float64
	AOIBufferM   float64
	EPSGCode     int

	// Chunking and meshing.
	ChunkSizeM float64
	Downsample int
	Workers    int
	Compress   bool

	// Height derivation.
	StoreyHeightM  float64
	MinHeightM     float64
	MaxHeightM     float64
	NDSMPercentile float64

	// Building facades and roofs.
	WallTileWidthM  float64
	WallTileHeightM float64
	RoofPitchesDeg  map[string]float64

	// Ribbon families.
	RoadWidthsM      map[string]float64
	RoadDefaultM     float64
	RoadZOffsetM     float64
	RailWidthM       float64
	RailZOffsetM     float64
	WaterwayWidthsM  map[string]float64
	WaterwayDefaultM float64
	WaterwayZOffsetM float64

	// Water and sea.
	WaterZOffsetM float64
	SeaLevelM     float64
	SeaOpenSide   string

	// Observability.
	LogLevel    string
	LogFormat   string
	MetricsAddr string // empty disables the HTTP server

	// Optional asset event publisher.
	PublishEnabled bool
	KafkaBrokers   []string
	KafkaTopic     string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	lat, err := requireFloat("AOI_CENTER_LAT")
	if err != nil {
		return nil, err
	}
	lon, err := requireFloat("AOI_CENTER_LON")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ProjectName: envOrDefault("PROJECT_NAME", "twinmesh-aoi"),
		DataDir:     envOrDefault("DATA_DIR", "data"),
		DistDir:     envOrDefault("DIST_DIR", "dist"),

		AOICenterLat: lat,
		AOICenterLon: lon,
		AOISideM:     envFloat("AOI_SIDE_M", 4000),
		AOIBufferM:   envFloat("AOI_BUFFER_M", 200),
		EPSGCode:     envInt("EPSG_CODE", 27700),

		ChunkSizeM: envFloat("CHUNK_SIZE_M", 500),
		Downsample: envInt("DOWNSAMPLE", 4),
		Workers:    envInt("WORKERS", runtime.NumCPU()),
		Compress:   envBool("COMPRESS", true),

		StoreyHeightM:  envFloat("STOREY_HEIGHT_M", 3.0),
		MinHeightM:     envFloat("MIN_HEIGHT_M", 2.5),
		MaxHeightM:     envFloat("MAX_HEIGHT_M", 120),
		NDSMPercentile: envFloat("NDSM_PERCENTILE", 90),

		WallTileWidthM:  envFloat("WALL_TILE_WIDTH_M", 4.0),
		WallTileHeightM: envFloat("WALL_TILE_HEIGHT_M", 3.0),
		RoofPitchesDeg: map[string]float64{
			"terraced": 35,
			"garage":   20,
			"church":   45,
		},

		RoadWidthsM: map[string]float64{
			"primary": 8, "primary_link": 8, "trunk": 8, "trunk_link": 8,
			"secondary": 7, "secondary_link": 7,
			"tertiary": 6, "tertiary_link": 6,
			"residential": 5, "unclassified": 5,
			"service": 4, "track": 4,
			"cycleway": 2.5,
			"footway":  2, "path": 2, "pedestrian": 2,
			"steps": 1.5,
		},
		RoadDefaultM: envFloat("ROAD_DEFAULT_WIDTH_M", 4.0),
		RoadZOffsetM: envFloat("ROAD_Z_OFFSET_M", 0.1),
		RailWidthM:   envFloat("RAIL_WIDTH_M", 3.5),
		RailZOffsetM: envFloat("RAIL_Z_OFFSET_M", 0.8),
		WaterwayWidthsM: map[string]float64{
			"river":  6,
			"canal":  5,
			"stream": 2,
			"ditch":  1.5,
			"drain":  1.5,
		},
		WaterwayDefaultM: envFloat("WATERWAY_DEFAULT_WIDTH_M", 3.0),
		WaterwayZOffsetM: envFloat("WATERWAY_Z_OFFSET_M", 0.1),

		WaterZOffsetM: envFloat("WATER_Z_OFFSET_M", 0.3),
		SeaLevelM:     envFloat("SEA_LEVEL_M", 0),
		SeaOpenSide:   envOrDefault("SEA_OPEN_SIDE", "east"),

		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		LogFormat:   envOrDefault("LOG_FORMAT", "json"),
		MetricsAddr: os.Getenv("METRICS_ADDR"),

		PublishEnabled: envBool("PUBLISH_ENABLED", false),
		KafkaBrokers:   splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:     envOrDefault("KAFKA_TOPIC", "twin-assets"),
	}

	if cfg.AOICenterLat < -90 || cfg.AOICenterLat > 90 {
		return nil, errors.New("AOI_CENTER_LAT must be within [-90, 90]")
	}
	if cfg.AOICenterLon < -180 || cfg.AOICenterLon > 180 {
		return nil, errors.New("AOI_CENTER_LON must be within [-180, 180]")
	}
	if cfg.AOISideM <= 0 {
		return nil, errors.New("AOI_SIDE_M must be positive")
	}
	if cfg.AOIBufferM < 0 {
		return nil, errors.New("AOI_BUFFER_M must not be negative")
	}
	if cfg.ChunkSizeM <= 0 {
		return nil, errors.New("CHUNK_SIZE_M must be positive")
	}
	if cfg.Downsample < 1 {
		return nil, errors.New("DOWNSAMPLE must be at least 1")
	}
	if cfg.Workers < 1 {
		return nil, errors.New("WORKERS must be at least 1")
	}
	if cfg.MinHeightM >= cfg.MaxHeightM {
		return nil, errors.New("MIN_HEIGHT_M must be below MAX_HEIGHT_M")
	}
	if cfg.NDSMPercentile <= 0 || cfg.NDSMPercentile > 100 {
		return nil, errors.New("NDSM_PERCENTILE must be within (0, 100]")
	}
	switch cfg.SeaOpenSide {
	case "east", "west", "north", "south":
	default:
		return nil, fmt.Errorf("SEA_OPEN_SIDE must be east, west, north or south, got %q", cfg.SeaOpenSide)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", cfg.LogFormat)
	}
	if cfg.PublishEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("PUBLISH_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

// Input file locations under DataDir.

func (c *Config) BuildingsPath() string { return filepath.Join(c.DataDir, "osm", "buildings.geojson") }
func (c *Config) RoadsPath() string     { return filepath.Join(c.DataDir, "osm", "roads.geojson") }
func (c *Config) RailwaysPath() string  { return filepath.Join(c.DataDir, "osm", "railways.geojson") }
func (c *Config) WaterPath() string     { return filepath.Join(c.DataDir, "osm", "water.geojson") }
func (c *Config) WaterwaysPath() string { return filepath.Join(c.DataDir, "osm", "waterways.geojson") }
func (c *Config) CoastlinePath() string { return filepath.Join(c.DataDir, "osm", "coastline.geojson") }
func (c *Config) DTMPath() string       { return filepath.Join(c.DataDir, "interim", "dtm.asc") }
func (c *Config) NDSMPath() string      { return filepath.Join(c.DataDir, "interim", "ndsm.asc") }
func (c *Config) TexturesDir() string   { return filepath.Join(c.DataDir, "textures") }

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v
		}
	}
	return def
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			return v
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if s := os.Getenv(key); s != "" {
		return s == "true" || s == "1"
	}
	return def
}

func requireFloat(key string) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("AOI_CENTER_LAT", "51.5")
	t.Setenv("AOI_CENTER_LON", "-0.12")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 51.5, cfg.AOICenterLat)
	assert.Equal(t, -0.12, cfg.AOICenterLon)
	assert.Equal(t, 4000.0, cfg.AOISideM)
	assert.Equal(t, 200.0, cfg.AOIBufferM)
	assert.Equal(t, 27700, cfg.EPSGCode)
	assert.Equal(t, 500.0, cfg.ChunkSizeM)
	assert.Equal(t, 4, cfg.Downsample)
	assert.True(t, cfg.Compress)
	assert.Equal(t, 3.0, cfg.StoreyHeightM)
	assert.Equal(t, 2.5, cfg.MinHeightM)
	assert.Equal(t, 120.0, cfg.MaxHeightM)
	assert.Equal(t, 90.0, cfg.NDSMPercentile)
	assert.Equal(t, 4.0, cfg.WallTileWidthM)
	assert.Equal(t, 3.0, cfg.WallTileHeightM)
	assert.Equal(t, "east", cfg.SeaOpenSide)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
	assert.False(t, cfg.PublishEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "twin-assets", cfg.KafkaTopic)

	assert.Equal(t, 8.0, cfg.RoadWidthsM["primary"])
	assert.Equal(t, 5.0, cfg.RoadWidthsM["residential"])
	assert.Equal(t, 35.0, cfg.RoofPitchesDeg["terraced"])
	assert.Equal(t, 2.0, cfg.WaterwayWidthsM["stream"])
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("AOI_SIDE_M", "2000")
	t.Setenv("CHUNK_SIZE_M", "250")
	t.Setenv("DOWNSAMPLE", "2")
	t.Setenv("WORKERS", "3")
	t.Setenv("COMPRESS", "false")
	t.Setenv("SEA_OPEN_SIDE", "south")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("METRICS_ADDR", ":9090")
	t.Setenv("PUBLISH_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2000.0, cfg.AOISideM)
	assert.Equal(t, 250.0, cfg.ChunkSizeM)
	assert.Equal(t, 2, cfg.Downsample)
	assert.Equal(t, 3, cfg.Workers)
	assert.False(t, cfg.Compress)
	assert.Equal(t, "south", cfg.SeaOpenSide)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.True(t, cfg.PublishEnabled)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing lat", map[string]string{"AOI_CENTER_LAT": ""}, "AOI_CENTER_LAT is required"},
		{"bad lat", map[string]string{"AOI_CENTER_LAT": "95"}, "AOI_CENTER_LAT"},
		{"bad lon", map[string]string{"AOI_CENTER_LON": "181"}, "AOI_CENTER_LON"},
		{"non-numeric lat", map[string]string{"AOI_CENTER_LAT": "north"}, "invalid AOI_CENTER_LAT"},
		{"zero side", map[string]string{"AOI_SIDE_M": "0"}, "AOI_SIDE_M"},
		{"negative buffer", map[string]string{"AOI_BUFFER_M": "-5"}, "AOI_BUFFER_M"},
		{"zero chunk", map[string]string{"CHUNK_SIZE_M": "0"}, "CHUNK_SIZE_M"},
		{"inverted clamp", map[string]string{"MIN_HEIGHT_M": "50", "MAX_HEIGHT_M": "10"}, "MIN_HEIGHT_M"},
		{"bad percentile", map[string]string{"NDSM_PERCENTILE": "0"}, "NDSM_PERCENTILE"},
		{"bad open side", map[string]string{"SEA_OPEN_SIDE": "up"}, "SEA_OPEN_SIDE"},
		{"bad log format", map[string]string{"LOG_FORMAT": "yaml"}, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestInputPaths(t *testing.T) {
	setRequired(t)
	t.Setenv("DATA_DIR", "/srv/twin/data")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/twin/data/osm/buildings.geojson", cfg.BuildingsPath())
	assert.Equal(t, "/srv/twin/data/osm/coastline.geojson", cfg.CoastlinePath())
	assert.Equal(t, "/srv/twin/data/interim/dtm.asc", cfg.DTMPath())
	assert.Equal(t, "/srv/twin/data/interim/ndsm.asc", cfg.NDSMPath())
	assert.Equal(t, "/srv/twin/data/textures", cfg.TexturesDir())
}

package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidemark/twinmesh/internal/packager"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	event := AssetEvent{
		RunID:     "run-1",
		Project:   "harbour-twin",
		AssetID:   "buildings_0_0",
		AssetType: "buildings",
		URL:       "chunks/buildings_0_0.glb.gz",
		SizeBytes: 1024,
		Generated: now,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("buildings_0_0"), msg.Key)
	assert.Contains(t, string(msg.Value), `"asset_type":"buildings"`)
	assert.Contains(t, string(msg.Value), `"run_id":"run-1"`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "asset_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("buildings"), msg.Headers[0].Value)
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[1].Value)
}

func TestEventFor(t *testing.T) {
	m := &packager.Manifest{
		Name:      "harbour-twin",
		RunID:     "run-7",
		Generated: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Assets: []packager.Asset{
			{ID: "terrain_1_2", Type: "terrain", URL: "chunks/terrain_1_2.glb", SizeBytes: 99},
		},
	}

	ev := eventFor(m, m.Assets[0])

	assert.Equal(t, "run-7", ev.RunID)
	assert.Equal(t, "harbour-twin", ev.Project)
	assert.Equal(t, "terrain_1_2", ev.AssetID)
	assert.Equal(t, "terrain", ev.AssetType)
	assert.Equal(t, int64(99), ev.SizeBytes)
	assert.Equal(t, m.Generated, ev.Generated)
}

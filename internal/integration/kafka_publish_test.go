//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/tidemark/twinmesh/internal/adapter/kafka"
	"github.com/tidemark/twinmesh/internal/config"
	"github.com/tidemark/twinmesh/internal/packager"
)

const testTopic = "test-twin-assets"

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("twinmesh-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestPublishManifest round-trips asset events through a real broker: the
// publisher writes one message per manifest asset, a consumer reads them
// back and checks keys, headers, and payloads.
func TestPublishManifest(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}

	bbox := [6]float64{-10, -10, 0, 10, 10, 12}
	manifest := &packager.Manifest{
		Version:   packager.ManifestVersion,
		Name:      "harbour-twin",
		RunID:     "run-integration",
		Generated: time.Date(2026, 5, 2, 12, 0, 0, 0, time.UTC),
		Assets: []packager.Asset{
			{ID: "buildings_0_0", Type: "buildings", URL: "assets/buildings_0_0.glb.gz", SizeBytes: 2048, Compressed: true, BBox: &bbox},
			{ID: "terrain_0_0", Type: "terrain", URL: "assets/terrain_0_0.glb.gz", SizeBytes: 4096, Compressed: true, BBox: &bbox},
		},
	}

	publisher := kafkaadapter.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })
	require.NoError(t, publisher.PublishManifest(ctx, manifest))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: []string{broker},
		Topic:   testTopic,
		GroupID: "test-consumer",
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for _, want := range manifest.Assets {
		readCtx, cancelRead := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		cancelRead()
		require.NoError(t, err)

		assert.Equal(t, []byte(want.ID), msg.Key)

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, want.Type, headers["asset_type"])
		assert.Equal(t, manifest.RunID, headers["run_id"])

		var event kafkaadapter.AssetEvent
		require.NoError(t, json.Unmarshal(msg.Value, &event))
		assert.Equal(t, manifest.RunID, event.RunID)
		assert.Equal(t, manifest.Name, event.Project)
		assert.Equal(t, want.ID, event.AssetID)
		assert.Equal(t, want.URL, event.URL)
		assert.Equal(t, want.SizeBytes, event.SizeBytes)
		assert.True(t, event.Generated.Equal(manifest.Generated))
	}
}

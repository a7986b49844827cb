// Package kafka publishes asset availability events after a pipeline run.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/tidemark/twinmesh/internal/config"
	"github.com/tidemark/twinmesh/internal/packager"
)

// AssetEvent announces one packaged asset to downstream consumers.
type AssetEvent struct {
	RunID     string    `json:"run_id"`
	Project   string    `json:"project"`
	AssetID   string    `json:"asset_id"`
	AssetType string    `json:"asset_type"`
	URL       string    `json:"url"`
	SizeBytes int64     `json:"size_bytes"`
	Generated time.Time `json:"generated"`
}

// Publisher produces asset events to a Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured asset topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishManifest emits one event per packaged asset in a single
// WriteMessages call.
func (p *Publisher) PublishManifest(ctx context.Context, m *packager.Manifest) error {
	if len(m.Assets) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(m.Assets))
	for i, a := range m.Assets {
		msg, err := serializeToMessage(eventFor(m, a))
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish asset events: %w", err)
	}
	p.logger.Info("published asset events", "count", len(msgs), "run_id", m.RunID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func eventFor(m *packager.Manifest, a packager.Asset) AssetEvent {
	return AssetEvent{
		RunID:     m.RunID,
		Project:   m.Name,
		AssetID:   a.ID,
		AssetType: a.Type,
		URL:       a.URL,
		SizeBytes: a.SizeBytes,
		Generated: m.Generated,
	}
}

// serializeToMessage marshals an AssetEvent into a Kafka message keyed by
// asset ID so replays for the same asset land on the same partition.
func serializeToMessage(event AssetEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize asset event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.AssetID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "asset_type", Value: []byte(event.AssetType)},
			{Key: "run_id", Value: []byte(event.RunID)},
		},
	}, nil
}

// Package kafka publishes finished digests to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/deusflow/musive/internal/digest"
	"github.com/deusflow/musive/internal/news"
)

// PublisherConfig holds Kafka producer configuration
type PublisherConfig struct {
	Brokers []string
	Topic   string
}

func newSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	cfg.ClientID = "musive"
	return cfg
}

// Publisher sends one message per digest, keyed by run ID so reruns of
// the same run land on the same partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewPublisher(cfg PublisherConfig, logger *slog.Logger) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newPublisher(producer, cfg.Topic, logger), nil
}

func newPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{producer: producer, topic: topic, logger: logger.With("component", "kafka")}
}

func (p *Publisher) Name() string { return "kafka" }

func (p *Publisher) Deliver(ctx context.Context, d news.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal digest: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(d.RunID),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to publish digest %s: %w", d.RunID, err)
	}

	p.logger.Debug("digest published", "run_id", d.RunID, "partition", partition, "offset", offset)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

var _ digest.Sink = (*Publisher)(nil)

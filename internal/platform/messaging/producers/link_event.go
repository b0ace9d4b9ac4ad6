package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/charterdesk/recon-engine/internal/config"
)

// LinkEventProducer publishes applied-link events for downstream reporting
// consumers. Writes are synchronous: the outbox drain decides per message
// whether publication succeeded.
type LinkEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// NewLinkEventProducer creates the producer and ensures the topic exists
func NewLinkEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*LinkEventProducer, error) {
	if cfg.LinkEventTopic == "" {
		return nil, fmt.Errorf("kafka link event topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for link event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.LinkEventTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure link event topic %s exists: %w", cfg.LinkEventTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.LinkEventTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &LinkEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.LinkEventTopic,
	}, nil
}

func (p *LinkEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal link event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish link event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish link event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published link event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *LinkEventProducer) Close() error {
	p.logger.Info("Closing link event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cjdd3b/car-datascience-toolkit/pkg/config"
	"github.com/cjdd3b/car-datascience-toolkit/pkg/logger"
)

// Similarity updates arrive in loader-sized bursts, so the writer lingers
// briefly to coalesce them into fewer produce requests.
const (
	producerBatchMax    = 100
	producerLinger      = 10 * time.Millisecond
	producerMaxAttempts = 3
)

// Event is one record to publish. Key selects the partition; Value is
// marshaled to JSON at publish time, so callers hand over plain structs.
type Event struct {
	Key   string
	Value any
}

// Producer publishes pipeline events to a single Kafka topic.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer for the given topic.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    producerBatchMax,
		BatchTimeout: producerLinger,
		MaxAttempts:  producerMaxAttempts,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{
		writer: w,
		logger: logger.WithComponent("kafka-producer").With("topic", topic),
	}
}

// message serializes an event's value and pairs it with its partition key.
func message(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshaling event value: %w", err)
	}
	return kafka.Message{Key: []byte(event.Key), Value: value}, nil
}

// Publish writes a single event synchronously.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	msg, err := message(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event", "key", event.Key, "error", err)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("event published", "key", event.Key, "value_size", len(msg.Value))
	return nil
}

// PublishBatch writes a slice of events in one produce call. The batch is
// all-or-nothing on the serialization side: one unmarshalable value fails
// the whole call before anything is sent.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := message(event)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish batch", "count", len(messages), "error", err)
		return fmt.Errorf("publishing batch to kafka: %w", err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

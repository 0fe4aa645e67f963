package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/vladyslavplus/orderly/internal/event"
)

// Publisher hands committed domain events to the broker. Publish happens
// strictly after the local commit; a failure here is logged by the caller and
// never rolls back the originating mutation.
type Publisher interface {
	Publish(ctx context.Context, evt any, key string) error
	Close() error
}

// KafkaPublisher implements Publisher on a shared kafka-go writer. The topic
// is derived from the event type so each kind keeps its own fan-out channel.
type KafkaPublisher struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher builds a publisher against the configured brokers.
func NewKafkaPublisher(brokers []string, logger *zap.Logger) *KafkaPublisher {
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish serializes the event as JSON and writes it to its kind's topic.
func (p *KafkaPublisher) Publish(ctx context.Context, evt any, key string) error {
	topic := event.TopicFor(evt)
	if topic == "" {
		return fmt.Errorf("no topic for event type %T", evt)
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: body,
		Time:  time.Now().UTC(),
		Headers: []kafkago.Header{
			{Key: "event-id", Value: []byte(uuid.NewString())},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("key", key),
	)
	return nil
}

// Close flushes and shuts down the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

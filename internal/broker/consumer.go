package broker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxRetryDelay = 30 * time.Second

// Handler processes one message. Returning an error keeps the consumer on
// the same message: it is retried with backoff and its offset stays
// uncommitted until the handler succeeds.
type Handler func(ctx context.Context, msg kafkago.Message) error

// Consumer runs a fetch/handle/commit loop for a single topic within a
// consumer group. Delivery is at-least-once: a crash between handle and
// commit replays the message. The consumer never commits past a message it
// failed to process, so a failing message blocks its partition instead of
// being silently skipped.
type Consumer struct {
	reader     *kafkago.Reader
	topic      string
	logger     *zap.Logger
	retryDelay time.Duration
}

// NewConsumer builds a consumer for one topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Consumer{reader: reader, topic: topic, logger: logger, retryDelay: time.Second}
}

// Topic returns the consumed topic.
func (c *Consumer) Topic() string {
	return c.topic
}

// Run blocks until ctx is cancelled, invoking handler for every fetched
// message and committing only after the handler succeeds.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	c.logger.Info("consumer started", zap.String("topic", c.topic))

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return ctx.Err()
			}
			c.logger.Error("fetch message",
				zap.String("topic", c.topic),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if err := c.handleWithRetry(ctx, msg, handler); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("commit offset",
				zap.String("topic", c.topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleWithRetry keeps processing the same message until the handler
// succeeds or ctx is cancelled. Committing a later message would persist its
// offset as the group position and skip the failed one for good, so the loop
// must not move on past a failure.
func (c *Consumer) handleWithRetry(ctx context.Context, msg kafkago.Message, handler Handler) error {
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Error("message processing failed",
			zap.String("topic", c.topic),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		backoff := time.Duration(attempt) * c.retryDelay
		if backoff > maxRetryDelay {
			backoff = maxRetryDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("close reader: %w", err)
	}
	return nil
}

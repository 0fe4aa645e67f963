package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRetryConsumer() *Consumer {
	c := NewConsumer([]string{"127.0.0.1:9092"}, "test-group", "order.created", zap.NewNop())
	c.retryDelay = time.Millisecond
	return c
}

func TestHandleWithRetryStaysOnFailedMessage(t *testing.T) {
	c := newRetryConsumer()
	msg := kafkago.Message{Topic: "order.created", Offset: 7}

	attempts := 0
	err := c.handleWithRetry(context.Background(), msg, func(ctx context.Context, got kafkago.Message) error {
		attempts++
		require.Equal(t, int64(7), got.Offset)
		if attempts < 3 {
			return errors.New("db unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestHandleWithRetryStopsOnCancel(t *testing.T) {
	c := newRetryConsumer()
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	err := c.handleWithRetry(ctx, kafkago.Message{Topic: "order.created"}, func(ctx context.Context, msg kafkago.Message) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("db unavailable")
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 2, attempts)
}

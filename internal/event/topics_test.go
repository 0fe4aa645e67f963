package event_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vladyslavplus/orderly/internal/event"
)

func TestTopicFor(t *testing.T) {
	cases := []struct {
		evt   any
		topic string
	}{
		{event.UserCreated{}, event.TopicUserCreated},
		{event.UserUpdated{}, event.TopicUserUpdated},
		{event.UserDeleted{}, event.TopicUserDeleted},
		{event.ProductCreated{}, event.TopicProductCreated},
		{event.ProductUpdated{}, event.TopicProductUpdated},
		{event.ProductDeleted{}, event.TopicProductDeleted},
		{event.OrderCreated{}, event.TopicOrderCreated},
		{event.OrderDeleted{}, event.TopicOrderDeleted},
		{struct{}{}, ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.topic, event.TopicFor(tc.evt))
	}
}

package pubsub

import (
	"context"
	"testing"
	"time"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_FiltersByTopicFamily(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	sub := bus.Subscribe(context.Background(), Filter{Match: domain.WebhookTopic.IsOrderTopic})
	defer sub.Close()

	bus.Publish(&domain.WebhookEvent{Topic: domain.TopicProductsUpdate})
	bus.Publish(&domain.WebhookEvent{Topic: domain.TopicOrdersCreate, Shop: "a.myshopify.com"})

	select {
	case ev := <-sub.Events:
		assert.Equal(t, domain.TopicOrdersCreate, ev.Topic)
	case <-time.After(time.Second):
		t.Fatal("expected order event")
	}
	assert.Empty(t, sub.Events)
}

func TestEventBus_PublishNeverBlocks(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	sub := bus.Subscribe(context.Background(), Filter{})
	defer sub.Close()

	for i := 0; i < subscriptionBuffer*2; i++ {
		bus.Publish(&domain.WebhookEvent{Topic: domain.TopicOrdersPaid})
	}
	assert.Len(t, sub.Events, subscriptionBuffer)
}

func TestEventBus_CloseUnsubscribes(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	sub := bus.Subscribe(context.Background(), Filter{Shop: "a.myshopify.com"})
	require.Equal(t, 1, bus.SubscriberCount())

	sub.Close()
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-sub.Events
	assert.False(t, open)
}

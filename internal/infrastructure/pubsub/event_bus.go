package pubsub

import (
	"context"
	"slices"
	"sync"

	"shopify-integration-layer/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const subscriptionBuffer = 16

// Filter selects the events delivered to a subscription. Zero values match
// everything.
type Filter struct {
	Topics []domain.WebhookTopic
	Match  func(domain.WebhookTopic) bool
	Shop   string
}

func (f Filter) matches(event *domain.WebhookEvent) bool {
	if len(f.Topics) > 0 && !slices.Contains(f.Topics, event.Topic) {
		return false
	}
	if f.Match != nil && !f.Match(event.Topic) {
		return false
	}
	return f.Shop == "" || f.Shop == event.Shop
}

// Subscription receives matching events until its context ends
type Subscription struct {
	ID     string
	Events <-chan *domain.WebhookEvent

	filter Filter
	events chan *domain.WebhookEvent
	cancel context.CancelFunc
}

// Close ends the subscription
func (s *Subscription) Close() {
	s.cancel()
}

// EventBus fans verified webhook events out to in-process subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the
// event.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	logger zerolog.Logger
}

func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		subs:   make(map[string]*Subscription),
		logger: logger,
	}
}

func (b *EventBus) Subscribe(ctx context.Context, filter Filter) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan *domain.WebhookEvent, subscriptionBuffer)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Events: events,
		filter: filter,
		events: events,
		cancel: cancel,
	}

	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.mu.Unlock()

	b.logger.Debug().Str("subscription", sub.ID).Msg("Event bus subscription created")

	go func() {
		<-subCtx.Done()
		b.unsubscribe(sub.ID)
	}()
	return sub
}

func (b *EventBus) unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.events)
}

func (b *EventBus) Publish(event *domain.WebhookEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, sub := range b.subs {
		if !sub.filter.matches(event) {
			continue
		}
		select {
		case sub.events <- event:
			delivered++
		default:
			b.logger.Warn().
				Str("subscription", sub.ID).
				Str("topic", string(event.Topic)).
				Msg("Subscriber buffer full, dropping event")
		}
	}

	if delivered > 0 {
		b.logger.Debug().
			Str("topic", string(event.Topic)).
			Str("shop", event.Shop).
			Int("subscribers", delivered).
			Msg("Published webhook event")
	}
}

func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

package webhook_handlers

import (
	"context"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

// OrderHandler persists order-family deliveries for the sweep to forward
type OrderHandler struct {
	orders ports.OrderRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewOrderHandler creates a new order webhook handler
func NewOrderHandler(orders ports.OrderRepository, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
		now:    time.Now,
	}
}

// CanHandle returns true if this handler can process the given topic
func (h *OrderHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic.IsOrderTopic()
}

// Handle stores the delivery. A redelivery with a known webhook id is
// acknowledged without creating a second record.
func (h *OrderHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	order := domain.NewOrderFromEvent(event, h.now().UTC())

	created, err := h.orders.InsertIfAbsent(ctx, order)
	if err != nil {
		return domain.NewPersistenceError("failed to save order webhook", err)
	}

	log := h.logger.Info()
	if !created {
		log = h.logger.Debug()
	}
	log.Str("topic", string(event.Topic)).
		Str("shop", event.Shop).
		Str("orderId", order.OrderID).
		Str("webhookId", event.WebhookID).
		Bool("duplicate", !created).
		Msg("Order webhook stored")
	return nil
}

package webhook_handlers

import (
	"context"
	"encoding/json"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
)

// ProductHandler logs catalog changes (products, collections, inventory)
type ProductHandler struct {
	logger zerolog.Logger
}

// NewProductHandler creates a new product webhook handler
func NewProductHandler(logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{logger: logger}
}

func (h *ProductHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic.IsCatalogTopic()
}

func (h *ProductHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var fields struct {
		ID          json.Number `json:"id"`
		Title       string      `json:"title"`
		Handle      string      `json:"handle"`
		InventoryID json.Number `json:"inventory_item_id"`
	}
	if err := json.Unmarshal(event.Payload, &fields); err != nil {
		h.logger.Debug().Err(err).Str("topic", string(event.Topic)).Msg("Webhook payload is not the expected shape")
	}

	h.logger.Info().
		Str("topic", string(event.Topic)).
		Str("shop", event.Shop).
		Str("id", fields.ID.String()).
		Str("title", fields.Title).
		Str("handle", fields.Handle).
		Str("inventoryItemId", fields.InventoryID.String()).
		Msg("Processing catalog webhook event")
	return nil
}

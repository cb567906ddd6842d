package webhook_handlers

import (
	"context"
	"encoding/json"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler handles app uninstalled webhook events
type AppUninstalledHandler struct {
	stores ports.StoreRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(stores ports.StoreRepository, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{stores: stores, logger: logger, now: time.Now}
}

// CanHandle returns true if this handler can process the given topic
func (h *AppUninstalledHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic == domain.TopicAppUninstalled
}

// Handle disables the store and drops its token. The record itself is kept
// for audit; a reinstall re-enables it.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload shopPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		h.logger.Debug().Err(err).Str("topic", string(event.Topic)).Msg("Webhook payload is not the expected shape")
	}

	shopDomain := firstNonEmpty(event.Shop, payload.MyshopifyDomain, payload.Domain)
	store, err := h.stores.FindByDomain(ctx, shopDomain)
	if err != nil {
		return domain.NewPersistenceError("failed to load store", err)
	}
	if store == nil {
		h.logger.Warn().Str("shop", shopDomain).Msg("Uninstall for unknown store")
		return nil
	}
	if store.Disabled {
		return nil
	}

	store.MarkUninstalled(h.now().UTC())
	if _, err := h.stores.Save(ctx, store); err != nil {
		return domain.NewPersistenceError("failed to disable store", err)
	}

	h.logger.Info().
		Str("shop", shopDomain).
		Str("shopId", store.ShopID).
		Msg("App uninstalled - store disabled")
	return nil
}

package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ShopHandler keeps the store record in step with shop/update and erases
// merchant data on shop/redact
type ShopHandler struct {
	stores ports.StoreRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewShopHandler(stores ports.StoreRepository, logger zerolog.Logger) *ShopHandler {
	return &ShopHandler{stores: stores, logger: logger, now: time.Now}
}

func (h *ShopHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic == domain.TopicShopUpdate || topic == domain.TopicShopRedact
}

type shopPayload struct {
	ID              json.Number `json:"id"`
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Domain          string      `json:"domain"`
	MyshopifyDomain string      `json:"myshopify_domain"`
	Currency        string      `json:"currency"`
	PlanDisplayName string      `json:"plan_display_name"`
	ShopDomain      string      `json:"shop_domain"`
}

func (h *ShopHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload shopPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("failed to parse shop webhook payload: %w", err)
	}

	shopDomain := firstNonEmpty(event.Shop, payload.MyshopifyDomain, payload.ShopDomain, payload.Domain)
	store, err := h.stores.FindByDomain(ctx, shopDomain)
	if err != nil {
		return domain.NewPersistenceError("failed to load store", err)
	}
	if store == nil {
		h.logger.Warn().
			Str("topic", string(event.Topic)).
			Str("shop", shopDomain).
			Msg("Shop webhook for unknown store")
		return nil
	}

	now := h.now().UTC()
	switch event.Topic {
	case domain.TopicShopRedact:
		store.Redact(now)
	default:
		store.Apply(domain.StoreUpsert{
			Name:             payload.Name,
			Email:            payload.Email,
			MyshopifyDomain:  payload.MyshopifyDomain,
			PrimaryDomainURL: payload.Domain,
			CurrencyCode:     payload.Currency,
			PlanDisplayName:  payload.PlanDisplayName,
		}, now)
	}

	if _, err := h.stores.Save(ctx, store); err != nil {
		return domain.NewPersistenceError("failed to save store", err)
	}

	h.logger.Info().
		Str("topic", string(event.Topic)).
		Str("shop", shopDomain).
		Str("shopId", store.ShopID).
		Msg("Store updated from shop webhook")
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

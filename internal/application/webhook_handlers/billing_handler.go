package webhook_handlers

import (
	"context"
	"encoding/json"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
)

type BillingHandler struct {
	logger zerolog.Logger
}

func NewBillingHandler(logger zerolog.Logger) *BillingHandler {
	return &BillingHandler{logger: logger}
}

func (h *BillingHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic.IsBillingTopic()
}

func (h *BillingHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var fields struct {
		AppSubscription struct {
			AdminGraphqlAPIID string `json:"admin_graphql_api_id"`
			Name              string `json:"name"`
			Status            string `json:"status"`
		} `json:"app_subscription"`
		SubscriptionContractID json.Number `json:"subscription_contract_id"`
		ErrorMessage           string      `json:"error_message"`
	}
	if err := json.Unmarshal(event.Payload, &fields); err != nil {
		h.logger.Debug().Err(err).Str("topic", string(event.Topic)).Msg("Webhook payload is not the expected shape")
	}

	ev := h.logger.Info()
	if event.Topic == domain.TopicBillingAttemptFailed {
		ev = h.logger.Warn()
	}
	ev.Str("topic", string(event.Topic)).
		Str("shop", event.Shop).
		Str("subscription", fields.AppSubscription.AdminGraphqlAPIID).
		Str("status", fields.AppSubscription.Status).
		Str("contractId", fields.SubscriptionContractID.String()).
		Str("error", fields.ErrorMessage).
		Msg("Processing billing webhook event")
	return nil
}

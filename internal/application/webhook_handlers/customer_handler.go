package webhook_handlers

import (
	"context"
	"encoding/json"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
)

// CustomerHandler acknowledges customer events, including the compliance
// redact and data_request topics. No customer data is retained, so there is
// nothing to erase or export.
type CustomerHandler struct {
	logger zerolog.Logger
}

// NewCustomerHandler creates a new customer webhook handler
func NewCustomerHandler(logger zerolog.Logger) *CustomerHandler {
	return &CustomerHandler{logger: logger}
}

func (h *CustomerHandler) CanHandle(topic domain.WebhookTopic) bool {
	return topic.IsCustomerTopic()
}

func (h *CustomerHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var fields struct {
		ID       json.Number `json:"id"`
		Customer struct {
			ID json.Number `json:"id"`
		} `json:"customer"`
	}
	if err := json.Unmarshal(event.Payload, &fields); err != nil {
		h.logger.Debug().Err(err).Str("topic", string(event.Topic)).Msg("Webhook payload is not the expected shape")
	}

	customerID := fields.ID.String()
	if customerID == "" {
		customerID = fields.Customer.ID.String()
	}

	h.logger.Info().
		Str("topic", string(event.Topic)).
		Str("shop", event.Shop).
		Str("customerId", customerID).
		Msg("Processing customer webhook event")

	switch event.Topic {
	case domain.TopicCustomersRedact:
		h.logger.Info().Str("shop", event.Shop).Str("customerId", customerID).Msg("Customer redaction acknowledged")
	case domain.TopicCustomersDataRequest:
		h.logger.Info().Str("shop", event.Shop).Str("customerId", customerID).Msg("Customer data request acknowledged")
	}
	return nil
}

package api

import (
	"io"
	"net/http"
	"time"

	"shopify-integration-layer/internal/application"
	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/infrastructure/pubsub"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Webhook request headers set by the platform
const (
	HeaderHmac      = "X-Shopify-Hmac-Sha256"
	HeaderTopic     = "X-Shopify-Topic"
	HeaderShop      = "X-Shopify-Shop-Domain"
	HeaderWebhookID = "X-Shopify-Webhook-Id"
)

// WebhookOptions configures the webhook receiver
type WebhookOptions struct {
	// Verify is false only for local development
	Verify bool
}

// webhookHandler handles Shopify webhook requests
func webhookHandler(
	verifier ports.WebhookVerifier,
	dispatcher *application.WebhookDispatcher,
	bus *pubsub.EventBus,
	metrics ports.Metrics,
	opts WebhookOptions,
	logger zerolog.Logger,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topic := domain.WebhookTopic(r.Header.Get(HeaderTopic))
		if topic == "" {
			logger.Warn().Msg("Missing X-Shopify-Topic header")
			WriteError(w, domain.NewClientError("Missing X-Shopify-Topic header"), logger)
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read webhook payload")
			WriteError(w, domain.NewClientError("Failed to read request body"), logger)
			return
		}
		defer r.Body.Close()

		hmac := r.Header.Get(HeaderHmac)
		if opts.Verify {
			if err := verifier.Verify(payload, hmac); err != nil {
				logger.Warn().
					Err(err).
					Str("topic", string(topic)).
					Str("shop", r.Header.Get(HeaderShop)).
					Msg("Webhook signature verification failed")
				metrics.WebhookReceived(string(topic), "rejected")
				WriteError(w, domain.NewUnauthorizedError("Invalid webhook signature"), logger)
				return
			}
		}

		event := &domain.WebhookEvent{
			Topic:      topic,
			Shop:       r.Header.Get(HeaderShop),
			WebhookID:  r.Header.Get(HeaderWebhookID),
			HMAC:       hmac,
			Payload:    payload,
			Verified:   opts.Verify,
			ReceivedAt: time.Now().UTC(),
		}

		handled, err := dispatcher.Dispatch(r.Context(), event)
		if err != nil {
			logger.Error().
				Err(err).
				Str("topic", string(topic)).
				Str("shop", event.Shop).
				Msg("Failed to dispatch webhook event")
			metrics.WebhookReceived(string(topic), "error")
			// 500 makes the platform retry the delivery
			WriteError(w, err, logger)
			return
		}

		bus.Publish(event)
		outcome := "handled"
		if !handled {
			outcome = "ignored"
		}
		metrics.WebhookReceived(string(topic), outcome)

		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}

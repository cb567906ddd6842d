package ports

import (
	"context"

	"shopify-integration-layer/internal/domain"
)

// WebhookHandler processes webhook events of the topics it accepts
type WebhookHandler interface {
	CanHandle(topic domain.WebhookTopic) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

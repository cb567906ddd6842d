package ports

import (
	"context"

	"shopify-integration-layer/internal/domain"
)

// OrderConsumer is the downstream system pending orders are forwarded to
type OrderConsumer interface {
	Deliver(ctx context.Context, order *domain.Order) error
}

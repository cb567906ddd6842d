package ports

import (
	"context"
	"time"

	"shopify-integration-layer/internal/domain"
)

// StoreRepository is the Store Directory. Find methods return nil, nil when
// no store matches.
type StoreRepository interface {
	FindByShopID(ctx context.Context, shopID string) (*domain.Store, error)
	FindByAccessToken(ctx context.Context, accessToken string) (*domain.Store, error)
	FindByDomain(ctx context.Context, shopDomain string) (*domain.Store, error)

	// Save upserts the store keyed by its ShopID
	Save(ctx context.Context, store *domain.Store) (*domain.Store, error)
}

// OrderRepository persists order-family webhook deliveries
type OrderRepository interface {
	// InsertIfAbsent stores the order unless a record with the same
	// webhook id already exists. Orders without a webhook id are always
	// inserted. It reports whether a new record was created.
	InsertIfAbsent(ctx context.Context, order *domain.Order) (bool, error)

	// FindPending returns up to limit records whose isProcessed flag is not
	// true and whose id sorts after afterID, in id order. An empty afterID
	// starts from the oldest record.
	FindPending(ctx context.Context, afterID string, limit int) ([]*domain.Order, error)

	// MarkProcessed flips isProcessed to true. Already processed records
	// are left untouched.
	MarkProcessed(ctx context.Context, id string, at time.Time) error

	// RecordFailure stores the last delivery error and bumps the attempt count
	RecordFailure(ctx context.Context, id string, reason string) error
}

// RequestLogRepository stores API request/response observability records
type RequestLogRepository interface {
	Create(ctx context.Context, entry *domain.RequestLog) error
}

package ports

import (
	"context"
	"time"

	"shopify-integration-layer/internal/domain"
)

// StateStore keeps issued OAuth states until they are redeemed or expire
type StateStore interface {
	Save(ctx context.Context, state *domain.OAuthState, ttl time.Duration) error

	// Consume returns and removes the state. It returns nil, nil when the
	// state is unknown or already expired.
	Consume(ctx context.Context, state string) (*domain.OAuthState, error)
}

// Lease is a held lock
type Lease interface {
	// Extend pushes the expiry to ttl from now. It reports false when the
	// lease already expired and may belong to another holder.
	Extend(ctx context.Context, ttl time.Duration) (bool, error)

	// Release drops the lock if this holder still owns it
	Release(ctx context.Context) error
}

// Locker provides a lease-based mutual exclusion across instances
type Locker interface {
	// TryLock acquires key for ttl. The lease is nil when another holder
	// owns the key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

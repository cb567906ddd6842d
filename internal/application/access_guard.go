package application

import (
	"context"
	"strings"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	// AccessHeader carries the merchant access token on guarded routes
	AccessHeader = "X-Shopify-Access"

	DefaultAccessTokenPrefix = "shpua_"
)

// AccessGuard resolves the store behind an access token
type AccessGuard struct {
	stores ports.StoreRepository
	prefix string
	logger zerolog.Logger
}

// NewAccessGuard creates a guard. An empty prefix disables the prefix check.
func NewAccessGuard(stores ports.StoreRepository, prefix string, logger zerolog.Logger) *AccessGuard {
	return &AccessGuard{stores: stores, prefix: prefix, logger: logger}
}

// Authenticate returns the enabled store owning token
func (g *AccessGuard) Authenticate(ctx context.Context, token string) (*domain.Store, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.NewUnauthorizedError("Missing " + AccessHeader + " header")
	}
	if g.prefix != "" && !strings.HasPrefix(token, g.prefix) {
		return nil, domain.NewUnauthorizedError("Invalid access token format")
	}

	store, err := g.stores.FindByAccessToken(ctx, token)
	if err != nil {
		g.logger.Error().Err(err).Msg("Failed to look up access token")
		return nil, domain.NewPersistenceError("failed to look up access token", err)
	}
	if store == nil {
		return nil, domain.NewUnauthorizedError("Invalid access token")
	}
	if store.Disabled {
		return nil, domain.NewUnauthorizedError("Store is disabled")
	}
	return store, nil
}

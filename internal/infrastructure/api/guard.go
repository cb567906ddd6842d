package api

import (
	"context"
	"net/http"

	"shopify-integration-layer/internal/application"
	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
)

// Authenticator resolves the store behind an access token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Store, error)
}

// StoreHandlerFunc is a handler that runs on behalf of an authenticated store
type StoreHandlerFunc func(w http.ResponseWriter, r *http.Request, store *domain.Store)

// RequireStore authenticates the X-Shopify-Access header before calling next
func RequireStore(auth Authenticator, logger zerolog.Logger, next StoreHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := auth.Authenticate(r.Context(), r.Header.Get(application.AccessHeader))
		if err != nil {
			WriteError(w, err, logger)
			return
		}
		next(w, r, store)
	}
}

package ports

import (
	"context"
	"net/url"

	"shopify-integration-layer/internal/domain"
)

// OAuthClient implements the platform side of the install handshake
type OAuthClient interface {
	AuthorizeURL(shop string, state string) (string, error)
	VerifyCallback(query url.Values) bool
	ExchangeToken(ctx context.Context, shop string, code string) (*domain.TokenGrant, error)
}

// WebhookVerifier checks the signature of a raw webhook body
type WebhookVerifier interface {
	Verify(payload []byte, signature string) error
}

// AdminClient covers the typed Admin API calls made on install
type AdminClient interface {
	GetShop(ctx context.Context, shopDomain string, accessToken string) (*domain.ShopInfo, error)
	RegisterWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) error
}

// Gateway is the uniform outbound Admin REST surface on behalf of a store
type Gateway interface {
	ResolveStoreBaseURL(ctx context.Context, lookup StoreLookup) (domain.Target, error)
	TargetFor(store *domain.Store) domain.Target

	Get(ctx context.Context, target domain.Target, endpoint string) (*domain.APIResponse, error)
	Post(ctx context.Context, target domain.Target, endpoint string, body any) (*domain.APIResponse, error)
	Put(ctx context.Context, target domain.Target, endpoint string, body any) (*domain.APIResponse, error)

	// GetAccessScopes calls the unversioned oauth/access_scopes endpoint
	GetAccessScopes(ctx context.Context, target domain.Target) (*domain.APIResponse, error)
}

// StoreLookup identifies a store either by shop id or by access token
type StoreLookup struct {
	ShopID      string
	AccessToken string
}

// GraphQLClient executes documents against the Admin, Storefront and
// Partner GraphQL endpoints, decoding the data member into out
type GraphQLClient interface {
	Admin(ctx context.Context, target domain.Target, query string, variables map[string]any, out any) error
	Storefront(ctx context.Context, query string, variables map[string]any, out any) error
	Partner(ctx context.Context, query string, variables map[string]any, out any) error
}

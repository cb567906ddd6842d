package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/infrastructure/shopify"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// OAuthService runs the install handshake and keeps the store directory
// current
type OAuthService struct {
	oauth          ports.OAuthClient
	admin          ports.AdminClient
	gateway        ports.Gateway
	stores         ports.StoreRepository
	states         ports.StateStore
	webhookAddress string
	topics         []domain.WebhookTopic
	logger         zerolog.Logger
	now            func() time.Time
}

// OAuthServiceConfig holds the optional settings of the handshake
type OAuthServiceConfig struct {
	// WebhookAddress is the public URL subscriptions are registered
	// against; empty skips registration
	WebhookAddress string
	Topics         []domain.WebhookTopic
}

// NewOAuthService creates a new OAuth application service
func NewOAuthService(
	oauth ports.OAuthClient,
	admin ports.AdminClient,
	gateway ports.Gateway,
	stores ports.StoreRepository,
	states ports.StateStore,
	cfg OAuthServiceConfig,
	logger zerolog.Logger,
) *OAuthService {
	topics := cfg.Topics
	if len(topics) == 0 {
		topics = domain.DefaultSubscriptionTopics
	}
	return &OAuthService{
		oauth:          oauth,
		admin:          admin,
		gateway:        gateway,
		stores:         stores,
		states:         states,
		webhookAddress: cfg.WebhookAddress,
		topics:         topics,
		logger:         logger,
		now:            time.Now,
	}
}

// BuildInstallURL issues a fresh state for shop and returns the
// authorization URL the merchant is redirected to
func (s *OAuthService) BuildInstallURL(ctx context.Context, shop string) (string, error) {
	shop = strings.ToLower(domain.StripScheme(shop))
	if shop == "" {
		return "", domain.NewClientError("Missing shop parameter")
	}
	if !shopify.IsValidShopDomain(shop) {
		return "", domain.NewClientError("Invalid shop domain")
	}

	state, err := newState()
	if err != nil {
		return "", fmt.Errorf("failed to generate oauth state: %w", err)
	}

	now := s.now().UTC()
	if err := s.states.Save(ctx, &domain.OAuthState{
		State:     state,
		Shop:      shop,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.OAuthStateTTL),
	}, domain.OAuthStateTTL); err != nil {
		return "", domain.NewPersistenceError("failed to save oauth state", err)
	}

	authURL, err := s.oauth.AuthorizeURL(shop, state)
	if err != nil {
		return "", fmt.Errorf("failed to build authorization URL: %w", err)
	}

	s.logger.Info().
		Str("shop", shop).
		Msg("Generated OAuth authorization URL")
	return authURL, nil
}

// VerifyCallbackSignature checks the hmac parameter of a callback query
func (s *OAuthService) VerifyCallbackSignature(query url.Values) bool {
	return s.oauth.VerifyCallback(query)
}

// ExchangeCodeForToken trades an authorization code for an offline token
func (s *OAuthService) ExchangeCodeForToken(ctx context.Context, shop, code string) (*domain.TokenGrant, error) {
	return s.oauth.ExchangeToken(ctx, shop, code)
}

// UpsertStore creates or merges the store keyed by its shop id
func (s *OAuthService) UpsertStore(ctx context.Context, input domain.StoreUpsert) (*domain.Store, error) {
	if strings.TrimSpace(input.ShopID) == "" {
		return nil, domain.NewClientError("shopId is required")
	}

	store, err := s.stores.FindByShopID(ctx, input.ShopID)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to load store", err)
	}
	if store == nil {
		store = &domain.Store{}
	}
	store.Apply(input, s.now().UTC())

	saved, err := s.stores.Save(ctx, store)
	if err != nil {
		return nil, domain.NewPersistenceError("failed to save store", err)
	}

	s.logger.Info().
		Str("shopId", saved.ShopID).
		Str("shop", saved.Domain()).
		Msg("Store upserted")
	return saved, nil
}

// HandleCallback completes the handshake started by BuildInstallURL
func (s *OAuthService) HandleCallback(ctx context.Context, query url.Values) (*domain.Store, error) {
	shop := strings.ToLower(query.Get("shop"))
	code := query.Get("code")
	if shop == "" || code == "" || query.Get("hmac") == "" {
		return nil, domain.NewClientError("Missing required parameters")
	}

	if !s.oauth.VerifyCallback(query) {
		s.logger.Warn().Str("shop", shop).Msg("OAuth callback signature mismatch")
		return nil, domain.NewForbiddenError("HMAC validation failed")
	}

	if err := s.consumeState(ctx, query.Get("state"), shop); err != nil {
		return nil, err
	}

	grant, err := s.oauth.ExchangeToken(ctx, shop, code)
	if err != nil {
		return nil, err
	}

	info, scopes, err := s.fetchShopDetails(ctx, shop, grant)
	if err != nil {
		return nil, err
	}

	store, err := s.UpsertStore(ctx, domain.StoreUpsert{
		ShopID:           info.GID(),
		AccessToken:      grant.AccessToken,
		Name:             info.Name,
		MyshopifyDomain:  firstNonEmpty(info.MyshopifyDomain, shop),
		PrimaryDomainURL: info.Domain,
		Email:            info.Email,
		PlanDisplayName:  info.PlanDisplayName,
		CurrencyCode:     info.Currency,
		Scopes:           scopes,
	})
	if err != nil {
		return nil, err
	}

	s.registerWebhooks(ctx, store.Domain(), grant.AccessToken)
	return store, nil
}

func (s *OAuthService) consumeState(ctx context.Context, state, shop string) error {
	if state == "" {
		return domain.NewForbiddenError("Missing OAuth state")
	}
	issued, err := s.states.Consume(ctx, state)
	if err != nil {
		return domain.NewPersistenceError("failed to load oauth state", err)
	}
	if issued == nil || issued.Expired(s.now()) {
		return domain.NewForbiddenError("Unknown or expired OAuth state")
	}
	if !strings.EqualFold(issued.Shop, shop) {
		s.logger.Warn().
			Str("shop", shop).
			Str("issuedFor", issued.Shop).
			Msg("OAuth state issued for another shop")
		return domain.NewForbiddenError("OAuth state does not match shop")
	}
	return nil
}

// fetchShopDetails loads the shop profile and the granted scopes in
// parallel. The scope lookup is best effort; the grant's scopes are used
// when it fails.
func (s *OAuthService) fetchShopDetails(ctx context.Context, shop string, grant *domain.TokenGrant) (*domain.ShopInfo, []string, error) {
	var (
		info   *domain.ShopInfo
		scopes = grant.Scopes
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = s.admin.GetShop(gctx, shop, grant.AccessToken)
		if err != nil {
			return fmt.Errorf("failed to fetch shop info: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		target := domain.Target{
			Domain:      shop,
			AccessToken: grant.AccessToken,
		}
		resp, err := s.gateway.GetAccessScopes(gctx, target)
		if err != nil {
			s.logger.Warn().Err(err).Str("shop", shop).Msg("Failed to fetch access scopes")
			return nil
		}
		if handles := parseAccessScopes(resp.Data); len(handles) > 0 {
			scopes = handles
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if info.GID() == "" {
		return nil, nil, domain.NewUpstreamError(502, "Shop info did not include an id", nil)
	}
	return info, scopes, nil
}

func (s *OAuthService) registerWebhooks(ctx context.Context, shop, token string) {
	if s.webhookAddress == "" {
		return
	}
	for _, topic := range s.topics {
		if err := s.admin.RegisterWebhook(ctx, shop, token, string(topic), s.webhookAddress); err != nil {
			s.logger.Error().
				Err(err).
				Str("shop", shop).
				Str("topic", string(topic)).
				Msg("Failed to register webhook")
			continue
		}
		s.logger.Debug().
			Str("shop", shop).
			Str("topic", string(topic)).
			Msg("Webhook registered")
	}
}

func parseAccessScopes(raw json.RawMessage) []string {
	var body struct {
		AccessScopes []struct {
			Handle string `json:"handle"`
		} `json:"access_scopes"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	handles := make([]string, 0, len(body.AccessScopes))
	for _, sc := range body.AccessScopes {
		handles = append(handles, sc.Handle)
	}
	return handles
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// OAuthConfig holds the app credentials used during install
type OAuthConfig struct {
	APIKey      string
	APISecret   string
	RedirectURI string
	Scopes      []string
}

type oauthClient struct {
	app        goshopify.App
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewOAuthClient creates the install handshake adapter
func NewOAuthClient(cfg OAuthConfig, httpClient *http.Client, logger zerolog.Logger) ports.OAuthClient {
	return &oauthClient{
		app: goshopify.App{
			ApiKey:      cfg.APIKey,
			ApiSecret:   cfg.APISecret,
			RedirectUrl: cfg.RedirectURI,
			Scope:       strings.Join(cfg.Scopes, ","),
		},
		httpClient: instrument(httpClient, nil),
		logger:     logger,
	}
}

func (c *oauthClient) AuthorizeURL(shop string, state string) (string, error) {
	authURL, err := c.app.AuthorizeUrl(shop, state)
	if err != nil {
		return "", fmt.Errorf("failed to build authorize url: %w", err)
	}

	c.logger.Info().
		Str("shop", shop).
		Str("scopes", c.app.Scope).
		Msg("Generated OAuth authorization URL")

	return authURL, nil
}

// VerifyCallback checks the hmac query parameter of an OAuth callback
// with go-shopify. The library decodes hex case-insensitively, so anything
// but the lowercase form Shopify sends is refused first.
func (c *oauthClient) VerifyCallback(query url.Values) bool {
	provided := query.Get("hmac")
	if provided == "" || c.app.ApiSecret == "" || provided != strings.ToLower(provided) {
		return false
	}
	ok, err := c.app.VerifyAuthorizationURL(&url.URL{RawQuery: query.Encode()})
	if err != nil {
		c.logger.Debug().Err(err).Msg("Callback query could not be re-encoded")
		return false
	}
	return ok
}

// ExchangeToken posts the authorization code to the shop's token endpoint
// through a go-shopify client. The request mirrors App.GetAccessToken but
// also reads the granted scopes.
func (c *oauthClient) ExchangeToken(ctx context.Context, shop string, code string) (*domain.TokenGrant, error) {
	client, err := goshopify.NewClient(c.app, domain.StripScheme(shop), "", goshopify.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	ctx, ex := withExchange(ctx)
	req, err := client.NewRequest(ctx, http.MethodPost, "admin/oauth/access_token", map[string]string{
		"client_id":     c.app.ApiKey,
		"client_secret": c.app.ApiSecret,
		"code":          code,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := client.Do(req, &tokenResponse); err != nil {
		switch {
		case ex.status == 0:
			return nil, &domain.Error{Kind: domain.KindUpstream, Status: http.StatusBadGateway, Message: "failed to exchange token", Err: err}
		case ex.status >= http.StatusMultipleChoices:
			c.logger.Warn().
				Str("shop", shop).
				Int("status", ex.status).
				Msg("Token exchange rejected by Shopify")
			return nil, domain.NewUpstreamError(http.StatusBadRequest, "failed to get access token", upstreamDetails(ex.body))
		default:
			return nil, fmt.Errorf("failed to decode token response: %w", err)
		}
	}
	if tokenResponse.AccessToken == "" {
		return nil, domain.NewUpstreamError(http.StatusBadRequest, "token response did not include an access token", nil)
	}

	grant := &domain.TokenGrant{AccessToken: tokenResponse.AccessToken}
	for _, s := range strings.Split(tokenResponse.Scope, ",") {
		if s = strings.TrimSpace(s); s != "" {
			grant.Scopes = append(grant.Scopes, s)
		}
	}
	return grant, nil
}

// IsValidShopDomain accepts only *.myshopify.com hosts
func IsValidShopDomain(shop string) bool {
	shop = strings.ToLower(strings.TrimSpace(shop))
	if !strings.HasSuffix(shop, ".myshopify.com") {
		return false
	}
	name := strings.TrimSuffix(shop, ".myshopify.com")
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

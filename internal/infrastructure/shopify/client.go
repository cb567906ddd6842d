package shopify

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

type client struct {
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewAdminClient creates the go-shopify backed adapter used after install
func NewAdminClient(apiKey, apiSecret, apiVersion string, httpClient *http.Client, logger zerolog.Logger) ports.AdminClient {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		httpClient: httpClient,
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	opts := []goshopify.Option{goshopify.WithVersion(c.apiVersion)}
	if c.httpClient != nil {
		opts = append(opts, goshopify.WithHTTPClient(c.httpClient))
	}
	client, err := goshopify.NewClient(c.app, shopDomain, accessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (c *client) GetShop(ctx context.Context, shopDomain string, accessToken string) (*domain.ShopInfo, error) {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return nil, err
	}
	shop, err := client.Shop.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}
	return &domain.ShopInfo{
		ID:              shop.Id,
		Name:            shop.Name,
		Email:           shop.Email,
		Domain:          shop.Domain,
		MyshopifyDomain: shop.MyshopifyDomain,
		Currency:        shop.Currency,
		PlanDisplayName: shop.PlanDisplayName,
	}, nil
}

// RegisterWebhook subscribes the address to a topic. An already registered
// address is not an error.
func (c *client) RegisterWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) error {
	client, err := c.createClient(shopDomain, accessToken)
	if err != nil {
		return err
	}
	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	if _, err := client.Webhook.Create(ctx, webhook); err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "address") && strings.Contains(msg, "taken") {
			c.logger.Debug().Str("shop", shopDomain).Str("topic", topic).Msg("Webhook already registered")
			return nil
		}
		return fmt.Errorf("failed to create webhook for %s: %w", topic, err)
	}
	return nil
}

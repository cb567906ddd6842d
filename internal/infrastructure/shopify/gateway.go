package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// Gateway performs Admin REST calls for a resolved store through a
// per-store go-shopify client. It does not retry; upstream errors are
// returned to the caller with the platform's body.
type Gateway struct {
	stores     ports.StoreRepository
	httpClient *http.Client
	apiVersion string
	logger     zerolog.Logger
}

// NewGateway creates the Admin REST gateway. Every response is reported to
// metrics by the client's transport.
func NewGateway(
	stores ports.StoreRepository,
	httpClient *http.Client,
	apiVersion string,
	metrics ports.Metrics,
	logger zerolog.Logger,
) *Gateway {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	return &Gateway{
		stores:     stores,
		httpClient: instrument(httpClient, metrics),
		apiVersion: apiVersion,
		logger:     logger,
	}
}

// ResolveStoreBaseURL looks the store up by shop id or access token
func (g *Gateway) ResolveStoreBaseURL(ctx context.Context, lookup ports.StoreLookup) (domain.Target, error) {
	var (
		store *domain.Store
		err   error
	)
	switch {
	case lookup.ShopID != "":
		store, err = g.stores.FindByShopID(ctx, lookup.ShopID)
	case lookup.AccessToken != "":
		store, err = g.stores.FindByAccessToken(ctx, lookup.AccessToken)
	default:
		return domain.Target{}, domain.NewClientError("shopId or accessToken is required")
	}
	if err != nil {
		return domain.Target{}, domain.NewPersistenceError("failed to resolve store", err)
	}
	if store == nil {
		return domain.Target{}, domain.NewNotFoundError("store not found")
	}
	return g.TargetFor(store), nil
}

// TargetFor builds https://{domain}/admin/api/{version} for a store
func (g *Gateway) TargetFor(store *domain.Store) domain.Target {
	host := store.Domain()
	return domain.Target{
		ShopID:      store.ShopID,
		Domain:      host,
		BaseURL:     fmt.Sprintf("%s/admin/api/%s", goshopify.ShopBaseUrl(host), g.apiVersion),
		AccessToken: store.AccessToken,
	}
}

func (g *Gateway) createClient(target domain.Target) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(goshopify.App{}, target.Domain, target.AccessToken,
		goshopify.WithVersion(g.apiVersion),
		goshopify.WithHTTPClient(g.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Get issues a GET and returns the page cursors of the Link header
func (g *Gateway) Get(ctx context.Context, target domain.Target, endpoint string) (*domain.APIResponse, error) {
	client, err := g.createClient(target)
	if err != nil {
		return nil, err
	}
	g.logCall(http.MethodGet, endpoint, target)

	ctx, ex := withExchange(ctx)
	var raw json.RawMessage
	page, err := client.ListWithPagination(ctx, endpoint, &raw, nil)
	if err != nil && !emptyBody(err, ex) {
		return nil, g.upstreamError(http.MethodGet, endpoint, err, ex)
	}
	return g.response(raw, page, ex), nil
}

func (g *Gateway) Post(ctx context.Context, target domain.Target, endpoint string, body any) (*domain.APIResponse, error) {
	return g.send(ctx, http.MethodPost, target, endpoint, body)
}

func (g *Gateway) Put(ctx context.Context, target domain.Target, endpoint string, body any) (*domain.APIResponse, error) {
	return g.send(ctx, http.MethodPut, target, endpoint, body)
}

// GetAccessScopes reads oauth/access_scopes.json, which lives outside the
// versioned prefix
func (g *Gateway) GetAccessScopes(ctx context.Context, target domain.Target) (*domain.APIResponse, error) {
	client, err := g.createClient(target)
	if err != nil {
		return nil, err
	}
	const scopesPath = "admin/oauth/access_scopes.json"
	g.logCall(http.MethodGet, scopesPath, target)

	ctx, ex := withExchange(ctx)
	req, err := client.NewRequest(ctx, http.MethodGet, scopesPath, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var raw json.RawMessage
	if err := client.Do(req, &raw); err != nil && !emptyBody(err, ex) {
		return nil, g.upstreamError(http.MethodGet, scopesPath, err, ex)
	}
	return g.response(raw, nil, ex), nil
}

func (g *Gateway) send(ctx context.Context, method string, target domain.Target, endpoint string, body any) (*domain.APIResponse, error) {
	client, err := g.createClient(target)
	if err != nil {
		return nil, err
	}
	g.logCall(method, endpoint, target)

	ctx, ex := withExchange(ctx)
	var raw json.RawMessage
	if err := client.CreateAndDo(ctx, method, endpoint, body, nil, &raw); err != nil && !emptyBody(err, ex) {
		return nil, g.upstreamError(method, endpoint, err, ex)
	}
	return g.response(raw, nil, ex), nil
}

func (g *Gateway) logCall(method, endpoint string, target domain.Target) {
	g.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Str("shop", target.Domain).
		Msg("Shopify API call")
}

func (g *Gateway) response(raw json.RawMessage, page *goshopify.Pagination, ex *exchange) *domain.APIResponse {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("null")
	}
	return &domain.APIResponse{
		Data:       raw,
		Pagination: cursorsOf(page),
		StatusCode: ex.status,
	}
}

// emptyBody reports a 2xx answer with nothing to decode
func emptyBody(err error, ex *exchange) bool {
	return errors.Is(err, io.EOF) && ex.status >= 200 && ex.status < 300
}

// upstreamError maps go-shopify failures onto domain errors. The status
// comes from the library's ResponseError; the details from the raw body.
func (g *Gateway) upstreamError(method, endpoint string, err error, ex *exchange) error {
	if ex.status == 0 {
		return &domain.Error{
			Kind:    domain.KindUpstream,
			Status:  http.StatusBadGateway,
			Message: "Shopify API request failed",
			Err:     err,
		}
	}
	if ex.status < http.StatusMultipleChoices {
		return fmt.Errorf("failed to decode Shopify response: %w", err)
	}

	g.logger.Warn().
		Err(err).
		Str("method", method).
		Str("endpoint", endpoint).
		Int("status", ex.status).
		Msg("Shopify API returned an error")
	return responseError(err, ex)
}

// responseError reads the status off go-shopify's ResponseError and keeps
// the raw body as details, falling back to the library's flattened list
func responseError(err error, ex *exchange) error {
	status := ex.status
	var flattened []string

	var rateErr goshopify.RateLimitError
	var respErr goshopify.ResponseError
	switch {
	case errors.As(err, &rateErr):
		status, flattened = rateErr.Status, rateErr.Errors
	case errors.As(err, &respErr):
		status, flattened = respErr.Status, respErr.Errors
	}

	if upstreamDetails(ex.body) == nil && len(flattened) > 0 {
		return domain.NewUpstreamError(status, fmt.Sprintf("Shopify API error (status %d)", status), flattened)
	}
	return normalizeError(status, ex.body)
}

// normalizeError surfaces the upstream body: its errors member when present,
// otherwise the whole document
func normalizeError(status int, raw []byte) error {
	details := upstreamDetails(raw)
	if details == nil {
		return domain.NewUpstreamError(status, "Shopify API error", nil)
	}
	return domain.NewUpstreamError(status, fmt.Sprintf("Shopify API error (status %d)", status), details)
}

func upstreamDetails(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw)
	}
	if obj, ok := doc.(map[string]any); ok {
		if errs, ok := obj["errors"]; ok {
			return errs
		}
		if msg, ok := obj["error_description"]; ok {
			return msg
		}
	}
	return doc
}

package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// DefaultPartnerAPIURL is the Partner API host
const DefaultPartnerAPIURL = "https://partners.shopify.com"

type GraphQLError struct {
	Message    string `json:"message"`
	Path       []any  `json:"path,omitempty"`
	Extensions struct {
		Code string `json:"code,omitempty"`
	} `json:"extensions,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLConfig configures the Storefront and Partner endpoints
type GraphQLConfig struct {
	APIVersion       string
	StorefrontDomain string
	StorefrontToken  string
	PartnerToken     string
	PartnerAPIURL    string
}

type graphQLClient struct {
	cfg        GraphQLConfig
	httpClient *http.Client
	scheme     string
	logger     zerolog.Logger
}

// NewGraphQLClient creates the Admin, Storefront and Partner GraphQL client
func NewGraphQLClient(cfg GraphQLConfig, httpClient *http.Client, logger zerolog.Logger, opts ...Option) ports.GraphQLClient {
	s := applyOptions(opts)
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.PartnerAPIURL == "" {
		cfg.PartnerAPIURL = DefaultPartnerAPIURL
	}
	return &graphQLClient{
		cfg:        cfg,
		httpClient: httpClient,
		scheme:     s.scheme,
		logger:     logger,
	}
}

func (c *graphQLClient) Admin(ctx context.Context, target domain.Target, query string, variables map[string]any, out any) error {
	return c.execute(ctx, target.BaseURL+"/graphql.json", map[string]string{
		AccessTokenHeader: target.AccessToken,
	}, query, variables, out)
}

func (c *graphQLClient) Storefront(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.cfg.StorefrontDomain == "" || c.cfg.StorefrontToken == "" {
		return domain.NewClientError("storefront API is not configured")
	}
	endpoint := fmt.Sprintf("%s://%s/api/%s/graphql.json", c.scheme, domain.StripScheme(c.cfg.StorefrontDomain), c.cfg.APIVersion)
	return c.execute(ctx, endpoint, map[string]string{
		"X-Shopify-Storefront-Access-Token": c.cfg.StorefrontToken,
	}, query, variables, out)
}

func (c *graphQLClient) Partner(ctx context.Context, query string, variables map[string]any, out any) error {
	if c.cfg.PartnerToken == "" {
		return domain.NewClientError("partner API is not configured")
	}
	endpoint := fmt.Sprintf("%s/api/%s/graphql.json", strings.TrimSuffix(c.cfg.PartnerAPIURL, "/"), c.cfg.APIVersion)
	return c.execute(ctx, endpoint, map[string]string{
		"Authorization": "Bearer " + c.cfg.PartnerToken,
	}, query, variables, out)
}

func (c *graphQLClient) execute(ctx context.Context, endpoint string, headers map[string]string, query string, variables map[string]any, out any) error {
	if err := ValidateDocument(query); err != nil {
		return err
	}

	body := map[string]any{"query": query}
	if len(variables) > 0 {
		body["variables"] = variables
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.Error{Kind: domain.KindUpstream, Status: http.StatusBadGateway, Message: "GraphQL request failed", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read graphql response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("GraphQL endpoint returned an error")
		return normalizeError(resp.StatusCode, raw)
	}

	var decoded graphQLResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("failed to decode graphql response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return domain.NewUpstreamError(http.StatusBadRequest, decoded.Errors[0].Message, decoded.Errors)
	}
	if out != nil && len(decoded.Data) > 0 {
		if err := json.Unmarshal(decoded.Data, out); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
	}
	return nil
}

// ValidateDocument parses a GraphQL document and rejects syntax errors
// before any request is sent
func ValidateDocument(query string) error {
	if strings.TrimSpace(query) == "" {
		return domain.NewClientError("empty GraphQL document")
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: "request", Input: query})
	if err != nil {
		return domain.NewClientError(fmt.Sprintf("invalid GraphQL document: %v", err))
	}
	if len(doc.Operations) == 0 {
		return domain.NewClientError("GraphQL document has no operation")
	}
	return nil
}

// IsUserError reports whether err came from GraphQL-level errors rather
// than a transport failure
func IsUserError(err error) bool {
	var de *domain.Error
	return errors.As(err, &de) && de.Kind == domain.KindUpstream && de.Status == http.StatusBadRequest
}

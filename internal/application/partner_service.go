package application

import (
	"context"
	"encoding/json"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

const defaultStorePlan = "partner_test"

const storeCreateMutation = `mutation storeCreate($input: StoreCreateInput!) {
  storeCreate(input: $input) {
    shop { id name myshopifyDomain }
    userErrors { field message }
  }
}`

const organizationsQuery = `query organizations {
  organizations(first: 5) {
    edges {
      node {
        id
        name
        stores(first: 10) {
          edges { node { id shopDomain name planName createdAt } }
        }
      }
    }
  }
}`

const appsQuery = `query apps {
  apps(first: 10) {
    edges { node { id title appType createdAt } }
  }
}`

// CreateStoreInput describes a development store to create
type CreateStoreInput struct {
	Name       string `json:"name"`
	ShopDomain string `json:"shopDomain"`
	UserEmail  string `json:"userEmail"`
	ShopOwner  string `json:"shopOwner"`
	Password   string `json:"password"`
	Plan       string `json:"plan,omitempty"`
}

// CreateStoreResult is returned after a successful storeCreate
type CreateStoreResult struct {
	Message string          `json:"message"`
	Shop    json.RawMessage `json:"shop"`
}

// PartnerService talks to the Partner API on behalf of the partner account
type PartnerService struct {
	graphql ports.GraphQLClient
	logger  zerolog.Logger
}

func NewPartnerService(graphql ports.GraphQLClient, logger zerolog.Logger) *PartnerService {
	return &PartnerService{graphql: graphql, logger: logger}
}

// CreateStore creates a store, defaulting to a development plan. userErrors
// are returned as a 400 carrying the error list.
func (s *PartnerService) CreateStore(ctx context.Context, in CreateStoreInput) (*CreateStoreResult, error) {
	if in.Name == "" || in.ShopDomain == "" {
		return nil, domain.NewClientError("name and shopDomain are required")
	}
	if in.Plan == "" {
		in.Plan = defaultStorePlan
	}

	var out struct {
		StoreCreate struct {
			Shop       json.RawMessage `json:"shop"`
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
			} `json:"userErrors"`
		} `json:"storeCreate"`
	}
	if err := s.graphql.Partner(ctx, storeCreateMutation, map[string]any{"input": in}, &out); err != nil {
		return nil, err
	}
	if errs := out.StoreCreate.UserErrors; len(errs) > 0 {
		s.logger.Warn().
			Str("shopDomain", in.ShopDomain).
			Str("error", errs[0].Message).
			Msg("Partner store creation rejected")
		return nil, domain.NewUpstreamError(400, "Shopify API Error", errs)
	}

	s.logger.Info().Str("shopDomain", in.ShopDomain).Str("plan", in.Plan).Msg("Partner store created")
	return &CreateStoreResult{Message: "Store created successfully", Shop: out.StoreCreate.Shop}, nil
}

func (s *PartnerService) GetOrganizations(ctx context.Context) (json.RawMessage, error) {
	var out struct {
		Organizations json.RawMessage `json:"organizations"`
	}
	if err := s.graphql.Partner(ctx, organizationsQuery, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Organizations) == 0 || string(out.Organizations) == "null" {
		return json.RawMessage(`{"message":"No organizations found"}`), nil
	}
	return out.Organizations, nil
}

func (s *PartnerService) GetApps(ctx context.Context) (json.RawMessage, error) {
	var out struct {
		Apps json.RawMessage `json:"apps"`
	}
	if err := s.graphql.Partner(ctx, appsQuery, nil, &out); err != nil {
		return nil, err
	}
	if len(out.Apps) == 0 {
		return json.RawMessage("null"), nil
	}
	return out.Apps, nil
}

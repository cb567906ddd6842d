package application

import (
	"context"
	"encoding/json"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	defaultStorefrontLimit = 10
	maxStorefrontLimit     = 250
)

const storefrontShopFields = `
  shop {
    name
    description
    primaryDomain { url host }
    moneyFormat
    shipsToCountries
  }`

const storefrontProductsQuery = `query getProducts($limit: Int!) {` + storefrontShopFields + `
  products(first: $limit) {
    edges {
      cursor
      node {
        id
        title
        handle
        description
        images(first: 3) { edges { node { url altText } } }
        variants(first: 2) { edges { node { id title price { amount currencyCode } } } }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

const storefrontProductByHandleQuery = `query getProductByHandle($handle: String!) {
  product(handle: $handle) {
    id
    title
    description
    images(first: 5) { edges { node { url altText } } }
    variants(first: 5) { edges { node { id title price { amount currencyCode } } } }
  }
}`

const storefrontShopQuery = `query shopInfo {
  shop {
    name
    primaryDomain { url }
  }
}`

const storefrontCollectionsQuery = `query getPublicCollections($first: Int!) {
  collections(first: $first) {
    edges { node { id title description handle image { url altText } } }
  }
}`

// searchQuery builds the search document. Paging backwards from a cursor
// uses last instead of first.
func searchQuery(backward bool) string {
	window := "first: $limit"
	if backward {
		window = "last: $limit"
	}
	return `query SearchProducts($query: String!, $limit: Int!, $after: String, $before: String) {` + storefrontShopFields + `
  search(after: $after, before: $before, ` + window + `, query: $query) {
    totalCount
    edges {
      cursor
      node {
        ... on Product {
          id
          title
          handle
          description
          featuredImage { url altText }
          images(first: 5) { edges { node { url altText } } }
          variants(first: 3) { edges { node { id title price { amount currencyCode } } } }
        }
      }
    }
    pageInfo { hasNextPage hasPreviousPage startCursor endCursor }
  }
}`
}

type edge struct {
	Cursor string         `json:"cursor"`
	Node   map[string]any `json:"node"`
}

type pageInfo struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	StartCursor     string `json:"startCursor"`
	EndCursor       string `json:"endCursor"`
}

// flatten merges each edge cursor into its node
func flatten(edges []edge) []map[string]any {
	items := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		item := make(map[string]any, len(e.Node)+1)
		for k, v := range e.Node {
			item[k] = v
		}
		item["cursor"] = e.Cursor
		items = append(items, item)
	}
	return items
}

// StorefrontProducts is a page of public products with the shop profile
type StorefrontProducts struct {
	Store       json.RawMessage  `json:"store"`
	Products    []map[string]any `json:"products"`
	HasNextPage bool             `json:"hasNextPage"`
	NextCursor  string           `json:"nextCursor"`
}

// SearchPagination are the cursors of a search page
type SearchPagination struct {
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	NextCursor      string `json:"nextCursor"`
	PreviousCursor  string `json:"previousCursor"`
}

// SearchResult is one page of a storefront search
type SearchResult struct {
	Store      json.RawMessage  `json:"store"`
	Products   []map[string]any `json:"products"`
	TotalCount int              `json:"totalCount"`
	Pagination SearchPagination `json:"pagination"`
}

// SearchInput are the storefront search parameters
type SearchInput struct {
	Query  string
	Limit  int
	After  string
	Before string
}

// StorefrontService reads public catalog data through the Storefront API
type StorefrontService struct {
	graphql ports.GraphQLClient
	logger  zerolog.Logger
}

func NewStorefrontService(graphql ports.GraphQLClient, logger zerolog.Logger) *StorefrontService {
	return &StorefrontService{graphql: graphql, logger: logger}
}

func (s *StorefrontService) GetProducts(ctx context.Context, limit int) (*StorefrontProducts, error) {
	var out struct {
		Shop     json.RawMessage `json:"shop"`
		Products struct {
			Edges    []edge   `json:"edges"`
			PageInfo pageInfo `json:"pageInfo"`
		} `json:"products"`
	}
	if err := s.graphql.Storefront(ctx, storefrontProductsQuery, map[string]any{"limit": clampLimit(limit)}, &out); err != nil {
		return nil, err
	}
	return &StorefrontProducts{
		Store:       out.Shop,
		Products:    flatten(out.Products.Edges),
		HasNextPage: out.Products.PageInfo.HasNextPage,
		NextCursor:  out.Products.PageInfo.EndCursor,
	}, nil
}

func (s *StorefrontService) GetProductByHandle(ctx context.Context, handle string) (json.RawMessage, error) {
	if handle == "" {
		return nil, domain.NewClientError("handle is required")
	}
	var out struct {
		Product json.RawMessage `json:"product"`
	}
	if err := s.graphql.Storefront(ctx, storefrontProductByHandleQuery, map[string]any{"handle": handle}, &out); err != nil {
		return nil, err
	}
	if len(out.Product) == 0 || string(out.Product) == "null" {
		return nil, domain.NewNotFoundError("product not found")
	}
	return out.Product, nil
}

func (s *StorefrontService) GetShopInfo(ctx context.Context) (json.RawMessage, error) {
	var out struct {
		Shop json.RawMessage `json:"shop"`
	}
	if err := s.graphql.Storefront(ctx, storefrontShopQuery, nil, &out); err != nil {
		return nil, err
	}
	return out.Shop, nil
}

func (s *StorefrontService) SearchProducts(ctx context.Context, in SearchInput) (*SearchResult, error) {
	if in.Query == "" {
		return nil, domain.NewClientError("query is required")
	}
	vars := map[string]any{"query": in.Query, "limit": clampLimit(in.Limit)}
	if in.After != "" {
		vars["after"] = in.After
	}
	if in.Before != "" {
		vars["before"] = in.Before
	}

	var out struct {
		Shop   json.RawMessage `json:"shop"`
		Search struct {
			TotalCount int      `json:"totalCount"`
			Edges      []edge   `json:"edges"`
			PageInfo   pageInfo `json:"pageInfo"`
		} `json:"search"`
	}
	if err := s.graphql.Storefront(ctx, searchQuery(in.Before != ""), vars, &out); err != nil {
		return nil, err
	}

	pi := out.Search.PageInfo
	return &SearchResult{
		Store:      out.Shop,
		Products:   flatten(out.Search.Edges),
		TotalCount: out.Search.TotalCount,
		Pagination: SearchPagination{
			HasNextPage:     pi.HasNextPage,
			HasPreviousPage: pi.HasPreviousPage,
			NextCursor:      pi.EndCursor,
			PreviousCursor:  pi.StartCursor,
		},
	}, nil
}

func (s *StorefrontService) GetCollections(ctx context.Context, first int) ([]map[string]any, error) {
	if first <= 0 {
		first = 5
	}
	var out struct {
		Collections struct {
			Edges []edge `json:"edges"`
		} `json:"collections"`
	}
	if err := s.graphql.Storefront(ctx, storefrontCollectionsQuery, map[string]any{"first": clampLimit(first)}, &out); err != nil {
		return nil, err
	}
	nodes := make([]map[string]any, 0, len(out.Collections.Edges))
	for _, e := range out.Collections.Edges {
		nodes = append(nodes, e.Node)
	}
	return nodes, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultStorefrontLimit
	case limit > maxStorefrontLimit:
		return maxStorefrontLimit
	}
	return limit
}

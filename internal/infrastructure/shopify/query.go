package shopify

import (
	"net/url"
	"strconv"
	"strings"

	"shopify-integration-layer/internal/domain"
)

// BuildQuery renders list parameters as a query string. published_status is
// never sent together with page_info since the platform rejects filters on
// cursor pages.
func BuildQuery(p domain.ListParams) string {
	var b queryBuilder
	b.add("title", p.Title)
	b.add("vendor", p.Vendor)
	b.add("product_type", p.ProductType)
	b.add("status", p.Status)
	b.add("collection_id", p.CollectionID)
	b.add("fields", p.Fields)
	if p.PageInfo == "" {
		b.add("published_status", p.PublishedStatus)
	}
	b.add("published_scope", p.PublishedScope)
	b.add("financial_status", p.FinancialStatus)
	b.add("fulfillment_status", p.FulfillmentStatus)
	if p.Limit > 0 {
		b.add("limit", strconv.Itoa(p.Limit))
	}
	if p.SortBy != "" && p.SortOrder != "" {
		b.add("order", p.SortBy+"_"+p.SortOrder)
	}
	b.add("page_info", p.PageInfo)
	return b.String()
}

// WithQuery appends the rendered parameters to an endpoint
func WithQuery(endpoint string, p domain.ListParams) string {
	q := BuildQuery(p)
	if q == "" {
		return endpoint
	}
	return endpoint + "?" + q
}

type queryBuilder struct {
	parts []string
}

func (b *queryBuilder) add(key, value string) {
	if value == "" {
		return
	}
	b.parts = append(b.parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
}

func (b *queryBuilder) String() string {
	return strings.Join(b.parts, "&")
}

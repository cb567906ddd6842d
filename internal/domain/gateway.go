package domain

import "encoding/json"

// Target is a resolved store endpoint for Admin API calls
type Target struct {
	ShopID      string
	Domain      string
	BaseURL     string
	AccessToken string
}

// Pagination holds the cursor tokens parsed from a Link response header
type Pagination struct {
	NextPageInfo *string `json:"nextPageInfo"`
	PrevPageInfo *string `json:"prevPageInfo"`
}

// APIResponse is a successful Admin API response
type APIResponse struct {
	Data       json.RawMessage `json:"data"`
	Pagination Pagination      `json:"pagination"`
	StatusCode int             `json:"-"`
}

// ListParams are the recognized filter and pagination parameters for
// product and order listings
type ListParams struct {
	Title             string `json:"title"`
	Vendor            string `json:"vendor"`
	ProductType       string `json:"product_type"`
	Status            string `json:"status"`
	CollectionID      string `json:"collection_id"`
	Fields            string `json:"fields"`
	PublishedStatus   string `json:"published_status"`
	PublishedScope    string `json:"published_scope"`
	FinancialStatus   string `json:"financial_status"`
	FulfillmentStatus string `json:"fulfillment_status"`
	Limit             int    `json:"limit"`
	SortBy            string `json:"sortBy"`
	SortOrder         string `json:"sortOrder"`
	PageInfo          string `json:"page_info"`
}

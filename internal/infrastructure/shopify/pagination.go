package shopify

import (
	"shopify-integration-layer/internal/domain"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// cursorsOf keeps the next and previous page_info cursors go-shopify read
// from the Link header. Missing relations are left nil.
func cursorsOf(page *goshopify.Pagination) domain.Pagination {
	var p domain.Pagination
	if page == nil {
		return p
	}
	if page.NextPageOptions != nil && page.NextPageOptions.PageInfo != "" {
		next := page.NextPageOptions.PageInfo
		p.NextPageInfo = &next
	}
	if page.PreviousPageOptions != nil && page.PreviousPageOptions.PageInfo != "" {
		prev := page.PreviousPageOptions.PageInfo
		p.PrevPageInfo = &prev
	}
	return p
}

package application

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStore = &domain.Store{
	ShopID:          "gid://shopify/Shop/1",
	MyshopifyDomain: "demo.myshopify.com",
	AccessToken:     "shpua_token",
}

func TestShopService_ListProductsUnwrapsAndPaginates(t *testing.T) {
	gw := newFakeGateway()
	next := "abc"
	gw.responses["GET products.json?limit=5"] = &domain.APIResponse{
		Data:       json.RawMessage(`{"products":[{"id":1}]}`),
		Pagination: domain.Pagination{NextPageInfo: &next},
	}
	svc := NewShopService(gw, zerolog.Nop())

	page, err := svc.ListProducts(context.Background(), testStore, domain.ListParams{Limit: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(page.Items))
	require.NotNil(t, page.Pagination.NextPageInfo)
	assert.Equal(t, "abc", *page.Pagination.NextPageInfo)
	assert.Nil(t, page.Pagination.PrevPageInfo)
}

func TestShopService_ListOrdersDefaultsToEmptyList(t *testing.T) {
	gw := newFakeGateway()
	gw.on("GET", "orders.json", `{"orders":null}`)
	svc := NewShopService(gw, zerolog.Nop())

	page, err := svc.ListOrders(context.Background(), testStore, domain.ListParams{})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(page.Items))
}

func TestShopService_UpdateProductChecksExistenceFirst(t *testing.T) {
	gw := newFakeGateway()
	gw.fail("GET", "products/9.json", domain.NewUpstreamError(http.StatusNotFound, "Not Found", "Not Found"))
	svc := NewShopService(gw, zerolog.Nop())

	_, err := svc.UpdateProduct(context.Background(), testStore, "9", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, domain.StatusOf(err))
	assert.Equal(t, []string{"GET products/9.json"}, gw.methods())

	gw = newFakeGateway()
	svc = NewShopService(gw, zerolog.Nop())
	_, err = svc.UpdateProduct(context.Background(), testStore, "9", map[string]any{"title": "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GET products/9.json", "PUT products/9.json"}, gw.methods())
	assert.Equal(t, map[string]any{"product": map[string]any{"id": float64(9), "title": "x"}}, gw.body(1))
}

func TestShopService_RejectsNonNumericIDs(t *testing.T) {
	svc := NewShopService(newFakeGateway(), zerolog.Nop())
	_, err := svc.GetOrder(context.Background(), testStore, "../shop")
	assert.Equal(t, http.StatusBadRequest, domain.StatusOf(err))
}

func TestShopService_RequestFulfillmentDefaults(t *testing.T) {
	gw := newFakeGateway()
	svc := NewShopService(gw, zerolog.Nop())

	_, err := svc.RequestFulfillment(context.Background(), testStore, "7", FulfillmentRequest{
		LineItems: []LineItem{{ID: 3}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"POST orders/7/fulfillments.json"}, gw.methods())
	f := gw.body(0)["fulfillment"].(map[string]any)
	assert.Equal(t, "Manual Carrier", f["tracking_company"])
	assert.Equal(t, "N/A", f["tracking_number"])
	assert.Equal(t, "", f["tracking_url"])
	assert.Equal(t, true, f["notify_customer"])
	assert.NotContains(t, f, "location_id")
}

func TestShopService_UpdateFulfillmentBody(t *testing.T) {
	gw := newFakeGateway()
	svc := NewShopService(gw, zerolog.Nop())

	_, err := svc.UpdateFulfillment(context.Background(), testStore, "7", "11", FulfillmentUpdate{
		Status:         "success",
		ShipmentStatus: "delivered",
		TrackingNumber: "TN1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"PUT orders/7/fulfillments/11.json"}, gw.methods())
	assert.Equal(t, map[string]any{"fulfillment": map[string]any{
		"status":           "success",
		"shipment_status":  "delivered",
		"tracking_number":  "TN1",
		"tracking_company": "",
		"tracking_url":     "",
	}}, gw.body(0))
}

func TestShopService_CompleteOrderRunsThreeSteps(t *testing.T) {
	gw := newFakeGateway()
	gw.on("POST", "orders.json", `{"order":{"id":555,"currency":"EUR"}}`)
	svc := NewShopService(gw, zerolog.Nop())

	res, err := svc.CompleteOrder(context.Background(), testStore, CompleteOrderInput{
		Order:      map[string]any{"email": "a@b.test"},
		Amount:     "19.99",
		LocationID: 8,
		LineItems:  []LineItem{{ID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, &CompleteOrderResult{Message: "Order completed", OrderID: 555}, res)

	assert.Equal(t, []string{
		"POST orders.json",
		"POST orders/555/transactions.json",
		"POST orders/fulfillments.json",
	}, gw.methods())

	tx := gw.body(1)["transaction"].(map[string]any)
	assert.Equal(t, "sale", tx["kind"])
	assert.Equal(t, "success", tx["status"])
	assert.Equal(t, "19.99", tx["amount"])
	assert.Equal(t, "EUR", tx["currency"])

	f := gw.body(2)["fulfillment"].(map[string]any)
	assert.Equal(t, float64(555), f["order_id"])
	assert.Equal(t, float64(8), f["location_id"])
	assert.Equal(t, "manual", f["fulfillment_service"])
	assert.Equal(t, true, f["notify_customer"])
}

func TestShopService_CompleteOrderStopsOnCaptureFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.on("POST", "orders.json", `{"order":{"id":555}}`)
	gw.fail("POST", "orders/555/transactions.json", domain.NewUpstreamError(422, "bad amount", nil))
	svc := NewShopService(gw, zerolog.Nop())

	_, err := svc.CompleteOrder(context.Background(), testStore, CompleteOrderInput{Order: map[string]any{"x": 1}, Amount: "1"})
	assert.Equal(t, 422, domain.StatusOf(err))
	assert.Len(t, gw.methods(), 2)
}

func TestShopService_Themes(t *testing.T) {
	gw := newFakeGateway()
	gw.on("GET", "themes.json", `{"themes":[{"id":1,"role":"main"}]}`)
	gw.on("PUT", "themes/1.json", `{"theme":{"id":1,"role":"main"}}`)
	gw.on("POST", "themes.json", `{"theme":{"id":2}}`)
	svc := NewShopService(gw, zerolog.Nop())
	ctx := context.Background()

	themes, err := svc.ListThemes(ctx, testStore)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1,"role":"main"}]`, string(themes))

	theme, err := svc.PublishTheme(ctx, testStore, "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"role":"main"}`, string(theme))
	assert.Equal(t, map[string]any{"theme": map[string]any{"role": "main"}}, gw.body(1))

	_, err = svc.UploadTheme(ctx, testStore, ThemeUpload{Name: "Dawn", Src: "https://cdn.test/t.zip"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"theme": map[string]any{
		"name": "Dawn", "src": "https://cdn.test/t.zip", "role": "unpublished",
	}}, gw.body(2))
}

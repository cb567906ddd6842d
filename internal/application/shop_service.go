package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/infrastructure/shopify"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
)

// ShopService exposes Admin REST operations on behalf of an authenticated
// store
type ShopService struct {
	gateway ports.Gateway
	logger  zerolog.Logger
}

// NewShopService creates a new shop application service
func NewShopService(gateway ports.Gateway, logger zerolog.Logger) *ShopService {
	return &ShopService{gateway: gateway, logger: logger}
}

// Page is one page of a list endpoint
type Page struct {
	Items      json.RawMessage   `json:"items"`
	Pagination domain.Pagination `json:"pagination"`
}

// CaptureInput describes a transaction posted against an order
type CaptureInput struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
}

// LineItem selects an order line for fulfillment
type LineItem struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity,omitempty"`
}

// FulfillInput creates a fulfillment through orders/fulfillments.json
type FulfillInput struct {
	OrderID            int64      `json:"orderId"`
	LocationID         int64      `json:"locationId"`
	TrackingNumber     string     `json:"trackingNumber"`
	TrackingCompany    string     `json:"trackingCompany"`
	FulfillmentService string     `json:"fulfillmentService"`
	NotifyCustomer     bool       `json:"notifyCustomer"`
	LineItems          []LineItem `json:"lineItems"`
}

// FulfillmentRequest creates a fulfillment on a specific order. Empty
// tracking fields fall back to manual defaults.
type FulfillmentRequest struct {
	LocationID      *int64     `json:"locationId,omitempty"`
	TrackingURL     string     `json:"trackingUrl"`
	TrackingNumber  string     `json:"trackingNumber"`
	TrackingCompany string     `json:"trackingCompany"`
	NotifyCustomer  *bool      `json:"notifyCustomer,omitempty"`
	LineItems       []LineItem `json:"lineItems"`
}

// FulfillmentUpdate changes the status and tracking of a fulfillment
type FulfillmentUpdate struct {
	Status          string `json:"status"`
	ShipmentStatus  string `json:"shipmentStatus"`
	TrackingNumber  string `json:"trackingNumber"`
	TrackingCompany string `json:"trackingCompany"`
	TrackingURL     string `json:"trackingUrl"`
}

// CompleteOrderInput drives the create, capture, fulfill sequence
type CompleteOrderInput struct {
	Order      map[string]any `json:"order"`
	Amount     string         `json:"amount"`
	LocationID int64          `json:"locationId"`
	LineItems  []LineItem     `json:"lineItems"`
}

// CompleteOrderResult reports the order created by CompleteOrder
type CompleteOrderResult struct {
	Message string `json:"message"`
	OrderID int64  `json:"orderId"`
}

// ThemeUpload registers a theme archive hosted at Src
type ThemeUpload struct {
	Name string           `json:"name"`
	Src  string           `json:"src"`
	Role domain.ThemeRole `json:"role"`
}

const (
	defaultFulfillmentCompany = "Manual Carrier"
	defaultTrackingNumber     = "N/A"
	defaultCaptureCurrency    = "USD"
)

func (s *ShopService) ListProducts(ctx context.Context, store *domain.Store, params domain.ListParams) (*Page, error) {
	return s.list(ctx, store, shopify.WithQuery("products.json", params), "products")
}

func (s *ShopService) GetProduct(ctx context.Context, store *domain.Store, id string) (json.RawMessage, error) {
	if err := requireID("product id", id); err != nil {
		return nil, err
	}
	return s.get(ctx, store, fmt.Sprintf("products/%s.json", id))
}

func (s *ShopService) CreateProduct(ctx context.Context, store *domain.Store, product map[string]any) (json.RawMessage, error) {
	if len(product) == 0 {
		return nil, domain.NewClientError("product is required")
	}
	return s.post(ctx, store, "products.json", map[string]any{"product": product})
}

// UpdateProduct fetches the product first so a missing id surfaces as the
// platform's 404 rather than a failed write
func (s *ShopService) UpdateProduct(ctx context.Context, store *domain.Store, id string, changes map[string]any) (json.RawMessage, error) {
	if err := requireID("product id", id); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("products/%s.json", id)
	if _, err := s.get(ctx, store, endpoint); err != nil {
		return nil, err
	}

	product := make(map[string]any, len(changes)+1)
	for k, v := range changes {
		product[k] = v
	}
	product["id"] = json.Number(id)

	resp, err := s.gateway.Put(ctx, s.gateway.TargetFor(store), endpoint, map[string]any{"product": product})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *ShopService) ListOrders(ctx context.Context, store *domain.Store, params domain.ListParams) (*Page, error) {
	return s.list(ctx, store, shopify.WithQuery("orders.json", params), "orders")
}

func (s *ShopService) GetOrder(ctx context.Context, store *domain.Store, id string) (json.RawMessage, error) {
	if err := requireID("order id", id); err != nil {
		return nil, err
	}
	return s.get(ctx, store, fmt.Sprintf("orders/%s.json", id))
}

func (s *ShopService) CreateOrder(ctx context.Context, store *domain.Store, order map[string]any) (json.RawMessage, error) {
	if len(order) == 0 {
		return nil, domain.NewClientError("order is required")
	}
	return s.post(ctx, store, "orders.json", map[string]any{"order": order})
}

func (s *ShopService) CapturePayment(ctx context.Context, store *domain.Store, orderID string, in CaptureInput) (json.RawMessage, error) {
	if err := requireID("order id", orderID); err != nil {
		return nil, err
	}
	if in.Amount == "" {
		return nil, domain.NewClientError("amount is required")
	}
	transaction := map[string]any{
		"kind":   in.Kind,
		"status": in.Status,
		"amount": in.Amount,
	}
	if in.Currency != "" {
		transaction["currency"] = in.Currency
	}
	return s.post(ctx, store, fmt.Sprintf("orders/%s/transactions.json", orderID), map[string]any{"transaction": transaction})
}

func (s *ShopService) ListTransactions(ctx context.Context, store *domain.Store, orderID string) (json.RawMessage, error) {
	if err := requireID("order id", orderID); err != nil {
		return nil, err
	}
	return s.get(ctx, store, fmt.Sprintf("orders/%s/transactions.json", orderID))
}

func (s *ShopService) FulfillOrder(ctx context.Context, store *domain.Store, in FulfillInput) (json.RawMessage, error) {
	if in.OrderID == 0 {
		return nil, domain.NewClientError("orderId is required")
	}
	return s.post(ctx, store, "orders/fulfillments.json", map[string]any{
		"fulfillment": map[string]any{
			"order_id":            in.OrderID,
			"location_id":         in.LocationID,
			"tracking_number":     in.TrackingNumber,
			"tracking_company":    in.TrackingCompany,
			"notify_customer":     in.NotifyCustomer,
			"fulfillment_service": in.FulfillmentService,
			"line_items":          in.LineItems,
		},
	})
}

func (s *ShopService) RequestFulfillment(ctx context.Context, store *domain.Store, orderID string, in FulfillmentRequest) (json.RawMessage, error) {
	if err := requireID("order id", orderID); err != nil {
		return nil, err
	}
	notify := true
	if in.NotifyCustomer != nil {
		notify = *in.NotifyCustomer
	}
	fulfillment := map[string]any{
		"line_items":       in.LineItems,
		"tracking_company": orDefault(in.TrackingCompany, defaultFulfillmentCompany),
		"tracking_number":  orDefault(in.TrackingNumber, defaultTrackingNumber),
		"tracking_url":     in.TrackingURL,
		"notify_customer":  notify,
	}
	if in.LocationID != nil {
		fulfillment["location_id"] = *in.LocationID
	}
	return s.post(ctx, store, fmt.Sprintf("orders/%s/fulfillments.json", orderID), map[string]any{"fulfillment": fulfillment})
}

func (s *ShopService) UpdateFulfillment(ctx context.Context, store *domain.Store, orderID, fulfillmentID string, in FulfillmentUpdate) (json.RawMessage, error) {
	if err := requireID("order id", orderID); err != nil {
		return nil, err
	}
	if err := requireID("fulfillment id", fulfillmentID); err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("orders/%s/fulfillments/%s.json", orderID, fulfillmentID)
	resp, err := s.gateway.Put(ctx, s.gateway.TargetFor(store), endpoint, map[string]any{
		"fulfillment": map[string]any{
			"status":           in.Status,
			"shipment_status":  in.ShipmentStatus,
			"tracking_number":  in.TrackingNumber,
			"tracking_company": in.TrackingCompany,
			"tracking_url":     in.TrackingURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *ShopService) ListFulfillments(ctx context.Context, store *domain.Store, orderID string) (json.RawMessage, error) {
	if err := requireID("order id", orderID); err != nil {
		return nil, err
	}
	return s.get(ctx, store, fmt.Sprintf("orders/%s/fulfillments.json", orderID))
}

// CompleteOrder creates an order, records a successful sale for amount and
// fulfills the given lines. A failing step aborts the sequence; earlier
// steps are not rolled back.
func (s *ShopService) CompleteOrder(ctx context.Context, store *domain.Store, in CompleteOrderInput) (*CompleteOrderResult, error) {
	if in.Amount == "" {
		return nil, domain.NewClientError("amount is required")
	}

	raw, err := s.CreateOrder(ctx, store, in.Order)
	if err != nil {
		return nil, err
	}
	var created struct {
		Order struct {
			ID                 int64  `json:"id"`
			Currency           string `json:"currency"`
			FulfillmentService string `json:"fulfillment_service"`
		} `json:"order"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.Order.ID == 0 {
		return nil, domain.NewUpstreamError(502, "Created order did not include an id", nil)
	}
	orderID := strconv.FormatInt(created.Order.ID, 10)

	log := s.logger.With().Str("shop", store.Domain()).Str("orderId", orderID).Logger()
	log.Info().Msg("Order created, capturing payment")

	if _, err := s.CapturePayment(ctx, store, orderID, CaptureInput{
		Amount:   in.Amount,
		Currency: orDefault(created.Order.Currency, defaultCaptureCurrency),
		Kind:     "sale",
		Status:   "success",
	}); err != nil {
		return nil, err
	}

	log.Info().Msg("Payment captured, fulfilling order")
	if _, err := s.FulfillOrder(ctx, store, FulfillInput{
		OrderID:            created.Order.ID,
		LocationID:         in.LocationID,
		TrackingNumber:     defaultTrackingNumber,
		TrackingCompany:    defaultTrackingNumber,
		FulfillmentService: orDefault(created.Order.FulfillmentService, "manual"),
		NotifyCustomer:     true,
		LineItems:          in.LineItems,
	}); err != nil {
		return nil, err
	}

	log.Info().Msg("Order completed")
	return &CompleteOrderResult{Message: "Order completed", OrderID: created.Order.ID}, nil
}

func (s *ShopService) ListLocations(ctx context.Context, store *domain.Store) (json.RawMessage, error) {
	return s.get(ctx, store, "locations.json")
}

func (s *ShopService) GetShopInfo(ctx context.Context, store *domain.Store) (json.RawMessage, error) {
	return s.get(ctx, store, "shop.json")
}

func (s *ShopService) GetAccessScopes(ctx context.Context, store *domain.Store) (json.RawMessage, error) {
	resp, err := s.gateway.GetAccessScopes(ctx, s.gateway.TargetFor(store))
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *ShopService) ListThemes(ctx context.Context, store *domain.Store) (json.RawMessage, error) {
	raw, err := s.get(ctx, store, "themes.json")
	if err != nil {
		return nil, err
	}
	return member(raw, "themes", "[]"), nil
}

func (s *ShopService) PublishTheme(ctx context.Context, store *domain.Store, themeID string) (json.RawMessage, error) {
	if err := requireID("theme id", themeID); err != nil {
		return nil, err
	}
	resp, err := s.gateway.Put(ctx, s.gateway.TargetFor(store), fmt.Sprintf("themes/%s.json", themeID), map[string]any{
		"theme": map[string]any{"role": domain.ThemeRoleMain},
	})
	if err != nil {
		return nil, err
	}
	return member(resp.Data, "theme", "null"), nil
}

func (s *ShopService) UploadTheme(ctx context.Context, store *domain.Store, in ThemeUpload) (json.RawMessage, error) {
	if in.Name == "" || in.Src == "" {
		return nil, domain.NewClientError("theme name and src are required")
	}
	role := in.Role
	if role == "" {
		role = domain.ThemeRoleUnpublished
	}
	raw, err := s.post(ctx, store, "themes.json", map[string]any{
		"theme": map[string]any{"name": in.Name, "src": in.Src, "role": role},
	})
	if err != nil {
		return nil, err
	}
	return member(raw, "theme", "null"), nil
}

func (s *ShopService) get(ctx context.Context, store *domain.Store, endpoint string) (json.RawMessage, error) {
	resp, err := s.gateway.Get(ctx, s.gateway.TargetFor(store), endpoint)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *ShopService) post(ctx context.Context, store *domain.Store, endpoint string, body any) (json.RawMessage, error) {
	resp, err := s.gateway.Post(ctx, s.gateway.TargetFor(store), endpoint, body)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *ShopService) list(ctx context.Context, store *domain.Store, endpoint, key string) (*Page, error) {
	resp, err := s.gateway.Get(ctx, s.gateway.TargetFor(store), endpoint)
	if err != nil {
		return nil, err
	}
	return &Page{Items: member(resp.Data, key, "[]"), Pagination: resp.Pagination}, nil
}

// member returns raw[key], or fallback when the member is absent or null
func member(raw json.RawMessage, key, fallback string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return json.RawMessage(fallback)
	}
	v, ok := obj[key]
	if !ok || strings.TrimSpace(string(v)) == "null" {
		return json.RawMessage(fallback)
	}
	return v
}

func requireID(name, id string) error {
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return domain.NewClientError("invalid " + name)
	}
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

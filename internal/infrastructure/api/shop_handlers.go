package api

import (
	"net/http"
	"net/url"
	"strconv"

	"shopify-integration-layer/internal/application"
	"shopify-integration-layer/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// shopHandlers serves the guarded Admin API routes
type shopHandlers struct {
	shop   *application.ShopService
	logger zerolog.Logger
}

func (h *shopHandlers) respond(w http.ResponseWriter, status int, message string, data any, err error) {
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, status, message, data)
}

func (h *shopHandlers) listProducts(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	params, err := parseListParams(r.URL.Query())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	page, err := h.shop.ListProducts(r.Context(), store, params)
	h.respond(w, http.StatusOK, "", page, err)
}

func (h *shopHandlers) getProduct(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	product, err := h.shop.GetProduct(r.Context(), store, chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, "", product, err)
}

func (h *shopHandlers) createProduct(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	body, err := decodeResource(r, "product")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	product, err := h.shop.CreateProduct(r.Context(), store, body)
	h.respond(w, http.StatusCreated, "Product created successfully", product, err)
}

func (h *shopHandlers) updateProduct(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	body, err := decodeResource(r, "product")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	product, err := h.shop.UpdateProduct(r.Context(), store, chi.URLParam(r, "id"), body)
	h.respond(w, http.StatusOK, "Product updated successfully", product, err)
}

func (h *shopHandlers) listOrders(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	params, err := parseListParams(r.URL.Query())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	page, err := h.shop.ListOrders(r.Context(), store, params)
	h.respond(w, http.StatusOK, "", page, err)
}

func (h *shopHandlers) getOrder(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	order, err := h.shop.GetOrder(r.Context(), store, chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, "", order, err)
}

func (h *shopHandlers) createOrder(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	body, err := decodeResource(r, "order")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	order, err := h.shop.CreateOrder(r.Context(), store, body)
	h.respond(w, http.StatusCreated, "Order created successfully", order, err)
}

func (h *shopHandlers) completeOrder(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	var in application.CompleteOrderInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	result, err := h.shop.CompleteOrder(r.Context(), store, in)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusCreated, result.Message, result)
}

func (h *shopHandlers) listTransactions(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	txs, err := h.shop.ListTransactions(r.Context(), store, chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, "", txs, err)
}

func (h *shopHandlers) capturePayment(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	var in application.CaptureInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	tx, err := h.shop.CapturePayment(r.Context(), store, chi.URLParam(r, "id"), in)
	h.respond(w, http.StatusCreated, "Payment captured successfully", tx, err)
}

func (h *shopHandlers) listFulfillments(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	fulfillments, err := h.shop.ListFulfillments(r.Context(), store, chi.URLParam(r, "id"))
	h.respond(w, http.StatusOK, "", fulfillments, err)
}

func (h *shopHandlers) requestFulfillment(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	var in application.FulfillmentRequest
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	fulfillment, err := h.shop.RequestFulfillment(r.Context(), store, chi.URLParam(r, "id"), in)
	h.respond(w, http.StatusCreated, "Fulfillment created successfully", fulfillment, err)
}

func (h *shopHandlers) updateFulfillment(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	var in application.FulfillmentUpdate
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	fulfillment, err := h.shop.UpdateFulfillment(r.Context(), store, chi.URLParam(r, "id"), chi.URLParam(r, "fid"), in)
	h.respond(w, http.StatusOK, "Fulfillment updated successfully", fulfillment, err)
}

func (h *shopHandlers) fulfillOrder(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	var in application.FulfillInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	fulfillment, err := h.shop.FulfillOrder(r.Context(), store, in)
	h.respond(w, http.StatusCreated, "Order fulfilled successfully", fulfillment, err)
}

func (h *shopHandlers) listLocations(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	locations, err := h.shop.ListLocations(r.Context(), store)
	h.respond(w, http.StatusOK, "", locations, err)
}

func (h *shopHandlers) shopInfo(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	info, err := h.shop.GetShopInfo(r.Context(), store)
	h.respond(w, http.StatusOK, "", info, err)
}

func (h *shopHandlers) accessScopes(w http.ResponseWriter, r *http.Request, store *domain.Store) {
	scopes, err := h.shop.GetAccessScopes(r.Context(), store)
	h.respond(w, http.StatusOK, "", scopes, err)
}

// decodeResource accepts either a bare object or one wrapped in key
func decodeResource(r *http.Request, key string) (map[string]any, error) {
	var body map[string]any
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	if inner, ok := body[key].(map[string]any); ok && len(body) == 1 {
		return inner, nil
	}
	return body, nil
}

// parseListParams reads the recognized listing parameters; unknown keys are
// ignored
func parseListParams(q url.Values) (domain.ListParams, error) {
	params := domain.ListParams{
		Title:             q.Get("title"),
		Vendor:            q.Get("vendor"),
		ProductType:       q.Get("product_type"),
		Status:            q.Get("status"),
		CollectionID:      q.Get("collection_id"),
		Fields:            q.Get("fields"),
		PublishedStatus:   q.Get("published_status"),
		PublishedScope:    q.Get("published_scope"),
		FinancialStatus:   q.Get("financial_status"),
		FulfillmentStatus: q.Get("fulfillment_status"),
		SortBy:            q.Get("sortBy"),
		SortOrder:         q.Get("sortOrder"),
		PageInfo:          q.Get("page_info"),
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, domain.NewClientError("limit must be a positive integer")
		}
		params.Limit = limit
	}
	return params, nil
}

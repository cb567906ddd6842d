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

type storefrontHandlers struct {
	storefront *application.StorefrontService
	logger     zerolog.Logger
}

func (h *storefrontHandlers) products(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query(), "limit")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	result, err := h.storefront.GetProducts(r.Context(), limit)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "", result)
}

func (h *storefrontHandlers) product(w http.ResponseWriter, r *http.Request) {
	product, err := h.storefront.GetProductByHandle(r.Context(), chi.URLParam(r, "handle"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "", product)
}

func (h *storefrontHandlers) shop(w http.ResponseWriter, r *http.Request) {
	info, err := h.storefront.GetShopInfo(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "", info)
}

func (h *storefrontHandlers) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	result, err := h.storefront.SearchProducts(r.Context(), application.SearchInput{
		Query:  q.Get("query"),
		Limit:  limit,
		After:  q.Get("after"),
		Before: q.Get("before"),
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "", result)
}

func (h *storefrontHandlers) collections(w http.ResponseWriter, r *http.Request) {
	first, err := intParam(r.URL.Query(), "first")
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	collections, err := h.storefront.GetCollections(r.Context(), first)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "", collections)
}

type partnerHandlers struct {
	partner *application.PartnerService
	logger  zerolog.Logger
}

func (h *partnerHandlers) createStore(w http.ResponseWriter, r *http.Request) {
	var in application.CreateStoreInput
	if err := decodeJSON(r, &in); err != nil {
		WriteError(w, err, h.logger)
		return
	}
	result, err := h.partner.CreateStore(r.Context(), in)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusCreated, result.Message, result.Shop)
}

func (h *partnerHandlers) organizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.partner.GetOrganizations(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "", orgs)
}

func (h *partnerHandlers) apps(w http.ResponseWriter, r *http.Request) {
	apps, err := h.partner.GetApps(r.Context())
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteSuccess(w, http.StatusOK, "", apps)
}

// intParam parses an optional integer query parameter; absent means zero
func intParam(q url.Values, key string) (int, error) {
	v := q.Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, domain.NewClientError(key + " must be an integer")
	}
	return n, nil
}

package api

import (
	"mime"
	"net/http"
	"net/url"

	"shopify-integration-layer/internal/application"
	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
)

// installRedirectHandler starts the OAuth flow by redirecting the merchant
func installRedirectHandler(oauth *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := oauth.BuildInstallURL(r.Context(), r.URL.Query().Get("shop"))
		if err != nil {
			WriteError(w, err, logger)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// installURLHandler returns the authorization URL instead of redirecting,
// for clients that navigate themselves
func installURLHandler(oauth *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, err := oauth.BuildInstallURL(r.Context(), r.URL.Query().Get("shop"))
		if err != nil {
			WriteError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": http.StatusFound,
			"url":    authURL,
		})
	}
}

// callbackHandler completes the handshake. POST callbacks may carry the
// parameters in a JSON or form body; they are merged over the query string.
func callbackHandler(oauth *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := callbackParams(r)
		if err != nil {
			WriteError(w, err, logger)
			return
		}

		store, err := oauth.HandleCallback(r.Context(), params)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("shop", params.Get("shop")).
				Msg("OAuth callback failed")
			WriteError(w, err, logger)
			return
		}

		logger.Info().
			Str("shop", store.Domain()).
			Str("shopId", store.ShopID).
			Msg("OAuth installation completed")
		WriteSuccess(w, http.StatusOK, "App installed successfully", store)
	}
}

func callbackParams(r *http.Request) (url.Values, error) {
	params := r.URL.Query()
	if r.Method != http.MethodPost || r.ContentLength == 0 {
		return params, nil
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, domain.NewClientError("invalid form body")
		}
		for k, v := range r.PostForm {
			params[k] = v
		}
	default:
		var body map[string]string
		if err := decodeJSON(r, &body); err != nil {
			return nil, err
		}
		for k, v := range body {
			params.Set(k, v)
		}
	}
	return params, nil
}

// createStoreHandler upserts a store record from an explicit payload
func createStoreHandler(oauth *application.OAuthService, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input domain.StoreUpsert
		if err := decodeJSON(r, &input); err != nil {
			WriteError(w, err, logger)
			return
		}

		store, err := oauth.UpsertStore(r.Context(), input)
		if err != nil {
			WriteError(w, err, logger)
			return
		}
		WriteSuccess(w, http.StatusCreated, "Store saved successfully", store)
	}
}

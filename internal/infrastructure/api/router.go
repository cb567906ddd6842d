package api

import (
	"encoding/json"
	"net/http"

	"shopify-integration-layer/internal/application"
	"shopify-integration-layer/internal/infrastructure/metrics"
	securitymiddleware "shopify-integration-layer/internal/infrastructure/middleware"
	"shopify-integration-layer/internal/infrastructure/pubsub"
	"shopify-integration-layer/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Deps are the collaborators the HTTP surface is built from. Storefront and
// Partner are optional; their routes are only mounted when set.
type Deps struct {
	OAuth       *application.OAuthService
	Guard       Authenticator
	Shop        *application.ShopService
	Themes      *application.ThemeService
	Storefront  *application.StorefrontService
	Partner     *application.PartnerService
	Dispatcher  *application.WebhookDispatcher
	Verifier    ports.WebhookVerifier
	Bus         *pubsub.EventBus
	Metrics     *metrics.Prometheus
	RequestLogs ports.RequestLogRepository
}

// Options tune the router
type Options struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	MaxUploadBytes int64
	WebhookVerify  bool
	SwaggerFile    string
	// LocalBlobDir is served under /blobs/ when blobs are kept on local disk
	LocalBlobDir string
}

// NewRouter assembles every route of the service
func NewRouter(deps Deps, opts Options, logger zerolog.Logger) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.SwaggerFile == "" {
		opts.SwaggerFile = "./docs/swagger.json"
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(securitymiddleware.SecurityHeadersMiddleware())
	r.Use(securitymiddleware.InputValidationMiddleware(opts.MaxBodyBytes, opts.MaxUploadBytes, logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	r.Use(deps.Metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", deps.Metrics.Handler())

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, opts.SwaggerFile)
	})

	if opts.LocalBlobDir != "" {
		r.Handle("/blobs/*", http.StripPrefix("/blobs/", http.FileServer(http.Dir(opts.LocalBlobDir))))
	}

	// OAuth
	r.Get("/auth/install", installRedirectHandler(deps.OAuth, logger))
	r.Post("/auth/callback", callbackHandler(deps.OAuth, logger))
	r.Route("/shopify-o-auth", func(r chi.Router) {
		r.Get("/install", installURLHandler(deps.OAuth, logger))
		r.Get("/callback", callbackHandler(deps.OAuth, logger))
		r.Post("/create", createStoreHandler(deps.OAuth, logger))
	})

	r.Post("/webhooks/shopify", webhookHandler(
		deps.Verifier,
		deps.Dispatcher,
		deps.Bus,
		deps.Metrics,
		WebhookOptions{Verify: opts.WebhookVerify},
		logger,
	))

	shop := &shopHandlers{shop: deps.Shop, logger: logger}
	themes := &themeHandlers{shop: deps.Shop, themes: deps.Themes, logger: logger}
	guard := func(h StoreHandlerFunc) http.HandlerFunc {
		return RequireStore(deps.Guard, logger, h)
	}

	r.Route("/v1/shop", func(r chi.Router) {
		if deps.RequestLogs != nil {
			r.Use(securitymiddleware.RequestLogMiddleware(deps.RequestLogs, logger))
		}

		r.Get("/products", guard(shop.listProducts))
		r.Post("/products", guard(shop.createProduct))
		r.Get("/products/{id}", guard(shop.getProduct))
		r.Put("/products/{id}", guard(shop.updateProduct))

		r.Get("/orders", guard(shop.listOrders))
		r.Post("/orders", guard(shop.createOrder))
		r.Post("/orders/complete", guard(shop.completeOrder))
		r.Post("/orders/fulfillments", guard(shop.fulfillOrder))
		r.Get("/orders/{id}", guard(shop.getOrder))
		r.Get("/orders/{id}/transactions", guard(shop.listTransactions))
		r.Post("/orders/{id}/transactions", guard(shop.capturePayment))
		r.Get("/orders/{id}/fulfillments", guard(shop.listFulfillments))
		r.Post("/orders/{id}/fulfillments", guard(shop.requestFulfillment))
		r.Put("/orders/{id}/fulfillments/{fid}", guard(shop.updateFulfillment))

		r.Get("/locations", guard(shop.listLocations))
		r.Get("/info", guard(shop.shopInfo))
		r.Get("/access-scopes", guard(shop.accessScopes))

		r.Get("/themes", guard(themes.list))
		r.Post("/themes/{id}/publish", guard(themes.publish))
		r.Post("/themes/update-theme", guard(themes.updateLocally))
		r.Post("/themes/submit-theme", guard(themes.submit))
		r.Post("/themes/upload-file", guard(themes.uploadFile))
		r.Post("/themes/update-image", guard(themes.updateImage))
		r.Delete("/themes/workspace", guard(themes.deleteWorkspace))
	})

	if deps.Storefront != nil {
		sf := &storefrontHandlers{storefront: deps.Storefront, logger: logger}
		r.Route("/v1/storefront", func(r chi.Router) {
			r.Get("/products", sf.products)
			r.Get("/products/{handle}", sf.product)
			r.Get("/search", sf.search)
			r.Get("/shop", sf.shop)
			r.Get("/collections", sf.collections)
		})
	}

	if deps.Partner != nil {
		p := &partnerHandlers{partner: deps.Partner, logger: logger}
		r.Route("/v1/shopify-partner", func(r chi.Router) {
			r.Post("/stores", p.createStore)
			r.Get("/organizations", p.organizations)
			r.Get("/apps", p.apps)
		})
	}

	return r
}

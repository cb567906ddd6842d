package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shopify-integration-layer/internal/application"
	"shopify-integration-layer/internal/application/webhook_handlers"
	"shopify-integration-layer/internal/config"
	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/infrastructure/api"
	"shopify-integration-layer/internal/infrastructure/consumer"
	"shopify-integration-layer/internal/infrastructure/encryption"
	"shopify-integration-layer/internal/infrastructure/metrics"
	"shopify-integration-layer/internal/infrastructure/pubsub"
	"shopify-integration-layer/internal/infrastructure/repository"
	shopifyinfra "shopify-integration-layer/internal/infrastructure/shopify"
	"shopify-integration-layer/internal/infrastructure/statestore"
	"shopify-integration-layer/internal/infrastructure/storage"
	"shopify-integration-layer/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	logger := newLogger(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())
	db := client.Database(cfg.MongoDatabase)

	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Repositories
	storeRepo := repository.NewMongoStoreRepository(db, shopifyinfra.NewTokenManager(encryptionService))
	orderRepo := repository.NewMongoOrderRepository(db)
	requestLogRepo := repository.NewMongoRequestLogRepository(db)

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	for name, ensure := range map[string]func(context.Context) error{
		"stores":       storeRepo.EnsureIndexes,
		"orders":       orderRepo.EnsureIndexes,
		"request_logs": requestLogRepo.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			logger.Fatal().Err(err).Str("collection", name).Msg("Failed to create indexes")
		}
	}
	cancel()

	// OAuth states and the sweep lock live in Redis when configured
	var (
		states ports.StateStore
		locker ports.Locker
	)
	if cfg.RedisURL != "" {
		rdb := statestore.NewRedisClient(cfg.RedisURL)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		states = statestore.NewRedisStateStore(rdb)
		locker = statestore.NewRedisLocker(rdb)
	} else {
		logger.Warn().Msg("REDIS_URL not set, keeping OAuth states and sweep lock in memory")
		states = statestore.NewMemoryStateStore()
		locker = statestore.NewMemoryLocker()
	}

	var (
		blobs   ports.BlobStorage
		blobDir string
	)
	if cfg.S3Bucket != "" {
		s3Storage, err := storage.NewS3Storage(ctx, storage.S3Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize S3 storage")
		}
		blobs = s3Storage
	} else {
		localStorage, err := storage.NewLocalStorage(cfg.LocalBlobDir, cfg.AppURL+"/blobs")
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize local storage")
		}
		blobs = localStorage
		blobDir = cfg.LocalBlobDir
	}

	var orderConsumer ports.OrderConsumer
	switch {
	case len(cfg.KafkaBrokers) > 0:
		kafkaConsumer := consumer.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kafkaConsumer.Close()
		orderConsumer = kafkaConsumer
	case cfg.OrderConsumerURL != "":
		orderConsumer = consumer.NewHTTPConsumer(cfg.OrderConsumerURL, &http.Client{Timeout: cfg.OutboundHTTPTimeout}, logger)
	}

	promMetrics := metrics.New()
	httpClient := &http.Client{Timeout: cfg.OutboundHTTPTimeout}

	// Shopify clients
	gateway := shopifyinfra.NewGateway(storeRepo, httpClient, cfg.ShopifyAPIVersion, promMetrics, logger)
	graphqlClient := shopifyinfra.NewGraphQLClient(shopifyinfra.GraphQLConfig{
		APIVersion:       cfg.ShopifyAPIVersion,
		StorefrontDomain: cfg.StorefrontDomain,
		StorefrontToken:  cfg.StorefrontToken,
		PartnerToken:     cfg.PartnerToken,
		PartnerAPIURL:    cfg.PartnerAPIURL,
	}, httpClient, logger)
	oauthClient := shopifyinfra.NewOAuthClient(shopifyinfra.OAuthConfig{
		APIKey:      cfg.ShopifyAPIKey,
		APISecret:   cfg.ShopifyAPISecret,
		RedirectURI: cfg.CallbackURL(),
		Scopes:      cfg.ShopifyScopes,
	}, httpClient, logger)
	adminClient := shopifyinfra.NewAdminClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, cfg.ShopifyAPIVersion, httpClient, logger)

	// Application services
	oauthService := application.NewOAuthService(oauthClient, adminClient, gateway, storeRepo, states, application.OAuthServiceConfig{
		WebhookAddress: cfg.WebhookAddress(),
	}, logger)
	shopService := application.NewShopService(gateway, logger)
	themeService := application.NewThemeService(shopService, graphqlClient, gateway, blobs, application.ThemeServiceConfig{
		WorkRoot:   cfg.ThemeWorkDir,
		SourceRoot: cfg.ThemeSourceDir,
	}, logger)

	var storefrontService *application.StorefrontService
	if cfg.StorefrontDomain != "" {
		storefrontService = application.NewStorefrontService(graphqlClient, logger)
	}
	var partnerService *application.PartnerService
	if cfg.PartnerToken != "" {
		partnerService = application.NewPartnerService(graphqlClient, logger)
	}

	// Webhook dispatcher and handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(orderRepo, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewShopHandler(storeRepo, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(storeRepo, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewBillingHandler(logger))

	eventBus := pubsub.NewEventBus(logger)

	if orderConsumer != nil {
		sweep := application.NewOrderSweep(orderRepo, orderConsumer, locker, promMetrics, application.OrderSweepConfig{
			BatchSize: cfg.SweepBatch,
			LockTTL:   max(2*time.Minute, 2*cfg.OutboundHTTPTimeout),
			Retryable: consumer.IsRetryable,
		}, logger)
		sub := eventBus.Subscribe(ctx, pubsub.Filter{Match: domain.WebhookTopic.IsOrderTopic})
		go sweep.Start(ctx, cfg.SweepInterval, sub.Events)
	} else {
		logger.Warn().Msg("No order consumer configured, order sweep disabled")
	}

	router := api.NewRouter(api.Deps{
		OAuth:       oauthService,
		Guard:       application.NewAccessGuard(storeRepo, cfg.AccessTokenPrefix, logger),
		Shop:        shopService,
		Themes:      themeService,
		Storefront:  storefrontService,
		Partner:     partnerService,
		Dispatcher:  webhookDispatcher,
		Verifier:    shopifyinfra.NewWebhookVerifier(cfg.ShopifyAPISecret),
		Bus:         eventBus,
		Metrics:     promMetrics,
		RequestLogs: requestLogRepo,
	}, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
		WebhookVerify:  cfg.WebhookVerify,
		LocalBlobDir:   blobDir,
	}, logger)

	if !cfg.WebhookVerify {
		logger.Warn().Msg("Webhook signature verification is disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

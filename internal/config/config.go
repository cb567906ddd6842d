package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port           string
	AppURL         string
	AllowedOrigins []string
	MaxBodyBytes   int64
	MaxUploadBytes int64
	ShutdownGrace  time.Duration

	// Database
	MongoURI      string
	MongoDatabase string

	// Redis; empty keeps OAuth states and the sweep lock in memory
	RedisURL string

	// Encryption
	EncryptionKey string

	// Shopify app
	ShopifyAPIKey       string
	ShopifyAPISecret    string
	ShopifyAPIVersion   string
	ShopifyScopes       []string
	AccessTokenPrefix   string
	WebhookVerify       bool
	StorefrontDomain    string
	StorefrontToken     string
	PartnerToken        string
	PartnerAPIURL       string
	OutboundHTTPTimeout time.Duration

	// Order sweep
	SweepInterval    time.Duration
	SweepBatch       int
	OrderConsumerURL string
	KafkaBrokers     []string
	KafkaTopic       string

	// Blob storage; an empty bucket selects local disk
	S3Region        string
	S3Bucket        string
	S3Endpoint      string
	S3PublicBaseURL string
	LocalBlobDir    string

	// Theme pipeline
	ThemeWorkDir   string
	ThemeSourceDir string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// Load .env file
	godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AppURL:         strings.TrimSuffix(getEnv("APP_URL", "http://localhost:8080"), "/"),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxBodyBytes:   int64(getEnvInt("MAX_BODY_BYTES", 2<<20)),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 50<<20)),
		ShutdownGrace:  getEnvDuration("SHUTDOWN_GRACE", 15*time.Second),

		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "shopify_integration"),

		RedisURL: getEnv("REDIS_URL", ""),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		ShopifyAPIKey:       getEnv("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:    getEnv("SHOPIFY_API_SECRET", ""),
		ShopifyAPIVersion:   getEnv("SHOPIFY_API_VERSION", ""),
		ShopifyScopes:       getEnvList("SHOPIFY_SCOPES", []string{"read_products", "write_products", "read_orders", "write_orders", "read_themes", "write_themes", "write_files"}),
		AccessTokenPrefix:   getEnvRaw("ACCESS_TOKEN_PREFIX", "shpua_"),
		WebhookVerify:       getEnvBool("SHOPIFY_WEBHOOK_VERIFY", true),
		StorefrontDomain:    getEnv("SHOPIFY_STOREFRONT_DOMAIN", ""),
		StorefrontToken:     getEnv("SHOPIFY_STOREFRONT_TOKEN", ""),
		PartnerToken:        getEnv("SHOPIFY_PARTNER_TOKEN", ""),
		PartnerAPIURL:       getEnv("SHOPIFY_PARTNER_API_URL", ""),
		OutboundHTTPTimeout: getEnvDuration("SHOPIFY_HTTP_TIMEOUT", 30*time.Second),

		SweepInterval:    getEnvDuration("ORDER_SWEEP_INTERVAL", 5*time.Minute),
		SweepBatch:       getEnvInt("ORDER_SWEEP_BATCH", 100),
		OrderConsumerURL: getEnv("ORDER_CONSUMER_URL", ""),
		KafkaBrokers:     getEnvList("ORDER_CONSUMER_KAFKA_BROKERS", nil),
		KafkaTopic:       getEnv("ORDER_CONSUMER_KAFKA_TOPIC", ""),

		S3Region:        getEnv("S3_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		LocalBlobDir:    getEnv("LOCAL_BLOB_DIR", "./data/blobs"),

		ThemeWorkDir:   getEnv("THEME_WORK_DIR", os.TempDir()),
		ThemeSourceDir: getEnv("THEME_SOURCE_DIR", "./themes"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
	return cfg, cfg.Validate()
}

// Validate reports every missing or inconsistent setting at once
func (c *Config) Validate() error {
	var errs []error
	for key, value := range map[string]string{
		"MONGODB_URI":        c.MongoURI,
		"ENCRYPTION_KEY":     c.EncryptionKey,
		"SHOPIFY_API_KEY":    c.ShopifyAPIKey,
		"SHOPIFY_API_SECRET": c.ShopifyAPISecret,
	} {
		if value == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("ORDER_SWEEP_INTERVAL must be positive"))
	}
	if c.SweepBatch <= 0 {
		errs = append(errs, errors.New("ORDER_SWEEP_BATCH must be positive"))
	}
	if c.OrderConsumerURL != "" && len(c.KafkaBrokers) > 0 {
		errs = append(errs, errors.New("set either ORDER_CONSUMER_URL or ORDER_CONSUMER_KAFKA_BROKERS, not both"))
	}
	if (c.StorefrontDomain == "") != (c.StorefrontToken == "") {
		errs = append(errs, errors.New("SHOPIFY_STOREFRONT_DOMAIN and SHOPIFY_STOREFRONT_TOKEN must be set together"))
	}
	return errors.Join(errs...)
}

// CallbackURL is the OAuth redirect registered with the platform
func (c *Config) CallbackURL() string {
	return c.AppURL + "/shopify-o-auth/callback"
}

// WebhookAddress is the public webhook endpoint registered after install
func (c *Config) WebhookAddress() string {
	return c.AppURL + "/webhooks/shopify"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvRaw distinguishes an explicitly empty value from an unset one
func getEnvRaw(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

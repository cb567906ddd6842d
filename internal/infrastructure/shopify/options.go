package shopify

import (
	"net/http"
	"time"
)

// DefaultAPIVersion is used when SHOPIFY_API_VERSION is not set
const DefaultAPIVersion = "2025-01"

// AccessTokenHeader carries the per-store Admin API token
const AccessTokenHeader = "X-Shopify-Access-Token"

// Option customizes outbound clients
type Option func(*settings)

type settings struct {
	scheme string
}

// WithScheme overrides the https scheme used for shop hosts
func WithScheme(scheme string) Option {
	return func(s *settings) {
		s.scheme = scheme
	}
}

func applyOptions(opts []Option) settings {
	s := settings{scheme: "https"}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// NewHTTPClient returns the client shared by all outbound platform calls
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

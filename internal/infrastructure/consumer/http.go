package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
)

// StatusError is a non-2xx answer from the HTTP consumer
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("order consumer rejected delivery: %s", e.Status)
	}
	return fmt.Sprintf("order consumer rejected delivery: %s: %s", e.Status, e.Body)
}

// IsRetryable reports whether a delivery error is worth retrying on the
// next sweep rather than alerting on
func IsRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	return true
}

// HTTPConsumer POSTs each order record as JSON
type HTTPConsumer struct {
	url        string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewHTTPConsumer(url string, httpClient *http.Client, logger zerolog.Logger) *HTTPConsumer {
	return &HTTPConsumer{url: url, httpClient: httpClient, logger: logger}
}

func (c *HTTPConsumer) Deliver(ctx context.Context, order *domain.Order) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Order-Id", order.OrderID)
	req.Header.Set("X-Shopify-Topic", order.WebhookInfo.Topic)
	req.Header.Set("X-Shopify-Shop-Domain", order.WebhookInfo.ShopDomain)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	c.logger.Debug().Str("id", order.ID).Str("orderId", order.OrderID).Msg("Order delivered")
	return nil
}

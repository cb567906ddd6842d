package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"shopify-integration-layer/internal/ports"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// WebhookVerifier validates X-Shopify-Hmac-Sha256 against the raw body
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the app's shared secret
func NewWebhookVerifier(secret string) ports.WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify compares base64(HMAC-SHA256(body)) with the header in constant time
func (v *WebhookVerifier) Verify(payload []byte, signature string) error {
	if signature == "" {
		return ErrMissingSignature
	}
	if !hmac.Equal([]byte(SignWebhook(payload, v.secret)), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// SignWebhook computes the webhook signature of a body
func SignWebhook(payload []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

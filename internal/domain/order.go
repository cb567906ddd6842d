package domain

import (
	"encoding/json"
	"time"
)

// WebhookInfo records where an order delivery came from
type WebhookInfo struct {
	Topic      string `json:"topic"`
	ShopDomain string `json:"shopDomain"`
	HMAC       string `json:"hmac,omitempty"`
	WebhookID  string `json:"webhookId,omitempty"`
}

// Order is one persisted order-family webhook delivery awaiting forwarding
type Order struct {
	ID          string          `json:"id"`
	OrderID     string          `json:"orderId,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	WebhookInfo WebhookInfo     `json:"webhookInfo"`
	IsProcessed bool            `json:"isProcessed"`
	ProcessedAt *time.Time      `json:"processedAt"`
	Attempts    int             `json:"attempts"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// NewOrderFromEvent builds an unprocessed order record from a webhook delivery
func NewOrderFromEvent(event *WebhookEvent, now time.Time) *Order {
	return &Order{
		OrderID: ExtractOrderID(event.Payload),
		Payload: append(json.RawMessage(nil), event.Payload...),
		WebhookInfo: WebhookInfo{
			Topic:      string(event.Topic),
			ShopDomain: event.Shop,
			HMAC:       event.HMAC,
			WebhookID:  event.WebhookID,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ExtractOrderID reads the external order id from a payload. Refund payloads
// carry it as order_id; order payloads as id.
func ExtractOrderID(payload []byte) string {
	var ids struct {
		ID      json.Number `json:"id"`
		OrderID json.Number `json:"order_id"`
	}
	if err := json.Unmarshal(payload, &ids); err != nil {
		return ""
	}
	if ids.OrderID != "" {
		return ids.OrderID.String()
	}
	return ids.ID.String()
}

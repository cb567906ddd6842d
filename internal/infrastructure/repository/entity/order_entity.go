package entity

import (
	"encoding/json"
	"time"

	"shopify-integration-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoOrderDoc represents a persisted order webhook in MongoDB. JSON object
// payloads are stored as native documents so they stay queryable; anything
// else is kept verbatim in rawPayload.
type MongoOrderDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	OrderID     string             `bson:"orderId,omitempty"`
	Payload     bson.D             `bson:"payload,omitempty"`
	RawPayload  string             `bson:"rawPayload,omitempty"`
	WebhookInfo MongoWebhookInfo   `bson:"webhookInfo"`
	IsProcessed bool               `bson:"isProcessed"`
	ProcessedAt *time.Time         `bson:"processedAt"`
	Attempts    int                `bson:"attempts"`
	LastError   string             `bson:"lastError,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type MongoWebhookInfo struct {
	Topic      string `bson:"topic"`
	ShopDomain string `bson:"shopDomain"`
	HMAC       string `bson:"hmac,omitempty"`
	WebhookID  string `bson:"webhookId,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOrderDoc) ToDomain() (*domain.Order, error) {
	payload := json.RawMessage(d.RawPayload)
	if d.Payload != nil {
		raw, err := bson.MarshalExtJSON(d.Payload, false, false)
		if err != nil {
			return nil, err
		}
		payload = raw
	}
	return &domain.Order{
		ID:      d.ID.Hex(),
		OrderID: d.OrderID,
		Payload: payload,
		WebhookInfo: domain.WebhookInfo{
			Topic:      d.WebhookInfo.Topic,
			ShopDomain: d.WebhookInfo.ShopDomain,
			HMAC:       d.WebhookInfo.HMAC,
			WebhookID:  d.WebhookInfo.WebhookID,
		},
		IsProcessed: d.IsProcessed,
		ProcessedAt: d.ProcessedAt,
		Attempts:    d.Attempts,
		LastError:   d.LastError,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// MongoOrderDocFromDomain converts a domain order to a MongoDB document
func MongoOrderDocFromDomain(o *domain.Order) *MongoOrderDoc {
	doc := &MongoOrderDoc{
		OrderID: o.OrderID,
		WebhookInfo: MongoWebhookInfo{
			Topic:      o.WebhookInfo.Topic,
			ShopDomain: o.WebhookInfo.ShopDomain,
			HMAC:       o.WebhookInfo.HMAC,
			WebhookID:  o.WebhookInfo.WebhookID,
		},
		IsProcessed: o.IsProcessed,
		ProcessedAt: o.ProcessedAt,
		Attempts:    o.Attempts,
		LastError:   o.LastError,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	var payload bson.D
	if err := bson.UnmarshalExtJSON(o.Payload, false, &payload); err == nil {
		doc.Payload = payload
	} else {
		doc.RawPayload = string(o.Payload)
	}
	if id, err := primitive.ObjectIDFromHex(o.ID); err == nil {
		doc.ID = id
	}
	return doc
}

package entity

import (
	"time"

	"shopify-integration-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoRequestLogDoc represents an API request log in MongoDB
type MongoRequestLogDoc struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Method     string             `bson:"method"`
	URL        string             `bson:"url"`
	IP         string             `bson:"ip,omitempty"`
	UserAgent  string             `bson:"userAgent,omitempty"`
	StatusCode int                `bson:"statusCode"`
	Response   any                `bson:"response,omitempty"`
	Error      any                `bson:"error,omitempty"`
	Type       string             `bson:"type"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

// MongoRequestLogDocFromDomain converts a domain request log to a MongoDB document
func MongoRequestLogDocFromDomain(l *domain.RequestLog) *MongoRequestLogDoc {
	return &MongoRequestLogDoc{
		Method:     l.Method,
		URL:        l.URL,
		IP:         l.IP,
		UserAgent:  l.UserAgent,
		StatusCode: l.StatusCode,
		Response:   l.Response,
		Error:      l.Error,
		Type:       l.Type,
		CreatedAt:  l.CreatedAt,
	}
}

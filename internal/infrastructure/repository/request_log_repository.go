package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/infrastructure/repository/entity"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const logsCollection = "shopify_logs"

// MongoRequestLogRepository stores API request logs
type MongoRequestLogRepository struct {
	collection *mongo.Collection
}

func NewMongoRequestLogRepository(db *mongo.Database) *MongoRequestLogRepository {
	return &MongoRequestLogRepository{collection: db.Collection(logsCollection)}
}

// EnsureIndexes creates the time and type indexes used when browsing logs
func (r *MongoRequestLogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create request log indexes: %w", err)
	}
	return nil
}

func (r *MongoRequestLogRepository) Create(ctx context.Context, entry *domain.RequestLog) error {
	doc := entity.MongoRequestLogDocFromDomain(entry)
	doc.ID = primitive.NewObjectID()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to log request: %w", err)
	}
	return nil
}

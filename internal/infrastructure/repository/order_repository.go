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
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ordersCollection = "shopify_orders"

// MongoOrderRepository implements OrderRepository using MongoDB
type MongoOrderRepository struct {
	collection *mongo.Collection
}

// NewMongoOrderRepository creates a new MongoDB order repository
func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection(ordersCollection),
	}
}

// EnsureIndexes creates the webhook id dedup index and the pending scan index
func (r *MongoOrderRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "webhookInfo.webhookId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "isProcessed", Value: 1}, {Key: "_id", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) InsertIfAbsent(ctx context.Context, order *domain.Order) (bool, error) {
	doc := entity.MongoOrderDocFromDomain(order)
	now := time.Now().UTC()
	doc.UpdatedAt = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	if order.WebhookInfo.WebhookID == "" {
		doc.ID = primitive.NewObjectID()
		if _, err := r.collection.InsertOne(ctx, doc); err != nil {
			return false, fmt.Errorf("failed to insert order: %w", err)
		}
		order.ID = doc.ID.Hex()
		return true, nil
	}

	filter := bson.M{"webhookInfo.webhookId": order.WebhookInfo.WebhookID}
	update := bson.M{"$setOnInsert": doc}
	result, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent delivery of the same webhook won the upsert
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert order: %w", err)
	}
	if result.UpsertedCount == 0 {
		return false, nil
	}
	if id, ok := result.UpsertedID.(primitive.ObjectID); ok {
		order.ID = id.Hex()
	}
	return true, nil
}

func (r *MongoOrderRepository) FindPending(ctx context.Context, afterID string, limit int) ([]*domain.Order, error) {
	filter, err := pendingFilter(afterID)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	defer cursor.Close(ctx)

	var orders []*domain.Order
	for cursor.Next(ctx) {
		var doc entity.MongoOrderDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		order, err := doc.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("failed to decode order payload: %w", err)
		}
		orders = append(orders, order)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return orders, nil
}

// pendingFilter selects unprocessed records after the cursor. ObjectIDs grow
// with insertion time, so id order is arrival order.
func pendingFilter(afterID string) (bson.M, error) {
	filter := bson.M{"isProcessed": bson.M{"$ne": true}}
	if afterID == "" {
		return filter, nil
	}
	oid, err := primitive.ObjectIDFromHex(afterID)
	if err != nil {
		return nil, fmt.Errorf("invalid order cursor %q: %w", afterID, err)
	}
	filter["_id"] = bson.M{"$gt": oid}
	return filter, nil
}

func (r *MongoOrderRepository) MarkProcessed(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", id, err)
	}
	filter := bson.M{"_id": oid, "isProcessed": bson.M{"$ne": true}}
	update := bson.M{"$set": bson.M{
		"isProcessed": true,
		"processedAt": at,
		"updatedAt":   at,
	}, "$unset": bson.M{"lastError": ""}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark order processed: %w", err)
	}
	return nil
}

func (r *MongoOrderRepository) RecordFailure(ctx context.Context, id string, reason string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid order id %q: %w", id, err)
	}
	update := bson.M{
		"$set": bson.M{"lastError": reason, "updatedAt": time.Now().UTC()},
		"$inc": bson.M{"attempts": 1},
	}
	if _, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update); err != nil {
		return fmt.Errorf("failed to record order failure: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/infrastructure/repository/entity"
	"shopify-integration-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storesCollection = "shopify_stores"

// MongoStoreRepository implements StoreRepository using MongoDB
type MongoStoreRepository struct {
	collection *mongo.Collection
	tokens     ports.TokenSealer
}

// NewMongoStoreRepository creates a new MongoDB store repository
func NewMongoStoreRepository(db *mongo.Database, tokens ports.TokenSealer) *MongoStoreRepository {
	return &MongoStoreRepository{
		collection: db.Collection(storesCollection),
		tokens:     tokens,
	}
}

// EnsureIndexes creates the unique shopId and token digest indexes
func (r *MongoStoreRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shopId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "accessTokenDigest", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "myshopifyDomain", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create store indexes: %w", err)
	}
	return nil
}

func (r *MongoStoreRepository) FindByShopID(ctx context.Context, shopID string) (*domain.Store, error) {
	return r.findOne(ctx, bson.M{"shopId": shopID})
}

// FindByAccessToken looks the store up by the digest of the token; the
// plaintext token is never queried
func (r *MongoStoreRepository) FindByAccessToken(ctx context.Context, accessToken string) (*domain.Store, error) {
	if accessToken == "" {
		return nil, nil
	}
	return r.findOne(ctx, bson.M{"accessTokenDigest": r.tokens.Digest(accessToken)})
}

func (r *MongoStoreRepository) FindByDomain(ctx context.Context, shopDomain string) (*domain.Store, error) {
	host := domain.StripScheme(shopDomain)
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"myshopifyDomain": host},
		bson.M{"primaryDomain.url": host},
		bson.M{"primaryDomain.url": "https://" + host},
	}})
}

func (r *MongoStoreRepository) findOne(ctx context.Context, filter bson.M) (*domain.Store, error) {
	var doc entity.MongoStoreDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	token, err := r.tokens.Open(doc.AccessToken)
	if err != nil {
		return nil, err
	}
	return doc.ToDomain(token), nil
}

// Save upserts the store keyed by shopId and returns the stored version
func (r *MongoStoreRepository) Save(ctx context.Context, store *domain.Store) (*domain.Store, error) {
	if store.ShopID == "" {
		return nil, fmt.Errorf("failed to save store: shopId is required")
	}

	sealed, digest, err := r.tokens.Seal(store.AccessToken)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := entity.MongoStoreDocFromDomain(store, sealed, digest)
	doc.UpdatedAt = now
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}

	update := storeUpdate(doc)

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var saved entity.MongoStoreDoc
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"shopId": store.ShopID}, update, opts).Decode(&saved)
	if err != nil {
		return nil, fmt.Errorf("failed to save store: %w", err)
	}
	return saved.ToDomain(store.AccessToken), nil
}

// storeUpdate sets every field of the document and unsets the optional
// ones that are now empty. Their bson tags omit empty values, so without
// the $unset a cleared field (redact, reinstall) would keep its old value.
func storeUpdate(doc *entity.MongoStoreDoc) bson.M {
	unset := bson.M{}
	if doc.AccessToken == "" {
		unset["accessToken"] = ""
		unset["accessTokenDigest"] = ""
	}
	if doc.Email == "" {
		unset["email"] = ""
	}
	if len(doc.Session) == 0 {
		unset["session"] = ""
	}
	if len(doc.MetaData) == 0 {
		unset["metaData"] = ""
	}
	if len(doc.Scopes) == 0 {
		unset["scopes"] = ""
	}
	if doc.UninstalledAt == nil {
		unset["uninstalledAt"] = ""
	}

	update := bson.M{"$set": doc}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

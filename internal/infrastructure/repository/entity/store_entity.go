package entity

import (
	"time"

	"shopify-integration-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoStoreDoc represents an installed shop in MongoDB. The access token
// is stored encrypted; accessTokenDigest is the lookup key.
type MongoStoreDoc struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"`
	ShopID            string             `bson:"shopId"`
	Name              string             `bson:"name,omitempty"`
	MyshopifyDomain   string             `bson:"myshopifyDomain,omitempty"`
	PrimaryDomain     MongoPrimaryDomain `bson:"primaryDomain"`
	Email             string             `bson:"email,omitempty"`
	AccessToken       string             `bson:"accessToken,omitempty"`
	AccessTokenDigest string             `bson:"accessTokenDigest,omitempty"`
	Scopes            []string           `bson:"scopes,omitempty"`
	Plan              MongoPlan          `bson:"plan"`
	CurrencyCode      string             `bson:"currencyCode,omitempty"`
	Session           map[string]any     `bson:"session,omitempty"`
	MetaData          map[string]any     `bson:"metaData,omitempty"`
	Disabled          bool               `bson:"disabled"`
	UninstalledAt     *time.Time         `bson:"uninstalledAt,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

type MongoPrimaryDomain struct {
	URL string `bson:"url,omitempty"`
}

type MongoPlan struct {
	DisplayName string `bson:"displayName,omitempty"`
}

// ToDomain converts the document to a domain entity. token is the already
// decrypted access token.
func (d *MongoStoreDoc) ToDomain(token string) *domain.Store {
	store := &domain.Store{
		ShopID:          d.ShopID,
		Name:            d.Name,
		MyshopifyDomain: d.MyshopifyDomain,
		PrimaryDomain:   domain.PrimaryDomain{URL: d.PrimaryDomain.URL},
		Email:           d.Email,
		AccessToken:     token,
		Scopes:          d.Scopes,
		Plan:            domain.Plan{DisplayName: d.Plan.DisplayName},
		CurrencyCode:    d.CurrencyCode,
		Session:         d.Session,
		MetaData:        d.MetaData,
		Disabled:        d.Disabled,
		UninstalledAt:   d.UninstalledAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if !d.ID.IsZero() {
		store.ID = d.ID.Hex()
	}
	return store
}

// MongoStoreDocFromDomain builds the document with the sealed token
func MongoStoreDocFromDomain(s *domain.Store, sealedToken, digest string) *MongoStoreDoc {
	doc := &MongoStoreDoc{
		ShopID:            s.ShopID,
		Name:              s.Name,
		MyshopifyDomain:   s.MyshopifyDomain,
		PrimaryDomain:     MongoPrimaryDomain{URL: s.PrimaryDomain.URL},
		Email:             s.Email,
		AccessToken:       sealedToken,
		AccessTokenDigest: digest,
		Scopes:            s.Scopes,
		Plan:              MongoPlan{DisplayName: s.Plan.DisplayName},
		CurrencyCode:      s.CurrencyCode,
		Session:           s.Session,
		MetaData:          s.MetaData,
		Disabled:          s.Disabled,
		UninstalledAt:     s.UninstalledAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	if id, err := primitive.ObjectIDFromHex(s.ID); err == nil {
		doc.ID = id
	}
	return doc
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreApply_TokenOnlyReplacedWhenSupplied(t *testing.T) {
	now := time.Now()
	s := &Store{}

	s.Apply(StoreUpsert{ShopID: "gid://1", AccessToken: "t1", Name: "Shop"}, now)
	s.Apply(StoreUpsert{ShopID: "gid://1", CurrencyCode: "EUR"}, now.Add(time.Minute))

	assert.Equal(t, "t1", s.AccessToken)
	assert.Equal(t, "Shop", s.Name)
	assert.Equal(t, "EUR", s.CurrencyCode)
	assert.Equal(t, now, s.CreatedAt)
	assert.Equal(t, now.Add(time.Minute), s.UpdatedAt)
}

func TestStoreApply_MergesMaps(t *testing.T) {
	s := &Store{MetaData: map[string]any{"a": 1}}

	s.Apply(StoreUpsert{MetaData: map[string]any{"b": 2}}, time.Now())

	assert.Equal(t, map[string]any{"a": 1, "b": 2}, s.MetaData)
}

func TestStoreApply_NewTokenReenablesUninstalledStore(t *testing.T) {
	s := &Store{ShopID: "gid://1", AccessToken: "t1"}
	s.MarkUninstalled(time.Now())
	assert.True(t, s.Disabled)
	assert.Empty(t, s.AccessToken)

	s.Apply(StoreUpsert{AccessToken: "t2"}, time.Now())

	assert.False(t, s.Disabled)
	assert.Nil(t, s.UninstalledAt)
	assert.Equal(t, "t2", s.AccessToken)
}

func TestStoreDomain(t *testing.T) {
	assert.Equal(t, "demo.myshopify.com", (&Store{MyshopifyDomain: "https://demo.myshopify.com/"}).Domain())
	assert.Equal(t, "shop.example.com", (&Store{PrimaryDomain: PrimaryDomain{URL: "http://shop.example.com"}}).Domain())
}

func TestExtractOrderID(t *testing.T) {
	assert.Equal(t, "820982911946154508", ExtractOrderID([]byte(`{"id":820982911946154508}`)))
	assert.Equal(t, "450789469", ExtractOrderID([]byte(`{"id":1,"order_id":450789469}`)))
	assert.Empty(t, ExtractOrderID([]byte(`not json`)))
}

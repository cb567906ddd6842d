package webhook_handlers

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dedupOrders mirrors the unique sparse index on webhookInfo.webhookId
type dedupOrders struct {
	mu      sync.Mutex
	records []*domain.Order
	err     error
}

func (r *dedupOrders) InsertIfAbsent(_ context.Context, o *domain.Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if id := o.WebhookInfo.WebhookID; id != "" {
		for _, existing := range r.records {
			if existing.WebhookInfo.WebhookID == id {
				return false, nil
			}
		}
	}
	r.records = append(r.records, o)
	return true, nil
}

func (r *dedupOrders) FindPending(context.Context, string, int) ([]*domain.Order, error) {
	return nil, nil
}
func (r *dedupOrders) MarkProcessed(context.Context, string, time.Time) error { return nil }
func (r *dedupOrders) RecordFailure(context.Context, string, string) error    { return nil }

type oneStore struct {
	store *domain.Store
	saved *domain.Store
}

func (s *oneStore) FindByShopID(context.Context, string) (*domain.Store, error) { return s.store, nil }
func (s *oneStore) FindByAccessToken(context.Context, string) (*domain.Store, error) {
	return s.store, nil
}
func (s *oneStore) FindByDomain(_ context.Context, shop string) (*domain.Store, error) {
	if s.store == nil || s.store.Domain() != shop {
		return nil, nil
	}
	c := *s.store
	return &c, nil
}
func (s *oneStore) Save(_ context.Context, st *domain.Store) (*domain.Store, error) {
	s.saved = st
	return st, nil
}

func orderEvent(webhookID string) *domain.WebhookEvent {
	return &domain.WebhookEvent{
		Topic:     domain.TopicOrdersCreate,
		Shop:      "demo.myshopify.com",
		WebhookID: webhookID,
		HMAC:      "sig",
		Payload:   []byte(`{"id":1001,"total_price":"9.99"}`),
	}
}

func TestOrderHandler_DeduplicatesByWebhookID(t *testing.T) {
	repo := &dedupOrders{}
	h := NewOrderHandler(repo, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, orderEvent("wh-1")))
	require.NoError(t, h.Handle(ctx, orderEvent("wh-1")))
	require.Len(t, repo.records, 1)

	rec := repo.records[0]
	assert.Equal(t, "1001", rec.OrderID)
	assert.False(t, rec.IsProcessed)
	assert.Equal(t, domain.WebhookInfo{
		Topic:      "orders/create",
		ShopDomain: "demo.myshopify.com",
		HMAC:       "sig",
		WebhookID:  "wh-1",
	}, rec.WebhookInfo)
}

func TestOrderHandler_WithoutWebhookIDStoresEveryDelivery(t *testing.T) {
	repo := &dedupOrders{}
	h := NewOrderHandler(repo, zerolog.Nop())

	require.NoError(t, h.Handle(context.Background(), orderEvent("")))
	require.NoError(t, h.Handle(context.Background(), orderEvent("")))
	assert.Len(t, repo.records, 2)
}

func TestOrderHandler_PersistenceFailureIsServerError(t *testing.T) {
	h := NewOrderHandler(&dedupOrders{err: errors.New("mongo down")}, zerolog.Nop())
	err := h.Handle(context.Background(), orderEvent("wh-1"))
	assert.Equal(t, 500, domain.StatusOf(err))
}

func TestHandlers_CanHandle(t *testing.T) {
	log := zerolog.Nop()
	assert.True(t, NewOrderHandler(nil, log).CanHandle(domain.TopicRefundsCreate))
	assert.False(t, NewOrderHandler(nil, log).CanHandle(domain.TopicProductsCreate))
	assert.True(t, NewCustomerHandler(log).CanHandle(domain.TopicCustomersDataRequest))
	assert.True(t, NewProductHandler(log).CanHandle(domain.TopicProductsDelete))
	assert.True(t, NewBillingHandler(log).CanHandle(domain.TopicBillingAttemptFailed))
	assert.True(t, NewShopHandler(nil, log).CanHandle(domain.TopicShopRedact))
	assert.True(t, NewAppUninstalledHandler(nil, log).CanHandle(domain.TopicAppUninstalled))
	assert.False(t, NewAppUninstalledHandler(nil, log).CanHandle(domain.TopicShopUpdate))
}

func TestAppUninstalledHandler_DisablesStore(t *testing.T) {
	repo := &oneStore{store: &domain.Store{
		ShopID:          "s1",
		MyshopifyDomain: "demo.myshopify.com",
		AccessToken:     "shpua_live",
	}}
	h := NewAppUninstalledHandler(repo, zerolog.Nop())

	err := h.Handle(context.Background(), &domain.WebhookEvent{
		Topic:   domain.TopicAppUninstalled,
		Shop:    "demo.myshopify.com",
		Payload: []byte(`{"id":1,"myshopify_domain":"demo.myshopify.com"}`),
	})
	require.NoError(t, err)
	require.NotNil(t, repo.saved)
	assert.True(t, repo.saved.Disabled)
	assert.Empty(t, repo.saved.AccessToken)
	assert.NotNil(t, repo.saved.UninstalledAt)
}

func TestAppUninstalledHandler_UnknownStoreIsAcknowledged(t *testing.T) {
	repo := &oneStore{}
	h := NewAppUninstalledHandler(repo, zerolog.Nop())
	err := h.Handle(context.Background(), &domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "gone.myshopify.com"})
	assert.NoError(t, err)
	assert.Nil(t, repo.saved)
}

func TestShopHandler_UpdateAndRedact(t *testing.T) {
	repo := &oneStore{store: &domain.Store{
		ShopID:          "s1",
		MyshopifyDomain: "demo.myshopify.com",
		Email:           "old@demo.test",
		MetaData:        map[string]any{"k": "v"},
		Session:         map[string]any{"s": 1},
	}}
	h := NewShopHandler(repo, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, &domain.WebhookEvent{
		Topic:   domain.TopicShopUpdate,
		Shop:    "demo.myshopify.com",
		Payload: []byte(`{"name":"Renamed","currency":"CAD","plan_display_name":"Plus"}`),
	}))
	assert.Equal(t, "Renamed", repo.saved.Name)
	assert.Equal(t, "CAD", repo.saved.CurrencyCode)
	assert.Equal(t, "Plus", repo.saved.Plan.DisplayName)
	assert.Equal(t, "old@demo.test", repo.saved.Email)

	require.NoError(t, h.Handle(ctx, &domain.WebhookEvent{
		Topic:   domain.TopicShopRedact,
		Shop:    "demo.myshopify.com",
		Payload: []byte(`{"shop_id":1,"shop_domain":"demo.myshopify.com"}`),
	}))
	assert.Nil(t, repo.saved.MetaData)
	assert.Nil(t, repo.saved.Session)
	assert.Empty(t, repo.saved.Email)
}

func TestLoggingHandlersTolerateOddPayloads(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := context.Background()
	junk := []byte(`not json`)
	assert.NoError(t, NewCustomerHandler(log).Handle(ctx, &domain.WebhookEvent{Topic: domain.TopicCustomersRedact, Payload: junk}))
	assert.NoError(t, NewProductHandler(log).Handle(ctx, &domain.WebhookEvent{Topic: domain.TopicProductsUpdate, Payload: junk}))
	assert.NoError(t, NewBillingHandler(log).Handle(ctx, &domain.WebhookEvent{Topic: domain.TopicAppSubscriptionsUpdate, Payload: junk}))
	assert.NoError(t, NewAppUninstalledHandler(&oneStore{}, log).Handle(ctx, &domain.WebhookEvent{Topic: domain.TopicAppUninstalled, Shop: "gone.myshopify.com", Payload: junk}))

	assert.Equal(t, 4, strings.Count(buf.String(), "Webhook payload is not the expected shape"))
	assert.Contains(t, buf.String(), `"topic":"products/update"`)
}

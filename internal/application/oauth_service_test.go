package application

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type oauthFixture struct {
	svc     *OAuthService
	oauth   *fakeOAuth
	admin   *fakeAdmin
	gateway *fakeGateway
	stores  *memStores
	states  *memStates
}

func newOAuthFixture(webhookAddress string) *oauthFixture {
	f := &oauthFixture{
		oauth: &fakeOAuth{
			validSig: true,
			grant:    &domain.TokenGrant{AccessToken: "shpua_new", Scopes: []string{"read_products"}},
		},
		admin: &fakeAdmin{info: &domain.ShopInfo{
			ID:              42,
			Name:            "Demo",
			Email:           "owner@demo.test",
			Domain:          "demo.test",
			MyshopifyDomain: "demo.myshopify.com",
			Currency:        "EUR",
			PlanDisplayName: "Basic",
		}},
		gateway: newFakeGateway(),
		stores:  newMemStores(),
		states:  newMemStates(),
	}
	f.svc = NewOAuthService(f.oauth, f.admin, f.gateway, f.stores, f.states, OAuthServiceConfig{
		WebhookAddress: webhookAddress,
		Topics:         []domain.WebhookTopic{domain.TopicOrdersCreate, domain.TopicAppUninstalled},
	}, zerolog.Nop())
	return f
}

func (f *oauthFixture) callback(state string) url.Values {
	return url.Values{
		"shop":  {"demo.myshopify.com"},
		"code":  {"abc"},
		"hmac":  {"deadbeef"},
		"state": {state},
	}
}

func (f *oauthFixture) install(t *testing.T) string {
	t.Helper()
	_, err := f.svc.BuildInstallURL(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	st := f.states.only()
	require.NotNil(t, st)
	return st.State
}

func TestBuildInstallURL_PersistsState(t *testing.T) {
	f := newOAuthFixture("")
	authURL, err := f.svc.BuildInstallURL(context.Background(), "https://Demo.myshopify.com/")
	require.NoError(t, err)

	st := f.states.only()
	require.NotNil(t, st)
	assert.Equal(t, "demo.myshopify.com", st.Shop)
	assert.Len(t, st.State, 43)
	assert.Equal(t, domain.OAuthStateTTL, st.ExpiresAt.Sub(st.CreatedAt))
	assert.Contains(t, authURL, url.QueryEscape(st.State))
}

func TestBuildInstallURL_RejectsForeignDomain(t *testing.T) {
	f := newOAuthFixture("")
	_, err := f.svc.BuildInstallURL(context.Background(), "evil.example.com")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, domain.StatusOf(err))
	assert.Nil(t, f.states.only())
}

func TestHandleCallback_Success(t *testing.T) {
	f := newOAuthFixture("https://app.test/webhooks/shopify")
	state := f.install(t)

	store, err := f.svc.HandleCallback(context.Background(), f.callback(state))
	require.NoError(t, err)

	assert.Equal(t, "gid://shopify/Shop/42", store.ShopID)
	assert.Equal(t, "shpua_new", store.AccessToken)
	assert.Equal(t, "Demo", store.Name)
	assert.Equal(t, "EUR", store.CurrencyCode)
	assert.Equal(t, []string{"read_products"}, store.Scopes)
	assert.ElementsMatch(t, []string{"orders/create", "app/uninstalled"}, f.admin.registered)

	_, err = f.svc.HandleCallback(context.Background(), f.callback(state))
	assert.Equal(t, http.StatusForbidden, domain.StatusOf(err), "a state is redeemable once")
}

func TestHandleCallback_UsesGrantedAccessScopes(t *testing.T) {
	f := newOAuthFixture("")
	f.gateway.on("GET", "oauth/access_scopes.json", `{"access_scopes":[{"handle":"read_orders"},{"handle":"write_themes"}]}`)
	state := f.install(t)

	store, err := f.svc.HandleCallback(context.Background(), f.callback(state))
	require.NoError(t, err)
	assert.Equal(t, []string{"read_orders", "write_themes"}, store.Scopes)
	assert.Empty(t, f.admin.registered)
}

func TestHandleCallback_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *oauthFixture, q url.Values)
		status int
	}{
		{
			name:   "missing code",
			mutate: func(_ *oauthFixture, q url.Values) { q.Del("code") },
			status: http.StatusBadRequest,
		},
		{
			name:   "missing hmac",
			mutate: func(_ *oauthFixture, q url.Values) { q.Del("hmac") },
			status: http.StatusBadRequest,
		},
		{
			name:   "bad signature",
			mutate: func(f *oauthFixture, _ url.Values) { f.oauth.validSig = false },
			status: http.StatusForbidden,
		},
		{
			name:   "missing state",
			mutate: func(_ *oauthFixture, q url.Values) { q.Del("state") },
			status: http.StatusForbidden,
		},
		{
			name:   "unknown state",
			mutate: func(_ *oauthFixture, q url.Values) { q.Set("state", "forged") },
			status: http.StatusForbidden,
		},
		{
			name: "state issued for another shop",
			mutate: func(f *oauthFixture, q url.Values) {
				st := f.states.only()
				st.Shop = "other.myshopify.com"
			},
			status: http.StatusForbidden,
		},
		{
			name: "expired state",
			mutate: func(f *oauthFixture, _ url.Values) {
				f.svc.now = func() time.Time { return time.Now().Add(domain.OAuthStateTTL + time.Minute) }
			},
			status: http.StatusForbidden,
		},
		{
			name: "code rejected upstream",
			mutate: func(f *oauthFixture, _ url.Values) {
				f.oauth.err = domain.NewUpstreamError(400, "invalid code", "invalid_request")
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOAuthFixture("")
			q := f.callback(f.install(t))
			tt.mutate(f, q)

			store, err := f.svc.HandleCallback(context.Background(), q)
			require.Error(t, err)
			assert.Nil(t, store)
			assert.Equal(t, tt.status, domain.StatusOf(err))
			assert.Zero(t, f.stores.count())
		})
	}
}

func TestHandleCallback_WebhookRegistrationFailureIsNotFatal(t *testing.T) {
	f := newOAuthFixture("https://app.test/webhooks/shopify")
	f.admin.webhookErr = errors.New("boom")

	store, err := f.svc.HandleCallback(context.Background(), f.callback(f.install(t)))
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Len(t, f.admin.registered, 2)
}

func TestHandleCallback_ShopInfoFailureAborts(t *testing.T) {
	f := newOAuthFixture("")
	f.admin.err = errors.New("unreachable")

	_, err := f.svc.HandleCallback(context.Background(), f.callback(f.install(t)))
	require.Error(t, err)
	assert.Zero(t, f.stores.count())
}

func TestUpsertStore_IsIdempotentPerShopID(t *testing.T) {
	f := newOAuthFixture("")
	ctx := context.Background()

	first, err := f.svc.UpsertStore(ctx, domain.StoreUpsert{ShopID: "s1", AccessToken: "shpua_t1", Name: "One"})
	require.NoError(t, err)
	second, err := f.svc.UpsertStore(ctx, domain.StoreUpsert{ShopID: "s1", AccessToken: "shpua_t1"})
	require.NoError(t, err)
	third, err := f.svc.UpsertStore(ctx, domain.StoreUpsert{ShopID: "s1", AccessToken: "shpua_t2", Email: "a@b.test"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.stores.count())
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, "shpua_t2", third.AccessToken)
	assert.Equal(t, "One", third.Name)
	assert.Equal(t, "a@b.test", third.Email)
	assert.Equal(t, first.CreatedAt, third.CreatedAt)
}

func TestUpsertStore_EmptyTokenKeepsExisting(t *testing.T) {
	f := newOAuthFixture("")
	ctx := context.Background()

	_, err := f.svc.UpsertStore(ctx, domain.StoreUpsert{ShopID: "s1", AccessToken: "shpua_t1"})
	require.NoError(t, err)
	got, err := f.svc.UpsertStore(ctx, domain.StoreUpsert{ShopID: "s1", MetaData: map[string]any{"k": "v"}})
	require.NoError(t, err)

	assert.Equal(t, "shpua_t1", got.AccessToken)
	assert.Equal(t, "v", got.MetaData["k"])
}

func TestUpsertStore_ConcurrentCallsYieldOneRecord(t *testing.T) {
	f := newOAuthFixture("")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.svc.UpsertStore(context.Background(), domain.StoreUpsert{ShopID: "s1", AccessToken: "shpua_t1"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.stores.count())
}

func TestUpsertStore_RequiresShopID(t *testing.T) {
	f := newOAuthFixture("")
	_, err := f.svc.UpsertStore(context.Background(), domain.StoreUpsert{AccessToken: "x"})
	assert.Equal(t, http.StatusBadRequest, domain.StatusOf(err))
}

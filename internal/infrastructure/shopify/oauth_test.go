package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "hush"

func callbackQuery() url.Values {
	q := url.Values{}
	q.Set("code", "0907a61c0c8d55e99db179b68161bc00")
	q.Set("shop", "some-shop.myshopify.com")
	q.Set("state", "0.6784241404160823")
	q.Set("timestamp", "1337178173")
	q.Set("hmac", signCallback(q, testSecret))
	return q
}

// signCallback signs a parameter set the way Shopify does: hmac and
// signature dropped, sorted keys, unescaped values, lowercase hex
func signCallback(query url.Values, secret string) string {
	params := url.Values{}
	for k, v := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		params[k] = v
	}
	message, _ := url.QueryUnescape(params.Encode())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func newTestOAuthClient(httpClient *http.Client) *oauthClient {
	c := NewOAuthClient(OAuthConfig{
		APIKey:      "key",
		APISecret:   testSecret,
		RedirectURI: "https://app.example.com/shopify-o-auth/callback",
		Scopes:      []string{"read_products", "write_orders"},
	}, httpClient, zerolog.Nop())
	return c.(*oauthClient)
}

func TestVerifyCallback_AcceptsOwnSignature(t *testing.T) {
	c := newTestOAuthClient(http.DefaultClient)
	assert.True(t, c.VerifyCallback(callbackQuery()))
}

func TestVerifyCallback_DocumentedExample(t *testing.T) {
	c := newTestOAuthClient(http.DefaultClient)
	q, err := url.ParseQuery("code=0907a61c0c8d55e99db179b68161bc00&hmac=4712bf92ffc2917d15a2f5a273e39f0116667419aa4b6ac0b3baaf26fa3c4d20" +
		"&shop=some-shop.myshopify.com&signature=11813d1e7bbf4629edcda0628a3f7a20&timestamp=1337178173")
	require.NoError(t, err)
	assert.True(t, c.VerifyCallback(q))

	q.Set("timestamp", "133717817")
	assert.False(t, c.VerifyCallback(q))
}

func TestVerifyCallback_EmptySecretRejects(t *testing.T) {
	c := NewOAuthClient(OAuthConfig{APIKey: "key"}, http.DefaultClient, zerolog.Nop())
	q := callbackQuery()
	q.Set("hmac", signCallback(q, ""))
	assert.False(t, c.VerifyCallback(q))
}

func TestVerifyCallback_IgnoresSignatureParameter(t *testing.T) {
	c := newTestOAuthClient(http.DefaultClient)
	q := callbackQuery()
	q.Set("signature", "legacy")
	assert.True(t, c.VerifyCallback(q))
}

func TestVerifyCallback_RejectsTampering(t *testing.T) {
	c := newTestOAuthClient(http.DefaultClient)

	cases := map[string]func(q url.Values){
		"missing hmac": func(q url.Values) { q.Del("hmac") },
		"wrong value":  func(q url.Values) { q.Set("hmac", strings.Repeat("0", 64)) },
		"one char removed": func(q url.Values) {
			h := q.Get("hmac")
			q.Set("hmac", h[:len(h)-1])
		},
		"case mutated":  func(q url.Values) { q.Set("hmac", strings.ToUpper(q.Get("hmac"))) },
		"param changed": func(q url.Values) { q.Set("shop", "other-shop.myshopify.com") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			q := callbackQuery()
			mutate(q)
			assert.False(t, c.VerifyCallback(q))
		})
	}
}

func TestAuthorizeURL_CarriesStateAndScopes(t *testing.T) {
	c := newTestOAuthClient(http.DefaultClient)

	raw, err := c.AuthorizeURL("some-shop.myshopify.com", "nonce-1")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "some-shop.myshopify.com", u.Host)
	assert.Equal(t, "/admin/oauth/authorize", u.Path)
	assert.Equal(t, "key", u.Query().Get("client_id"))
	assert.Equal(t, "nonce-1", u.Query().Get("state"))
	assert.Equal(t, "read_products,write_orders", u.Query().Get("scope"))
}

func TestExchangeToken_Success(t *testing.T) {
	client := shopServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key", body["client_id"])
		assert.Equal(t, testSecret, body["client_secret"])
		assert.Equal(t, "the-code", body["code"])
		assert.Empty(t, r.Header.Get(AccessTokenHeader))
		_, _ = w.Write([]byte(`{"access_token":"shpua_abc","scope":"read_products, write_orders"}`))
	})

	c := newTestOAuthClient(client)
	grant, err := c.ExchangeToken(context.Background(), "some-shop.myshopify.com", "the-code")
	require.NoError(t, err)
	assert.Equal(t, "shpua_abc", grant.AccessToken)
	assert.Equal(t, []string{"read_products", "write_orders"}, grant.Scopes)
}

func TestExchangeToken_RejectedCodeSurfacesBody(t *testing.T) {
	client := shopServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request","error_description":"The authorization code was not found or was already used"}`))
	})

	c := newTestOAuthClient(client)
	_, err := c.ExchangeToken(context.Background(), "some-shop.myshopify.com", "used")

	de, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindUpstream, de.Kind)
	assert.Equal(t, http.StatusBadRequest, de.HTTPStatus())
	assert.Equal(t, "failed to get access token", de.Message)
	assert.Equal(t, "The authorization code was not found or was already used", de.Details)
}

func TestIsValidShopDomain(t *testing.T) {
	assert.True(t, IsValidShopDomain("my-shop-1.myshopify.com"))
	assert.False(t, IsValidShopDomain("my-shop.example.com"))
	assert.False(t, IsValidShopDomain(".myshopify.com"))
	assert.False(t, IsValidShopDomain("evil.com/.myshopify.com"))
}

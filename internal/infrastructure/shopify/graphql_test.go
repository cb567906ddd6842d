package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shopify-integration-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDocument(t *testing.T) {
	assert.NoError(t, ValidateDocument(`query { shop { name } }`))
	assert.Error(t, ValidateDocument(``))
	assert.Error(t, ValidateDocument(`query { shop { name }`))
}

func TestGraphQL_AdminDecodesData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2025-01/graphql.json", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get(AccessTokenHeader))
		var body struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gid://shopify/MediaImage/1", body.Variables["id"])
		_, _ = w.Write([]byte(`{"data":{"node":{"fileStatus":"READY"}}}`))
	}))
	defer server.Close()

	c := NewGraphQLClient(GraphQLConfig{}, server.Client(), zerolog.Nop())
	target := domain.Target{BaseURL: server.URL + "/admin/api/2025-01", AccessToken: "tok"}

	var out struct {
		Node struct {
			FileStatus string `json:"fileStatus"`
		} `json:"node"`
	}
	err := c.Admin(context.Background(), target, `query($id: ID!) { node(id: $id) { ... on MediaImage { fileStatus } } }`,
		map[string]any{"id": "gid://shopify/MediaImage/1"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "READY", out.Node.FileStatus)
}

func TestGraphQL_ErrorsBecomeUpstreamErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"Field 'nope' doesn't exist"}]}`))
	}))
	defer server.Close()

	c := NewGraphQLClient(GraphQLConfig{}, server.Client(), zerolog.Nop())
	err := c.Admin(context.Background(), domain.Target{BaseURL: server.URL}, `{ nope }`, nil, nil)

	require.Error(t, err)
	assert.True(t, IsUserError(err))
	assert.Contains(t, err.Error(), "nope")
}

func TestGraphQL_StorefrontAndPartnerHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/2025-01/graphql.json") && r.Header.Get("Authorization") != "":
			assert.Equal(t, "Bearer ptok", r.Header.Get("Authorization"))
		default:
			assert.Equal(t, "sftok", r.Header.Get("X-Shopify-Storefront-Access-Token"))
		}
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	c := NewGraphQLClient(GraphQLConfig{
		StorefrontDomain: host,
		StorefrontToken:  "sftok",
		PartnerToken:     "ptok",
		PartnerAPIURL:    server.URL,
	}, server.Client(), zerolog.Nop(), WithScheme("http"))

	require.NoError(t, c.Storefront(context.Background(), `{ shop { name } }`, nil, nil))
	require.NoError(t, c.Partner(context.Background(), `{ organizations { nodes { id } } }`, nil, nil))
}

func TestGraphQL_UnconfiguredStorefront(t *testing.T) {
	c := NewGraphQLClient(GraphQLConfig{}, http.DefaultClient, zerolog.Nop())
	err := c.Storefront(context.Background(), `{ shop { name } }`, nil, nil)
	assert.Equal(t, http.StatusBadRequest, domain.StatusOf(err))
}

package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"shopify-integration-layer/internal/domain"
	"shopify-integration-layer/internal/ports"
)

type memStores struct {
	mu     sync.Mutex
	byID   map[string]*domain.Store
	saves  int
	err    error
	nextID int
}

func newMemStores(stores ...*domain.Store) *memStores {
	m := &memStores{byID: map[string]*domain.Store{}}
	for _, s := range stores {
		m.byID[s.ShopID] = s
	}
	return m
}

func (m *memStores) clone(s *domain.Store) *domain.Store {
	c := *s
	return &c
}

func (m *memStores) FindByShopID(_ context.Context, shopID string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.byID[shopID]; ok {
		return m.clone(s), nil
	}
	return nil, nil
}

func (m *memStores) FindByAccessToken(_ context.Context, token string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.byID {
		if s.AccessToken != "" && s.AccessToken == token {
			return m.clone(s), nil
		}
	}
	return nil, nil
}

func (m *memStores) FindByDomain(_ context.Context, shop string) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.Domain() == domain.StripScheme(shop) {
			return m.clone(s), nil
		}
	}
	return nil, nil
}

func (m *memStores) Save(_ context.Context, s *domain.Store) (*domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.saves++
	c := m.clone(s)
	if c.ID == "" {
		m.nextID++
		c.ID = fmt.Sprintf("store-%d", m.nextID)
	}
	m.byID[c.ShopID] = c
	return m.clone(c), nil
}

func (m *memStores) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

type memStates struct {
	mu     sync.Mutex
	states map[string]*domain.OAuthState
}

func newMemStates() *memStates {
	return &memStates{states: map[string]*domain.OAuthState{}}
}

func (m *memStates) Save(_ context.Context, st *domain.OAuthState, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[st.State] = st
	return nil
}

func (m *memStates) Consume(_ context.Context, state string) (*domain.OAuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[state]
	if !ok {
		return nil, nil
	}
	delete(m.states, state)
	return st, nil
}

func (m *memStates) only() *domain.OAuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range m.states {
		return st
	}
	return nil
}

type fakeOAuth struct {
	validSig bool
	grant    *domain.TokenGrant
	err      error
}

func (f *fakeOAuth) AuthorizeURL(shop, state string) (string, error) {
	return fmt.Sprintf("https://%s/admin/oauth/authorize?state=%s", shop, url.QueryEscape(state)), nil
}

func (f *fakeOAuth) VerifyCallback(url.Values) bool { return f.validSig }

func (f *fakeOAuth) ExchangeToken(context.Context, string, string) (*domain.TokenGrant, error) {
	return f.grant, f.err
}

type fakeAdmin struct {
	mu         sync.Mutex
	info       *domain.ShopInfo
	err        error
	webhookErr error
	registered []string
}

func (f *fakeAdmin) GetShop(context.Context, string, string) (*domain.ShopInfo, error) {
	return f.info, f.err
}

func (f *fakeAdmin) RegisterWebhook(_ context.Context, _, _, topic, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered = append(f.registered, topic)
	return f.webhookErr
}

type gatewayCall struct {
	Method   string
	Endpoint string
	Body     any
}

// fakeGateway answers "METHOD endpoint" keys with canned bodies
type fakeGateway struct {
	mu        sync.Mutex
	responses map[string]*domain.APIResponse
	errs      map[string]error
	calls     []gatewayCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{responses: map[string]*domain.APIResponse{}, errs: map[string]error{}}
}

func (g *fakeGateway) on(method, endpoint, body string) {
	g.responses[method+" "+endpoint] = &domain.APIResponse{Data: json.RawMessage(body), StatusCode: 200}
}

func (g *fakeGateway) fail(method, endpoint string, err error) {
	g.errs[method+" "+endpoint] = err
}

func (g *fakeGateway) ResolveStoreBaseURL(context.Context, ports.StoreLookup) (domain.Target, error) {
	return domain.Target{}, errors.New("not used")
}

func (g *fakeGateway) TargetFor(store *domain.Store) domain.Target {
	return domain.Target{
		ShopID:      store.ShopID,
		Domain:      store.Domain(),
		BaseURL:     "https://" + store.Domain() + "/admin/api/test",
		AccessToken: store.AccessToken,
	}
}

func (g *fakeGateway) call(method, endpoint string, body any) (*domain.APIResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	// round-trip so tests assert on the wire shape
	var decoded any
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		_ = json.Unmarshal(raw, &decoded)
	}
	g.calls = append(g.calls, gatewayCall{Method: method, Endpoint: endpoint, Body: decoded})
	key := method + " " + endpoint
	if err, ok := g.errs[key]; ok {
		return nil, err
	}
	if resp, ok := g.responses[key]; ok {
		return resp, nil
	}
	return &domain.APIResponse{Data: json.RawMessage(`{}`), StatusCode: 200}, nil
}

func (g *fakeGateway) Get(_ context.Context, _ domain.Target, endpoint string) (*domain.APIResponse, error) {
	return g.call("GET", endpoint, nil)
}

func (g *fakeGateway) Post(_ context.Context, _ domain.Target, endpoint string, body any) (*domain.APIResponse, error) {
	return g.call("POST", endpoint, body)
}

func (g *fakeGateway) Put(_ context.Context, _ domain.Target, endpoint string, body any) (*domain.APIResponse, error) {
	return g.call("PUT", endpoint, body)
}

func (g *fakeGateway) GetAccessScopes(context.Context, domain.Target) (*domain.APIResponse, error) {
	return g.call("GET", "oauth/access_scopes.json", nil)
}

func (g *fakeGateway) methods() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.Method+" "+c.Endpoint)
	}
	return out
}

func (g *fakeGateway) body(i int) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, _ := g.calls[i].Body.(map[string]any)
	return m
}

// fakeGraphQL replies to documents by the first matching substring
type fakeGraphQL struct {
	mu      sync.Mutex
	replies []graphQLReply
	calls   []graphQLCall
}

type graphQLReply struct {
	contains string
	data     string
	err      error
}

type graphQLCall struct {
	API       string
	Query     string
	Variables map[string]any
}

func (f *fakeGraphQL) reply(contains, data string) {
	f.replies = append(f.replies, graphQLReply{contains: contains, data: data})
}

func (f *fakeGraphQL) fail(contains string, err error) {
	f.replies = append(f.replies, graphQLReply{contains: contains, err: err})
}

func (f *fakeGraphQL) do(api, query string, vars map[string]any, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, graphQLCall{API: api, Query: query, Variables: vars})
	for _, r := range f.replies {
		if !strings.Contains(query, r.contains) {
			continue
		}
		if r.err != nil {
			return r.err
		}
		return json.Unmarshal([]byte(r.data), out)
	}
	return fmt.Errorf("no reply for query")
}

func (f *fakeGraphQL) Admin(_ context.Context, _ domain.Target, q string, v map[string]any, out any) error {
	return f.do("admin", q, v, out)
}

func (f *fakeGraphQL) Storefront(_ context.Context, q string, v map[string]any, out any) error {
	return f.do("storefront", q, v, out)
}

func (f *fakeGraphQL) Partner(_ context.Context, q string, v map[string]any, out any) error {
	return f.do("partner", q, v, out)
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = raw
	return "https://cdn.test/" + key, nil
}

func (b *memBlobs) Get(_ context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *memBlobs) keys(prefix string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for k := range b.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

package shopify

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"shopify-integration-layer/internal/ports"
)

// exchange is what the platform answered for one call. The body is kept
// only for non-2xx answers, since go-shopify flattens the errors member.
type exchange struct {
	status int
	body   []byte
}

type exchangeKey struct{}

func withExchange(ctx context.Context) (context.Context, *exchange) {
	ex := &exchange{}
	return context.WithValue(ctx, exchangeKey{}, ex), ex
}

// recordingTransport reports every response to metrics and fills the
// exchange carried by the request context
type recordingTransport struct {
	base    http.RoundTripper
	metrics ports.Metrics
}

func (t *recordingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.record(req.Method, 0)
		return nil, err
	}
	t.record(req.Method, resp.StatusCode)

	ex, ok := req.Context().Value(exchangeKey{}).(*exchange)
	if !ok {
		return resp, nil
	}
	ex.status = resp.StatusCode
	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		ex.body = raw
		resp.Body = io.NopCloser(bytes.NewReader(raw))
	}
	return resp, nil
}

func (t *recordingTransport) record(method string, status int) {
	if t.metrics != nil {
		t.metrics.GatewayRequest(method, status)
	}
}

// instrument copies the client with a recording transport in front of its own
func instrument(client *http.Client, metrics ports.Metrics) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	c := *client
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.Transport = &recordingTransport{base: base, metrics: metrics}
	return &c
}

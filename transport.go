package nagad

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Transport performs JSON calls against the gateway. Implementations return
// an [*Error] of type TransportTimeoutError or TransportError on failure and
// a response whose body is valid JSON otherwise, whatever the status code.
type Transport interface {
	Post(ctx context.Context, url string, body any, header http.Header) (*GatewayResponse, error)
	Get(ctx context.Context, url string, header http.Header) (*GatewayResponse, error)
}

// TransportFunc adapts a function to the Transport interface. The body is
// nil for GET requests.
type TransportFunc func(ctx context.Context, method, url string, body any, header http.Header) (*GatewayResponse, error)

// Post implements Transport.
func (f TransportFunc) Post(ctx context.Context, url string, body any, header http.Header) (*GatewayResponse, error) {
	return f(ctx, http.MethodPost, url, body, header)
}

// Get implements Transport.
func (f TransportFunc) Get(ctx context.Context, url string, header http.Header) (*GatewayResponse, error) {
	return f(ctx, http.MethodGet, url, nil, header)
}

// RestyTransport is the default Transport.
type RestyTransport struct {
	client *resty.Client
}

// NewRestyTransport builds a transport with the given per-request timeout.
func NewRestyTransport(timeout time.Duration, insecureSkipVerify bool) *RestyTransport {
	client := resty.New().SetTimeout(timeout)
	if insecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // opt-in for sandbox hosts
	}
	return &RestyTransport{client: client}
}

// NewRestyTransportWithClient wraps a preconfigured resty client.
func NewRestyTransportWithClient(client *resty.Client) *RestyTransport {
	return &RestyTransport{client: client}
}

// Post implements Transport.
func (t *RestyTransport) Post(ctx context.Context, url string, body any, header http.Header) (*GatewayResponse, error) {
	req := t.request(ctx, header).SetBody(body)
	resp, err := req.Post(url)
	return gatewayResponse(ctx, http.MethodPost, url, resp, err)
}

// Get implements Transport.
func (t *RestyTransport) Get(ctx context.Context, url string, header http.Header) (*GatewayResponse, error) {
	resp, err := t.request(ctx, header).Get(url)
	return gatewayResponse(ctx, http.MethodGet, url, resp, err)
}

func (t *RestyTransport) request(ctx context.Context, header http.Header) *resty.Request {
	req := t.client.R().SetContext(ctx)
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	return req
}

func gatewayResponse(ctx context.Context, method, url string, resp *resty.Response, err error) (*GatewayResponse, error) {
	if err != nil {
		return nil, transportFailure(ctx, method, url, err)
	}
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 {
		return nil, NewTransportError(fmt.Sprintf("%s %s: empty response body (status %d)", method, url, resp.StatusCode()))
	}
	if !json.Valid(body) {
		return nil, NewTransportError(fmt.Sprintf("%s %s: response is not JSON (status %d)", method, url, resp.StatusCode()))
	}
	return &GatewayResponse{StatusCode: resp.StatusCode(), Body: json.RawMessage(body)}, nil
}

func transportFailure(ctx context.Context, method, url string, err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(errors.As(err, &netErr) && netErr.Timeout()) || (ctx != nil && ctx.Err() != nil) {
		return NewTransportTimeoutError(fmt.Sprintf("%s %s: gateway did not answer in time", method, url), WithCause(err))
	}
	return NewTransportError(fmt.Sprintf("%s %s: request failed", method, url), WithCause(err))
}

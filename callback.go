package nagad

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// CallbackResult is the query string the gateway appends when it sends the
// customer back to the merchant callback URL.
type CallbackResult struct {
	MerchantID         string `json:"merchant"`
	OrderID            string `json:"order_id"`
	PaymentReferenceID string `json:"payment_ref_id"`
	Status             string `json:"status"`
	StatusCode         string `json:"status_code"`
	Message            string `json:"message,omitempty"`
	PaymentDateTime    string `json:"payment_dt,omitempty"`
	IssuerPaymentRef   string `json:"issuer_payment_ref,omitempty"`

	// Verification is the gateway's own record of the payment. It is only
	// set when the handler is built with [WithCallbackVerification].
	Verification *PaymentVerification `json:"verification,omitempty"`
}

// Succeeded reports whether the callback claims success. Callers that act
// on money movement should check Verification as well.
func (r *CallbackResult) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// ParseCallback reads the callback query parameters. payment_ref_id and
// status are required.
func ParseCallback(values url.Values) (*CallbackResult, error) {
	get := func(key string) string {
		return strings.TrimSpace(values.Get(key))
	}
	result := &CallbackResult{
		MerchantID:         get("merchant"),
		OrderID:            get("order_id"),
		PaymentReferenceID: get("payment_ref_id"),
		Status:             get("status"),
		StatusCode:         get("status_code"),
		Message:            get("message"),
		PaymentDateTime:    get("payment_dt"),
		IssuerPaymentRef:   get("issuer_payment_ref"),
	}
	if result.PaymentReferenceID == "" {
		return nil, NewValidationError("payment_ref_id is required", WithOffendingParam("payment_ref_id"))
	}
	if result.Status == "" {
		return nil, NewValidationError("status is required", WithOffendingParam("status"))
	}
	return result, nil
}

// CallbackProvider handles parsed callbacks. A non-empty redirect sends the
// customer there; otherwise the result is written back as JSON.
type CallbackProvider interface {
	HandleCallback(ctx context.Context, result *CallbackResult) (redirect string, err error)
}

// CallbackProviderFunc adapts a function to CallbackProvider.
type CallbackProviderFunc func(ctx context.Context, result *CallbackResult) (string, error)

// HandleCallback implements CallbackProvider.
func (f CallbackProviderFunc) HandleCallback(ctx context.Context, result *CallbackResult) (string, error) {
	return f(ctx, result)
}

type callbackConfig struct {
	client *Client
}

// CallbackOption customizes [NewCallbackHandler].
type CallbackOption func(*callbackConfig)

// WithCallbackVerification verifies every callback with the gateway before
// the provider sees it.
func WithCallbackVerification(client *Client) CallbackOption {
	return func(cfg *callbackConfig) {
		cfg.client = client
	}
}

// CallbackHandler serves the merchant callback endpoint.
type CallbackHandler struct {
	provider CallbackProvider
	cfg      callbackConfig
}

// NewCallbackHandler wires a provider into an http.Handler.
func NewCallbackHandler(provider CallbackProvider, opts ...CallbackOption) *CallbackHandler {
	cfg := callbackConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return &CallbackHandler{provider: provider, cfg: cfg}
}

// ServeHTTP implements http.Handler.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, NewValidationError("method not allowed"))
		return
	}
	result, err := ParseCallback(r.URL.Query())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ctx := ContextWithClientIP(r.Context(), ClientIPFromRequest(r))
	if h.cfg.client != nil {
		verification, err := h.cfg.client.VerifyPayment(ctx, result.PaymentReferenceID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		result.Verification = verification
	}

	redirect, err := h.provider.HandleCallback(ctx, result)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if redirect != "" {
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

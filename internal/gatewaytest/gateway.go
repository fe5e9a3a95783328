// Package gatewaytest runs an in-process stand-in for the Nagad remote
// payment gateway. It performs the server half of the envelope: it decrypts
// and verifies merchant payloads and encrypts and signs its own replies.
package gatewaytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sumup/nagad/envelope"
)

// Request is a recorded inbound call with its sensitive payload decrypted.
type Request struct {
	Method    string
	Path      string
	Query     string
	Header    http.Header
	Body      map[string]any
	Sensitive map[string]any
}

// Order is a completed checkout as seen by the gateway.
type Order struct {
	PaymentReferenceID string
	MerchantID         string
	OrderID            string
	CustomerID         string
	Amount             string
	CurrencyCode       string
	CallbackURL        string
	AdditionalInfo     map[string]any
}

type pending struct {
	merchantID string
	orderID    string
	challenge  string
}

// Gateway is a fake gateway bound to an httptest server.
type Gateway struct {
	// CompleteFunc builds the complete reply. The default reports success
	// with a callBackUrl derived from the reference id.
	CompleteFunc func(Order) map[string]any
	// EligibilityFunc builds the eligibility reply. The default is {"eligible": true}.
	EligibilityFunc func(sensitive map[string]any) map[string]any
	// Delay is applied before every reply.
	Delay time.Duration

	server         *httptest.Server
	keys           KeyPair
	merchantPublic string
	mu             sync.Mutex
	pending        map[string]pending
	orders         map[string]Order
	requests       []Request
}

// New starts a fake gateway. gateway holds the gateway's own key pair and
// merchantPublic the key used to verify merchant signatures and encrypt replies.
func New(t testing.TB, gateway KeyPair, merchantPublic string) *Gateway {
	t.Helper()

	g := &Gateway{
		keys:           gateway,
		merchantPublic: merchantPublic,
		pending:        make(map[string]pending),
		orders:         make(map[string]Order),
	}
	r := chi.NewRouter()
	r.Route("/api/dfs", func(r chi.Router) {
		r.Post("/check-out/initialize/{merchantID}/{orderID}", g.initialize)
		r.Post("/check-out/complete/{paymentReferenceID}", g.complete)
		r.Post("/purchase/check/eligibility", g.eligibility)
		r.Post("/authorization/cancel", g.cancel)
		r.Get("/verify/payment/{paymentReferenceID}", g.verify)
	})
	g.server = httptest.NewServer(r)
	t.Cleanup(g.server.Close)
	return g
}

// URL returns the gateway host with a trailing slash, the form the client expects.
func (g *Gateway) URL() string {
	return g.server.URL + "/"
}

// Requests returns a copy of every recorded request.
func (g *Gateway) Requests() []Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Request(nil), g.requests...)
}

// Order returns the completed order for a payment reference id.
func (g *Gateway) Order(paymentReferenceID string) (Order, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	o, ok := g.orders[paymentReferenceID]
	return o, ok
}

// open decodes the JSON body, decrypts sensitiveData and verifies the merchant
// signature over the decrypted text. It records the request either way.
func (g *Gateway) open(w http.ResponseWriter, r *http.Request) (map[string]any, map[string]any, bool) {
	if g.Delay > 0 {
		time.Sleep(g.Delay)
	}
	rec := Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
	}
	defer func() {
		g.mu.Lock()
		g.requests = append(g.requests, rec)
		g.mu.Unlock()
	}()

	if err := json.NewDecoder(r.Body).Decode(&rec.Body); err != nil {
		reject(w, http.StatusBadRequest, "InvalidRequest", "request body must be JSON")
		return nil, nil, false
	}
	encrypted, _ := rec.Body["sensitiveData"].(string)
	signature, _ := rec.Body["signature"].(string)
	plaintext, err := envelope.DecryptWithPrivateKey(g.keys.Private, encrypted)
	if err != nil {
		reject(w, http.StatusBadRequest, "InvalidSensitiveData", "sensitive data could not be decrypted")
		return nil, nil, false
	}
	if err := envelope.Verify(g.merchantPublic, plaintext, signature); err != nil {
		reject(w, http.StatusBadRequest, "InvalidSignature", "signature verification failed")
		return nil, nil, false
	}
	if err := json.Unmarshal([]byte(plaintext), &rec.Sensitive); err != nil {
		reject(w, http.StatusBadRequest, "InvalidSensitiveData", "sensitive data must be JSON")
		return nil, nil, false
	}
	return rec.Body, rec.Sensitive, true
}

func (g *Gateway) initialize(w http.ResponseWriter, r *http.Request) {
	_, sensitive, ok := g.open(w, r)
	if !ok {
		return
	}
	merchantID := chi.URLParam(r, "merchantID")
	orderID := chi.URLParam(r, "orderID")
	if sensitive["merchantId"] != merchantID || sensitive["orderId"] != orderID {
		reject(w, http.StatusBadRequest, "InvalidRequest", "merchant or order mismatch")
		return
	}
	if challenge, _ := sensitive["challenge"].(string); len(challenge) != envelope.DefaultChallengeLength {
		reject(w, http.StatusBadRequest, "InvalidRequest", "challenge missing")
		return
	}

	ref := strings.ReplaceAll(uuid.NewString(), "-", "")
	next := envelope.RandomChallenge(envelope.DefaultChallengeLength)
	g.mu.Lock()
	g.pending[ref] = pending{merchantID: merchantID, orderID: orderID, challenge: next}
	g.mu.Unlock()

	g.seal(w, map[string]any{
		"paymentReferenceId": ref,
		"challenge":          next,
		"acceptDateTime":     time.Now().Format("20060102150405"),
	})
}

func (g *Gateway) complete(w http.ResponseWriter, r *http.Request) {
	body, sensitive, ok := g.open(w, r)
	if !ok {
		return
	}
	ref := chi.URLParam(r, "paymentReferenceID")
	g.mu.Lock()
	p, found := g.pending[ref]
	if found {
		delete(g.pending, ref)
	}
	g.mu.Unlock()
	if !found {
		reject(w, http.StatusNotFound, "PaymentNotFound", "unknown payment reference")
		return
	}
	if sensitive["challenge"] != p.challenge {
		writeJSON(w, http.StatusOK, map[string]any{"status": "Aborted", "message": "challenge mismatch"})
		return
	}

	order := Order{
		PaymentReferenceID: ref,
		MerchantID:         p.merchantID,
		OrderID:            p.orderID,
		CustomerID:         stringValue(sensitive["customerId"]),
		Amount:             stringValue(sensitive["amount"]),
		CurrencyCode:       stringValue(sensitive["currencyCode"]),
		CallbackURL:        stringValue(body["merchantCallbackURL"]),
	}
	order.AdditionalInfo, _ = body["additionalMerchantInfo"].(map[string]any)

	g.mu.Lock()
	g.orders[ref] = order
	g.mu.Unlock()

	if g.CompleteFunc != nil {
		writeJSON(w, http.StatusOK, g.CompleteFunc(order))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "Success",
		"callBackUrl": "https://sandbox.mynagad.com/check-out/" + ref,
	})
}

func (g *Gateway) eligibility(w http.ResponseWriter, r *http.Request) {
	_, sensitive, ok := g.open(w, r)
	if !ok {
		return
	}
	if g.EligibilityFunc != nil {
		writeJSON(w, http.StatusOK, g.EligibilityFunc(sensitive))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"eligible": true})
}

func (g *Gateway) cancel(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := g.open(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "Success", "message": "Authorization cancelled"})
}

func (g *Gateway) verify(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "paymentReferenceID")
	g.mu.Lock()
	g.requests = append(g.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone()})
	order, ok := g.orders[ref]
	g.mu.Unlock()
	if !ok {
		reject(w, http.StatusNotFound, "PaymentNotFound", "Payment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"merchantId":   order.MerchantID,
		"orderId":      order.OrderID,
		"paymentRefId": order.PaymentReferenceID,
		"amount":       order.Amount,
		"status":       "Success",
		"statusCode":   "000",
	})
}

// seal encrypts and signs a reply for the merchant.
func (g *Gateway) seal(w http.ResponseWriter, payload map[string]any) {
	raw, err := envelope.Marshal(payload)
	if err != nil {
		reject(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	encrypted, err := envelope.EncryptWithPublicKey(g.merchantPublic, string(raw))
	if err != nil {
		reject(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	signature, err := envelope.Sign(g.keys.Private, string(raw))
	if err != nil {
		reject(w, http.StatusInternalServerError, "InternalError", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensitiveData": encrypted, "signature": signature})
}

func reject(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]any{"reason": reason, "message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case nil:
		return ""
	default:
		raw, _ := json.Marshal(t)
		return string(raw)
	}
}

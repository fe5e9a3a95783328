package nagad

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Wire constants.
const (
	APIVersion     = "v-4.0.1"
	ClientType     = "PC_WEB"
	CurrencyBDT    = "050"
	StatusSuccess  = "Success"
	dateTimeLayout = "20060102150405"
)

// GatewayResponse is a raw gateway reply. The body is always valid JSON.
type GatewayResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// Get reads a value from the body with a gjson path.
func (r *GatewayResponse) Get(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// Decode unmarshals the body into v.
func (r *GatewayResponse) Decode(v any) error {
	if r == nil {
		return fmt.Errorf("nagad: decode: nil response")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("nagad: decode gateway response: %w", err)
	}
	return nil
}

// Message returns the gateway's "message" field, or fallback when absent.
func (r *GatewayResponse) Message(fallback string) string {
	if m := r.Get("message"); m.Type == gjson.String && m.Str != "" {
		return m.Str
	}
	return fallback
}

// MarshalJSON renders the gateway body unchanged.
func (r GatewayResponse) MarshalJSON() ([]byte, error) {
	if len(r.Body) == 0 {
		return []byte("null"), nil
	}
	return r.Body, nil
}

// CheckoutRequest defines the caller input for a checkout.
type CheckoutRequest struct {
	// Merchant order id. Generated as Ord_<yyyyMMddHH><rand> when empty.
	OrderID string `json:"order_id,omitempty" validate:"omitempty,max=64,path_segment"`
	// Customer id. Six random digits are used when empty.
	CustomerID string `json:"customer_id,omitempty" validate:"omitempty,max=64"`
	// Amount in BDT. Forced to zero for the authorize variant.
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	// Where the gateway sends the customer after payment.
	CallbackURL string `json:"callback_url" validate:"required,url"`
	// Encrypted payment token, required for tokenized checkout.
	Token string `json:"token,omitempty"`
	// Optional merchant transaction id, forwarded as tnx_id.
	TransactionID string `json:"tnx_id,omitempty" validate:"omitempty,max=64"`
	// Extra entries merged into additionalMerchantInfo.
	AdditionalInfo map[string]any `json:"additional_info,omitempty"`
}

// EligibilityRequest defines the inquiry sent before a tokenized checkout.
type EligibilityRequest struct {
	CustomerID          string          `json:"customerId" validate:"required"`
	MaskedAccountNumber string          `json:"maskedAccountNumber" validate:"required"`
	TokenType           string          `json:"tokenType" validate:"required"`
	Amount              decimal.Decimal `json:"amount" validate:"gte=0"`
}

// CancelAuthorizationRequest defines the revocation of a stored payment token.
type CancelAuthorizationRequest struct {
	CustomerID          string `json:"customerId" validate:"required"`
	MaskedAccountNumber string `json:"maskedAccountNumber" validate:"required"`
	TokenType           string `json:"tokenType" validate:"required"`
	PaymentReferenceID  string `json:"paymentReferenceId,omitempty"`
}

// InitializeResult is the sealed initialize reply, still encrypted.
type InitializeResult struct {
	SensitiveData string
	Signature     string
	Response      *GatewayResponse
}

// InitializeReply defines the decrypted initialize reply.
type InitializeReply struct {
	PaymentReferenceID string `json:"paymentReferenceId"`
	Challenge          string `json:"challenge"`
	AcceptDateTime     string `json:"acceptDateTime,omitempty"`
}

// PaymentVerification defines the verify reply.
type PaymentVerification struct {
	MerchantID            string          `json:"merchantId"`
	OrderID               string          `json:"orderId"`
	PaymentReferenceID    string          `json:"paymentRefId"`
	Amount                decimal.Decimal `json:"amount"`
	ClientMobileNo        string          `json:"clientMobileNo,omitempty"`
	MerchantMobileNo      string          `json:"merchantMobileNo,omitempty"`
	OrderDateTime         string          `json:"orderDateTime,omitempty"`
	IssuerPaymentDateTime string          `json:"issuerPaymentDateTime,omitempty"`
	IssuerPaymentRefNo    string          `json:"issuerPaymentRefNo,omitempty"`
	Status                string          `json:"status"`
	StatusCode            string          `json:"statusCode"`
}

// Succeeded reports whether the gateway settled the payment.
func (p PaymentVerification) Succeeded() bool {
	return p.Status == StatusSuccess
}

type initializeSensitiveData struct {
	MerchantID string `json:"merchantId"`
	DateTime   string `json:"datetime"`
	OrderID    string `json:"orderId"`
	Challenge  string `json:"challenge"`
}

type initializeRequest struct {
	AccountNumber string `json:"accountNumber,omitempty"`
	DateTime      string `json:"dateTime"`
	SensitiveData string `json:"sensitiveData"`
	Signature     string `json:"signature"`
}

type orderSensitiveData struct {
	MerchantID   string          `json:"merchantId"`
	OrderID      string          `json:"orderId"`
	CustomerID   string          `json:"customerId"`
	CurrencyCode string          `json:"currencyCode"`
	Amount       decimal.Decimal `json:"amount"`
	Challenge    string          `json:"challenge"`
}

type completeRequest struct {
	SensitiveData          string         `json:"sensitiveData"`
	Signature              string         `json:"signature"`
	MerchantCallbackURL    string         `json:"merchantCallbackURL"`
	AdditionalMerchantInfo map[string]any `json:"additionalMerchantInfo"`
}

type eligibilitySensitiveData struct {
	CustomerID          string          `json:"customerId"`
	MaskedAccountNumber string          `json:"maskedAccountNumber"`
	TokenType           string          `json:"tokenType"`
	Amount              decimal.Decimal `json:"amount"`
	DateTime            string          `json:"datetime"`
	Challenge           string          `json:"challenge"`
}

type cancelSensitiveData struct {
	CustomerID          string `json:"customerId"`
	MaskedAccountNumber string `json:"maskedAccountNumber"`
	TokenType           string `json:"tokenType"`
	PaymentReferenceID  string `json:"paymentReferenceId,omitempty"`
	DateTime            string `json:"datetime"`
	Challenge           string `json:"challenge"`
}

// sealedRequest carries an encrypted and signed payload to the token endpoints.
type sealedRequest struct {
	MerchantID    string `json:"merchantId"`
	DateTime      string `json:"dateTime"`
	SensitiveData string `json:"sensitiveData"`
	Signature     string `json:"signature"`
}

package nagad

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumup/nagad/envelope"
	"github.com/sumup/nagad/internal/gatewaytest"
)

func newGatewayClient(t *testing.T, opts ...Option) (*Client, *gatewaytest.Gateway, testKeys) {
	t.Helper()
	keys := newTestKeys(t)
	gw := gatewaytest.New(t, keys.gateway, keys.merchant.Public)
	opts = append([]Option{
		WithBaseURL(gw.URL()),
		WithTimeout(5 * time.Second),
		WithLogger(testr.New(t)),
		WithGatewaySignatureVerification(),
	}, opts...)
	return NewClient(keys.profile(), opts...), gw, keys
}

func TestGatewayCheckoutThenVerify(t *testing.T) {
	t.Parallel()
	client, gw, _ := newGatewayClient(t)
	ctx := ContextWithClientIP(context.Background(), "203.0.113.5")

	redirect, err := client.Checkout(ctx, CheckoutRequest{
		OrderID:       "Ord_100",
		CustomerID:    "7001",
		Amount:        decimal.RequireFromString("120.75"),
		CallbackURL:   "https://shop.example/callback",
		TransactionID: "TX-100",
	}, VariantRegular)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(redirect, "https://sandbox.mynagad.com/check-out/"))

	ref := strings.TrimPrefix(redirect, "https://sandbox.mynagad.com/check-out/")
	order, ok := gw.Order(ref)
	require.True(t, ok)
	assert.Equal(t, testMerchantID, order.MerchantID)
	assert.Equal(t, "Ord_100", order.OrderID)
	assert.Equal(t, "7001", order.CustomerID)
	assert.Equal(t, "120.75", order.Amount)
	assert.Equal(t, CurrencyBDT, order.CurrencyCode)
	assert.Equal(t, "https://shop.example/callback", order.CallbackURL)
	assert.Equal(t, map[string]any{"tnx_id": "TX-100"}, order.AdditionalInfo)

	requests := gw.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "purpose=ECOM_TXN", requests[0].Query)
	for _, r := range requests {
		assert.Equal(t, "203.0.113.5", r.Header.Get("X-KM-IP-V4"))
		assert.Equal(t, APIVersion, r.Header.Get("X-KM-Api-Version"))
		assert.Equal(t, ClientType, r.Header.Get("X-KM-Client-Type"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
	}

	verification, err := client.VerifyPayment(ctx, ref)
	require.NoError(t, err)
	assert.True(t, verification.Succeeded())
	assert.Equal(t, ref, verification.PaymentReferenceID)
	assert.Equal(t, "Ord_100", verification.OrderID)
	assert.True(t, decimal.RequireFromString("120.75").Equal(verification.Amount))
}

func TestGatewayTokenLifecycle(t *testing.T) {
	t.Parallel()
	client, gw, _ := newGatewayClient(t)
	ctx := context.Background()

	redirect, err := client.Checkout(ctx, CheckoutRequest{
		Amount:      decimal.NewFromInt(500),
		CallbackURL: "https://shop.example/callback",
	}, VariantAuthorize)
	require.NoError(t, err)
	ref := strings.TrimPrefix(redirect, "https://sandbox.mynagad.com/check-out/")
	order, ok := gw.Order(ref)
	require.True(t, ok)
	assert.Equal(t, "0", order.Amount)
	assert.Equal(t, true, order.AdditionalInfo["tokenization"])

	token, err := envelope.EncryptToken("tok-abc", gatewaytest.SymmetricKeyHex, gatewaytest.IVHex)
	require.NoError(t, err)

	eligible, err := client.IsEligibleForTokenizedCheckout(ctx, "raw-token", EligibilityRequest{
		CustomerID:          "7001",
		MaskedAccountNumber: "017****0000",
		TokenType:           "NAGAD",
		Amount:              decimal.NewFromInt(80),
	})
	require.NoError(t, err)
	assert.True(t, eligible)

	_, err = client.Checkout(ctx, CheckoutRequest{
		Amount:      decimal.NewFromInt(80),
		CallbackURL: "https://shop.example/callback",
		Token:       token,
	}, VariantTokenized)
	require.NoError(t, err)

	resp, err := client.CancelAuthorization(ctx, token, CancelAuthorizationRequest{
		CustomerID:          "7001",
		MaskedAccountNumber: "017****0000",
		TokenType:           "NAGAD",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Get("status").String())

	var paths []string
	for _, r := range gw.Requests() {
		paths = append(paths, r.Path+"?"+r.Query)
		switch {
		case strings.Contains(r.Path, "/purchase/check/eligibility"):
			assert.Equal(t, "raw-token", r.Header.Get("X-KM-Payment-Token"))
			assert.Equal(t, "017****0000", r.Sensitive["maskedAccountNumber"])
			assert.Equal(t, "80", r.Sensitive["amount"])
			assert.Equal(t, testMerchantID, r.Body["merchantId"])
		case strings.Contains(r.Path, "/authorization/cancel"), r.Query == "purpose=ECOM_TOKEN_TXN":
			assert.Equal(t, "tok-abc", r.Header.Get("X-KM-Payment-Token"))
		}
	}
	assert.Len(t, paths, 6)
}

func TestGatewayConcurrentCheckouts(t *testing.T) {
	t.Parallel()
	client, gw, _ := newGatewayClient(t)

	const n = 8
	var wg sync.WaitGroup
	redirects := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			redirect, err := client.Checkout(context.Background(), CheckoutRequest{
				Amount:      decimal.NewFromInt(10),
				CallbackURL: "https://shop.example/callback",
			}, VariantRegular)
			if err != nil {
				t.Error(err)
				return
			}
			redirects <- redirect
		}()
	}
	wg.Wait()
	close(redirects)

	seen := make(map[string]bool)
	for r := range redirects {
		seen[r] = true
	}
	assert.Len(t, seen, n)

	challenges := make(map[string]bool)
	for _, r := range gw.Requests() {
		if strings.Contains(r.Path, "/check-out/initialize/") {
			challenges[r.Sensitive["challenge"].(string)] = true
		}
	}
	assert.Len(t, challenges, n)
}

func TestGatewayTimeout(t *testing.T) {
	t.Parallel()
	client, gw, _ := newGatewayClient(t, WithTimeout(50*time.Millisecond))
	gw.Delay = 500 * time.Millisecond

	_, err := client.Checkout(context.Background(), CheckoutRequest{Amount: decimal.NewFromInt(1), CallbackURL: "https://shop.example/callback"}, VariantRegular)
	require.True(t, IsErrorType(err, TransportTimeoutError), "got %v", err)
}

func TestGatewayContextCancel(t *testing.T) {
	t.Parallel()
	client, gw, _ := newGatewayClient(t)
	gw.Delay = 500 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Checkout(ctx, CheckoutRequest{Amount: decimal.NewFromInt(1), CallbackURL: "https://shop.example/callback"}, VariantRegular)
	require.True(t, IsErrorType(err, TransportTimeoutError), "got %v", err)
}

func TestGatewayVerifyUnknownPayment(t *testing.T) {
	t.Parallel()
	client, _, _ := newGatewayClient(t)

	resp, err := client.Verify(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, "Payment not found", resp.Message(""))

	_, err = client.VerifyPayment(context.Background(), "does-not-exist")
	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, ProtocolError, typed.Type)
	assert.Equal(t, "Payment not found", typed.Message)
}

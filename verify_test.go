package nagad

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verifyReply = `{
	"merchantId": "683002007104225",
	"orderId": "Ord_202403051012",
	"paymentRefId": "REF1",
	"amount": "300.50",
	"clientMobileNo": "017****0000",
	"issuerPaymentRefNo": "ISS1",
	"status": "Success",
	"statusCode": "00_0000_000"
}`

func replyTransport(got *call, status int, body string) Transport {
	return TransportFunc(func(ctx context.Context, method, url string, b any, header http.Header) (*GatewayResponse, error) {
		*got = call{method: method, url: url, body: b, header: header}
		return &GatewayResponse{StatusCode: status, Body: []byte(body)}, nil
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	var got call
	client := NewClient(MerchantProfile{MerchantID: testMerchantID}, WithClientIP("10.1.1.1"), WithTransport(replyTransport(&got, http.StatusOK, verifyReply)))

	ctx := ContextWithClientIP(context.Background(), "203.0.113.9")
	resp, err := client.Verify(ctx, "REF1")
	require.NoError(t, err)
	assert.Equal(t, "Success", resp.Get("status").String())

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, SandboxHost+"api/dfs/verify/payment/REF1", got.url)
	assert.Nil(t, got.body)
	assert.Equal(t, APIVersion, got.header.Get("X-KM-Api-Version"))
	assert.Equal(t, ClientType, got.header.Get("X-KM-Client-Type"))
	assert.Equal(t, "203.0.113.9", got.header.Get("X-KM-IP-V4"), "request ip wins over the configured one")
	assert.Empty(t, got.header.Get("X-KM-Payment-Token"))
}

func TestVerifyRejectsEmptyReference(t *testing.T) {
	t.Parallel()

	calls := 0
	client := NewClient(MerchantProfile{MerchantID: testMerchantID}, WithTransport(TransportFunc(
		func(context.Context, string, string, any, http.Header) (*GatewayResponse, error) {
			calls++
			return nil, nil
		})))

	_, err := client.Verify(context.Background(), "  ")
	require.True(t, IsErrorType(err, ValidationError))
	_, err = client.VerifyPayment(context.Background(), "")
	require.True(t, IsErrorType(err, ValidationError))
	assert.Zero(t, calls)
}

func TestVerifyPayment(t *testing.T) {
	t.Parallel()

	var got call
	client := NewClient(MerchantProfile{MerchantID: testMerchantID}, WithTransport(replyTransport(&got, http.StatusOK, verifyReply)))

	verification, err := client.VerifyPayment(context.Background(), "REF1")
	require.NoError(t, err)
	assert.True(t, verification.Succeeded())
	assert.Equal(t, "REF1", verification.PaymentReferenceID)
	assert.Equal(t, "Ord_202403051012", verification.OrderID)
	assert.True(t, decimal.RequireFromString("300.50").Equal(verification.Amount))
	assert.Equal(t, "ISS1", verification.IssuerPaymentRefNo)
}

func TestVerifyPaymentNotFound(t *testing.T) {
	t.Parallel()

	var got call
	client := NewClient(MerchantProfile{MerchantID: testMerchantID}, WithTransport(replyTransport(&got, http.StatusNotFound,
		`{"reason":"PaymentNotFound","message":"Payment not found"}`)))

	verification, err := client.VerifyPayment(context.Background(), "REF404")
	assert.Nil(t, verification)
	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, ProtocolError, typed.Type)
	assert.Equal(t, "Payment not found", typed.Message)
	require.NotNil(t, typed.Response)
	assert.Equal(t, http.StatusNotFound, typed.Response.StatusCode)
}

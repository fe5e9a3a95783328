package nagad

import (
	"context"
	"net/http"
	"strings"
)

// Verify fetches the gateway's view of a payment. The reply is returned
// unchanged, whatever the HTTP status.
func (c *Client) Verify(ctx context.Context, paymentReferenceID string) (*GatewayResponse, error) {
	if strings.TrimSpace(paymentReferenceID) == "" {
		return nil, NewValidationError("paymentReferenceId is required", WithOffendingParam("paymentReferenceId"))
	}
	endpoint, err := c.endpoints.verify(paymentReferenceID)
	if err != nil {
		return nil, err
	}
	c.log.V(1).Info("verifying payment", "paymentReferenceId", paymentReferenceID)
	resp, err := c.transport.Get(ctx, endpoint, c.headers(ctx, ""))
	if err != nil {
		return nil, transportFailure(ctx, http.MethodGet, endpoint, err)
	}
	return resp, nil
}

// VerifyPayment is Verify with the reply decoded. A reply without a payment
// reference, such as a not-found answer, is a ProtocolError carrying the
// gateway message.
func (c *Client) VerifyPayment(ctx context.Context, paymentReferenceID string) (*PaymentVerification, error) {
	resp, err := c.Verify(ctx, paymentReferenceID)
	if err != nil {
		return nil, err
	}
	if resp.Get("paymentRefId").String() == "" {
		return nil, NewProtocolError(resp.Message("verify reply is missing paymentRefId"), WithResponse(resp))
	}
	var verification PaymentVerification
	if err := resp.Decode(&verification); err != nil {
		return nil, NewProtocolError("verify reply does not match the expected shape", WithCause(err), WithResponse(resp))
	}
	return &verification, nil
}

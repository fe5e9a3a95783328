package nagad

import (
	"context"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/sumup/nagad/envelope"
)

// IsEligibleForTokenizedCheckout asks the gateway whether a stored token can
// pay the given amount. token is sent as-is in X-KM-Payment-Token. Only a
// boolean true "eligible" field counts as eligible.
func (c *Client) IsEligibleForTokenizedCheckout(ctx context.Context, token string, req EligibilityRequest) (bool, error) {
	if strings.TrimSpace(c.profile.MerchantID) == "" {
		return false, NewValidationError("merchantId is required", WithOffendingParam("merchantId"))
	}
	if strings.TrimSpace(token) == "" {
		return false, NewValidationError("token is required", WithOffendingParam("token"))
	}
	if err := req.Validate(); err != nil {
		return false, err
	}

	dateTime := c.now().Format(dateTimeLayout)
	sensitiveData, signature, err := c.seal(eligibilitySensitiveData{
		CustomerID:          req.CustomerID,
		MaskedAccountNumber: req.MaskedAccountNumber,
		TokenType:           req.TokenType,
		Amount:              req.Amount,
		DateTime:            dateTime,
		Challenge:           envelope.RandomChallenge(envelope.DefaultChallengeLength),
	})
	if err != nil {
		return false, err
	}
	endpoint, err := c.endpoints.eligibility()
	if err != nil {
		return false, err
	}

	c.log.V(1).Info("checking token eligibility", "customerId", req.CustomerID)
	resp, err := c.transport.Post(ctx, endpoint, sealedRequest{
		MerchantID:    c.profile.MerchantID,
		DateTime:      dateTime,
		SensitiveData: sensitiveData,
		Signature:     signature,
	}, c.headers(ctx, token))
	if err != nil {
		return false, transportFailure(ctx, http.MethodPost, endpoint, err)
	}
	return resp.Get("eligible").Type == gjson.True, nil
}

// CancelAuthorization revokes a stored payment token. The encrypted token is
// unwrapped with the profile's symmetric key before it is sent. The gateway
// reply is returned unchanged.
func (c *Client) CancelAuthorization(ctx context.Context, token string, req CancelAuthorizationRequest) (*GatewayResponse, error) {
	if strings.TrimSpace(c.profile.MerchantID) == "" {
		return nil, NewValidationError("merchantId is required", WithOffendingParam("merchantId"))
	}
	if strings.TrimSpace(token) == "" {
		return nil, NewValidationError("token is required", WithOffendingParam("token"))
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	paymentToken, err := c.paymentToken(token)
	if err != nil {
		return nil, err
	}

	dateTime := c.now().Format(dateTimeLayout)
	sensitiveData, signature, err := c.seal(cancelSensitiveData{
		CustomerID:          req.CustomerID,
		MaskedAccountNumber: req.MaskedAccountNumber,
		TokenType:           req.TokenType,
		PaymentReferenceID:  req.PaymentReferenceID,
		DateTime:            dateTime,
		Challenge:           envelope.RandomChallenge(envelope.DefaultChallengeLength),
	})
	if err != nil {
		return nil, err
	}
	endpoint, err := c.endpoints.cancelAuthorization()
	if err != nil {
		return nil, err
	}

	c.log.V(1).Info("cancelling authorization", "customerId", req.CustomerID)
	resp, err := c.transport.Post(ctx, endpoint, sealedRequest{
		MerchantID:    c.profile.MerchantID,
		DateTime:      dateTime,
		SensitiveData: sensitiveData,
		Signature:     signature,
	}, c.headers(ctx, paymentToken))
	if err != nil {
		return nil, transportFailure(ctx, http.MethodPost, endpoint, err)
	}
	return resp, nil
}

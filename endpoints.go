package nagad

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/oapi-codegen/runtime"
)

// endpoints resolves gateway operation URLs against a host ending in "/".
type endpoints struct {
	host string
}

func newEndpoints(host string) endpoints {
	if !strings.HasSuffix(host, "/") {
		host += "/"
	}
	return endpoints{host: host}
}

func (e endpoints) initialize(merchantID, orderID string, purpose Purpose) (string, error) {
	merchant, err := pathParam("merchantId", merchantID)
	if err != nil {
		return "", err
	}
	order, err := pathParam("orderId", orderID)
	if err != nil {
		return "", err
	}
	query, err := runtime.StyleParamWithLocation("form", true, "purpose", runtime.ParamLocationQuery, string(purpose))
	if err != nil {
		return "", NewValidationError("invalid purpose", WithOffendingParam("purpose"), WithCause(err))
	}
	return e.resolve(fmt.Sprintf("/api/dfs/check-out/initialize/%s/%s", merchant, order), query)
}

func (e endpoints) complete(paymentReferenceID string) (string, error) {
	ref, err := pathParam("paymentReferenceId", paymentReferenceID)
	if err != nil {
		return "", err
	}
	return e.resolve(fmt.Sprintf("/api/dfs/check-out/complete/%s", ref), "")
}

func (e endpoints) eligibility() (string, error) {
	return e.resolve("/api/dfs/purchase/check/eligibility", "")
}

func (e endpoints) cancelAuthorization() (string, error) {
	return e.resolve("/api/dfs/authorization/cancel", "")
}

func (e endpoints) verify(paymentReferenceID string) (string, error) {
	ref, err := pathParam("paymentReferenceId", paymentReferenceID)
	if err != nil {
		return "", err
	}
	return e.resolve(fmt.Sprintf("/api/dfs/verify/payment/%s", ref), "")
}

func (e endpoints) resolve(operationPath, rawQuery string) (string, error) {
	serverURL, err := url.Parse(e.host)
	if err != nil {
		return "", NewValidationError(fmt.Sprintf("invalid gateway host %q", e.host), WithCause(err))
	}
	if operationPath[0] == '/' {
		operationPath = "." + operationPath
	}
	queryURL, err := serverURL.Parse(operationPath)
	if err != nil {
		return "", NewValidationError("invalid gateway path", WithCause(err))
	}
	queryURL.RawQuery = rawQuery
	return queryURL.String(), nil
}

func pathParam(name, value string) (string, error) {
	if value == "" {
		return "", NewValidationError(name+" is required", WithOffendingParam(name))
	}
	v, err := runtime.StyleParamWithLocation("simple", false, name, runtime.ParamLocationPath, value)
	if err != nil {
		return "", NewValidationError("invalid "+name, WithOffendingParam(name), WithCause(err))
	}
	return v, nil
}

package nagad

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/sumup/nagad/envelope"
)

// Client talks to the Nagad remote payment gateway on behalf of one merchant.
// It is safe for concurrent use; each checkout runs in its own session.
type Client struct {
	profile   MerchantProfile
	cfg       config
	endpoints endpoints
	transport Transport
	log       logr.Logger
}

// NewClient wires a client for the merchant. Key material is parsed lazily;
// call [MerchantProfile.Validate] at startup to fail fast.
func NewClient(profile MerchantProfile, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	host := cfg.baseURL
	if host == "" {
		host = cfg.mode.Host()
	}
	transport := cfg.transport
	if transport == nil {
		transport = NewRestyTransport(cfg.timeout, cfg.insecureSkipVerify)
	}
	return &Client{
		profile:   profile,
		cfg:       cfg,
		endpoints: newEndpoints(host),
		transport: transport,
		log:       cfg.logger.WithName("nagad"),
	}
}

// Checkout runs the whole handshake and returns the URL the customer must be
// redirected to.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest, variant Variant) (string, error) {
	session, err := c.NewSession(req, variant)
	if err != nil {
		c.log.V(1).Info("checkout rejected", "variant", variant, "error", err.Error())
		return "", err
	}
	log := c.sessionLogger(session)

	result, err := c.Initialize(ctx, session)
	if err != nil {
		log.Error(err, "checkout initialize failed")
		return "", err
	}
	reply, err := c.DecryptInitialize(session, result)
	if err != nil {
		log.Error(err, "checkout initialize reply rejected")
		return "", err
	}
	redirect, err := c.CompleteCheckout(ctx, session, reply)
	if err != nil {
		log.Error(err, "checkout complete failed", "paymentReferenceId", session.PaymentReferenceID)
		return "", err
	}
	log.Info("checkout completed", "paymentReferenceId", session.PaymentReferenceID)
	return redirect, nil
}

// NewSession validates the request and creates a session in the created state.
// Ids too long to fit the gateway's RSA envelope are rejected here. Nothing is
// sent to the gateway.
func (c *Client) NewSession(req CheckoutRequest, variant Variant) (*CheckoutSession, error) {
	purpose, ok := variant.Purpose()
	if !ok {
		return nil, NewValidationError(fmt.Sprintf("unknown checkout variant %q", variant), WithOffendingParam("variant"))
	}
	if strings.TrimSpace(c.profile.MerchantID) == "" {
		return nil, NewValidationError("merchantId is required", WithOffendingParam("merchantId"))
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if variant == VariantTokenized && strings.TrimSpace(req.Token) == "" {
		return nil, NewValidationError("token is required for tokenized checkout", WithOffendingParam("token"))
	}

	session := &CheckoutSession{
		ID:          uuid.NewString(),
		OrderID:     req.OrderID,
		Variant:     variant,
		Purpose:     purpose,
		Amount:      req.Amount,
		CustomerID:  req.CustomerID,
		CallbackURL: req.CallbackURL,
		State:       SessionCreated,
	}
	if session.OrderID == "" {
		session.OrderID = newOrderID(c.now())
	}
	if variant == VariantTokenized {
		session.Token = req.Token
	}

	info := make(map[string]any, len(req.AdditionalInfo)+2)
	if req.TransactionID != "" {
		info["tnx_id"] = req.TransactionID
	}
	for k, v := range req.AdditionalInfo {
		info[k] = v
	}
	if variant == VariantAuthorize {
		session.Amount = decimal.Zero
		info["tokenization"] = true
	}
	session.AdditionalInfo = info

	if err := c.checkEnvelopeSize(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Initialize sends the sealed merchant challenge and moves the session to
// initialized. The reply stays encrypted until [Client.DecryptInitialize].
func (c *Client) Initialize(ctx context.Context, session *CheckoutSession) (*InitializeResult, error) {
	if err := session.expect(SessionCreated); err != nil {
		return nil, err
	}
	log := c.sessionLogger(session)

	dateTime := c.now().Format(dateTimeLayout)
	session.Challenge = envelope.RandomChallenge(envelope.DefaultChallengeLength)
	sensitiveData, signature, err := c.seal(initializeSensitiveData{
		MerchantID: c.profile.MerchantID,
		DateTime:   dateTime,
		OrderID:    session.OrderID,
		Challenge:  session.Challenge,
	})
	if err != nil {
		return nil, session.fail(err)
	}
	paymentToken, err := c.paymentToken(session.Token)
	if err != nil {
		return nil, session.fail(err)
	}
	endpoint, err := c.endpoints.initialize(c.profile.MerchantID, session.OrderID, session.Purpose)
	if err != nil {
		return nil, session.fail(err)
	}

	log.V(1).Info("initializing checkout", "purpose", session.Purpose)
	resp, err := c.transport.Post(ctx, endpoint, initializeRequest{
		AccountNumber: c.profile.AccountNumber,
		DateTime:      dateTime,
		SensitiveData: sensitiveData,
		Signature:     signature,
	}, c.headers(ctx, paymentToken))
	if err != nil {
		return nil, session.fail(transportFailure(ctx, http.MethodPost, endpoint, err))
	}

	result := &InitializeResult{
		SensitiveData: resp.Get("sensitiveData").String(),
		Signature:     resp.Get("signature").String(),
		Response:      resp,
	}
	if result.SensitiveData == "" || result.Signature == "" {
		return nil, session.fail(newError(InitializationFailedError, resp.Message("failed to initialize payment"), WithResponse(resp)))
	}
	if err := session.advance(SessionInitialized); err != nil {
		return nil, err
	}
	return result, nil
}

// DecryptInitialize opens the initialize reply with the merchant private key
// and records the payment reference and gateway challenge on the session.
func (c *Client) DecryptInitialize(session *CheckoutSession, result *InitializeResult) (*InitializeReply, error) {
	if err := session.expect(SessionInitialized); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, session.fail(NewProtocolError("initialize result is required"))
	}
	plaintext, err := envelope.DecryptWithPrivateKey(c.profile.PrivateKey, result.SensitiveData)
	if err != nil {
		return nil, session.fail(envelopeError(err))
	}
	if c.cfg.verifyGatewaySignature {
		if err := envelope.Verify(c.profile.PublicKey, plaintext, result.Signature); err != nil {
			return nil, session.fail(envelopeError(err))
		}
	}
	var reply InitializeReply
	if err := json.Unmarshal([]byte(plaintext), &reply); err != nil {
		return nil, session.fail(NewProtocolError("initialize reply is not JSON", WithCause(err), WithResponse(result.Response)))
	}
	if reply.PaymentReferenceID == "" || reply.Challenge == "" {
		return nil, session.fail(NewProtocolError("initialize reply is missing paymentReferenceId or challenge", WithResponse(result.Response)))
	}
	session.PaymentReferenceID = reply.PaymentReferenceID
	session.GatewayChallenge = reply.Challenge
	if err := session.advance(SessionDecrypted); err != nil {
		return nil, err
	}
	return &reply, nil
}

// CompleteCheckout sends the sealed order and returns the gateway's redirect
// URL. The order carries the payment reference and challenge recorded by
// [Client.DecryptInitialize]; reply may be nil, and a reply naming another
// pair is rejected.
func (c *Client) CompleteCheckout(ctx context.Context, session *CheckoutSession, reply *InitializeReply) (string, error) {
	if err := session.expect(SessionDecrypted); err != nil {
		return "", err
	}
	if session.PaymentReferenceID == "" || session.GatewayChallenge == "" {
		return "", session.fail(NewProtocolError("checkout session has no paymentReferenceId or challenge"))
	}
	if reply != nil && (reply.PaymentReferenceID != session.PaymentReferenceID || reply.Challenge != session.GatewayChallenge) {
		return "", session.fail(NewProtocolError("initialize reply does not match the checkout session"))
	}
	log := c.sessionLogger(session)

	customerID := session.CustomerID
	if customerID == "" {
		customerID = envelope.RandomDigits(generatedCustomerIDLength)
	}
	sensitiveData, signature, err := c.seal(orderSensitiveData{
		MerchantID:   c.profile.MerchantID,
		OrderID:      session.OrderID,
		CustomerID:   customerID,
		CurrencyCode: CurrencyBDT,
		Amount:       session.Amount,
		Challenge:    session.GatewayChallenge,
	})
	if err != nil {
		return "", session.fail(err)
	}
	paymentToken, err := c.paymentToken(session.Token)
	if err != nil {
		return "", session.fail(err)
	}
	endpoint, err := c.endpoints.complete(session.PaymentReferenceID)
	if err != nil {
		return "", session.fail(err)
	}

	log.V(1).Info("completing checkout", "paymentReferenceId", session.PaymentReferenceID)
	resp, err := c.transport.Post(ctx, endpoint, completeRequest{
		SensitiveData:          sensitiveData,
		Signature:              signature,
		MerchantCallbackURL:    session.CallbackURL,
		AdditionalMerchantInfo: session.AdditionalInfo,
	}, c.headers(ctx, paymentToken))
	if err != nil {
		return "", session.fail(transportFailure(ctx, http.MethodPost, endpoint, err))
	}

	if status := resp.Get("status"); status.Type != gjson.String || status.Str != StatusSuccess {
		return "", session.fail(newError(CheckoutFailedError, resp.Message("checkout failed"), WithResponse(resp)))
	}
	redirect := resp.Get("callBackUrl").String()
	if redirect == "" {
		return "", session.fail(NewProtocolError("complete reply is missing callBackUrl", WithResponse(resp)))
	}
	if err := session.advance(SessionCompleted); err != nil {
		return "", err
	}
	return redirect, nil
}

// checkEnvelopeSize rejects a session whose order payload would not fit the
// gateway key, before anything is sent. The order payload is the largest one
// a checkout seals; the gateway challenge is assumed to be as long as ours.
func (c *Client) checkEnvelopeSize(session *CheckoutSession) error {
	limit, err := envelope.MaxPlaintextSize(c.profile.PublicKey)
	if err != nil {
		return envelopeError(err)
	}
	param, customerID := "order_id", strings.Repeat("0", generatedCustomerIDLength)
	if session.CustomerID != "" {
		param, customerID = "customer_id", session.CustomerID
	}
	size, err := payloadSize(orderSensitiveData{
		MerchantID:   c.profile.MerchantID,
		OrderID:      session.OrderID,
		CustomerID:   customerID,
		CurrencyCode: CurrencyBDT,
		Amount:       session.Amount,
		Challenge:    strings.Repeat("x", envelope.DefaultChallengeLength),
	})
	if err != nil {
		return err
	}
	if size > limit {
		return NewValidationError(
			fmt.Sprintf("%s is too long: the order payload is %d bytes and the gateway key allows %d", param, size, limit),
			WithOffendingParam(param),
		)
	}
	return nil
}

func payloadSize(payload any) (int, error) {
	raw, err := envelope.Marshal(payload)
	if err != nil {
		return 0, newError(EncryptionError, "encode sensitive data", WithCause(err))
	}
	return len(raw), nil
}

// seal canonicalizes payload once, then encrypts and signs those exact bytes.
func (c *Client) seal(payload any) (sensitiveData, signature string, err error) {
	raw, err := envelope.Marshal(payload)
	if err != nil {
		return "", "", newError(EncryptionError, "encode sensitive data", WithCause(err))
	}
	sensitiveData, err = envelope.EncryptWithPublicKey(c.profile.PublicKey, string(raw))
	if err != nil {
		return "", "", envelopeError(err)
	}
	signature, err = envelope.Sign(c.profile.PrivateKey, string(raw))
	if err != nil {
		return "", "", envelopeError(err)
	}
	return sensitiveData, signature, nil
}

// paymentToken unwraps an encrypted token for the X-KM-Payment-Token header.
func (c *Client) paymentToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	plain, err := envelope.DecryptToken(token, c.profile.SymmetricKeyHex, c.profile.IVHex)
	if err != nil {
		return "", envelopeError(err)
	}
	return plain, nil
}

func (c *Client) headers(ctx context.Context, paymentToken string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-KM-Api-Version", APIVersion)
	h.Set("X-KM-IP-V4", c.clientIP(ctx))
	h.Set("X-KM-Client-Type", ClientType)
	if paymentToken != "" {
		h.Set("X-KM-Payment-Token", paymentToken)
	}
	return h
}

func (c *Client) clientIP(ctx context.Context) string {
	if ip := ClientIPFromContext(ctx); ip != "" {
		return ip
	}
	if c.cfg.clientIP != "" {
		return c.cfg.clientIP
	}
	return DefaultClientIP
}

func (c *Client) now() time.Time {
	return c.cfg.clock().In(c.cfg.location)
}

func (c *Client) sessionLogger(s *CheckoutSession) logr.Logger {
	return c.log.WithValues("session", s.ID, "orderId", s.OrderID, "variant", s.Variant)
}

const generatedCustomerIDLength = 6

// newOrderID builds Ord_<yyyyMMddHH><4 random digits>.
func newOrderID(now time.Time) string {
	return "Ord_" + now.Format("2006010215") + strconv.FormatInt(envelope.RandomInt(1000, 9999), 10)
}

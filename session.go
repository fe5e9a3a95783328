package nagad

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Purpose is the gateway's name for a checkout variant.
type Purpose string

const (
	PurposeTransaction      Purpose = "ECOM_TXN"
	PurposeTokenGeneration  Purpose = "ECOM_TOKEN_GEN"
	PurposeTokenTransaction Purpose = "ECOM_TOKEN_TXN"
)

// Variant selects the checkout flavour.
type Variant string

const (
	// VariantRegular charges the amount with no token involved.
	VariantRegular Variant = "regular"
	// VariantAuthorize stores a payment token for later use. The amount is always zero.
	VariantAuthorize Variant = "authorize"
	// VariantTokenized charges against a previously stored token.
	VariantTokenized Variant = "tokenized"
)

// Purpose maps the variant onto its gateway purpose.
func (v Variant) Purpose() (Purpose, bool) {
	switch v {
	case VariantRegular:
		return PurposeTransaction, true
	case VariantAuthorize:
		return PurposeTokenGeneration, true
	case VariantTokenized:
		return PurposeTokenTransaction, true
	default:
		return "", false
	}
}

// SessionState tracks a checkout through the handshake.
type SessionState string

const (
	SessionCreated     SessionState = "created"
	SessionInitialized SessionState = "initialized"
	SessionDecrypted   SessionState = "decrypted"
	SessionCompleted   SessionState = "completed"
	SessionFailed      SessionState = "failed"
)

// Terminal reports whether no further transition is possible.
func (s SessionState) Terminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

var nextState = map[SessionState]SessionState{
	SessionCreated:     SessionInitialized,
	SessionInitialized: SessionDecrypted,
	SessionDecrypted:   SessionCompleted,
}

// CheckoutSession is the state of one checkout. A session is owned by a
// single goroutine and must not be shared.
type CheckoutSession struct {
	// ID correlates log lines of one session. The gateway never sees it.
	ID      string
	OrderID string
	Variant Variant
	Purpose Purpose
	Amount  decimal.Decimal
	Token   string
	State   SessionState
	Err     error

	CustomerID     string
	CallbackURL    string
	AdditionalInfo map[string]any

	// Challenge is the merchant nonce sent on initialize.
	Challenge string
	// GatewayChallenge is the nonce returned by the gateway and echoed on complete.
	GatewayChallenge   string
	PaymentReferenceID string
}

// expect guards a step. A session in the wrong state is moved to failed.
func (s *CheckoutSession) expect(state SessionState) error {
	if s == nil {
		return NewValidationError("checkout session is required")
	}
	if s.State == state {
		return nil
	}
	if s.State.Terminal() {
		return NewProtocolError(fmt.Sprintf("checkout session is %s", s.State))
	}
	return s.fail(NewProtocolError(fmt.Sprintf("checkout session is %s, want %s", s.State, state)))
}

func (s *CheckoutSession) advance(to SessionState) error {
	if nextState[s.State] != to {
		return s.fail(NewProtocolError(fmt.Sprintf("cannot move checkout session from %s to %s", s.State, to)))
	}
	s.State = to
	return nil
}

// fail records err and moves the session to failed. Completed sessions stay completed.
func (s *CheckoutSession) fail(err error) error {
	if s.State.Terminal() {
		return err
	}
	s.State = SessionFailed
	s.Err = err
	return err
}

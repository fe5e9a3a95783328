package nagad

import (
	"errors"

	"github.com/sumup/nagad/envelope"
)

// ErrorType classifies every failure surfaced by the client.
type ErrorType string

const (
	ValidationError           ErrorType = "validation_error"      // Caller input rejected before any network call.
	KeyFormatError            ErrorType = "key_format_error"      // RSA key material could not be parsed.
	InvalidKeyMaterialError   ErrorType = "invalid_key_material"  // Token key or IV has the wrong length or encoding.
	EncryptionError           ErrorType = "encryption_error"      // RSA encryption rejected the payload.
	SigningError              ErrorType = "signing_error"         // RSA signing failed.
	DecryptionError           ErrorType = "decryption_error"      // Ciphertext, token or signature did not check out.
	TransportTimeoutError     ErrorType = "transport_timeout"     // Gateway unreachable in time or the context ended.
	TransportError            ErrorType = "transport_error"       // Any other network or HTTP level failure.
	ProtocolError             ErrorType = "protocol_error"        // Gateway reply is well formed but incomplete.
	InitializationFailedError ErrorType = "initialization_failed" // Gateway rejected the initialize call.
	CheckoutFailedError       ErrorType = "checkout_failed"       // Gateway rejected the complete call.
)

// Error is the only error type returned by [Client] operations.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Param   *string   `json:"param,omitempty"`

	// Response is the gateway reply that caused the error, when there was one.
	Response *GatewayResponse `json:"-"`

	cause error
}

// Error makes *Error satisfy the stdlib error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.cause == nil:
		return e.Message
	case e.Message == "":
		return e.cause.Error()
	default:
		return e.Message + ": " + e.cause.Error()
	}
}

// Unwrap exposes the underlying cause, such as an envelope sentinel or a net error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Retryable reports whether the failure happened on the network path, where
// calling again may succeed. The client itself never retries.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Type == TransportTimeoutError || e.Type == TransportError
}

// IsErrorType reports whether err is an [*Error] of the given type.
func IsErrorType(err error, typ ErrorType) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == typ
}

type errorOption func(*Error)

// WithOffendingParam sets the JSON name of the field that triggered the error.
func WithOffendingParam(jsonPath string) errorOption {
	return func(er *Error) {
		er.Param = &jsonPath
	}
}

// WithCause records the underlying error.
func WithCause(err error) errorOption {
	return func(er *Error) {
		er.cause = err
	}
}

// WithResponse attaches the gateway reply.
func WithResponse(resp *GatewayResponse) errorOption {
	return func(er *Error) {
		er.Response = resp
	}
}

// NewValidationError builds a caller-input error.
func NewValidationError(message string, opts ...errorOption) *Error {
	return newError(ValidationError, message, opts...)
}

// NewProtocolError builds an error for incomplete gateway replies.
func NewProtocolError(message string, opts ...errorOption) *Error {
	return newError(ProtocolError, message, opts...)
}

// NewTransportError builds a network-layer error.
func NewTransportError(message string, opts ...errorOption) *Error {
	return newError(TransportError, message, opts...)
}

// NewTransportTimeoutError builds a timeout or cancellation error.
func NewTransportTimeoutError(message string, opts ...errorOption) *Error {
	return newError(TransportTimeoutError, message, opts...)
}

// NewError allows callers, such as custom transports, to pick the type explicitly.
func NewError(typ ErrorType, message string, opts ...errorOption) *Error {
	return newError(typ, message, opts...)
}

func newError(typ ErrorType, message string, opts ...errorOption) *Error {
	errPayload := &Error{
		Type:    typ,
		Message: message,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(errPayload)
	}
	return errPayload
}

// envelopeError maps envelope sentinels onto the client taxonomy.
func envelopeError(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	typ := DecryptionError
	switch {
	case errors.Is(err, envelope.ErrKeyFormat):
		typ = KeyFormatError
	case errors.Is(err, envelope.ErrInvalidKeyMaterial):
		typ = InvalidKeyMaterialError
	case errors.Is(err, envelope.ErrEncryption):
		typ = EncryptionError
	case errors.Is(err, envelope.ErrSigning):
		typ = SigningError
	}
	return newError(typ, "", WithCause(err))
}

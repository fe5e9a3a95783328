// Package nagad is a merchant-side client for the Nagad remote payment
// gateway checkout.
//
// # Checkout
//
// Build a [Client] from a [MerchantProfile] and call [Client.Checkout] with a
// [CheckoutRequest] and a [Variant]. The client runs the two-step handshake
// (initialize, then complete) and returns the URL the customer must be
// redirected to. The steps are also exposed one by one through
// [Client.NewSession], [Client.Initialize], [Client.DecryptInitialize] and
// [Client.CompleteCheckout] for callers that need to persist progress.
//
// Every sensitive payload is canonical JSON, encrypted with the gateway
// public key and signed with the merchant private key. See package envelope.
//
// # Tokenized payments
//
// [VariantAuthorize] stores a payment token with a zero amount.
// [VariantTokenized] charges against it; the encrypted token is unwrapped with
// the profile's AES key and sent in the X-KM-Payment-Token header.
// [Client.IsEligibleForTokenizedCheckout] and [Client.CancelAuthorization]
// cover the rest of the token lifecycle.
//
// # After payment
//
// The gateway sends the customer back to the callback URL. Serve it with
// [NewCallbackHandler] and confirm the outcome with [Client.VerifyPayment].
//
// # Errors
//
// Every operation returns an [*Error]; branch on its Type with [IsErrorType].
package nagad

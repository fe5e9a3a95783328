package nagad

import (
	"github.com/sumup/nagad/envelope"
)

// MerchantProfile bundles a merchant's identity and key material. Build it
// once at startup; the client keeps its own copy and never changes it.
type MerchantProfile struct {
	// Merchant id issued by the gateway.
	MerchantID string `json:"merchantId" validate:"required"`
	// Gateway RSA public key, raw base64 body or full PEM.
	PublicKey string `json:"publicKey" validate:"required"`
	// Merchant RSA private key, raw base64 body or full PEM (PKCS#1 or PKCS#8).
	PrivateKey string `json:"privateKey" validate:"required"`
	// Hex AES-256 key for tokenized checkout. Must decode to 32 bytes when used.
	SymmetricKeyHex string `json:"symmetricKeyHex,omitempty"`
	// Hex CBC initialization vector. Must decode to 16 bytes when used.
	IVHex string `json:"ivHex,omitempty"`
	// Merchant wallet number, sent on initialize only.
	AccountNumber string `json:"accountNumber,omitempty" validate:"omitempty,numeric"`
}

// Validate checks required fields and parses the key material so that
// configuration faults show up at startup instead of mid checkout.
func (p MerchantProfile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return normalizeValidationError(err)
	}
	if _, err := envelope.ParsePublicKey(p.PublicKey); err != nil {
		return envelopeError(err)
	}
	if _, err := envelope.ParsePrivateKey(p.PrivateKey); err != nil {
		return envelopeError(err)
	}
	if p.SymmetricKeyHex != "" || p.IVHex != "" {
		if _, _, err := envelope.DecodeKeyMaterial(p.SymmetricKeyHex, p.IVHex); err != nil {
			return envelopeError(err)
		}
	}
	return nil
}

// String redacts key material so profiles can be printed safely.
func (p MerchantProfile) String() string {
	return "MerchantProfile{MerchantID: " + p.MerchantID + ", AccountNumber: " + p.AccountNumber + "}"
}

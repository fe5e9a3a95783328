// Package envelope implements the cryptographic envelope of the Nagad
// checkout protocol: RSA PKCS#1 v1.5 encryption towards the gateway,
// RSA-SHA256 merchant signatures, decryption of gateway replies and the
// AES-256-CBC unwrap of tokenized-checkout payment tokens.
//
// Every function is pure. Key material is always passed in explicitly, so
// the package is safe for concurrent use.
package envelope

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	canonicaljson "github.com/gibson042/canonicaljson-go"
)

// Sentinel errors. Every error returned by this package wraps exactly one of them.
var (
	ErrKeyFormat          = errors.New("envelope: malformed key")
	ErrInvalidKeyMaterial = errors.New("envelope: invalid key material")
	ErrEncryption         = errors.New("envelope: encryption failed")
	ErrSigning            = errors.New("envelope: signing failed")
	ErrDecryption         = errors.New("envelope: decryption failed")
	ErrVerification       = errors.New("envelope: signature verification failed")
)

const (
	publicKeyBlock  = "PUBLIC KEY"
	privateKeyBlock = "RSA PRIVATE KEY"
)

// wrapPEM adds PEM delimiters around a raw base64 key body. Keys that already
// carry a BEGIN line are returned untouched.
func wrapPEM(key, blockType string) []byte {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, "-----BEGIN") {
		return []byte(key)
	}
	return []byte("-----BEGIN " + blockType + "-----\n" + key + "\n-----END " + blockType + "-----")
}

// ParsePublicKey parses a gateway public key given as a raw base64 body or a
// full PEM document. PKIX and PKCS#1 encodings are accepted.
func ParsePublicKey(key string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(wrapPEM(key, publicKeyBlock))
	if block == nil {
		return nil, fmt.Errorf("%w: public key is not valid PEM", ErrKeyFormat)
	}
	if parsed, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		pub, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: public key is %T, not RSA", ErrKeyFormat, parsed)
		}
		return pub, nil
	}
	pub, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse public key: %v", ErrKeyFormat, err)
	}
	return pub, nil
}

// ParsePrivateKey parses a merchant private key given as a raw base64 body or
// a full PEM document. PKCS#1 and PKCS#8 encodings are accepted.
func ParsePrivateKey(key string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(wrapPEM(key, privateKeyBlock))
	if block == nil {
		return nil, fmt.Errorf("%w: private key is not valid PEM", ErrKeyFormat)
	}
	if priv, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return priv, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrKeyFormat, err)
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: private key is %T, not RSA", ErrKeyFormat, parsed)
	}
	return priv, nil
}

const pkcs1v15Overhead = 11

// EncryptWithPublicKey encrypts plaintext with RSA PKCS#1 v1.5 and returns the
// standard base64 encoding of the ciphertext.
func EncryptWithPublicKey(publicKey, plaintext string) (string, error) {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return "", err
	}
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plaintext))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// MaxPlaintextSize is the largest plaintext [EncryptWithPublicKey] accepts
// for the key: the modulus size minus the PKCS#1 v1.5 padding overhead.
func MaxPlaintextSize(publicKey string) (int, error) {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return 0, err
	}
	return pub.Size() - pkcs1v15Overhead, nil
}

// DecryptWithPrivateKey reverses [EncryptWithPublicKey].
func DecryptWithPrivateKey(privateKey, ciphertext string) (string, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", fmt.Errorf("%w: decode ciphertext: %v", ErrDecryption, err)
	}
	plaintext, err := rsa.DecryptPKCS1v15(nil, priv, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plaintext), nil
}

// Sign returns the base64 RSA-SHA256 (PKCS#1 v1.5) signature of data.
func Sign(privateKey, data string) (string, error) {
	priv, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256([]byte(data))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a signature produced by [Sign] against the matching public key.
func Verify(publicKey, data, signature string) error {
	pub, err := ParsePublicKey(publicKey)
	if err != nil {
		return err
	}
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("%w: decode signature: %v", ErrVerification, err)
	}
	digest := sha256.Sum256([]byte(data))
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return nil
}

// Marshal encodes v as canonical JSON. The output is what gets encrypted and
// signed, so both operations always see identical bytes.
func Marshal(v any) ([]byte, error) {
	return canonicaljson.Marshal(v)
}

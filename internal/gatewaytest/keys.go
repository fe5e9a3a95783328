package gatewaytest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"sync"
)

// KeyPair holds RSA key bodies in the raw base64 form merchants receive from
// the gateway portal: PKIX for the public half, PKCS#1 for the private half.
type KeyPair struct {
	Public  string
	Private string
}

// NewKeyPair generates a fresh RSA key pair.
func NewKeyPair(bits int) (KeyPair, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return KeyPair{}, fmt.Errorf("gatewaytest: generate key: %w", err)
	}
	pub, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("gatewaytest: marshal public key: %w", err)
	}
	return KeyPair{
		Public:  base64.StdEncoding.EncodeToString(pub),
		Private: base64.StdEncoding.EncodeToString(x509.MarshalPKCS1PrivateKey(priv)),
	}, nil
}

var (
	fixtureOnce sync.Once
	fixture     struct {
		merchant KeyPair
		gateway  KeyPair
		err      error
	}
)

// Keys returns a merchant and a gateway key pair shared by every test in the
// process. RSA generation is slow enough that tests should not repeat it.
func Keys() (merchant, gateway KeyPair, err error) {
	fixtureOnce.Do(func() {
		fixture.merchant, fixture.err = NewKeyPair(2048)
		if fixture.err != nil {
			return
		}
		fixture.gateway, fixture.err = NewKeyPair(2048)
	})
	return fixture.merchant, fixture.gateway, fixture.err
}

// Well-known token key material for tests: 32 and 16 byte hex values.
const (
	SymmetricKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	IVHex           = "a0a1a2a3a4a5a6a7a8a9aaabacadaeaf"
)

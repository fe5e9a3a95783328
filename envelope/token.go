package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// SymmetricKeySize is the decoded length of the token key (AES-256).
	SymmetricKeySize = 32
	// IVSize is the decoded length of the CBC initialization vector.
	IVSize = aes.BlockSize
)

// DecodeKeyMaterial decodes the hex key and IV and enforces their lengths.
func DecodeKeyMaterial(keyHex, ivHex string) (key, iv []byte, err error) {
	key, err = hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: symmetric key is not hex: %v", ErrInvalidKeyMaterial, err)
	}
	iv, err = hex.DecodeString(strings.TrimSpace(ivHex))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: iv is not hex: %v", ErrInvalidKeyMaterial, err)
	}
	if len(key) != SymmetricKeySize {
		return nil, nil, fmt.Errorf("%w: symmetric key is %d bytes, want %d", ErrInvalidKeyMaterial, len(key), SymmetricKeySize)
	}
	if len(iv) != IVSize {
		return nil, nil, fmt.Errorf("%w: iv is %d bytes, want %d", ErrInvalidKeyMaterial, len(iv), IVSize)
	}
	return key, iv, nil
}

// DecryptToken unwraps a hex encoded AES-256-CBC payment token. Key material
// is checked before any decryption is attempted.
func DecryptToken(tokenHex, keyHex, ivHex string) (string, error) {
	key, iv, err := DecodeKeyMaterial(keyHex, ivHex)
	if err != nil {
		return "", err
	}
	ciphertext, err := hex.DecodeString(strings.TrimSpace(tokenHex))
	if err != nil {
		return "", fmt.Errorf("%w: token is not hex: %v", ErrDecryption, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: token length %d is not a positive multiple of %d", ErrDecryption, len(ciphertext), aes.BlockSize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	plaintext, err = pkcs7Unpad(plaintext)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(plaintext) {
		return "", fmt.Errorf("%w: token is not valid UTF-8", ErrDecryption)
	}
	return string(plaintext), nil
}

// EncryptToken is the inverse of [DecryptToken] and returns lowercase hex.
func EncryptToken(plaintext, keyHex, ivHex string) (string, error) {
	key, iv, err := DecodeKeyMaterial(keyHex, ivHex)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return hex.EncodeToString(ciphertext), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrDecryption)
	}
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrDecryption)
		}
	}
	return data[:len(data)-n], nil
}

// Package pii encrypts applicant personal data before it reaches storage.
package pii

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"kycflow/internal/kyc/ports"
)

const prefix = "v1:"

var (
	ErrInvalidKey        = errors.New("pii: key must be 32 bytes")
	ErrMalformedCipher   = errors.New("pii: malformed ciphertext")
	ErrDecryptionFailure = errors.New("pii: decryption failed")
)

// Codec seals each field with XChaCha20-Poly1305. The field name is bound as
// associated data so a ciphertext cannot be replayed into another column.
type Codec struct {
	encKey   []byte
	indexKey []byte
}

var _ ports.PIICodec = (*Codec)(nil)

// New builds a codec from a 32-byte encryption key and an index key of any
// non-zero length.
func New(encKey, indexKey []byte) (*Codec, error) {
	if len(encKey) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	if len(indexKey) == 0 {
		return nil, errors.New("pii: index key is required")
	}
	return &Codec{
		encKey:   append([]byte(nil), encKey...),
		indexKey: append([]byte(nil), indexKey...),
	}, nil
}

// NewFromHex decodes both keys from hex, the form they take in configuration.
func NewFromHex(encKeyHex, indexKeyHex string) (*Codec, error) {
	encKey, err := hex.DecodeString(encKeyHex)
	if err != nil {
		return nil, fmt.Errorf("pii: decode encryption key: %w", err)
	}
	indexKey, err := hex.DecodeString(indexKeyHex)
	if err != nil {
		return nil, fmt.Errorf("pii: decode index key: %w", err)
	}
	return New(encKey, indexKey)
}

// Encrypt returns "v1:" followed by base64(nonce || ciphertext). Empty
// plaintext stays empty so optional fields remain distinguishable.
func (c *Codec) Encrypt(field ports.PIIField, plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	aead, err := chacha20poly1305.NewX(c.encKey)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("pii: nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), []byte(field))
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Codec) Decrypt(field ports.PIIField, ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}
	encoded, ok := strings.CutPrefix(ciphertext, prefix)
	if !ok {
		return "", ErrMalformedCipher
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrMalformedCipher
	}
	aead, err := chacha20poly1305.NewX(c.encKey)
	if err != nil {
		return "", err
	}
	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformedCipher
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, []byte(field))
	if err != nil {
		return "", ErrDecryptionFailure
	}
	return string(plain), nil
}

// BlindIndex is HMAC-SHA256 over field and the normalised value.
func (c *Codec) BlindIndex(field ports.PIIField, plaintext string) string {
	mac := hmac.New(sha256.New, c.indexKey)
	mac.Write([]byte(field))
	mac.Write([]byte{0})
	mac.Write([]byte(strings.ToUpper(strings.TrimSpace(plaintext))))
	return hex.EncodeToString(mac.Sum(nil))
}

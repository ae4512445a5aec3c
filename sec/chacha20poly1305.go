package sec

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrBadToken = errors.New("malformed or forged token")

// TokenSealer turns short plaintexts into opaque URL-safe tokens with XChaCha20-Poly1305.
// The purpose is authenticated as associated data: a token sealed for one purpose
// does not open for another, even under the same key.
type TokenSealer struct {
	aead    cipher.AEAD
	purpose []byte
}

// NewTokenSealer needs a 32 byte key
func NewTokenSealer(key []byte, purpose string) (*TokenSealer, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("token key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	return &TokenSealer{aead: aead, purpose: []byte(purpose)}, nil
}

// Seal returns base64url(nonce | ciphertext) with a fresh random nonce
func (s *TokenSealer) Seal(plaintext []byte) (string, error) {
	ns := s.aead.NonceSize()
	buf := make([]byte, ns, ns+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(s.aead.Seal(buf, buf, plaintext, s.purpose)), nil
}

func (s *TokenSealer) Open(token string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(data) < s.aead.NonceSize()+s.aead.Overhead() {
		return nil, ErrBadToken
	}
	ns := s.aead.NonceSize()
	plain, err := s.aead.Open(nil, data[:ns], data[ns:], s.purpose)
	if err != nil {
		return nil, ErrBadToken
	}
	return plain, nil
}

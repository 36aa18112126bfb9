package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	// recordScheme prefixes every record so a future scheme change can be
	// detected instead of failing as corrupt data.
	recordScheme = "v1"
	hkdfInfo     = "storefront credential vault " + recordScheme
	keySize      = 32
)

// Sealer encrypts records with AES-256-GCM under a key derived from the
// configured secret. Every Seal uses a fresh random nonce stored in front of
// the ciphertext.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the AES key from secret with HKDF-SHA256. The secret is
// process configuration and must not come from user input.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts plaintext and returns the text form "v1." + base64url(nonce || ciphertext).
// aad is authenticated but not stored; Open must be given the same value.
func (s *Sealer) Seal(plaintext string, aad []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	payload := s.aead.Seal(nonce, nonce, []byte(plaintext), aad)
	return recordScheme + "." + base64.RawURLEncoding.EncodeToString(payload), nil
}

// Open reverses Seal. Every failure wraps ErrDecryption.
func (s *Sealer) Open(record string, aad []byte) (string, error) {
	scheme, encoded, ok := strings.Cut(record, ".")
	if !ok || scheme != recordScheme {
		return "", fmt.Errorf("%w: unknown record scheme", ErrDecryption)
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: decode record: %v", ErrDecryption, err)
	}

	nonceSize := s.aead.NonceSize()
	if len(payload) < nonceSize+s.aead.Overhead() {
		return "", fmt.Errorf("%w: record is too short", ErrDecryption)
	}

	plaintext, err := s.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], aad)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return string(plaintext), nil
}

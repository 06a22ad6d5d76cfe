package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Cipher seals challenge payloads with AES-256-GCM. The key is SHA-256 of the configured
// secret, derived once in NewCipher and shared by every call.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the key from secret.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("challenge secret is empty")
	}
	key := sha256.Sum256([]byte(secret))

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Cipher{aead: gcm}, nil
}

// Encrypt returns hex(nonce) + ":" + hex(ciphertext) with a fresh random nonce.
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure wraps ErrDecryption.
func (c *Cipher) Decrypt(encoded string) ([]byte, error) {
	nonceHex, sealedHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing separator", ErrDecryption)
	}
	nonce, err := decodeHex(nonceHex)
	if err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrDecryption, err)
	}
	if len(nonce) != c.aead.NonceSize() {
		return nil, fmt.Errorf("%w: nonce length %d", ErrDecryption, len(nonce))
	}
	sealed, err := decodeHex(sealedHex)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrDecryption, err)
	}
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return plaintext, nil
}

// decodeHex accepts only the lowercase form Encrypt produces.
func decodeHex(s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if hex.EncodeToString(b) != s {
		return nil, errors.New("non-canonical hex")
	}
	return b, nil
}

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// GenerateSessionHandle returns a random Base64URL handle (32 bytes) and its SHA256 hash as hex
func GenerateSessionHandle() (handle string, hashHex string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	handle = base64.RawURLEncoding.EncodeToString(b)
	return handle, HashSessionHandle(handle), nil
}

// HashSessionHandle returns SHA256 hex of the handle
func HashSessionHandle(handle string) string {
	hash := sha256.Sum256([]byte(handle))
	return hex.EncodeToString(hash[:])
}

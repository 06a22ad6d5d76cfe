package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/eventpass/server/internal/model"
)

var tokenEncoding = base64.StdEncoding.Strict()

// SealToken serializes the payload, encrypts it and base64-encodes the result.
func (c *Cipher) SealToken(payload model.ChallengePayload) (string, error) {
	plaintext, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	encrypted, err := c.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString([]byte(encrypted)), nil
}

// OpenToken reverses SealToken. Errors wrap ErrMalformedToken or ErrDecryption.
func (c *Cipher) OpenToken(token string) (model.ChallengePayload, error) {
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return model.ChallengePayload{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	plaintext, err := c.Decrypt(string(raw))
	if err != nil {
		return model.ChallengePayload{}, err
	}
	var payload model.ChallengePayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return model.ChallengePayload{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return payload, nil
}

package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/server/internal/model"
)

func TestCipher_roundTrip(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	encrypted, err := c.Encrypt([]byte(`{"email":"a@b.com"}`))
	require.NoError(t, err)

	nonceHex, sealedHex, ok := strings.Cut(encrypted, ":")
	require.True(t, ok)
	assert.Len(t, nonceHex, 24)
	assert.NotEmpty(t, sealedHex)

	plaintext, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, `{"email":"a@b.com"}`, string(plaintext))
}

func TestCipher_freshNoncePerCall(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	a, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := c.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipher_wrongKey(t *testing.T) {
	c1, err := NewCipher(testSecret)
	require.NoError(t, err)
	c2, err := NewCipher("another-secret")
	require.NoError(t, err)

	encrypted, err := c1.Encrypt([]byte("payload"))
	require.NoError(t, err)
	_, err = c2.Decrypt(encrypted)
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestCipher_malformedInput(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	encrypted, err := c.Encrypt([]byte("payload"))
	require.NoError(t, err)

	for name, input := range map[string]string{
		"empty":          "",
		"no separator":   strings.Replace(encrypted, ":", "", 1),
		"bad nonce hex":  "zz" + encrypted[2:],
		"short nonce":    encrypted[2:],
		"uppercase hex":  strings.ToUpper(encrypted),
		"truncated body": encrypted[:len(encrypted)-2],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decrypt(input)
			assert.ErrorIs(t, err, ErrDecryption)
		})
	}
}

func TestNewCipher_emptySecret(t *testing.T) {
	_, err := NewCipher("")
	assert.Error(t, err)
}

func TestToken_roundTrip(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	payload := model.ChallengePayload{Email: "a@b.com", Expiration: "2026-03-01T10:15:00.123Z"}
	token, err := c.SealToken(payload)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Contains(t, string(raw), ":")

	got, err := c.OpenToken(token)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestOpenToken_errors(t *testing.T) {
	c, err := NewCipher(testSecret)
	require.NoError(t, err)

	_, err = c.OpenToken("%%%not-base64")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = c.OpenToken(base64.StdEncoding.EncodeToString([]byte("abcd")))
	assert.ErrorIs(t, err, ErrDecryption)

	encrypted, err := c.Encrypt([]byte("not json"))
	require.NoError(t, err)
	_, err = c.OpenToken(base64.StdEncoding.EncodeToString([]byte(encrypted)))
	assert.ErrorIs(t, err, ErrMalformedToken)
}

package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/server/internal/model"
	"github.com/eventpass/server/internal/repo"
)

func TestIssue_emailOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	res, err := f.issuer.Issue(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail}, res.Channels)
	assert.True(t, res.DeliveredTo(ChannelEmail))
	assert.False(t, res.DeliveredTo(ChannelWhatsApp))
	assert.Empty(t, f.whatsapp.sent())

	rec, err := f.store.Get(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "AUTH#a@b.com", rec.PartitionKey())
	assert.Equal(t, now.Add(15*time.Minute), rec.Expiration)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, rec.Expiration.Unix(), rec.TTL)
	assert.Equal(t, rec.Expiration, res.Expiration)

	payload, err := f.cipher.OpenToken(rec.Token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", payload.Email)
	assert.Equal(t, "2026-03-01T10:15:00.123Z", payload.Expiration)

	sent := f.email.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@b.com", sent[0].To)
	assert.Equal(t, "Ana", sent[0].Name)
	link, err := url.Parse(sent[0].Link)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", link.Host)
	assert.Equal(t, "a@b.com", link.Query().Get("email"))
	assert.Equal(t, rec.Token, link.Query().Get("token"))
	assert.Contains(t, sent[0].Link, "token="+url.QueryEscape(rec.Token))
}

func TestIssue_whatsAppBestEffort(t *testing.T) {
	f := newFixture(t)

	res, err := f.issuer.Issue(context.Background(), "xyz789")
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail, ChannelWhatsApp}, res.Channels)
	sent := f.whatsapp.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "+525512345678", sent[0].To)
	assert.Equal(t, f.email.sent()[0].Link, sent[0].Link)

	f.whatsapp.err = errors.New("twilio unavailable")
	res, err = f.issuer.Issue(context.Background(), "xyz789")
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail}, res.Channels)
}

func TestIssue_noSecondaryChannel(t *testing.T) {
	f := newFixture(t)
	issuer, err := NewIssuer(f.accounts, f.store, f.cipher, f.email, nil, time.Minute, "https://app.example.com/login")
	require.NoError(t, err)

	res, err := issuer.Issue(context.Background(), "xyz789")
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelEmail}, res.Channels)
}

func TestIssue_failures(t *testing.T) {
	tests := []struct {
		name    string
		shortID string
		want    error
	}{
		{"empty", "", ErrValidation},
		{"blank", "   ", ErrValidation},
		{"unknown", "nope42", ErrAccountNotFound},
		{"no email", "nomail", ErrIncompleteProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.issuer.Issue(context.Background(), tt.shortID)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.email.sent())
		})
	}
}

func TestIssue_mandatoryDeliveryFails(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("ses throttled")

	_, err := f.issuer.Issue(context.Background(), "xyz789")
	assert.ErrorIs(t, err, ErrDelivery)
	assert.Empty(t, f.whatsapp.sent())
}

func TestIssue_storeUnavailable(t *testing.T) {
	f := newFixture(t)
	issuer, err := NewIssuer(f.accounts, brokenStore{}, f.cipher, f.email, f.whatsapp, 0, "https://app.example.com/login")
	require.NoError(t, err)

	_, err = issuer.Issue(context.Background(), "abc123")
	assert.ErrorIs(t, err, ErrStore)
	assert.Empty(t, f.email.sent())
}

func TestIssue_reissueInvalidatesPrevious(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.issuer.Issue(ctx, "abc123")
	require.NoError(t, err)
	first := f.storedToken(t, "a@b.com")

	f.clock.Advance(time.Second)
	_, err = f.issuer.Issue(ctx, "abc123")
	require.NoError(t, err)
	second := f.storedToken(t, "a@b.com")
	require.NotEqual(t, first, second)

	current, err := f.binder.CurrentToken(ctx, "a@b.com")
	require.NoError(t, err)
	assert.False(t, f.verifier.Verify(ctx, "a@b.com", first, current))
	assert.ErrorIs(t, f.verifier.Check(ctx, "a@b.com", first, first), ErrSuperseded)
	assert.True(t, f.verifier.Verify(ctx, "a@b.com", second, current))
}

func TestNewIssuer_invalidBaseURL(t *testing.T) {
	_, err := NewIssuer(repo.NewMemoryAccountRepo(), repo.NewMemoryChallengeStore(), nil, nil, nil, 0, "/login")
	assert.Error(t, err)
}

func TestBuildMagicLink_keepsQuery(t *testing.T) {
	base, err := url.Parse("https://app.example.com/login?lang=es")
	require.NoError(t, err)

	link := BuildMagicLink(base, "a@b.com", "YWJj+/==")
	assert.Equal(t, "https://app.example.com/login?email=a%40b.com&lang=es&token=YWJj%2B%2F%3D%3D", link)
	assert.Equal(t, "lang=es", base.RawQuery)
}

func TestIssuedRecordLayout(t *testing.T) {
	f := newFixture(t)
	_, err := f.issuer.Issue(context.Background(), "abc123")
	require.NoError(t, err)

	rec, err := f.store.Get(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T10:15:00.123Z", model.FormatTimestamp(rec.Expiration))
	assert.Equal(t, int64(1772360100), rec.TTL)
}

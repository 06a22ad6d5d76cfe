package repo

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventpass/server/internal/model"
)

func testRecord(email, token string, now time.Time) model.ChallengeRecord {
	exp := now.Add(15 * time.Minute)
	return model.ChallengeRecord{
		Email:      email,
		Token:      token,
		Expiration: exp,
		CreatedAt:  now,
		TTL:        exp.Unix(),
	}
}

func TestMemoryChallengeStore_lastWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChallengeStore()
	now := time.Now().UTC()

	require.NoError(t, s.Put(ctx, testRecord("a@b.com", "first", now)))
	require.NoError(t, s.Put(ctx, testRecord("a@b.com", "second", now)))

	got, err := s.Get(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Token)

	_, err = s.Get(ctx, "other@b.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryChallengeStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryChallengeStore()
	now := time.Now().UTC()

	require.NoError(t, s.Put(ctx, testRecord("old@b.com", "t1", now.Add(-time.Hour))))
	require.NoError(t, s.Put(ctx, testRecord("new@b.com", "t2", now)))

	n, err := s.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, "old@b.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "new@b.com")
	assert.NoError(t, err)
}

func TestMemoryAccountRepo_lookups(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryAccountRepo(model.Account{ID: "1", ShortID: "abc123", Email: "A@B.com"})

	a, err := r.GetByShortID(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "1", a.ID)

	a, err = r.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "abc123", a.ShortID)

	_, err = r.GetByShortID(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.GetByID(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadSeedAccounts(t *testing.T) {
	accounts, err := LoadSeedAccounts(strings.NewReader(`[
		{"id": "acc-1", "shortId": "abc123", "email": "a@b.com", "name": "Ana"},
		{"shortId": " xyz789 ", "email": "beto@example.com", "phone": "+525512345678"}
	]`))
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Equal(t, "xyz789", accounts[1].ShortID)
	_, err = uuid.Parse(accounts[1].ID)
	assert.NoError(t, err)

	r := NewMemoryAccountRepo(accounts...)
	got, err := r.GetByShortID(context.Background(), "xyz789")
	require.NoError(t, err)
	assert.Equal(t, "+525512345678", got.Phone)
}

func TestLoadSeedAccounts_invalid(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        `{`,
		"missing shortId": `[{"email": "a@b.com"}]`,
		"duplicate":       `[{"shortId": "abc123"}, {"shortId": "abc123"}]`,
	} {
		_, err := LoadSeedAccounts(strings.NewReader(body))
		assert.Error(t, err, name)
	}
}

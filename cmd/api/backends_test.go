package main

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventpass/server/internal/config"
	"github.com/eventpass/server/internal/notify"
	"github.com/eventpass/server/internal/repo"
)

func TestOpenBackends_memory(t *testing.T) {
	cfg := &config.Config{StoreBackend: config.BackendMemory}
	b, err := openBackends(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &repo.MemoryAccountRepo{}, b.accounts)
	assert.IsType(t, &repo.MemoryChallengeStore{}, b.challenges)
	assert.NotNil(t, b.sweeper)
	assert.Empty(t, b.pingers)
}

func TestOpenBackends_redisChallenges(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		StoreBackend:   config.BackendMemory,
		ChallengeStore: config.BackendRedis,
		RedisURL:       "redis://" + mr.Addr(),
	}
	b, err := openBackends(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &repo.RedisChallengeStore{}, b.challenges)
	assert.NotNil(t, b.redis)
	assert.Nil(t, b.sweeper)
	require.Contains(t, b.pingers, "redis")
	assert.NoError(t, b.pingers["redis"].PingContext(context.Background()))
}

func TestOpenBackends_memorySeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"shortId": "abc123", "email": "a@b.com", "name": "Ana"}]`), 0o600))

	cfg := &config.Config{StoreBackend: config.BackendMemory, MemoryAccountsFile: path}
	b, err := openBackends(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	got, err := b.accounts.GetByShortID(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", got.Email)
	assert.NotEmpty(t, got.ID)

	_, err = openBackends(context.Background(), &config.Config{
		StoreBackend:       config.BackendMemory,
		MemoryAccountsFile: filepath.Join(t.TempDir(), "missing.json"),
	}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenBackends_redisURLSharesClient(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		StoreBackend: config.BackendMemory,
		RedisURL:     "redis://" + mr.Addr(),
	}
	b, err := openBackends(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &repo.MemoryChallengeStore{}, b.challenges)
	require.NotNil(t, b.redis)
	assert.Contains(t, b.pingers, "redis")
}

func TestOpenBackends_badRedisURL(t *testing.T) {
	cfg := &config.Config{
		StoreBackend:   config.BackendMemory,
		ChallengeStore: config.BackendRedis,
		RedisURL:       "://nope",
	}
	_, err := openBackends(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestChannels_fromConfig(t *testing.T) {
	b := &backends{}
	email, err := newEmailChannel(context.Background(), &config.Config{EmailDriver: config.EmailDriverLog}, b, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &notify.LogMailer{}, email)

	whatsapp, err := newWhatsAppChannel(context.Background(), &config.Config{}, b, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, whatsapp)

	whatsapp, err = newWhatsAppChannel(context.Background(), &config.Config{
		WhatsAppEnabled:    true,
		TwilioAccountSID:   "AC123",
		TwilioAuthToken:    "token",
		TwilioWhatsAppFrom: "+15005550006",
		DefaultPhoneRegion: "MX",
	}, b, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &notify.TwilioWhatsApp{}, whatsapp)
}

type countingExpirer struct{ calls atomic.Int32 }

func (c *countingExpirer) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestRunSweeper_stopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &countingExpirer{}
	done := make(chan struct{})
	go func() {
		runSweeper(ctx, store, 5*time.Millisecond, zap.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

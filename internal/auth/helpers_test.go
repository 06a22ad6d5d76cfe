package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eventpass/server/internal/model"
	"github.com/eventpass/server/internal/repo"
)

const testSecret = "test-challenge-secret"

type recordingChannel struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (c *recordingChannel) Deliver(ctx context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingChannel) Attempt(ctx context.Context, msg Message) error {
	return c.Deliver(ctx, msg)
}

func (c *recordingChannel) sent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.msgs...)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

type brokenStore struct{}

func (brokenStore) Put(ctx context.Context, record model.ChallengeRecord) error {
	return errors.New("connection refused")
}

func (brokenStore) Get(ctx context.Context, email string) (model.ChallengeRecord, error) {
	return model.ChallengeRecord{}, errors.New("connection refused")
}

type fixture struct {
	clock    *testClock
	accounts *repo.MemoryAccountRepo
	store    *repo.MemoryChallengeStore
	cipher   *Cipher
	email    *recordingChannel
	whatsapp *recordingChannel
	issuer   *Issuer
	binder   *Binder
	verifier *Verifier
	machine  *StateMachine
}

var (
	accountAna   = model.Account{ID: "acc-1", ShortID: "abc123", PIN: "1234", Email: "a@b.com", Name: "Ana"}
	accountBeto  = model.Account{ID: "acc-2", ShortID: "xyz789", Email: "beto@example.com", Phone: "+525512345678", Name: "Beto"}
	accountEmpty = model.Account{ID: "acc-3", ShortID: "nomail", Name: "Sin Correo"}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 123_000_000, time.UTC)},
		accounts: repo.NewMemoryAccountRepo(accountAna, accountBeto, accountEmpty),
		store:    repo.NewMemoryChallengeStore(),
		email:    &recordingChannel{},
		whatsapp: &recordingChannel{},
	}
	var err error
	f.cipher, err = NewCipher(testSecret)
	require.NoError(t, err)

	clock := WithClock(f.clock.Now)
	f.issuer, err = NewIssuer(f.accounts, f.store, f.cipher, f.email, f.whatsapp, 0, "https://app.example.com/login", clock)
	require.NoError(t, err)
	f.binder = NewBinder(f.store, clock)
	f.verifier = NewVerifier(f.cipher, f.store, clock)
	f.machine = NewStateMachine(clock)
	return f
}

func (f *fixture) storedToken(t *testing.T, email string) string {
	t.Helper()
	rec, err := f.store.Get(context.Background(), email)
	require.NoError(t, err)
	return rec.Token
}

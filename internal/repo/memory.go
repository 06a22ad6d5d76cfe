package repo

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/eventpass/server/internal/model"
)

// MemoryAccountRepo is an in-memory AccountRepo for tests and local demos.
type MemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]model.Account
}

// NewMemoryAccountRepo returns a repo seeded with the given accounts.
func NewMemoryAccountRepo(accounts ...model.Account) *MemoryAccountRepo {
	r := &MemoryAccountRepo{accounts: make(map[string]model.Account)}
	for _, a := range accounts {
		r.Add(a)
	}
	return r
}

// Add stores or replaces an account keyed by its ID.
func (r *MemoryAccountRepo) Add(a model.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[a.ID] = a
}

// GetByID retrieves an account by internal ID.
func (r *MemoryAccountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return model.Account{}, fmt.Errorf("account: %w", ErrNotFound)
	}
	return a, nil
}

// GetByShortID retrieves an account by public short identifier.
func (r *MemoryAccountRepo) GetByShortID(ctx context.Context, shortID string) (model.Account, error) {
	return r.find(func(a model.Account) bool { return a.ShortID == shortID })
}

// GetByEmail retrieves an account by contact email (case-insensitive).
func (r *MemoryAccountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	return r.find(func(a model.Account) bool { return a.Email != "" && strings.EqualFold(a.Email, email) })
}

func (r *MemoryAccountRepo) find(match func(model.Account) bool) (model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if match(a) {
			return a, nil
		}
	}
	return model.Account{}, fmt.Errorf("account: %w", ErrNotFound)
}

// MemoryChallengeStore is an in-memory ChallengeStore.
// Expired records are kept until DeleteExpired runs; Get returns them and callers check Expired.
type MemoryChallengeStore struct {
	mu      sync.RWMutex
	records map[string]model.ChallengeRecord
}

// NewMemoryChallengeStore returns an empty in-memory challenge store.
func NewMemoryChallengeStore() *MemoryChallengeStore {
	return &MemoryChallengeStore{
		records: make(map[string]model.ChallengeRecord),
	}
}

// Put replaces the record for its email.
func (s *MemoryChallengeStore) Put(ctx context.Context, record model.ChallengeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.PartitionKey()] = record
	return nil
}

// Get returns the record for email.
func (s *MemoryChallengeStore) Get(ctx context.Context, email string) (model.ChallengeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[model.ChallengePartitionKey(email)]
	if !ok {
		return model.ChallengeRecord{}, fmt.Errorf("challenge: %w", ErrNotFound)
	}
	return rec, nil
}

// DeleteExpired drops records whose deletion deadline is before now.
func (s *MemoryChallengeStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, rec := range s.records {
		if rec.TTL < now.Unix() {
			delete(s.records, k)
			n++
		}
	}
	return n, nil
}

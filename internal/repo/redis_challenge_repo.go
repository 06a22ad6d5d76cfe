package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/eventpass/server/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	challengeKeyNamespace = "ep"
	// challengeKeyGrace keeps a record readable past its expiration, so readers see it
	// as expired instead of missing.
	challengeKeyGrace = time.Second
)

var errChallengeRedisUnavailable = errors.New("challenge redis unavailable")

type redisChallengeRecord struct {
	Token      string `json:"token"`
	Expiration string `json:"expiration"`
	CreatedAt  string `json:"created_at"`
	TTL        int64  `json:"ttl"`
}

// RedisChallengeStore keeps challenge records as Redis strings. Key expiry shortly after
// the record's expiration plays the role of the physical sweep.
type RedisChallengeStore struct {
	redis     redis.UniversalClient
	namespace string
}

// NewRedisChallengeStore creates a Redis-backed ChallengeStore.
func NewRedisChallengeStore(client redis.UniversalClient) *RedisChallengeStore {
	return &RedisChallengeStore{redis: client, namespace: challengeKeyNamespace}
}

func (s *RedisChallengeStore) key(email string) string {
	return s.namespace + ":" + model.ChallengePartitionKey(email) + ":" + model.ChallengeSortKey
}

// Put overwrites the record for its email.
func (s *RedisChallengeStore) Put(ctx context.Context, record model.ChallengeRecord) error {
	encoded, err := json.Marshal(redisChallengeRecord{
		Token:      record.Token,
		Expiration: model.FormatTimestamp(record.Expiration),
		CreatedAt:  model.FormatTimestamp(record.CreatedAt),
		TTL:        record.TTL,
	})
	if err != nil {
		return err
	}

	ttl := time.Until(record.Expiration) + challengeKeyGrace
	if ttl < challengeKeyGrace {
		ttl = challengeKeyGrace
	}

	if err := s.redis.Set(ctx, s.key(record.Email), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}
	return nil
}

// Get returns the record for email.
func (s *RedisChallengeStore) Get(ctx context.Context, email string) (model.ChallengeRecord, error) {
	data, err := s.redis.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.ChallengeRecord{}, fmt.Errorf("challenge: %w", ErrNotFound)
		}
		return model.ChallengeRecord{}, fmt.Errorf("%w: %v", errChallengeRedisUnavailable, err)
	}

	var stored redisChallengeRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return model.ChallengeRecord{}, fmt.Errorf("decode challenge: %w", err)
	}
	expiration, err := model.ParseTimestamp(stored.Expiration)
	if err != nil {
		return model.ChallengeRecord{}, fmt.Errorf("decode challenge expiration: %w", err)
	}
	createdAt, err := model.ParseTimestamp(stored.CreatedAt)
	if err != nil {
		return model.ChallengeRecord{}, fmt.Errorf("decode challenge created_at: %w", err)
	}

	return model.ChallengeRecord{
		Email:      email,
		Token:      stored.Token,
		Expiration: expiration,
		CreatedAt:  createdAt,
		TTL:        stored.TTL,
	}, nil
}

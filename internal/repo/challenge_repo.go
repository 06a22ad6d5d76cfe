package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eventpass/server/internal/model"
)

// ChallengeRepo is a Postgres-backed ChallengeStore.
type ChallengeRepo struct {
	db *sql.DB
}

// NewChallengeRepo creates a ChallengeRepo.
// Rows mirror the single-table layout: (pk, sk) = (AUTH#<email>, AUTH_CHALLENGE).
func NewChallengeRepo(db *sql.DB) *ChallengeRepo {
	return &ChallengeRepo{db: db}
}

// Put upserts the record for its email, replacing any previous challenge.
func (r *ChallengeRepo) Put(ctx context.Context, record model.ChallengeRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_challenges (pk, sk, token, expiration, created_at, ttl)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pk, sk) DO UPDATE
		SET token = EXCLUDED.token,
		    expiration = EXCLUDED.expiration,
		    created_at = EXCLUDED.created_at,
		    ttl = EXCLUDED.ttl
	`, record.PartitionKey(), model.ChallengeSortKey, record.Token, record.Expiration.UTC(), record.CreatedAt.UTC(), record.TTL)
	if err != nil {
		return fmt.Errorf("upsert challenge: %w", err)
	}
	return nil
}

// Get returns the stored record for email regardless of expiry; callers check Expired.
func (r *ChallengeRepo) Get(ctx context.Context, email string) (model.ChallengeRecord, error) {
	var (
		pk     string
		record model.ChallengeRecord
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT pk, token, expiration, created_at, ttl
		FROM auth_challenges
		WHERE pk = $1 AND sk = $2
	`, model.ChallengePartitionKey(email), model.ChallengeSortKey).Scan(
		&pk,
		&record.Token,
		&record.Expiration,
		&record.CreatedAt,
		&record.TTL,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ChallengeRecord{}, fmt.Errorf("challenge: %w", ErrNotFound)
		}
		return model.ChallengeRecord{}, fmt.Errorf("query challenge: %w", err)
	}
	record.Email = strings.TrimPrefix(pk, model.ChallengeKeyPrefix)
	record.Expiration = record.Expiration.UTC()
	record.CreatedAt = record.CreatedAt.UTC()
	return record, nil
}

// DeleteExpired removes rows whose deletion deadline has passed and returns how many were removed.
func (r *ChallengeRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM auth_challenges WHERE ttl < $1`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired challenges: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

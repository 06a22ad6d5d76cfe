package repo

import (
	"context"
	"errors"

	"github.com/eventpass/server/internal/model"
)

// ErrNotFound is returned by every backend when a row or item does not exist.
var ErrNotFound = errors.New("not found")

// AccountRepo defines the read-only account lookups the auth flow needs
type AccountRepo interface {
	GetByID(ctx context.Context, id string) (model.Account, error)
	GetByShortID(ctx context.Context, shortID string) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
}

// ChallengeStore holds at most one challenge record per contact identifier.
// Put unconditionally overwrites; the last writer wins.
type ChallengeStore interface {
	Put(ctx context.Context, record model.ChallengeRecord) error
	Get(ctx context.Context, email string) (model.ChallengeRecord, error)
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/eventpass/server/internal/model"
)

type accountRepo struct {
	db *sql.DB
}

// NewAccountRepo creates a Postgres-backed AccountRepo
func NewAccountRepo(db *sql.DB) AccountRepo {
	return &accountRepo{db: db}
}

const accountColumns = `id, short_id, pin, email, phone, name`

// GetByID retrieves an account by its internal ID
func (r *accountRepo) GetByID(ctx context.Context, id string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id::text = $1`
	return r.scanOne(ctx, query, id)
}

// GetByShortID retrieves an account by its public short identifier
func (r *accountRepo) GetByShortID(ctx context.Context, shortID string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE short_id = $1 LIMIT 1`
	return r.scanOne(ctx, query, shortID)
}

// GetByEmail retrieves an account by contact email (case-insensitive)
func (r *accountRepo) GetByEmail(ctx context.Context, email string) (model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1) LIMIT 1`
	return r.scanOne(ctx, query, email)
}

func (r *accountRepo) scanOne(ctx context.Context, query string, arg string) (model.Account, error) {
	var (
		account                 model.Account
		pin, email, phone, name sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&account.ID,
		&account.ShortID,
		&pin,
		&email,
		&phone,
		&name,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Account{}, fmt.Errorf("account: %w", ErrNotFound)
		}
		return model.Account{}, fmt.Errorf("failed to query account: %w", err)
	}
	account.PIN = pin.String
	account.Email = email.String
	account.Phone = phone.String
	account.Name = name.String
	return account, nil
}

package tests

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eventpass/server/internal/model"
)

// TruncateAuthTables truncates auth-related tables for a clean test state.
func TruncateAuthTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, "TRUNCATE TABLE auth_challenges, accounts RESTART IDENTITY CASCADE")
	if err != nil {
		return fmt.Errorf("truncate auth tables: %w", err)
	}
	return nil
}

// SeedAccount inserts an account and returns it with the generated ID.
func SeedAccount(ctx context.Context, db *sql.DB, a model.Account) (model.Account, error) {
	err := db.QueryRowContext(ctx, `
		INSERT INTO accounts (short_id, pin, email, phone, name)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id::text
	`, a.ShortID, a.PIN, a.Email, a.Phone, a.Name).Scan(&a.ID)
	if err != nil {
		return model.Account{}, fmt.Errorf("seed account %s: %w", a.ShortID, err)
	}
	return a, nil
}

package repo

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/eventpass/server/internal/model"
)

type seedAccount struct {
	ID      string `json:"id"`
	ShortID string `json:"shortId"`
	PIN     string `json:"pin"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Name    string `json:"name"`
}

// LoadSeedAccounts reads a JSON array of accounts for the in-memory repo.
// Missing IDs get a random UUID; short IDs must be present and unique.
func LoadSeedAccounts(r io.Reader) ([]model.Account, error) {
	var seeds []seedAccount
	if err := json.NewDecoder(r).Decode(&seeds); err != nil {
		return nil, fmt.Errorf("decode seed accounts: %w", err)
	}

	accounts := make([]model.Account, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))
	for i, s := range seeds {
		shortID := strings.TrimSpace(s.ShortID)
		if shortID == "" {
			return nil, fmt.Errorf("seed account %d: shortId is required", i)
		}
		if _, dup := seen[shortID]; dup {
			return nil, fmt.Errorf("seed account %d: duplicate shortId %q", i, shortID)
		}
		seen[shortID] = struct{}{}

		id := strings.TrimSpace(s.ID)
		if id == "" {
			id = uuid.NewString()
		}
		accounts = append(accounts, model.Account{
			ID:      id,
			ShortID: shortID,
			PIN:     s.PIN,
			Email:   strings.TrimSpace(s.Email),
			Phone:   strings.TrimSpace(s.Phone),
			Name:    s.Name,
		})
	}
	return accounts, nil
}

package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/eventpass/server/internal/auth"
	"github.com/eventpass/server/internal/model"
	"github.com/eventpass/server/internal/repo"
)

type contextKey string

const (
	accountKey   contextKey = "account"
	accountIDKey contextKey = "account_id"
)

// TriggerKeyHeader carries the shared key for the identity-provider trigger routes.
const TriggerKeyHeader = "X-Trigger-Key"

// AuthMiddleware validates JWT tokens, loads the account and attaches it to context
func AuthMiddleware(jwtService *auth.JWTService, accounts repo.AccountRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := strings.TrimSpace(parts[1])
			if tokenString == "" {
				RespondWithError(w, http.StatusUnauthorized, "missing token")
				return
			}

			claims, err := jwtService.VerifyToken(tokenString)
			if err != nil {
				RespondWithError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			account, err := accounts.GetByID(r.Context(), claims.Subject)
			if err != nil {
				RespondWithError(w, http.StatusUnauthorized, "account not found")
				return
			}

			ctx := context.WithValue(r.Context(), accountKey, &account)
			ctx = context.WithValue(ctx, accountIDKey, claims.Subject)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccount returns the account attached to the request context (set by AuthMiddleware)
func GetAccount(ctx context.Context) (*model.Account, bool) {
	a, ok := ctx.Value(accountKey).(*model.Account)
	return a, ok
}

// GetAccountID extracts the account ID from context
func GetAccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok
}

// TriggerKey rejects requests whose X-Trigger-Key does not match key.
func TriggerKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(TriggerKeyHeader)
			if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				RespondWithError(w, http.StatusUnauthorized, "invalid trigger key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
	"github.com/eventpass/server/internal/middleware"
	"github.com/eventpass/server/internal/model"
)

// SessionHandler drives the local identity provider: start a login, answer the
// challenge with the magic-link token, read the profile.
type SessionHandler struct {
	authService *auth.AuthService
	log         *zap.Logger
}

func NewSessionHandler(authService *auth.AuthService, log *zap.Logger) *SessionHandler {
	return &SessionHandler{authService: authService, log: log}
}

// initiateRequest is the request body for POST /auth/session
type initiateRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type initiateResponse struct {
	Session             string            `json:"session"`
	ChallengeName       string            `json:"challengeName"`
	ChallengeParameters map[string]string `json:"challengeParameters"`
}

// respondRequest is the request body for POST /auth/session/respond
type respondRequest struct {
	Session string `json:"session" validate:"required"`
	Answer  string `json:"answer" validate:"required"`
}

type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   int64           `json:"expires_at"`
	Account     accountResponse `json:"account"`
}

// accountResponse is the account object in API responses. The PIN is never returned.
type accountResponse struct {
	ID      string `json:"id"`
	ShortID string `json:"short_id"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Name    string `json:"name,omitempty"`
}

func newAccountResponse(a model.Account) accountResponse {
	return accountResponse{ID: a.ID, ShortID: a.ShortID, Email: a.Email, Phone: a.Phone, Name: a.Name}
}

// HandleInitiate handles POST /auth/session
func (h *SessionHandler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "El correo electrónico no es válido.")
		return
	}

	challenge, err := h.authService.InitiateAuth(r.Context(), req.Email)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}
	_ = respondJSON(w, http.StatusOK, initiateResponse{
		Session:             challenge.Session,
		ChallengeName:       challenge.ChallengeName,
		ChallengeParameters: challenge.ChallengeParameters,
	})
}

// HandleRespond handles POST /auth/session/respond
func (h *SessionHandler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "session y answer son obligatorios.")
		return
	}

	tokens, err := h.authService.RespondToAuthChallenge(r.Context(), req.Session, req.Answer)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}
	_ = respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: tokens.AccessToken,
		TokenType:   tokens.TokenType,
		ExpiresAt:   tokens.ExpiresAt.Unix(),
		Account:     newAccountResponse(tokens.Account),
	})
}

// HandleMe handles GET /me (protected). Returns the authenticated account.
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	account, ok := middleware.GetAccount(r.Context())
	if !ok || account == nil {
		respondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := respondJSON(w, http.StatusOK, newAccountResponse(*account)); err != nil {
		h.log.Warn("failed to encode /me response", zap.Error(err))
	}
}

func (h *SessionHandler) respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		respondWithError(w, http.StatusBadRequest, msgInvalidBody)
	case errors.Is(err, auth.ErrAuthenticationFailed):
		respondWithError(w, http.StatusUnauthorized, "No fue posible iniciar sesión.")
	case errors.Is(err, auth.ErrNoChallengeFound):
		respondWithError(w, http.StatusNotFound, "Solicita un nuevo enlace de acceso.")
	default:
		h.log.Error("session request failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Error interno. Intenta de nuevo más tarde.")
	}
}

package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
)

// User-facing messages of the issue endpoint.
const (
	msgSentEmail         = "Te enviamos un enlace de acceso a tu correo electrónico."
	msgSentEmailWhatsApp = "Te enviamos un enlace de acceso a tu correo electrónico y WhatsApp."
	msgInvalidBody       = "La solicitud no es válida."
	msgShortIDRequired   = "El identificador es obligatorio."
	msgAccountNotFound   = "No encontramos un perfil con ese identificador."
	msgIncompleteProfile = "Tu perfil no tiene un correo electrónico registrado."
	msgIssueFailed       = "No pudimos enviar el enlace de acceso. Intenta de nuevo más tarde."
)

// ChallengeIssuer issues magic-link challenges by public short identifier.
type ChallengeIssuer interface {
	Issue(ctx context.Context, shortID string) (*auth.IssueResult, error)
}

// ChallengeHandler serves POST /auth/challenge.
type ChallengeHandler struct {
	issuer ChallengeIssuer
	log    *zap.Logger
}

func NewChallengeHandler(issuer ChallengeIssuer, log *zap.Logger) *ChallengeHandler {
	return &ChallengeHandler{issuer: issuer, log: log}
}

// issueChallengeRequest accepts both shortId and short_id.
type issueChallengeRequest struct {
	ShortID    string `json:"shortId" validate:"required,max=64"`
	ShortIDAlt string `json:"short_id"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// HandleIssue handles POST /auth/challenge
func (h *ChallengeHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueChallengeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if strings.TrimSpace(req.ShortID) == "" {
		req.ShortID = req.ShortIDAlt
	}
	req.ShortID = strings.TrimSpace(req.ShortID)
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, msgShortIDRequired)
		return
	}

	res, err := h.issuer.Issue(r.Context(), req.ShortID)
	if err != nil {
		status, msg := issueErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("issue challenge failed", zap.Error(err))
		}
		respondWithError(w, status, msg)
		return
	}

	msg := msgSentEmail
	if res.DeliveredTo(auth.ChannelWhatsApp) {
		msg = msgSentEmailWhatsApp
	}
	if err := respondJSON(w, http.StatusAccepted, messageResponse{Message: msg}); err != nil {
		h.log.Warn("failed to encode issue response", zap.Error(err))
	}
}

// HandlePreflight answers OPTIONS requests that carry no CORS preflight headers.
func (h *ChallengeHandler) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func issueErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, msgShortIDRequired
	case errors.Is(err, auth.ErrAccountNotFound):
		return http.StatusNotFound, msgAccountNotFound
	case errors.Is(err, auth.ErrIncompleteProfile):
		return http.StatusBadRequest, msgIncompleteProfile
	default:
		return http.StatusInternalServerError, msgIssueFailed
	}
}

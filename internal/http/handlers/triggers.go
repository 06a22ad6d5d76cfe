package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
)

// TriggerHandler exposes the define, create and verify callbacks as JSON endpoints.
// Each returns the event with its response object filled in.
type TriggerHandler struct {
	machine  *auth.StateMachine
	binder   *auth.Binder
	verifier *auth.Verifier
	log      *zap.Logger
}

func NewTriggerHandler(machine *auth.StateMachine, binder *auth.Binder, verifier *auth.Verifier, log *zap.Logger) *TriggerHandler {
	return &TriggerHandler{machine: machine, binder: binder, verifier: verifier, log: log}
}

// HandleDefine handles POST /triggers/define-auth-challenge
func (h *TriggerHandler) HandleDefine(w http.ResponseWriter, r *http.Request) {
	var evt auth.DefineAuthChallengeEvent
	if err := decodeJSON(w, r, &evt); err != nil {
		h.badEvent(w, err)
		return
	}
	status := http.StatusOK
	if err := h.machine.Define(r.Context(), &evt); err != nil {
		status = triggerStatus(err)
	}
	h.write(w, status, &evt)
}

// HandleCreate handles POST /triggers/create-auth-challenge
func (h *TriggerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var evt auth.CreateAuthChallengeEvent
	if err := decodeJSON(w, r, &evt); err != nil {
		h.badEvent(w, err)
		return
	}
	if err := h.binder.CreateChallenge(r.Context(), &evt); err != nil {
		status := triggerStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("create auth challenge failed", zap.Error(err))
		}
		respondWithError(w, status, http.StatusText(status))
		return
	}
	h.write(w, http.StatusOK, &evt)
}

// HandleVerify handles POST /triggers/verify-auth-challenge
func (h *TriggerHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	var evt auth.VerifyAuthChallengeEvent
	if err := decodeJSON(w, r, &evt); err != nil {
		h.badEvent(w, err)
		return
	}
	if err := h.verifier.VerifyChallenge(r.Context(), &evt); err != nil {
		status := triggerStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.Error("verify auth challenge failed", zap.Error(err))
		}
		respondWithError(w, status, http.StatusText(status))
		return
	}
	h.write(w, http.StatusOK, &evt)
}

func (h *TriggerHandler) badEvent(w http.ResponseWriter, err error) {
	h.log.Debug("undecodable trigger event", zap.Error(err))
	respondWithError(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest))
}

func (h *TriggerHandler) write(w http.ResponseWriter, status int, evt any) {
	if err := respondJSON(w, status, evt); err != nil {
		h.log.Warn("failed to encode trigger response", zap.Error(err))
	}
}

func triggerStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrNoChallengeFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

package auth

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// State is the outcome of one define-challenge evaluation.
type State string

const (
	StateNoSession       State = "no_session"
	StateChallengeIssued State = "challenge_issued"
	StateAccepted        State = "accepted"
	StateRejected        State = "rejected"
)

// Decide maps the identity lookup and session history to the next state.
// A single failed attempt is terminal.
func Decide(userNotFound bool, session []ChallengeResult) State {
	if userNotFound {
		return StateRejected
	}
	if len(session) == 0 {
		return StateChallengeIssued
	}
	if session[len(session)-1].ChallengeResult {
		return StateAccepted
	}
	return StateRejected
}

// StateMachine answers define-challenge callbacks.
type StateMachine struct {
	common
}

func NewStateMachine(opts ...Option) *StateMachine {
	return &StateMachine{common: newCommon(opts)}
}

// Define writes the decision into evt.Response. Any failure, including a panic while
// evaluating, leaves the response as a failed authentication before the error is returned.
func (m *StateMachine) Define(ctx context.Context, evt *DefineAuthChallengeEvent) (err error) {
	if evt == nil {
		return fmt.Errorf("%w: nil define event", ErrValidation)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("define auth challenge: %v", r)
		}
		if err != nil {
			evt.Response = defineResponse(StateRejected)
			m.metrics.Decision(ctx, string(StateRejected))
			m.log.Warn("define auth challenge failed closed", zap.Error(err))
		}
	}()

	if err := validateStruct(evt.Request); err != nil {
		return err
	}

	state := Decide(evt.Request.UserNotFound, evt.Request.Session)
	evt.Response = defineResponse(state)
	m.metrics.Decision(ctx, string(state))
	m.log.Debug("define auth challenge",
		zap.String("state", string(state)),
		zap.Int("session_length", len(evt.Request.Session)),
		zap.Bool("user_not_found", evt.Request.UserNotFound),
	)
	return nil
}

func defineResponse(state State) DefineAuthChallengeResponse {
	switch state {
	case StateChallengeIssued:
		return DefineAuthChallengeResponse{ChallengeName: CustomChallenge}
	case StateAccepted:
		return DefineAuthChallengeResponse{IssueTokens: true}
	default:
		return DefineAuthChallengeResponse{FailAuthentication: true}
	}
}

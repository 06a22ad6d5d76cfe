package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func results(outcomes ...bool) []ChallengeResult {
	out := make([]ChallengeResult, 0, len(outcomes))
	for _, ok := range outcomes {
		out = append(out, ChallengeResult{ChallengeName: CustomChallenge, ChallengeResult: ok})
	}
	return out
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name         string
		userNotFound bool
		session      []ChallengeResult
		want         State
	}{
		{"unknown user, empty session", true, nil, StateRejected},
		{"unknown user, successful session", true, results(true), StateRejected},
		{"empty session", false, nil, StateChallengeIssued},
		{"empty non-nil session", false, []ChallengeResult{}, StateChallengeIssued},
		{"last attempt succeeded", false, results(true), StateAccepted},
		{"last attempt failed", false, results(false), StateRejected},
		{"failure then success", false, results(false, true), StateAccepted},
		{"success then failure", false, results(true, false), StateRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.userNotFound, tt.session))
		})
	}
}

func TestDefine_responses(t *testing.T) {
	m := NewStateMachine()
	ctx := context.Background()

	evt := &DefineAuthChallengeEvent{}
	require.NoError(t, m.Define(ctx, evt))
	assert.Equal(t, DefineAuthChallengeResponse{ChallengeName: CustomChallenge}, evt.Response)

	evt = &DefineAuthChallengeEvent{Request: DefineAuthChallengeRequest{Session: results(true)}}
	require.NoError(t, m.Define(ctx, evt))
	assert.Equal(t, DefineAuthChallengeResponse{IssueTokens: true}, evt.Response)

	evt = &DefineAuthChallengeEvent{Request: DefineAuthChallengeRequest{Session: results(false)}}
	require.NoError(t, m.Define(ctx, evt))
	assert.Equal(t, DefineAuthChallengeResponse{FailAuthentication: true}, evt.Response)

	evt = &DefineAuthChallengeEvent{Request: DefineAuthChallengeRequest{UserNotFound: true}}
	require.NoError(t, m.Define(ctx, evt))
	assert.Equal(t, DefineAuthChallengeResponse{FailAuthentication: true}, evt.Response)
}

func TestDefine_failsClosed(t *testing.T) {
	m := NewStateMachine()

	evt := &DefineAuthChallengeEvent{
		Request: DefineAuthChallengeRequest{
			Session: []ChallengeResult{{ChallengeName: strings.Repeat("X", 65), ChallengeResult: true}},
		},
		Response: DefineAuthChallengeResponse{IssueTokens: true},
	}
	err := m.Define(context.Background(), evt)
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, evt.Response.FailAuthentication)
	assert.False(t, evt.Response.IssueTokens)

	assert.ErrorIs(t, m.Define(context.Background(), nil), ErrValidation)
}

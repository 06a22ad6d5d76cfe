package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/logger"
	"github.com/eventpass/server/internal/model"
	"github.com/eventpass/server/internal/repo"
)

// Verifier checks a submitted answer against the expected challenge token.
type Verifier struct {
	common
	cipher *Cipher
	store  repo.ChallengeStore
}

// NewVerifier creates a Verifier. When store is non-nil the stored record is re-read
// after the token checks, so an answer for a superseded or expired record is rejected.
func NewVerifier(cipher *Cipher, store repo.ChallengeStore, opts ...Option) *Verifier {
	return &Verifier{common: newCommon(opts), cipher: cipher, store: store}
}

// Check returns nil when answer is accepted, or the reason it was rejected.
// Checks run in order and stop at the first failure.
func (v *Verifier) Check(ctx context.Context, email, answer, expected string) error {
	if expected == "" || subtle.ConstantTimeCompare([]byte(answer), []byte(expected)) != 1 {
		return ErrAnswerMismatch
	}

	payload, err := v.cipher.OpenToken(answer)
	if err != nil {
		return err
	}

	if payload.Email != email {
		return ErrIdentityMismatch
	}

	expiration, err := model.ParseTimestamp(payload.Expiration)
	if err != nil {
		return fmt.Errorf("%w: expiration: %v", ErrMalformedToken, err)
	}
	now := v.now()
	if now.After(expiration) {
		return ErrChallengeExpired
	}

	if v.store == nil {
		return nil
	}
	record, err := v.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoChallengeFound
		}
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	if record.Expired(now) {
		return ErrChallengeExpired
	}
	if subtle.ConstantTimeCompare([]byte(record.Token), []byte(answer)) != 1 {
		return ErrSuperseded
	}
	return nil
}

// Verify reports whether answer is accepted. It never fails; every error is a rejection.
func (v *Verifier) Verify(ctx context.Context, email, answer, expected string) bool {
	err := v.Check(ctx, email, answer, expected)
	v.record(ctx, email, err)
	return err == nil
}

// VerifyChallenge sets answerCorrect on the event. A missing or invalid email is a
// rejection like any other. Only a nil event and store failures are returned as errors;
// the answer is rejected in those cases too.
func (v *Verifier) VerifyChallenge(ctx context.Context, evt *VerifyAuthChallengeEvent) error {
	if evt == nil {
		return fmt.Errorf("%w: nil verify event", ErrValidation)
	}
	evt.Response.AnswerCorrect = false

	email := evt.Request.UserAttributes[PublicParamEmail]
	if err := validateEmail(email); err != nil {
		v.record(ctx, email, fmt.Errorf("%w: %v", ErrIdentityMismatch, err))
		return nil
	}

	err := v.Check(ctx, email, evt.Request.ChallengeAnswer, evt.Request.PrivateChallengeParameters[PrivateParamChallenge])
	v.record(ctx, email, err)
	if errors.Is(err, ErrStore) {
		return err
	}
	evt.Response.AnswerCorrect = err == nil
	return nil
}

func (v *Verifier) record(ctx context.Context, email string, err error) {
	v.metrics.Verification(ctx, err == nil, rejectionReason(err))
	if err != nil {
		v.log.Info("challenge answer rejected", logger.Email(email), zap.String("reason", rejectionReason(err)))
	}
}

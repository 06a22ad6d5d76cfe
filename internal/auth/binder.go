package auth

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/logger"
	"github.com/eventpass/server/internal/repo"
)

// Binder answers create-challenge callbacks from the stored challenge record.
// The token only leaves the server through the issuer's delivery channels; the
// identity provider keeps it as a private parameter.
type Binder struct {
	common
	store repo.ChallengeStore
}

func NewBinder(store repo.ChallengeStore, opts ...Option) *Binder {
	return &Binder{common: newCommon(opts), store: store}
}

// CurrentToken returns the token of the unexpired record for email.
func (b *Binder) CurrentToken(ctx context.Context, email string) (string, error) {
	record, err := b.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrNoChallengeFound
		}
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}
	if record.Expired(b.now()) {
		return "", fmt.Errorf("%w: expired", ErrNoChallengeFound)
	}
	return record.Token, nil
}

// CreateChallenge fills the public (email) and private (token) challenge parameters.
func (b *Binder) CreateChallenge(ctx context.Context, evt *CreateAuthChallengeEvent) error {
	if evt == nil {
		return fmt.Errorf("%w: nil create event", ErrValidation)
	}
	if err := validateStruct(evt.Request); err != nil {
		return err
	}
	email := evt.Request.UserAttributes[PublicParamEmail]
	if err := validateEmail(email); err != nil {
		return err
	}

	token, err := b.CurrentToken(ctx, email)
	if err != nil {
		b.log.Info("create challenge refused", logger.Email(email), zap.Error(err))
		return err
	}

	evt.Response = CreateAuthChallengeResponse{
		PublicChallengeParameters:  map[string]string{PublicParamEmail: email},
		PrivateChallengeParameters: map[string]string{PrivateParamChallenge: token},
		ChallengeMetadata:          ChallengeMetadata,
	}
	return nil
}

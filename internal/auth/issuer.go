package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/logger"
	"github.com/eventpass/server/internal/metrics"
	"github.com/eventpass/server/internal/model"
	"github.com/eventpass/server/internal/repo"
)

// DefaultChallengeTTL is how long an issued link stays valid.
const DefaultChallengeTTL = 15 * time.Minute

// IssueResult describes a successful issuance. Channels always starts with ChannelEmail.
type IssueResult struct {
	Email      string
	Expiration time.Time
	Channels   []string
}

// DeliveredTo reports whether the link went out over channel.
func (r IssueResult) DeliveredTo(channel string) bool {
	for _, c := range r.Channels {
		if c == channel {
			return true
		}
	}
	return false
}

// Issuer mints challenges for accounts and sends the magic link out of band.
type Issuer struct {
	common
	accounts  repo.AccountRepo
	store     repo.ChallengeStore
	cipher    *Cipher
	email     MandatoryChannel
	secondary BestEffortChannel
	ttl       time.Duration
	linkBase  *url.URL
}

// NewIssuer creates an Issuer. secondary may be nil when WhatsApp delivery is off;
// ttl <= 0 uses DefaultChallengeTTL.
func NewIssuer(
	accounts repo.AccountRepo,
	store repo.ChallengeStore,
	cipher *Cipher,
	email MandatoryChannel,
	secondary BestEffortChannel,
	ttl time.Duration,
	linkBaseURL string,
	opts ...Option,
) (*Issuer, error) {
	base, err := url.Parse(linkBaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid magic link base URL %q", linkBaseURL)
	}
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &Issuer{
		common:    newCommon(opts),
		accounts:  accounts,
		store:     store,
		cipher:    cipher,
		email:     email,
		secondary: secondary,
		ttl:       ttl,
		linkBase:  base,
	}, nil
}

// Issue resolves shortID, overwrites the account's challenge record and delivers the link.
func (i *Issuer) Issue(ctx context.Context, shortID string) (*IssueResult, error) {
	shortID = strings.TrimSpace(shortID)
	if shortID == "" {
		return nil, fmt.Errorf("%w: shortId is required", ErrValidation)
	}

	account, err := i.accounts.GetByShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, shortID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if strings.TrimSpace(account.Email) == "" {
		return nil, fmt.Errorf("%w: account %s", ErrIncompleteProfile, account.ID)
	}

	now := i.now().UTC().Truncate(time.Millisecond)
	expiration := now.Add(i.ttl)

	token, err := i.cipher.SealToken(model.ChallengePayload{
		Email:      account.Email,
		Expiration: model.FormatTimestamp(expiration),
	})
	if err != nil {
		return nil, fmt.Errorf("seal challenge: %w", err)
	}

	record := model.ChallengeRecord{
		Email:      account.Email,
		Token:      token,
		Expiration: expiration,
		CreatedAt:  now,
		TTL:        expiration.Unix(),
	}
	if err := i.store.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	i.metrics.ChallengeIssued(ctx)

	log := i.log.With(zap.String("account_id", account.ID), logger.Email(account.Email))
	msg := Message{
		To:         account.Email,
		Name:       account.Name,
		Link:       BuildMagicLink(i.linkBase, account.Email, token),
		Expiration: expiration,
	}
	if err := i.email.Deliver(ctx, msg); err != nil {
		i.metrics.Delivery(ctx, ChannelEmail, metrics.OutcomeFailed)
		log.Error("magic link email failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	i.metrics.Delivery(ctx, ChannelEmail, metrics.OutcomeDelivered)

	result := &IssueResult{
		Email:      account.Email,
		Expiration: expiration,
		Channels:   []string{ChannelEmail},
	}

	if account.Phone != "" {
		if i.attemptSecondary(ctx, log, account, msg) {
			result.Channels = append(result.Channels, ChannelWhatsApp)
		}
	}

	log.Info("challenge issued", zap.Strings("channels", result.Channels), zap.Time("expiration", expiration))
	return result, nil
}

func (i *Issuer) attemptSecondary(ctx context.Context, log *zap.Logger, account model.Account, msg Message) bool {
	if i.secondary == nil {
		i.metrics.Delivery(ctx, ChannelWhatsApp, metrics.OutcomeSkipped)
		return false
	}
	msg.To = account.Phone
	if err := i.secondary.Attempt(ctx, msg); err != nil {
		i.metrics.Delivery(ctx, ChannelWhatsApp, metrics.OutcomeFailed)
		log.Warn("best-effort delivery failed",
			logger.Phone(account.Phone),
			zap.Error(fmt.Errorf("%w: %v", ErrSecondaryDelivery, err)),
		)
		return false
	}
	i.metrics.Delivery(ctx, ChannelWhatsApp, metrics.OutcomeDelivered)
	return true
}

// BuildMagicLink appends email and token query parameters to base, keeping any existing query.
func BuildMagicLink(base *url.URL, email, token string) string {
	u := *base
	q := u.Query()
	q.Set("email", email)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

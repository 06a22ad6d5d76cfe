package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/logger"
	"github.com/eventpass/server/internal/model"
	"github.com/eventpass/server/internal/repo"
)

// DefaultAuthSessionTTL bounds how long a started login may wait for its answer.
const DefaultAuthSessionTTL = 3 * time.Minute

// AuthChallenge is returned by InitiateAuth when the client must answer a challenge.
type AuthChallenge struct {
	Session             string
	ChallengeName       string
	ChallengeParameters map[string]string
}

// AuthTokens is the result of a completed login.
type AuthTokens struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Account     model.Account
}

type authSession struct {
	account   model.Account
	history   []ChallengeResult
	private   map[string]string
	expiresAt time.Time
}

// AuthService drives the define/create/verify callbacks for deployments that do not
// sit behind a managed identity provider. Sessions are held in memory and are single use.
type AuthService struct {
	common
	accounts   repo.AccountRepo
	machine    *StateMachine
	binder     *Binder
	verifier   *Verifier
	jwtService *JWTService
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[string]authSession
}

// NewAuthService creates a new auth service
func NewAuthService(
	accounts repo.AccountRepo,
	machine *StateMachine,
	binder *Binder,
	verifier *Verifier,
	jwtService *JWTService,
	sessionTTL time.Duration,
	opts ...Option,
) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultAuthSessionTTL
	}
	return &AuthService{
		common:     newCommon(opts),
		accounts:   accounts,
		machine:    machine,
		binder:     binder,
		verifier:   verifier,
		jwtService: jwtService,
		sessionTTL: sessionTTL,
		sessions:   make(map[string]authSession),
	}
}

// InitiateAuth starts a login for email and returns the custom challenge to answer.
func (s *AuthService) InitiateAuth(ctx context.Context, email string) (*AuthChallenge, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	userNotFound := false
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		userNotFound = true
	}

	define := &DefineAuthChallengeEvent{
		Request: DefineAuthChallengeRequest{
			UserAttributes: map[string]string{PublicParamEmail: email},
			UserNotFound:   userNotFound,
		},
	}
	if err := s.machine.Define(ctx, define); err != nil {
		return nil, err
	}
	if define.Response.FailAuthentication || define.Response.ChallengeName != CustomChallenge {
		s.log.Info("login refused", logger.Email(email), zap.Bool("user_not_found", userNotFound))
		return nil, ErrAuthenticationFailed
	}

	create := &CreateAuthChallengeEvent{
		Request: CreateAuthChallengeRequest{
			UserAttributes: map[string]string{PublicParamEmail: account.Email},
			ChallengeName:  CustomChallenge,
		},
	}
	if err := s.binder.CreateChallenge(ctx, create); err != nil {
		return nil, err
	}

	handle, hash, err := GenerateSessionHandle()
	if err != nil {
		return nil, fmt.Errorf("generate session handle: %w", err)
	}

	now := s.now()
	s.mu.Lock()
	s.dropExpiredLocked(now)
	s.sessions[hash] = authSession{
		account:   account,
		private:   create.Response.PrivateChallengeParameters,
		expiresAt: now.Add(s.sessionTTL),
	}
	s.mu.Unlock()

	return &AuthChallenge{
		Session:             handle,
		ChallengeName:       CustomChallenge,
		ChallengeParameters: create.Response.PublicChallengeParameters,
	}, nil
}

// RespondToAuthChallenge consumes the session, verifies answer and issues an access token
// when the state machine accepts.
func (s *AuthService) RespondToAuthChallenge(ctx context.Context, session, answer string) (*AuthTokens, error) {
	session = strings.TrimSpace(session)
	answer = strings.TrimSpace(answer)
	if session == "" || answer == "" {
		return nil, fmt.Errorf("%w: session and answer are required", ErrValidation)
	}

	sess, ok := s.takeSession(HashSessionHandle(session))
	if !ok {
		return nil, fmt.Errorf("%w: invalid session", ErrAuthenticationFailed)
	}

	verify := &VerifyAuthChallengeEvent{
		Request: VerifyAuthChallengeRequest{
			UserAttributes:             map[string]string{PublicParamEmail: sess.account.Email},
			PrivateChallengeParameters: sess.private,
			ChallengeAnswer:            answer,
		},
	}
	if err := s.verifier.VerifyChallenge(ctx, verify); err != nil {
		return nil, err
	}

	history := append(sess.history, ChallengeResult{
		ChallengeName:     CustomChallenge,
		ChallengeResult:   verify.Response.AnswerCorrect,
		ChallengeMetadata: ChallengeMetadata,
	})
	define := &DefineAuthChallengeEvent{
		Request: DefineAuthChallengeRequest{
			UserAttributes: map[string]string{PublicParamEmail: sess.account.Email},
			Session:        history,
		},
	}
	if err := s.machine.Define(ctx, define); err != nil {
		return nil, err
	}
	if !define.Response.IssueTokens {
		return nil, ErrAuthenticationFailed
	}

	token, expiresAt, err := s.jwtService.SignAccessToken(sess.account)
	if err != nil {
		return nil, err
	}
	s.log.Info("login completed", zap.String("account_id", sess.account.ID))
	return &AuthTokens{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		Account:     sess.account,
	}, nil
}

func (s *AuthService) takeSession(hash string) (authSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[hash]
	if !ok {
		return authSession{}, false
	}
	delete(s.sessions, hash)
	if s.now().After(sess.expiresAt) {
		return authSession{}, false
	}
	return sess, true
}

func (s *AuthService) dropExpiredLocked(now time.Time) {
	for k, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, k)
		}
	}
}

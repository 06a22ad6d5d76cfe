package auth

import "errors"

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrAccountNotFound means the public short identifier matched no account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrIncompleteProfile means the account has no email to bind a challenge to.
	ErrIncompleteProfile = errors.New("account has no email")
	// ErrDelivery means the mandatory email channel failed.
	ErrDelivery = errors.New("challenge delivery failed")
	// ErrSecondaryDelivery is logged when the best-effort channel fails; it never fails a request.
	ErrSecondaryDelivery = errors.New("secondary challenge delivery failed")
	// ErrNoChallengeFound means there is no unexpired challenge for the email.
	ErrNoChallengeFound = errors.New("no valid challenge found")
	// ErrStore wraps failures of the account or challenge store.
	ErrStore = errors.New("store unavailable")
	// ErrAuthenticationFailed is the terminal rejection of the local identity provider.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// Verification rejection reasons. They never escape Verify as errors.
var (
	ErrAnswerMismatch   = errors.New("answer does not match challenge")
	ErrMalformedToken   = errors.New("malformed challenge token")
	ErrDecryption       = errors.New("challenge token decryption failed")
	ErrIdentityMismatch = errors.New("challenge token issued for another email")
	ErrChallengeExpired = errors.New("challenge expired")
	ErrSuperseded       = errors.New("challenge superseded by a newer one")
)

func rejectionReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAnswerMismatch):
		return "answer_mismatch"
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrDecryption):
		return "decryption"
	case errors.Is(err, ErrIdentityMismatch):
		return "identity_mismatch"
	case errors.Is(err, ErrChallengeExpired):
		return "expired"
	case errors.Is(err, ErrSuperseded):
		return "superseded"
	case errors.Is(err, ErrNoChallengeFound):
		return "no_challenge"
	case errors.Is(err, ErrStore):
		return "store"
	default:
		return "other"
	}
}

package auth

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CustomChallenge is the challenge name used by the custom authentication flow.
const CustomChallenge = "CUSTOM_CHALLENGE"

// ChallengeMetadata tags challenges created by this service.
const ChallengeMetadata = "MAGIC_LINK"

// Challenge parameter names.
const (
	PublicParamEmail      = "email"
	PrivateParamChallenge = "challenge"
)

var validate = validator.New()

// CallerContext identifies the client that started the auth flow.
type CallerContext struct {
	AWSSDKVersion string `json:"awsSdkVersion,omitempty"`
	ClientID      string `json:"clientId,omitempty"`
}

// TriggerHeader holds the fields shared by every identity-provider trigger event.
type TriggerHeader struct {
	Version       string        `json:"version,omitempty"`
	TriggerSource string        `json:"triggerSource,omitempty"`
	Region        string        `json:"region,omitempty"`
	UserPoolID    string        `json:"userPoolId,omitempty"`
	UserName      string        `json:"userName,omitempty"`
	CallerContext CallerContext `json:"callerContext"`
}

// ChallengeResult is one entry of the auth session history.
type ChallengeResult struct {
	ChallengeName     string `json:"challengeName" validate:"max=64"`
	ChallengeResult   bool   `json:"challengeResult"`
	ChallengeMetadata string `json:"challengeMetadata,omitempty"`
}

type DefineAuthChallengeRequest struct {
	UserAttributes map[string]string `json:"userAttributes,omitempty"`
	Session        []ChallengeResult `json:"session" validate:"dive"`
	UserNotFound   bool              `json:"userNotFound,omitempty"`
}

type DefineAuthChallengeResponse struct {
	ChallengeName      string `json:"challengeName,omitempty"`
	IssueTokens        bool   `json:"issueTokens"`
	FailAuthentication bool   `json:"failAuthentication"`
}

// DefineAuthChallengeEvent asks which step of the custom flow comes next.
type DefineAuthChallengeEvent struct {
	TriggerHeader
	Request  DefineAuthChallengeRequest  `json:"request"`
	Response DefineAuthChallengeResponse `json:"response"`
}

type CreateAuthChallengeRequest struct {
	UserAttributes map[string]string `json:"userAttributes"`
	ChallengeName  string            `json:"challengeName,omitempty"`
	Session        []ChallengeResult `json:"session" validate:"dive"`
	UserNotFound   bool              `json:"userNotFound,omitempty"`
}

type CreateAuthChallengeResponse struct {
	PublicChallengeParameters  map[string]string `json:"publicChallengeParameters"`
	PrivateChallengeParameters map[string]string `json:"privateChallengeParameters"`
	ChallengeMetadata          string            `json:"challengeMetadata,omitempty"`
}

// CreateAuthChallengeEvent asks for the parameters of a new custom challenge.
type CreateAuthChallengeEvent struct {
	TriggerHeader
	Request  CreateAuthChallengeRequest  `json:"request"`
	Response CreateAuthChallengeResponse `json:"response"`
}

type VerifyAuthChallengeRequest struct {
	UserAttributes             map[string]string `json:"userAttributes"`
	PrivateChallengeParameters map[string]string `json:"privateChallengeParameters"`
	ChallengeAnswer            string            `json:"challengeAnswer"`
	UserNotFound               bool              `json:"userNotFound,omitempty"`
}

type VerifyAuthChallengeResponse struct {
	AnswerCorrect bool `json:"answerCorrect"`
}

// VerifyAuthChallengeEvent asks whether the submitted answer is correct.
type VerifyAuthChallengeEvent struct {
	TriggerHeader
	Request  VerifyAuthChallengeRequest  `json:"request"`
	Response VerifyAuthChallengeResponse `json:"response"`
}

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return fmt.Errorf("%w: userAttributes.email: %v", ErrValidation, err)
	}
	return nil
}

func validateStruct(v any) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

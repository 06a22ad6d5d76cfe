package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// TwilioCredentials authenticate calls to the Twilio REST API.
type TwilioCredentials struct {
	AccountSID string `json:"accountSid"`
	AuthToken  string `json:"authToken"`
}

// CredentialsProvider supplies Twilio credentials.
type CredentialsProvider interface {
	Credentials(ctx context.Context) (TwilioCredentials, error)
}

// StaticCredentials returns fixed credentials from configuration.
type StaticCredentials TwilioCredentials

func (s StaticCredentials) Credentials(ctx context.Context) (TwilioCredentials, error) {
	if s.AccountSID == "" || s.AuthToken == "" {
		return TwilioCredentials{}, errors.New("twilio credentials are not configured")
	}
	return TwilioCredentials(s), nil
}

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerCredentials fetches the Twilio secret on first use and keeps it for the
// process lifetime. Failed fetches are not cached, so the next call retries.
type SecretsManagerCredentials struct {
	client   SecretsAPI
	secretID string

	mu     sync.Mutex
	cached *TwilioCredentials
}

func NewSecretsManagerCredentials(client SecretsAPI, secretID string) *SecretsManagerCredentials {
	return &SecretsManagerCredentials{client: client, secretID: secretID}
}

func (s *SecretsManagerCredentials) Credentials(ctx context.Context) (TwilioCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != nil {
		return *s.cached, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return TwilioCredentials{}, fmt.Errorf("get twilio secret: %w", err)
	}
	var creds TwilioCredentials
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &creds); err != nil {
		return TwilioCredentials{}, fmt.Errorf("decode twilio secret: %w", err)
	}
	if creds.AccountSID == "" || creds.AuthToken == "" {
		return TwilioCredentials{}, errors.New("twilio secret is missing accountSid or authToken")
	}
	s.cached = &creds
	return creds, nil
}

package model

import (
	"time"
)

const (
	// ChallengeKeyPrefix prefixes the contact identifier in the challenge partition key.
	ChallengeKeyPrefix = "AUTH#"
	// ChallengeSortKey is the fixed sort key of every challenge record.
	ChallengeSortKey = "AUTH_CHALLENGE"

	// TimestampLayout is the fixed-width, zero-padded UTC layout used for stored timestamps.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

// Account represents an attendee profile. The auth flow only reads it.
type Account struct {
	ID      string
	ShortID string
	PIN     string
	Email   string
	Phone   string
	Name    string
}

// ChallengeRecord is the single outstanding challenge for one contact identifier.
type ChallengeRecord struct {
	Email      string
	Token      string
	Expiration time.Time
	CreatedAt  time.Time
	// TTL is the deletion deadline in epoch seconds, used by physical expiry sweeps.
	TTL int64
}

// PartitionKey returns the record's partition key (AUTH#<email>).
func (r ChallengeRecord) PartitionKey() string {
	return ChallengePartitionKey(r.Email)
}

// Expired reports whether the record is logically invalid at now.
func (r ChallengeRecord) Expired(now time.Time) bool {
	return now.After(r.Expiration)
}

// ChallengePartitionKey builds the partition key for a contact identifier.
func ChallengePartitionKey(email string) string {
	return ChallengeKeyPrefix + email
}

// ChallengePayload is the plaintext sealed inside a challenge token.
type ChallengePayload struct {
	Email      string `json:"email"`
	Expiration string `json:"expiration"`
}

// FormatTimestamp renders t in TimestampLayout (UTC, millisecond precision).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout value, accepting any RFC 3339 form as fallback.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

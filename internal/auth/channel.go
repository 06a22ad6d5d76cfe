package auth

import (
	"context"
	"time"
)

// Channel names used in results, logs and metrics.
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// Message is one magic-link notification.
type Message struct {
	// To is an email address for the mandatory channel and a phone number for the best-effort one.
	To         string
	Name       string
	Link       string
	Expiration time.Time
}

// MandatoryChannel delivers the link; a failure fails the whole issuance.
type MandatoryChannel interface {
	Deliver(ctx context.Context, msg Message) error
}

// BestEffortChannel attempts a secondary delivery. The error is reported, never propagated.
type BestEffortChannel interface {
	Attempt(ctx context.Context, msg Message) error
}

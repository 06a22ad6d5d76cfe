// Package metrics records magic-link authentication counters through the OpenTelemetry metric API.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter scope used for every instrument in this package.
const ScopeName = "github.com/eventpass/server/auth"

// Delivery outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Auth holds the counters for the challenge flow. A nil *Auth records nothing.
type Auth struct {
	issued        metric.Int64Counter
	deliveries    metric.Int64Counter
	verifications metric.Int64Counter
	decisions     metric.Int64Counter
}

// NewAuth registers the auth counters on the given provider.
func NewAuth(provider metric.MeterProvider) (*Auth, error) {
	meter := provider.Meter(ScopeName)

	issued, err := meter.Int64Counter("auth.challenges.issued",
		metric.WithDescription("Challenges written to the challenge store."))
	if err != nil {
		return nil, err
	}
	deliveries, err := meter.Int64Counter("auth.challenge.deliveries",
		metric.WithDescription("Out-of-band deliveries by channel and outcome."))
	if err != nil {
		return nil, err
	}
	verifications, err := meter.Int64Counter("auth.challenge.verifications",
		metric.WithDescription("Answer verifications by result and rejection reason."))
	if err != nil {
		return nil, err
	}
	decisions, err := meter.Int64Counter("auth.challenge.decisions",
		metric.WithDescription("Define-challenge decisions by resulting state."))
	if err != nil {
		return nil, err
	}

	return &Auth{
		issued:        issued,
		deliveries:    deliveries,
		verifications: verifications,
		decisions:     decisions,
	}, nil
}

func (a *Auth) ChallengeIssued(ctx context.Context) {
	if a == nil {
		return
	}
	a.issued.Add(ctx, 1)
}

func (a *Auth) Delivery(ctx context.Context, channel, outcome string) {
	if a == nil {
		return
	}
	a.deliveries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("outcome", outcome),
	))
}

// Verification records one verify call. reason is empty for accepted answers.
func (a *Auth) Verification(ctx context.Context, accepted bool, reason string) {
	if a == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	a.verifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
		attribute.String("reason", reason),
	))
}

func (a *Auth) Decision(ctx context.Context, state string) {
	if a == nil {
		return
	}
	a.decisions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

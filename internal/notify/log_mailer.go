package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/auth"
)

// LogMailer writes the magic link to the log instead of sending it. Local development only.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

// Deliver implements auth.MandatoryChannel.
func (m *LogMailer) Deliver(ctx context.Context, msg auth.Message) error {
	m.log.Info("magic link (log mailer)",
		zap.String("to", msg.To),
		zap.String("link", msg.Link),
		zap.Time("expiration", msg.Expiration),
	)
	return nil
}

package auth

import (
	"time"

	"go.uber.org/zap"

	"github.com/eventpass/server/internal/metrics"
)

// Option configures the shared collaborators of the challenge components.
type Option func(*common)

type common struct {
	log     *zap.Logger
	metrics *metrics.Auth
	now     func() time.Time
}

// WithLogger sets the component logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *common) { c.log = log }
}

// WithMetrics records counters on m. Without it nothing is recorded.
func WithMetrics(m *metrics.Auth) Option {
	return func(c *common) { c.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *common) { c.now = now }
}

func newCommon(opts []Option) common {
	c := common{log: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

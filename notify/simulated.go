package notify

import (
	"context"
	"time"

	"github.com/user/signup-go/logging"
)

// SimulatedMailer pretends to send an email by waiting for a fixed delay.
// It is the default driver, used for local development and demos.
type SimulatedMailer struct {
	delay  time.Duration
	logger logging.Logger
}

// NewSimulatedMailer creates a SimulatedMailer with the given send latency.
func NewSimulatedMailer(delay time.Duration, logger logging.Logger) *SimulatedMailer {
	return &SimulatedMailer{delay: delay, logger: logger}
}

// SendVerification waits for the configured delay, or until ctx is done.
func (m *SimulatedMailer) SendVerification(ctx context.Context, email string) error {
	timer := time.NewTimer(m.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	m.logger.Debug(ctx, "verification email sent", "driver", "simulated")
	return nil
}

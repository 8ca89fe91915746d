package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrBrokerUnavailable is returned by FallbackNotifier.
var ErrBrokerUnavailable = errors.New("notify: broker unavailable")

// FallbackNotifier stands in for a broker that was unreachable at startup so
// the service can still accept registrations. Every call fails with
// ErrBrokerUnavailable, which the registration workflow logs and swallows.
type FallbackNotifier struct {
	reason string
}

// NewFallbackNotifier creates a FallbackNotifier. reason ends up in the returned error.
func NewFallbackNotifier(reason string) *FallbackNotifier {
	return &FallbackNotifier{reason: reason}
}

// SendVerification always fails with an error wrapping ErrBrokerUnavailable.
func (n *FallbackNotifier) SendVerification(_ context.Context, email string) error {
	return fmt.Errorf("%w: verification for %s not published: %s", ErrBrokerUnavailable, email, n.reason)
}

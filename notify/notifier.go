// Package notify delivers "please verify your email" notifications for newly
// registered accounts. The registration workflow only sees the Notifier
// interface. Concrete senders are a simulated mailer, a RabbitMQ publisher,
// a Kafka publisher and a logging fallback used when no broker is reachable.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Notifier sends a verification notification to email.
// A returned error means the notification was not delivered.
type Notifier interface {
	SendVerification(ctx context.Context, email string) error
}

// VerificationRoutingKey is the routing key (AMQP) used for verification events.
const VerificationRoutingKey = "user.verification_requested"

// VerificationRequested is the event published to brokers. Downstream mail
// workers consume it and send the actual email.
type VerificationRequested struct {
	EventID     string    `json:"event_id"`
	Email       string    `json:"email"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewVerificationRequested builds an event with a fresh id.
func NewVerificationRequested(email string) VerificationRequested {
	return VerificationRequested{
		EventID:     uuid.NewString(),
		Email:       email,
		RequestedAt: time.Now().UTC(),
	}
}

func (e VerificationRequested) marshal() ([]byte, error) {
	return json.Marshal(e)
}

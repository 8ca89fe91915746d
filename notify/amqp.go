package notify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/user/signup-go/apperror"
	"github.com/user/signup-go/logging"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes VerificationRequested events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	exchange string
	logger   logging.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel amqpChannel
	// reopen returns a fresh channel after a channel-level failure.
	reopen func() (amqpChannel, error)
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewAMQPPublisher dials RabbitMQ and opens a channel.
func NewAMQPPublisher(amqpURL, exchange string, logger logging.Logger) (*AMQPPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, apperror.NewConfigError("invalid RABBITMQ_URL", err)
	}

	// A bounded dial timeout keeps startup from hanging.
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, apperror.NewExternalServiceError("failed to connect to RabbitMQ", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, apperror.NewExternalServiceError("failed to open RabbitMQ channel", err)
	}

	p := newAMQPPublisher(ch, exchange, logger)
	p.conn = conn
	p.reopen = func() (amqpChannel, error) { return conn.Channel() }
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, exchange string, logger logging.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		exchange: exchange,
		logger:   logger,
		channel:  ch,
	}
}

// SendVerification publishes a VerificationRequested event for email.
// On a channel failure it reopens the channel once and retries.
func (p *AMQPPublisher) SendVerification(ctx context.Context, email string) error {
	body, err := NewVerificationRequested(email).marshal()
	if err != nil {
		return fmt.Errorf("marshal verification event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publish(ctx, body)
	if err == nil {
		return nil
	}
	p.logger.Warn(ctx, "publish failed, reopening channel", "exchange", p.exchange, "error", err)

	if p.reopen == nil {
		return apperror.NewExternalServiceError("failed to publish verification event", err)
	}
	ch, chErr := p.reopen()
	if chErr != nil {
		return apperror.NewExternalServiceError("failed to reopen RabbitMQ channel", chErr)
	}
	_ = p.channel.Close()
	p.channel = ch

	if err := p.publish(ctx, body); err != nil {
		return apperror.NewExternalServiceError("failed to publish verification event", err)
	}
	return nil
}

// publish declares the exchange (idempotent) and publishes body. Caller holds p.mu.
func (p *AMQPPublisher) publish(ctx context.Context, body []byte) error {
	if err := p.channel.ExchangeDeclare(
		p.exchange, // name
		"topic",    // type
		true,       // durable
		false,      // autoDelete
		false,      // internal
		false,      // noWait
		nil,        // args
	); err != nil {
		return fmt.Errorf("declare exchange %q: %w", p.exchange, err)
	}

	return p.channel.PublishWithContext(ctx,
		p.exchange,             // exchange
		VerificationRoutingKey, // routing key
		false,                  // mandatory
		false,                  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Close closes the RabbitMQ channel and connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

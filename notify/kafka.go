package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/user/signup-go/apperror"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes VerificationRequested events to a Kafka topic,
// keyed by email so events for one address stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for topic on brokers.
// Connections are opened lazily on the first write.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Topic:    topic,
			Balancer: &kafka.Hash{},
			Dialer: &kafka.Dialer{
				Timeout:   10 * time.Second,
				DualStack: true,
			},
		}),
	}
}

// SendVerification writes one event and waits for the broker's acknowledgement.
func (p *KafkaPublisher) SendVerification(ctx context.Context, email string) error {
	event := NewVerificationRequested(email)
	body, err := event.marshal()
	if err != nil {
		return fmt.Errorf("marshal verification event: %w", err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(email),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(VerificationRoutingKey)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}); err != nil {
		return apperror.NewExternalServiceError("failed to write verification event to kafka", err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

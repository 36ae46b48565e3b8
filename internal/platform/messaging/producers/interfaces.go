package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// DeadLetterPublisher handles publishing dead-letter notifications for jobs
// that expired or exhausted their retries
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, key string, originalPayload []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

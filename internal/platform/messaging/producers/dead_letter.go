package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/banking-transfer-engine/internal/config"
	"github.com/segmentio/kafka-go"
)

// DeadLetterProducer publishes notifications about jobs the queue gave up on.
// The durable job store remains the source of truth; these messages only feed
// external monitoring.
type DeadLetterProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// Returns nil producer if cfg.DLQTopic is empty (notifications disabled)
func NewDeadLetterProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DeadLetterProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("Dead-letter topic is not configured. DeadLetterProducer will not be initialized.")
		return nil, nil // Notifications disabled, not an error.
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for dead-letter producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.DLQTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure dead-letter topic %s exists: %w", cfg.DLQTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write dead-letter messages synchronously", "topic", cfg.DLQTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote dead-letter messages synchronously", "topic", cfg.DLQTopic, "count", len(messages))
			}
		},
	}

	return &DeadLetterProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.DLQTopic,
	}, nil
}

// PublishDeadLetter emits one notification carrying the abandoned job's
// payload and the reason it was given up on
func (p *DeadLetterProducer) PublishDeadLetter(ctx context.Context, key string, originalPayload []byte, reason string) error {
	if p == nil || p.writer == nil {
		return nil // Notifications disabled, silently drop
	}

	notification := struct {
		JobKey          string `json:"job_key"`
		OriginalPayload string `json:"original_payload"`
		Reason          string `json:"reason"`
		Timestamp       string `json:"timestamp"`
	}{
		JobKey:          key,
		OriginalPayload: string(originalPayload),
		Reason:          reason,
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
	}

	value, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter notification: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "dead-letter-reason", Value: []byte(reason)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish dead-letter notification",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish dead-letter notification to %s: %w", p.topic, err)
	}

	p.logger.Info("Published dead-letter notification",
		"topic", p.topic,
		"key", key,
		"reason", reason,
	)
	return nil
}

func (p *DeadLetterProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	p.logger.Info("Closing dead-letter Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dead-letter kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

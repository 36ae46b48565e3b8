package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status defines job lifecycle states
type Status string

const (
	StatusQueued       Status = "QUEUED"
	StatusActive       Status = "ACTIVE"
	StatusCompleted    Status = "COMPLETED"
	StatusCancelled    Status = "CANCELLED"
	StatusDeadLettered Status = "DEAD_LETTERED"
)

// DeadLetterReason explains why a job was moved to the dead-letter topic
type DeadLetterReason string

const (
	ReasonExpired          DeadLetterReason = "JOB_EXPIRED"
	ReasonRetriesExhausted DeadLetterReason = "JOB_RETRIES_EXHAUSTED"
)

// RetryPolicy controls how a failed job is rescheduled
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	Backoff     bool          `json:"backoff"` // Exponential when true, fixed otherwise
}

// Delay returns how long to wait before the given attempt number (1-based)
// is retried. With backoff enabled the delay doubles on every failure.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if !p.Backoff || attempt <= 1 {
		return p.BaseDelay
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Job is one durable unit of deferred work. The payload is opaque to the
// queue; only the topic's registered handler interprets it.
type Job struct {
	ID               uuid.UUID         `json:"id"`
	Topic            string            `json:"topic"`
	Payload          json.RawMessage   `json:"payload"`
	Status           Status            `json:"status"`
	Attempts         int               `json:"attempts"`
	MaxAttempts      int               `json:"max_attempts"`
	RetryDelay       time.Duration     `json:"retry_delay"`
	RetryBackoff     bool              `json:"retry_backoff"`
	RunAt            time.Time         `json:"run_at"`
	ExpiresAt        *time.Time        `json:"expires_at,omitempty"`
	DeadLetterTopic  *string           `json:"dead_letter_topic,omitempty"`
	DeadLetterReason *DeadLetterReason `json:"dead_letter_reason,omitempty"`
	LastError        *string           `json:"last_error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// RetryPolicy reconstructs the policy the job was enqueued with
func (j *Job) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: j.MaxAttempts,
		BaseDelay:   j.RetryDelay,
		Backoff:     j.RetryBackoff,
	}
}

// Expired reports whether the job's processing deadline has passed
func (j *Job) Expired(now time.Time) bool {
	return j.ExpiresAt != nil && now.After(*j.ExpiresAt)
}

package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/banking-transfer-engine/internal/config"
	"github.com/banking-transfer-engine/internal/domain/job"
	"github.com/google/uuid"
)

// ErrWaitTimeout is returned when a job does not produce a result within the
// caller's wait window. The job itself keeps running; only the wait gives up.
var ErrWaitTimeout = errors.New("timed out waiting for job result")

// Options override the queue's configured defaults for a single job
type Options struct {
	RunAt           time.Time        // Zero means run as soon as possible
	RetryPolicy     *job.RetryPolicy // Nil means use configured defaults
	ExpireAfter     time.Duration    // Zero means use configured default
	DeadLetterTopic *string          // Nil means use configured default; empty string disables
	WaitTimeout     time.Duration    // Zero means use configured default (TriggerAndWait only)
}

// Queue is the producer-side interface of the durable job queue
type Queue interface {
	// Enqueue persists a job for the given topic and returns its handle.
	Enqueue(ctx context.Context, topic string, payload any, opts Options) (uuid.UUID, error)

	// Cancel stops a job that has not started yet. Returns false when the job
	// already ran, is running, or was finalized; cancellation never claws back
	// an execution.
	Cancel(ctx context.Context, jobID uuid.UUID) (bool, error)

	// WaitForResult polls the durable result store until the job produces a
	// result or the timeout elapses, returning ErrWaitTimeout in the latter case.
	WaitForResult(ctx context.Context, jobID uuid.UUID, timeout time.Duration) (json.RawMessage, error)

	// TriggerAndWait enqueues a job and blocks for its result.
	TriggerAndWait(ctx context.Context, topic string, payload any, opts Options) (json.RawMessage, error)
}

// PostgresQueue implements Queue on top of the job repositories
type PostgresQueue struct {
	jobRepo    job.Repository
	resultRepo job.ResultRepository
	logger     *slog.Logger
	cfg        *config.QueueConfig
}

// NewPostgresQueue creates a queue producer backed by the job store
func NewPostgresQueue(logger *slog.Logger, cfg *config.QueueConfig, jobRepo job.Repository, resultRepo job.ResultRepository) *PostgresQueue {
	return &PostgresQueue{
		jobRepo:    jobRepo,
		resultRepo: resultRepo,
		logger:     logger,
		cfg:        cfg,
	}
}

// Enqueue persists a new queued job, applying configured defaults for any
// option the caller left unset
func (q *PostgresQueue) Enqueue(ctx context.Context, topic string, payload any, opts Options) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	now := time.Now()
	runAt := opts.RunAt
	if runAt.IsZero() {
		runAt = now
	}

	policy := job.RetryPolicy{
		MaxAttempts: q.cfg.RetryLimit,
		BaseDelay:   q.cfg.RetryDelay,
		Backoff:     q.cfg.RetryBackoff,
	}
	if opts.RetryPolicy != nil {
		policy = *opts.RetryPolicy
	}

	expireAfter := opts.ExpireAfter
	if expireAfter == 0 {
		expireAfter = q.cfg.ExpireAfter
	}
	expiresAt := runAt.Add(expireAfter)

	deadLetterTopic := q.cfg.DeadLetterTopic
	if opts.DeadLetterTopic != nil {
		deadLetterTopic = *opts.DeadLetterTopic
	}
	var dlt *string
	if deadLetterTopic != "" {
		dlt = &deadLetterTopic
	}

	j := &job.Job{
		ID:              uuid.New(),
		Topic:           topic,
		Payload:         body,
		Status:          job.StatusQueued,
		Attempts:        0,
		MaxAttempts:     policy.MaxAttempts,
		RetryDelay:      policy.BaseDelay,
		RetryBackoff:    policy.Backoff,
		RunAt:           runAt,
		ExpiresAt:       &expiresAt,
		DeadLetterTopic: dlt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := q.jobRepo.Create(ctx, j); err != nil {
		return uuid.Nil, err
	}

	q.logger.Info("Enqueued job", "job_id", j.ID.String(), "topic", topic, "run_at", runAt)
	return j.ID, nil
}

// Cancel flips a still-queued job to cancelled
func (q *PostgresQueue) Cancel(ctx context.Context, jobID uuid.UUID) (bool, error) {
	cancelled, err := q.jobRepo.CancelQueued(ctx, jobID)
	if err != nil {
		return false, err
	}
	if !cancelled {
		q.logger.Warn("Job could not be cancelled, it already started or finished", "job_id", jobID.String())
	}
	return cancelled, nil
}

// WaitForResult polls the result store on a fixed cadence until a result
// appears or the timeout elapses
func (q *PostgresQueue) WaitForResult(ctx context.Context, jobID uuid.UUID, timeout time.Duration) (json.RawMessage, error) {
	if timeout == 0 {
		timeout = q.cfg.WaitTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(q.cfg.ResultPollInterval)
	defer ticker.Stop()

	for {
		result, err := q.resultRepo.GetByJobID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result.Response, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("job %s: %w", jobID, ErrWaitTimeout)
		case <-ticker.C:
		}
	}
}

// TriggerAndWait enqueues a job and blocks until its result is recorded
func (q *PostgresQueue) TriggerAndWait(ctx context.Context, topic string, payload any, opts Options) (json.RawMessage, error) {
	jobID, err := q.Enqueue(ctx, topic, payload, opts)
	if err != nil {
		return nil, err
	}
	return q.WaitForResult(ctx, jobID, opts.WaitTimeout)
}

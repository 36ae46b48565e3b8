package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/banking-transfer-engine/internal/domain/job"
	"github.com/banking-transfer-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JobRepository implements the job.Repository interface for PostgreSQL
type JobRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewJobRepository creates a new PostgreSQL job repository
func NewJobRepository(logger *slog.Logger, db *persistence.PostgresDB) job.Repository {
	return &JobRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *JobRepository) WithTx(tx pgx.Tx) job.Repository {
	return &JobRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const jobColumns = `id, topic, payload, status, attempts, max_attempts, retry_delay_ms, retry_backoff,
		run_at, expires_at, dead_letter_topic, dead_letter_reason, last_error, created_at, updated_at`

// Create stores a new job in queued status
func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		j.ID,
		j.Topic,
		j.Payload,
		j.Status,
		j.Attempts,
		j.MaxAttempts,
		j.RetryDelay.Milliseconds(),
		j.RetryBackoff,
		j.RunAt,
		j.ExpiresAt,
		j.DeadLetterTopic,
		j.DeadLetterReason,
		j.LastError,
		j.CreatedAt,
		j.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create job", "topic", j.Topic, "error", err)
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByID retrieves a job by its ID
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE id = $1
	`

	j, err := scanJob(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, job.ErrJobNotFound{JobID: id}
		}
		r.logger.Error("Failed to get job", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return j, nil
}

// LeaseDue claims up to limit queued jobs whose run time has arrived. The
// SKIP LOCKED clause keeps concurrent workers from claiming the same rows.
func (r *JobRepository) LeaseDue(ctx context.Context, now time.Time, limit int) ([]*job.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE id IN (
			SELECT id FROM jobs
			WHERE status = $3 AND run_at <= $2
			ORDER BY run_at ASC
			LIMIT $4
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns + `
	`

	rows, err := r.querier.Query(ctx, query, job.StatusActive, now, job.StatusQueued, limit)
	if err != nil {
		r.logger.Error("Failed to lease due jobs", "error", err)
		return nil, fmt.Errorf("failed to lease due jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			r.logger.Error("Failed to scan job", "error", err)
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over leased jobs", "error", err)
		return nil, fmt.Errorf("error iterating over leased jobs: %w", err)
	}

	return jobs, nil
}

// MarkCompleted finalizes a successfully handled job
func (r *JobRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, job.StatusCompleted, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to mark job completed", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return job.ErrJobNotFound{JobID: id}
	}

	return nil
}

// Reschedule returns a failed job to the queue with an incremented attempt
// counter and a new run time
func (r *JobRepository) Reschedule(ctx context.Context, id uuid.UUID, attempts int, runAt time.Time, lastError string) error {
	query := `
		UPDATE jobs
		SET status = $1, attempts = $2, run_at = $3, last_error = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.querier.Exec(ctx, query, job.StatusQueued, attempts, runAt, lastError, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to reschedule job", "id", id.String(), "error", err)
		return fmt.Errorf("failed to reschedule job: %w", err)
	}

	if result.RowsAffected() == 0 {
		return job.ErrJobNotFound{JobID: id}
	}

	return nil
}

// MarkDeadLettered finalizes a job that expired or exhausted its retries
func (r *JobRepository) MarkDeadLettered(ctx context.Context, id uuid.UUID, reason job.DeadLetterReason, lastError string) error {
	query := `
		UPDATE jobs
		SET status = $1, dead_letter_reason = $2, last_error = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query, job.StatusDeadLettered, reason, lastError, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to mark job dead-lettered", "id", id.String(), "reason", string(reason), "error", err)
		return fmt.Errorf("failed to mark job dead-lettered: %w", err)
	}

	if result.RowsAffected() == 0 {
		return job.ErrJobNotFound{JobID: id}
	}

	return nil
}

// RequeueExpired returns active jobs whose expiry has passed to the queue.
// Such rows were leased by a worker that never finalized them; once queued
// again the next lease picks them up and dead-letters them as expired.
func (r *JobRepository) RequeueExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at IS NOT NULL AND expires_at <= $2
	`

	result, err := r.querier.Exec(ctx, query, job.StatusQueued, now, job.StatusActive)
	if err != nil {
		r.logger.Error("Failed to requeue expired active jobs", "error", err)
		return 0, fmt.Errorf("failed to requeue expired active jobs: %w", err)
	}

	return result.RowsAffected(), nil
}

// CancelQueued cancels the job only while it is still queued. The status
// guard makes cancellation lose gracefully when the job already started.
func (r *JobRepository) CancelQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE jobs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, job.StatusCancelled, time.Now(), id, job.StatusQueued)
	if err != nil {
		r.logger.Error("Failed to cancel job", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to cancel job: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func scanJob(row pgx.Row) (*job.Job, error) {
	var j job.Job
	var retryDelayMs int64
	err := row.Scan(
		&j.ID,
		&j.Topic,
		&j.Payload,
		&j.Status,
		&j.Attempts,
		&j.MaxAttempts,
		&retryDelayMs,
		&j.RetryBackoff,
		&j.RunAt,
		&j.ExpiresAt,
		&j.DeadLetterTopic,
		&j.DeadLetterReason,
		&j.LastError,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	j.RetryDelay = time.Duration(retryDelayMs) * time.Millisecond
	return &j, nil
}

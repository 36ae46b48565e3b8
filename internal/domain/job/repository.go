package job

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages job persistence for the durable queue
type Repository interface {
	Create(ctx context.Context, j *Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)

	// LeaseDue claims up to limit queued jobs whose run time has arrived,
	// marking them active. Rows are locked with FOR UPDATE SKIP LOCKED so
	// concurrent workers never claim the same job.
	LeaseDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)

	MarkCompleted(ctx context.Context, id uuid.UUID) error

	// Reschedule returns a failed job to the queue with an incremented attempt
	// counter and a new run time.
	Reschedule(ctx context.Context, id uuid.UUID, attempts int, runAt time.Time, lastError string) error

	// MarkDeadLettered finalizes a job that expired or exhausted its retries.
	MarkDeadLettered(ctx context.Context, id uuid.UUID, reason DeadLetterReason, lastError string) error

	// RequeueExpired returns active jobs whose expiry has passed to the queue.
	// An active row past its expiry means the worker that leased it died before
	// finalizing; requeued rows are leased again and dead-lettered as expired.
	RequeueExpired(ctx context.Context, now time.Time) (int64, error)

	// CancelQueued cancels the job only while it is still queued. Returns false
	// when the job already ran, is running, or was finalized.
	CancelQueued(ctx context.Context, id uuid.UUID) (bool, error)

	WithTx(tx pgx.Tx) Repository
}

// ResultRepository manages durable job results
type ResultRepository interface {
	Save(ctx context.Context, r *Result) error

	// GetByJobID returns (nil, nil) when no result has been recorded yet.
	GetByJobID(ctx context.Context, jobID uuid.UUID) (*Result, error)

	WithTx(tx pgx.Tx) ResultRepository
}

// ErrJobNotFound indicates missing job
type ErrJobNotFound struct {
	JobID uuid.UUID
}

func (e ErrJobNotFound) Error() string {
	return "job not found: " + e.JobID.String()
}

// Is implements the errors.Is interface for ErrJobNotFound
func (e ErrJobNotFound) Is(target error) bool {
	t, ok := target.(ErrJobNotFound)
	if !ok {
		return false
	}
	if t.JobID == uuid.Nil {
		return true
	}
	return e.JobID == t.JobID
}

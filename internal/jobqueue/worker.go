package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/banking-transfer-engine/internal/config"
	"github.com/banking-transfer-engine/internal/domain/job"
	"github.com/banking-transfer-engine/internal/platform/messaging/producers"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Worker polls the job store for due jobs and runs their handlers on a
// bounded pool. Several workers may poll the same store concurrently; the
// lease query guarantees each job is claimed once.
type Worker struct {
	jobRepo      job.Repository
	resultRepo   job.ResultRepository
	registry     *Registry
	deadLetter   producers.DeadLetterPublisher
	pool         *ants.Pool
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
	expireAfter  time.Duration
}

// NewWorker creates a queue worker. deadLetter may be a nil producer when
// notifications are disabled.
func NewWorker(
	logger *slog.Logger,
	cfg *config.QueueConfig,
	poolCfg *config.WorkerPoolConfig,
	jobRepo job.Repository,
	resultRepo job.ResultRepository,
	registry *Registry,
	deadLetter producers.DeadLetterPublisher,
) (*Worker, error) {
	pool, err := ants.NewPool(poolCfg.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &Worker{
		jobRepo:      jobRepo,
		resultRepo:   resultRepo,
		registry:     registry,
		deadLetter:   deadLetter,
		pool:         pool,
		logger:       logger,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		expireAfter:  cfg.ExpireAfter,
	}, nil
}

// Start begins polling until the context is canceled
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Starting job queue worker",
		"poll_interval", w.pollInterval.String(),
		"batch_size", w.batchSize,
		"pool_size", w.pool.Cap(),
	)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Job queue worker stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := w.processDueJobs(ctx); err != nil {
				w.logger.Error("Error during batch processing of due jobs", "error", err)
			}
		}
	}
}

// Shutdown releases the worker pool
func (w *Worker) Shutdown() {
	w.logger.Info("Shutting down job queue worker pool", "running_workers", w.pool.Running())
	w.pool.Release()
}

func (w *Worker) processDueJobs(ctx context.Context) error {
	// Active rows past their expiry were leased by a worker that crashed
	// before finalizing. Requeue them so the lease below dead-letters them.
	if requeued, err := w.jobRepo.RequeueExpired(ctx, time.Now()); err != nil {
		w.logger.Error("Failed to requeue expired active jobs", "error", err)
	} else if requeued > 0 {
		w.logger.Warn("Requeued jobs abandoned mid-run", "count", requeued)
	}

	jobs, err := w.jobRepo.LeaseDue(ctx, time.Now(), w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to lease due jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	w.logger.Debug("Leased due jobs", "count", len(jobs))

	for _, j := range jobs {
		j := j
		if err := w.pool.Submit(func() {
			w.process(ctx, j)
		}); err != nil {
			w.logger.Error("Failed to submit job to worker pool", "job_id", j.ID.String(), "error", err)
			// Return the job to the queue without burning an attempt
			if errRe := w.jobRepo.Reschedule(ctx, j.ID, j.Attempts, time.Now().Add(w.pollInterval), "worker pool rejected job"); errRe != nil {
				w.logger.Error("Failed to requeue rejected job", "job_id", j.ID.String(), "error", errRe)
			}
		}
	}

	return nil
}

func (w *Worker) process(ctx context.Context, j *job.Job) {
	logger := w.logger.With("job_id", j.ID.String(), "topic", j.Topic, "attempt", j.Attempts+1)

	if j.Expired(time.Now()) {
		logger.Warn("Job expired before execution, dead-lettering")
		w.giveUp(ctx, j, job.ReasonExpired, "job expired before execution")
		return
	}

	handler, err := w.registry.Resolve(j.Topic)
	if err != nil {
		logger.Error("No handler for job topic", "error", err)
		w.fail(ctx, j, err)
		return
	}

	response, err := handler(ctx, j)
	if err != nil {
		logger.Warn("Job handler failed", "error", err)
		w.fail(ctx, j, err)
		return
	}

	if err := w.saveResult(ctx, j.ID, response); err != nil {
		logger.Error("Failed to save job result", "error", err)
		w.fail(ctx, j, err)
		return
	}

	if err := w.jobRepo.MarkCompleted(ctx, j.ID); err != nil {
		logger.Error("Failed to mark job completed", "error", err)
		return
	}

	logger.Info("Job completed")
}

// fail reschedules the job for another attempt, or dead-letters it once the
// retry budget is spent
func (w *Worker) fail(ctx context.Context, j *job.Job, handlerErr error) {
	attempts := j.Attempts + 1
	if attempts >= j.MaxAttempts {
		w.logger.Warn("Job retries exhausted, dead-lettering",
			"job_id", j.ID.String(), "topic", j.Topic, "attempts", attempts,
		)
		w.giveUp(ctx, j, job.ReasonRetriesExhausted, handlerErr.Error())
		return
	}

	delay := j.RetryPolicy().Delay(attempts)
	runAt := time.Now().Add(delay)
	if err := w.jobRepo.Reschedule(ctx, j.ID, attempts, runAt, handlerErr.Error()); err != nil {
		w.logger.Error("Failed to reschedule job", "job_id", j.ID.String(), "error", err)
		return
	}

	w.logger.Info("Job rescheduled", "job_id", j.ID.String(), "attempts", attempts, "run_at", runAt)
}

// giveUp finalizes a job the queue will not run again: the row is marked
// dead-lettered, its payload is re-enqueued under the job's dead-letter topic
// so a handler can react, a failure result unblocks any waiter, and a
// notification goes out when the Kafka producer is configured.
func (w *Worker) giveUp(ctx context.Context, j *job.Job, reason job.DeadLetterReason, lastError string) {
	if err := w.jobRepo.MarkDeadLettered(ctx, j.ID, reason, lastError); err != nil {
		w.logger.Error("Failed to mark job dead-lettered", "job_id", j.ID.String(), "error", err)
		return
	}

	if j.DeadLetterTopic != nil && *j.DeadLetterTopic != "" {
		now := time.Now()
		expiresAt := now.Add(w.expireAfter)
		dlj := &job.Job{
			ID:           uuid.New(),
			Topic:        *j.DeadLetterTopic,
			Payload:      j.Payload,
			Status:       job.StatusQueued,
			MaxAttempts:  j.MaxAttempts,
			RetryDelay:   j.RetryDelay,
			RetryBackoff: j.RetryBackoff,
			RunAt:        now,
			ExpiresAt:    &expiresAt,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := w.jobRepo.Create(ctx, dlj); err != nil {
			w.logger.Error("Failed to enqueue dead-letter job",
				"job_id", j.ID.String(), "dead_letter_topic", *j.DeadLetterTopic, "error", err,
			)
		}
	}

	failure := map[string]any{
		"success": false,
		"error":   lastError,
		"reason":  string(reason),
	}
	if err := w.saveResult(ctx, j.ID, failure); err != nil {
		w.logger.Error("Failed to save dead-letter result", "job_id", j.ID.String(), "error", err)
	}

	if w.deadLetter != nil {
		if err := w.deadLetter.PublishDeadLetter(ctx, j.ID.String(), j.Payload, string(reason)); err != nil {
			w.logger.Error("Failed to publish dead-letter notification", "job_id", j.ID.String(), "error", err)
		}
	}
}

func (w *Worker) saveResult(ctx context.Context, jobID uuid.UUID, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal job response: %w", err)
	}

	return w.resultRepo.Save(ctx, &job.Result{
		ID:        uuid.New(),
		JobID:     jobID,
		Response:  body,
		CreatedAt: time.Now(),
	})
}

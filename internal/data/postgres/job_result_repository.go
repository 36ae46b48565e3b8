package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-engine/internal/domain/job"
	"github.com/banking-transfer-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// JobResultRepository implements the job.ResultRepository interface for PostgreSQL
type JobResultRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewJobResultRepository creates a new PostgreSQL job result repository
func NewJobResultRepository(logger *slog.Logger, db *persistence.PostgresDB) job.ResultRepository {
	return &JobResultRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *JobResultRepository) WithTx(tx pgx.Tx) job.ResultRepository {
	return &JobResultRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Save records the durable outcome of a job execution
func (r *JobResultRepository) Save(ctx context.Context, result *job.Result) error {
	query := `
		INSERT INTO job_results (id, job_id, response, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id) DO UPDATE SET response = EXCLUDED.response
	`

	_, err := r.querier.Exec(ctx, query,
		result.ID,
		result.JobID,
		result.Response,
		result.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save job result", "job_id", result.JobID.String(), "error", err)
		return fmt.Errorf("failed to save job result: %w", err)
	}

	return nil
}

// GetByJobID retrieves the result for a job. Returns nil, nil when the job
// has not produced a result yet, which callers poll on.
func (r *JobResultRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*job.Result, error) {
	query := `
		SELECT id, job_id, response, created_at
		FROM job_results
		WHERE job_id = $1
	`

	var result job.Result
	err := r.querier.QueryRow(ctx, query, jobID).Scan(
		&result.ID,
		&result.JobID,
		&result.Response,
		&result.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Result not recorded yet
		}
		r.logger.Error("Failed to get job result", "job_id", jobID.String(), "error", err)
		return nil, fmt.Errorf("failed to get job result: %w", err)
	}

	return &result, nil
}

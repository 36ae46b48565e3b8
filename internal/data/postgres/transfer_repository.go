package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/banking-transfer-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransferRepository implements the transfer.Repository interface for PostgreSQL
type TransferRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransferRepository creates a new PostgreSQL scheduled transfer repository
func NewTransferRepository(logger *slog.Logger, db *persistence.PostgresDB) transfer.Repository {
	return &TransferRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransferRepository) WithTx(tx pgx.Tx) transfer.Repository {
	return &TransferRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const transferColumns = `id, source_account_id, destination_type, destination_account_id, destination_user_id,
		amount_cents, type, schedule_date, recurrence_interval, recurrence_unit, event_topic, status, job_id,
		created_at, updated_at`

// Create stores a new scheduled transfer
func (r *TransferRepository) Create(ctx context.Context, t *transfer.ScheduledTransfer) error {
	query := `
		INSERT INTO scheduled_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.SourceAccountID,
		t.DestinationType,
		t.DestinationAccountID,
		t.DestinationUserID,
		t.AmountCents,
		t.Type,
		t.ScheduleDate,
		t.RecurrenceInterval,
		t.RecurrenceUnit,
		t.EventTopic,
		t.Status,
		t.JobID,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create scheduled transfer", "error", err)
		return fmt.Errorf("failed to create scheduled transfer: %w", err)
	}

	return nil
}

// GetByID retrieves a scheduled transfer by its ID
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*transfer.ScheduledTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM scheduled_transfers
		WHERE id = $1
	`

	t, err := scanTransfer(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transfer.ErrTransferNotFound{TransferID: id}
		}
		r.logger.Error("Failed to get scheduled transfer", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get scheduled transfer: %w", err)
	}

	return t, nil
}

// UpdateStatus unconditionally moves the transfer to the given status
func (r *TransferRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status transfer.Status) error {
	query := `
		UPDATE scheduled_transfers
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update transfer status", "id", id.String(), "status", string(status), "error", err)
		return fmt.Errorf("failed to update transfer status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transfer.ErrTransferNotFound{TransferID: id}
	}

	return nil
}

// UpdateStatusFrom moves the transfer to the given status only when it
// currently holds the expected one. The compare-and-set guards against
// duplicate job delivery racing the same transfer.
func (r *TransferRepository) UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to transfer.Status) (bool, error) {
	query := `
		UPDATE scheduled_transfers
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := r.querier.Exec(ctx, query, to, time.Now(), id, from)
	if err != nil {
		r.logger.Error("Failed to transition transfer status", "id", id.String(), "to", string(to), "error", err)
		return false, fmt.Errorf("failed to transition transfer status: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// AttachJob stores the queue's job handle on the transfer row
func (r *TransferRepository) AttachJob(ctx context.Context, id uuid.UUID, jobID uuid.UUID) error {
	query := `
		UPDATE scheduled_transfers
		SET job_id = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, jobID, time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to attach job to transfer", "id", id.String(), "job_id", jobID.String(), "error", err)
		return fmt.Errorf("failed to attach job to transfer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transfer.ErrTransferNotFound{TransferID: id}
	}

	return nil
}

// ListByUserID retrieves transfers whose source account belongs to the user,
// newest first
func (r *TransferRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*transfer.ScheduledTransfer, error) {
	query := `
		SELECT t.id, t.source_account_id, t.destination_type, t.destination_account_id, t.destination_user_id,
			t.amount_cents, t.type, t.schedule_date, t.recurrence_interval, t.recurrence_unit, t.event_topic,
			t.status, t.job_id, t.created_at, t.updated_at
		FROM scheduled_transfers t
		JOIN accounts a ON a.id = t.source_account_id
		WHERE a.user_id = $1
		ORDER BY t.created_at DESC
	`

	rows, err := r.querier.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list transfers by user", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transfers by user: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

// ListPendingOnDeposit retrieves pending on-deposit transfers rooted at the
// given source account, in creation order
func (r *TransferRepository) ListPendingOnDeposit(ctx context.Context, sourceAccountID uuid.UUID) ([]*transfer.ScheduledTransfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM scheduled_transfers
		WHERE source_account_id = $1 AND type = $2 AND status = $3
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, sourceAccountID, transfer.TypeOnDeposit, transfer.StatusPending)
	if err != nil {
		r.logger.Error("Failed to list on-deposit transfers", "source_account_id", sourceAccountID.String(), "error", err)
		return nil, fmt.Errorf("failed to list on-deposit transfers: %w", err)
	}
	defer rows.Close()

	return scanTransfers(rows)
}

func scanTransfer(row pgx.Row) (*transfer.ScheduledTransfer, error) {
	var t transfer.ScheduledTransfer
	err := row.Scan(
		&t.ID,
		&t.SourceAccountID,
		&t.DestinationType,
		&t.DestinationAccountID,
		&t.DestinationUserID,
		&t.AmountCents,
		&t.Type,
		&t.ScheduleDate,
		&t.RecurrenceInterval,
		&t.RecurrenceUnit,
		&t.EventTopic,
		&t.Status,
		&t.JobID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTransfers(rows pgx.Rows) ([]*transfer.ScheduledTransfer, error) {
	var transfers []*transfer.ScheduledTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled transfer: %w", err)
		}
		transfers = append(transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over scheduled transfers: %w", err)
	}

	return transfers, nil
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-engine/internal/domain/ledger"
	"github.com/banking-transfer-engine/internal/platform/persistence"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the ledger.Repository interface for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so entry writes participate
// in the executor's balance-check-and-write transaction
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const insertEntryQuery = `
		INSERT INTO ledger_entries (id, account_id, trace_id, amount, description, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

// Create appends a single ledger entry
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	_, err := r.querier.Exec(ctx, insertEntryQuery,
		entry.ID,
		entry.AccountID,
		entry.TraceID,
		entry.Amount,
		entry.Description,
		entry.Type,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry", "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// CreatePair appends the debit and credit entries of one internal transfer.
// Callers are expected to invoke this through WithTx so both writes commit or
// roll back together.
func (r *LedgerRepository) CreatePair(ctx context.Context, debit, credit *ledger.Entry) error {
	for _, entry := range []*ledger.Entry{debit, credit} {
		_, err := r.querier.Exec(ctx, insertEntryQuery,
			entry.ID,
			entry.AccountID,
			entry.TraceID,
			entry.Amount,
			entry.Description,
			entry.Type,
			entry.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create ledger entry pair", "trace_id", entry.TraceID.String(), "error", err)
			return fmt.Errorf("failed to create ledger entry pair: %w", err)
		}
	}

	return nil
}

// BalanceByAccountID derives the account balance by summing entry amounts
func (r *LedgerRepository) BalanceByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE account_id = $1
	`

	var balance int64
	err := r.querier.QueryRow(ctx, query, accountID).Scan(&balance)
	if err != nil {
		r.logger.Error("Failed to get account balance", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to get account balance: %w", err)
	}

	return balance, nil
}

// GetByAccountID retrieves entries for an account, newest first
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, trace_id, amount, description, type, created_at
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get ledger entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// CountByAccountID returns the total number of entries for an account
func (r *LedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_entries
		WHERE account_id = $1
	`

	var count int64
	err := r.querier.QueryRow(ctx, query, accountID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// GetByUserID retrieves entries across all of the user's accounts, newest first
func (r *LedgerRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT e.id, e.account_id, e.trace_id, e.amount, e.description, e.type, e.created_at
		FROM ledger_entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE a.user_id = $1
		ORDER BY e.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get ledger entries by user", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entries by user: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByTraceID retrieves the entries that share a trace id
func (r *LedgerRepository) GetByTraceID(ctx context.Context, traceID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_id, trace_id, amount, description, type, created_at
		FROM ledger_entries
		WHERE trace_id = $1
		ORDER BY amount ASC
	`

	rows, err := r.querier.Query(ctx, query, traceID)
	if err != nil {
		r.logger.Error("Failed to get ledger entries by trace", "trace_id", traceID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entries by trace: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows pgx.Rows) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	for rows.Next() {
		var entry ledger.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.AccountID,
			&entry.TraceID,
			&entry.Amount,
			&entry.Description,
			&entry.Type,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

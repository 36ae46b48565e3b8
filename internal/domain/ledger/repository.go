package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence. Entries are never updated or
// deleted once written.
type Repository interface {
	// Create appends a single entry (external funding).
	Create(ctx context.Context, entry *Entry) error

	// CreatePair appends the two entries of one internal transfer atomically.
	// Callers must run it inside a transaction via WithTx.
	CreatePair(ctx context.Context, debit, credit *Entry) error

	// BalanceByAccountID derives the account balance by summing entry amounts.
	BalanceByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)

	// GetByUserID returns entries across all of a user's accounts, newest first.
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Entry, error)

	GetByTraceID(ctx context.Context, traceID uuid.UUID) ([]*Entry, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates missing ledger entry
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}

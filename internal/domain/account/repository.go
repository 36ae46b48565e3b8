package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetPrimaryByUserID resolves the user's account named "Primary".
	// Returns nil, nil when the user has no such account.
	GetPrimaryByUserID(ctx context.Context, userID uuid.UUID) (*Account, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Account, error)

	// LockForUpdate acquires a pessimistic lock on the account row. Used by the
	// transfer executor to serialize the balance-check-and-write sequence.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages scheduled transfer persistence
type Repository interface {
	Create(ctx context.Context, t *ScheduledTransfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*ScheduledTransfer, error)

	// UpdateStatus unconditionally moves the row to the given status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	// UpdateStatusFrom moves the row to the given status only when it currently
	// holds the expected one. Returns false when the row was in another state,
	// which callers use as the idempotency guard against duplicate delivery.
	UpdateStatusFrom(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)

	// AttachJob stores the queue's job handle on the row.
	AttachJob(ctx context.Context, id uuid.UUID, jobID uuid.UUID) error

	// ListByUserID returns transfers whose source account belongs to the user.
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*ScheduledTransfer, error)

	// ListPendingOnDeposit returns pending on-deposit transfers rooted at the
	// given source account, in creation order.
	ListPendingOnDeposit(ctx context.Context, sourceAccountID uuid.UUID) ([]*ScheduledTransfer, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrTransferNotFound indicates missing scheduled transfer
type ErrTransferNotFound struct {
	TransferID uuid.UUID
}

func (e ErrTransferNotFound) Error() string {
	return "scheduled transfer not found: " + e.TransferID.String()
}

// Is implements the errors.Is interface for ErrTransferNotFound
func (e ErrTransferNotFound) Is(target error) bool {
	t, ok := target.(ErrTransferNotFound)
	if !ok {
		return false
	}
	if t.TransferID == uuid.Nil {
		return true
	}
	return e.TransferID == t.TransferID
}

package scheduler

import (
	"fmt"

	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/google/uuid"
)

// ExecutionError wraps a failure while executing a scheduled transfer,
// carrying the transfer's identity up the retry path
type ExecutionError struct {
	TransferID uuid.UUID
	Err        error
}

func (e ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute scheduled transfer %s: %v", e.TransferID, e.Err)
}

func (e ExecutionError) Unwrap() error {
	return e.Err
}

// ErrTransferNotCancellable indicates a cancellation request that lost the
// race with execution or targeted an already finished transfer
type ErrTransferNotCancellable struct {
	TransferID uuid.UUID
	Status     transfer.Status
}

func (e ErrTransferNotCancellable) Error() string {
	return fmt.Sprintf("scheduled transfer %s cannot be cancelled in status %s", e.TransferID, e.Status)
}

// Is implements the errors.Is interface for ErrTransferNotCancellable
func (e ErrTransferNotCancellable) Is(target error) bool {
	t, ok := target.(ErrTransferNotCancellable)
	if !ok {
		return false
	}
	if t.TransferID == uuid.Nil {
		return true
	}
	return e.TransferID == t.TransferID
}

package service

import (
	"context"

	"github.com/banking-transfer-engine/internal/domain/account"
	"github.com/banking-transfer-engine/internal/domain/ledger"
	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/banking-transfer-engine/internal/domain/user"
	"github.com/banking-transfer-engine/internal/engine/executor"
	"github.com/banking-transfer-engine/internal/engine/scheduler"
	"github.com/google/uuid"
)

// UserService defines the interface for user operations
type UserService interface {
	// CreateUser registers a new user.
	// Returns ErrDuplicateEmail if the email is already registered.
	CreateUser(ctx context.Context, firstName, lastName, email string) (*user.User, error)

	// GetUserByID retrieves a user by its ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUserByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// AccountService defines the interface for account operations
type AccountService interface {
	// CreateAccount opens a new account for the user.
	CreateAccount(ctx context.Context, userID uuid.UUID, name, accountNumber, routingNumber string) (*account.Account, error)

	// GetAccountByID retrieves an account with its derived balance.
	// Returns ErrAccountNotFound if the account doesn't exist.
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, int64, error)

	// Deposit books external funds into the account.
	Deposit(ctx context.Context, accountID uuid.UUID, amountCents int64, description string) (*ledger.Entry, error)
}

// TransferOutcome is the parsed result of a transfer job
type TransferOutcome struct {
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
	Booking *executor.Booking `json:"booking,omitempty"`
}

// TransferService defines the interface for transfer operations
type TransferService interface {
	// Transfer runs an immediate transfer through the durable queue and waits
	// for its outcome. Returns ErrWaitTimeout when the job is still running
	// after the wait window; the transfer itself proceeds.
	Transfer(ctx context.Context, payload scheduler.TransferMoneyPayload) (*TransferOutcome, error)

	// Schedule creates a scheduled transfer.
	Schedule(ctx context.Context, params scheduler.CreateParams) (*transfer.ScheduledTransfer, error)

	// CancelScheduled cancels a pending scheduled transfer.
	// Returns ErrTransferNotCancellable when execution already started.
	CancelScheduled(ctx context.Context, transferID uuid.UUID) error

	// ListScheduledByUser returns the user's scheduled transfers.
	ListScheduledByUser(ctx context.Context, userID uuid.UUID) ([]*transfer.ScheduledTransfer, error)

	// ListTransactionsByUser returns ledger entries across the user's accounts.
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, error)
}

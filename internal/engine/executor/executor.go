// Package executor performs the money movement itself: it resolves the
// destination, checks the derived balance, and books the double-entry pair in
// one database transaction.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/banking-transfer-engine/internal/domain/account"
	"github.com/banking-transfer-engine/internal/domain/ledger"
	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DepositListener is notified after funds land in an account through a
// deposit or an unscheduled transfer credit. The dispatcher implements it to
// fire on-deposit transfers.
type DepositListener interface {
	OnDeposit(ctx context.Context, accountID uuid.UUID) error
}

// Destination addresses the receiving side of a transfer, either directly by
// account or indirectly by user
type Destination struct {
	Type      transfer.DestinationType
	AccountID *uuid.UUID
	UserID    *uuid.UUID
}

// Params describes one transfer to execute. ScheduledTransferID is set when
// the transfer originates from the scheduler; its credits do not count as
// deposits for on-deposit triggering.
type Params struct {
	SourceAccountID     uuid.UUID
	Destination         Destination
	AmountCents         int64
	Description         string
	ScheduledTransferID *uuid.UUID
}

// Booking is the durable outcome of an executed transfer
type Booking struct {
	TraceID              uuid.UUID `json:"trace_id"`
	SourceAccountID      uuid.UUID `json:"source_account_id"`
	DestinationAccountID uuid.UUID `json:"destination_account_id"`
	AmountCents          int64     `json:"amount_cents"`
	DebitEntryID         uuid.UUID `json:"debit_entry_id"`
	CreditEntryID        uuid.UUID `json:"credit_entry_id"`
}

// TxRunner runs a function inside one database transaction. Satisfied by
// persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Executor books transfers and deposits against the ledger
type Executor struct {
	db          TxRunner
	accountRepo account.Repository
	ledgerRepo  ledger.Repository
	listener    DepositListener
	logger      *slog.Logger
}

// NewExecutor creates a transfer executor
func NewExecutor(
	logger *slog.Logger,
	db TxRunner,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
) *Executor {
	return &Executor{
		db:          db,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		logger:      logger,
	}
}

// SetDepositListener attaches the listener notified on incoming funds. Set
// once during startup, before any transfer runs.
func (e *Executor) SetDepositListener(l DepositListener) {
	e.listener = l
}

// Execute moves funds between two accounts. Destination resolution happens
// up front; the balance check and the two ledger writes share one database
// transaction so no interleaving can overdraw the source account.
func (e *Executor) Execute(ctx context.Context, params Params) (*Booking, error) {
	source, err := e.accountRepo.GetByID(ctx, params.SourceAccountID)
	if err != nil {
		return nil, err
	}

	dest, err := e.resolveDestination(ctx, source, params.Destination)
	if err != nil {
		return nil, err
	}

	amount := params.AmountCents
	if amount <= 0 {
		return nil, transfer.ValidationError{Reason: "amount must be positive"}
	}

	description := params.Description
	if description == "" {
		description = fmt.Sprintf("Transfer to %s", dest.Name)
	}
	if params.ScheduledTransferID != nil {
		description = "[Scheduled] " + description
	}

	traceID := uuid.New()
	now := time.Now()
	debit := &ledger.Entry{
		ID:          uuid.New(),
		AccountID:   source.ID,
		TraceID:     traceID,
		Amount:      -amount,
		Description: description,
		Type:        ledger.EntryTypeInternal,
		CreatedAt:   now,
	}
	credit := &ledger.Entry{
		ID:          uuid.New(),
		AccountID:   dest.ID,
		TraceID:     traceID,
		Amount:      amount,
		Description: description,
		Type:        ledger.EntryTypeInternal,
		CreatedAt:   now,
	}

	err = e.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		accounts := e.accountRepo.WithTx(tx)
		entries := e.ledgerRepo.WithTx(tx)

		// The row lock serializes concurrent transfers out of this account so
		// the balance read below stays valid until commit.
		if _, err := accounts.LockForUpdate(ctx, source.ID); err != nil {
			return err
		}

		balance, err := entries.BalanceByAccountID(ctx, source.ID)
		if err != nil {
			return err
		}
		if balance < amount {
			return ErrInsufficientFunds{AccountID: source.ID, Requested: amount, Available: balance}
		}

		return entries.CreatePair(ctx, debit, credit)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Executed transfer",
		"trace_id", traceID.String(),
		"source_account_id", source.ID.String(),
		"destination_account_id", dest.ID.String(),
		"amount_cents", amount,
	)

	// Scheduled credits do not re-trigger on-deposit transfers; everything
	// else landing in an account counts as incoming funds.
	if params.ScheduledTransferID == nil {
		e.notifyDeposit(ctx, dest.ID)
	}

	return &Booking{
		TraceID:              traceID,
		SourceAccountID:      source.ID,
		DestinationAccountID: dest.ID,
		AmountCents:          amount,
		DebitEntryID:         debit.ID,
		CreditEntryID:        credit.ID,
	}, nil
}

// Deposit books external funds into an account as a single ledger entry
func (e *Executor) Deposit(ctx context.Context, accountID uuid.UUID, amountCents int64, description string) (*ledger.Entry, error) {
	if amountCents <= 0 {
		return nil, transfer.ValidationError{Reason: "amount must be positive"}
	}

	acc, err := e.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if description == "" {
		description = "Deposit"
	}

	entry := &ledger.Entry{
		ID:          uuid.New(),
		AccountID:   acc.ID,
		TraceID:     uuid.New(),
		Amount:      amountCents,
		Description: description,
		Type:        ledger.EntryTypeExternal,
		CreatedAt:   time.Now(),
	}

	if err := e.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	e.logger.Info("Booked deposit",
		"account_id", acc.ID.String(),
		"amount_cents", amountCents,
	)

	e.notifyDeposit(ctx, acc.ID)

	return entry, nil
}

// resolveDestination maps the destination address to a concrete account.
// Account-addressed transfers must stay within the source owner's accounts;
// user-addressed transfers land in the recipient's primary account.
func (e *Executor) resolveDestination(ctx context.Context, source *account.Account, dest Destination) (*account.Account, error) {
	switch dest.Type {
	case transfer.DestinationTypeAccount:
		if dest.AccountID == nil {
			return nil, transfer.ValidationError{Reason: "destination account id is required"}
		}
		acc, err := e.accountRepo.GetByID(ctx, *dest.AccountID)
		if err != nil {
			return nil, err
		}
		if acc.UserID != source.UserID {
			return nil, ErrForbiddenDestination{AccountID: acc.ID}
		}
		return acc, nil

	case transfer.DestinationTypeUser:
		if dest.UserID == nil {
			return nil, transfer.ValidationError{Reason: "destination user id is required"}
		}
		acc, err := e.accountRepo.GetPrimaryByUserID(ctx, *dest.UserID)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			return nil, ErrNoDefaultAccount{UserID: *dest.UserID}
		}
		return acc, nil

	default:
		return nil, transfer.ValidationError{Reason: fmt.Sprintf("unknown destination type %q", dest.Type)}
	}
}

// notifyDeposit hands the credited account to the deposit listener. The
// credit is already committed here; a failed notification leaves on-deposit
// transfers armed until the account's next credit rather than losing money.
func (e *Executor) notifyDeposit(ctx context.Context, accountID uuid.UUID) {
	if e.listener == nil {
		return
	}
	if err := e.listener.OnDeposit(ctx, accountID); err != nil {
		e.logger.Error("Deposit listener failed", "account_id", accountID.String(), "error", err)
	}
}

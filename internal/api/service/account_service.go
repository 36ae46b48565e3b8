package service

import (
	"context"
	"log/slog"

	"github.com/banking-transfer-engine/internal/domain/account"
	"github.com/banking-transfer-engine/internal/domain/ledger"
	"github.com/banking-transfer-engine/internal/domain/user"
	"github.com/banking-transfer-engine/internal/engine/executor"
	"github.com/google/uuid"
)

// AccountServiceImpl implements the AccountService interface
type AccountServiceImpl struct {
	accountRepo account.Repository
	userRepo    user.Repository
	ledgerRepo  ledger.Repository
	executor    *executor.Executor
	logger      *slog.Logger
}

// NewAccountService creates a new account service
func NewAccountService(
	logger *slog.Logger,
	accountRepo account.Repository,
	userRepo user.Repository,
	ledgerRepo ledger.Repository,
	exec *executor.Executor,
) AccountService {
	return &AccountServiceImpl{
		accountRepo: accountRepo,
		userRepo:    userRepo,
		ledgerRepo:  ledgerRepo,
		executor:    exec,
		logger:      logger,
	}
}

// CreateAccount opens a new account for an existing user
func (s *AccountServiceImpl) CreateAccount(ctx context.Context, userID uuid.UUID, name, accountNumber, routingNumber string) (*account.Account, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	acc, err := account.NewAccount(userID, name, accountNumber, routingNumber)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Create(ctx, acc); err != nil {
		return nil, err
	}

	s.logger.Info("Created account", "account_id", acc.ID.String(), "user_id", userID.String())
	return acc, nil
}

// GetAccountByID retrieves an account together with its derived balance
func (s *AccountServiceImpl) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, int64, error) {
	acc, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	balance, err := s.ledgerRepo.BalanceByAccountID(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	return acc, balance, nil
}

// Deposit books external funds into the account through the executor, which
// also notifies the on-deposit dispatcher
func (s *AccountServiceImpl) Deposit(ctx context.Context, accountID uuid.UUID, amountCents int64, description string) (*ledger.Entry, error) {
	return s.executor.Deposit(ctx, accountID, amountCents, description)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/banking-transfer-engine/internal/domain/account"
	"github.com/banking-transfer-engine/internal/domain/user"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAccountRepository is a mock implementation of account.Repository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) Create(ctx context.Context, acc *account.Account) error {
	args := m.Called(ctx, acc)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) GetPrimaryByUserID(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*account.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*account.Account), args.Error(1)
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return m
}

func TestAccountService_CreateAccount(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		userRepo := new(MockUserRepository)
		svc := NewAccountService(newTestLogger(), accountRepo, userRepo, new(MockLedgerRepository), nil)

		owner, err := user.NewUser("Jane", "Doe", "jane@example.com")
		require.NoError(t, err)
		owner.ID = userID

		userRepo.On("GetByID", ctx, userID).Return(owner, nil).Once()
		accountRepo.On("Create", ctx, mock.MatchedBy(func(acc *account.Account) bool {
			return acc.UserID == userID && acc.Name == account.PrimaryAccountName
		})).Return(nil).Once()

		acc, err := svc.CreateAccount(ctx, userID, account.PrimaryAccountName, "100200300", "021000021")
		require.NoError(t, err)
		assert.Equal(t, userID, acc.UserID)
		assert.NotEqual(t, uuid.Nil, acc.ID)
		accountRepo.AssertExpectations(t)
	})

	t.Run("unknown owner", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		userRepo := new(MockUserRepository)
		svc := NewAccountService(newTestLogger(), accountRepo, userRepo, new(MockLedgerRepository), nil)

		userRepo.On("GetByID", ctx, userID).Return(nil, user.ErrUserNotFound{UserID: userID}).Once()

		acc, err := svc.CreateAccount(ctx, userID, account.PrimaryAccountName, "100200300", "021000021")
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, user.ErrUserNotFound{})
		accountRepo.AssertNotCalled(t, "Create")
	})

	t.Run("empty name", func(t *testing.T) {
		userRepo := new(MockUserRepository)
		svc := NewAccountService(newTestLogger(), new(MockAccountRepository), userRepo, new(MockLedgerRepository), nil)

		owner, err := user.NewUser("Jane", "Doe", "jane@example.com")
		require.NoError(t, err)
		owner.ID = userID
		userRepo.On("GetByID", ctx, userID).Return(owner, nil).Once()

		acc, err := svc.CreateAccount(ctx, userID, "", "100200300", "021000021")
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, account.ErrEmptyName)
	})
}

func TestAccountService_GetAccountByID(t *testing.T) {
	ctx := context.Background()
	accID := uuid.New()

	t.Run("returns account with derived balance", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		ledgerRepo := new(MockLedgerRepository)
		svc := NewAccountService(newTestLogger(), accountRepo, new(MockUserRepository), ledgerRepo, nil)

		expected := &account.Account{ID: accID, UserID: uuid.New(), Name: account.PrimaryAccountName}
		accountRepo.On("GetByID", ctx, accID).Return(expected, nil).Once()
		ledgerRepo.On("BalanceByAccountID", ctx, accID).Return(int64(7500), nil).Once()

		acc, balance, err := svc.GetAccountByID(ctx, accID)
		require.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.Equal(t, int64(7500), balance)
	})

	t.Run("not found", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		ledgerRepo := new(MockLedgerRepository)
		svc := NewAccountService(newTestLogger(), accountRepo, new(MockUserRepository), ledgerRepo, nil)

		accountRepo.On("GetByID", ctx, accID).Return(nil, account.ErrAccountNotFound{AccountID: accID}).Once()

		acc, balance, err := svc.GetAccountByID(ctx, accID)
		assert.Nil(t, acc)
		assert.Zero(t, balance)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{})
		ledgerRepo.AssertNotCalled(t, "BalanceByAccountID")
	})

	t.Run("balance query error", func(t *testing.T) {
		accountRepo := new(MockAccountRepository)
		ledgerRepo := new(MockLedgerRepository)
		svc := NewAccountService(newTestLogger(), accountRepo, new(MockUserRepository), ledgerRepo, nil)

		expected := &account.Account{ID: accID}
		storeErr := errors.New("sum failed")
		accountRepo.On("GetByID", ctx, accID).Return(expected, nil).Once()
		ledgerRepo.On("BalanceByAccountID", ctx, accID).Return(int64(0), storeErr).Once()

		acc, _, err := svc.GetAccountByID(ctx, accID)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, storeErr)
	})
}

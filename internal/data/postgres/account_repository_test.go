package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/banking-transfer-engine/internal/domain/account"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}

	acc := &account.Account{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Name:          account.PrimaryAccountName,
		AccountNumber: "100200300",
		RoutingNumber: "021000021",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	query := `
		INSERT INTO accounts \(id, user_id, name, account_number, routing_number, created_at, updated_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.UserID, acc.Name, acc.AccountNumber, acc.RoutingNumber, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.UserID, acc.Name, acc.AccountNumber, acc.RoutingNumber, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(dbErr)

		err := repo.Create(ctx, acc)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()
	now := time.Now()

	expectedAccount := &account.Account{
		ID:            accID,
		UserID:        uuid.New(),
		Name:          account.PrimaryAccountName,
		AccountNumber: "100200300",
		RoutingNumber: "021000021",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		SELECT id, user_id, name, account_number, routing_number, created_at, updated_at
		FROM accounts
		WHERE id = \$1
	`
	rows := pgxmock.NewRows([]string{"id", "user_id", "name", "account_number", "routing_number", "created_at", "updated_at"}).
		AddRow(expectedAccount.ID, expectedAccount.UserID, expectedAccount.Name, expectedAccount.AccountNumber, expectedAccount.RoutingNumber, expectedAccount.CreatedAt, expectedAccount.UpdatedAt)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, accID)
		assert.NoError(t, err)
		assert.Equal(t, expectedAccount, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		var accNotFoundErr account.ErrAccountNotFound
		assert.ErrorAs(t, err, &accNotFoundErr)
		assert.Equal(t, accID, accNotFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(dbErr)

		acc, err := repo.GetByID(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to get account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetPrimaryByUserID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	userID := uuid.New()
	now := time.Now()

	expectedAccount := &account.Account{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          account.PrimaryAccountName,
		AccountNumber: "100200300",
		RoutingNumber: "021000021",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		SELECT id, user_id, name, account_number, routing_number, created_at, updated_at
		FROM accounts
		WHERE user_id = \$1 AND name = \$2
	`
	rows := pgxmock.NewRows([]string{"id", "user_id", "name", "account_number", "routing_number", "created_at", "updated_at"}).
		AddRow(expectedAccount.ID, expectedAccount.UserID, expectedAccount.Name, expectedAccount.AccountNumber, expectedAccount.RoutingNumber, expectedAccount.CreatedAt, expectedAccount.UpdatedAt)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(userID, account.PrimaryAccountName).WillReturnRows(rows)

		acc, err := repo.GetPrimaryByUserID(ctx, userID)
		assert.NoError(t, err)
		assert.Equal(t, expectedAccount, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(userID, account.PrimaryAccountName).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetPrimaryByUserID(ctx, userID)
		assert.NoError(t, err) // No error, just nil account
		assert.Nil(t, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(userID, account.PrimaryAccountName).WillReturnError(dbErr)

		acc, err := repo.GetPrimaryByUserID(ctx, userID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to get primary account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	accID := uuid.New()
	now := time.Now()

	expectedAccount := &account.Account{
		ID:            accID,
		UserID:        uuid.New(),
		Name:          "Savings",
		AccountNumber: "400500600",
		RoutingNumber: "021000021",
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		SELECT id, user_id, name, account_number, routing_number, created_at, updated_at
		FROM accounts
		WHERE id = \$1
		FOR UPDATE
	`
	rows := pgxmock.NewRows([]string{"id", "user_id", "name", "account_number", "routing_number", "created_at", "updated_at"}).
		AddRow(expectedAccount.ID, expectedAccount.UserID, expectedAccount.Name, expectedAccount.AccountNumber, expectedAccount.RoutingNumber, expectedAccount.CreatedAt, expectedAccount.UpdatedAt)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.LockForUpdate(ctx, accID)
		assert.NoError(t, err)
		assert.Equal(t, expectedAccount, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.LockForUpdate(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		var accNotFoundErr account.ErrAccountNotFound
		assert.ErrorAs(t, err, &accNotFoundErr)
		assert.Equal(t, accID, accNotFoundErr.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("lock db error")
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(dbErr)

		acc, err := repo.LockForUpdate(ctx, accID)
		assert.Error(t, err)
		assert.Nil(t, acc)
		assert.Contains(t, err.Error(), "failed to lock account for update")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListByUserID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: logger}
	userID := uuid.New()
	now := time.Now()

	query := `
		SELECT id, user_id, name, account_number, routing_number, created_at, updated_at
		FROM accounts
		WHERE user_id = \$1
		ORDER BY created_at ASC
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "user_id", "name", "account_number", "routing_number", "created_at", "updated_at"}).
			AddRow(uuid.New(), userID, account.PrimaryAccountName, "100200300", "021000021", now, now).
			AddRow(uuid.New(), userID, "Savings", "400500600", "021000021", now, now)
		mock.ExpectQuery(query).WithArgs(userID).WillReturnRows(rows)

		accounts, err := repo.ListByUserID(ctx, userID)
		assert.NoError(t, err)
		assert.Len(t, accounts, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "user_id", "name", "account_number", "routing_number", "created_at", "updated_at"})
		mock.ExpectQuery(query).WithArgs(userID).WillReturnRows(rows)

		accounts, err := repo.ListByUserID(ctx, userID)
		assert.NoError(t, err)
		assert.Empty(t, accounts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("list db error")
		mock.ExpectQuery(query).WithArgs(userID).WillReturnError(dbErr)

		accounts, err := repo.ListByUserID(ctx, userID)
		assert.Error(t, err)
		assert.Nil(t, accounts)
		assert.Contains(t, err.Error(), "failed to list accounts")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &AccountRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*AccountRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*AccountRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PrimaryAccountName is the account name a user-addressed transfer resolves to.
const PrimaryAccountName = "Primary"

// Common errors
var (
	ErrEmptyName          = errors.New("account name cannot be empty")
	ErrEmptyAccountNumber = errors.New("account number cannot be empty")
	ErrEmptyRoutingNumber = errors.New("routing number cannot be empty")
	ErrMissingOwner       = errors.New("account must belong to a user")
)

// Account represents a bank account. It carries no balance column: the balance
// is always derived by summing the account's ledger entries.
type Account struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Name          string    `json:"name"`
	AccountNumber string    `json:"account_number"`
	RoutingNumber string    `json:"routing_number"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewAccount creates a new account owned by the given user
func NewAccount(userID uuid.UUID, name, accountNumber, routingNumber string) (*Account, error) {
	if userID == uuid.Nil {
		return nil, ErrMissingOwner
	}
	if name == "" {
		return nil, ErrEmptyName
	}
	if accountNumber == "" {
		return nil, ErrEmptyAccountNumber
	}
	if routingNumber == "" {
		return nil, ErrEmptyRoutingNumber
	}

	now := time.Now()
	return &Account{
		ID:            uuid.New(),
		UserID:        userID,
		Name:          name,
		AccountNumber: accountNumber,
		RoutingNumber: routingNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

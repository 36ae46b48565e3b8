package executor

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrInsufficientFunds indicates the source account balance cannot cover the
// requested amount
type ErrInsufficientFunds struct {
	AccountID uuid.UUID
	Requested int64
	Available int64
}

func (e ErrInsufficientFunds) Error() string {
	return fmt.Sprintf("insufficient funds in account %s: requested %d, available %d",
		e.AccountID, e.Requested, e.Available)
}

// Is implements the errors.Is interface for ErrInsufficientFunds
func (e ErrInsufficientFunds) Is(target error) bool {
	t, ok := target.(ErrInsufficientFunds)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrForbiddenDestination indicates an account-addressed transfer whose
// destination account belongs to another user
type ErrForbiddenDestination struct {
	AccountID uuid.UUID
}

func (e ErrForbiddenDestination) Error() string {
	return "destination account belongs to another user: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrForbiddenDestination
func (e ErrForbiddenDestination) Is(target error) bool {
	t, ok := target.(ErrForbiddenDestination)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrNoDefaultAccount indicates a user-addressed transfer whose recipient has
// no primary account to credit
type ErrNoDefaultAccount struct {
	UserID uuid.UUID
}

func (e ErrNoDefaultAccount) Error() string {
	return "user has no default account to receive the transfer: " + e.UserID.String()
}

// Is implements the errors.Is interface for ErrNoDefaultAccount
func (e ErrNoDefaultAccount) Is(target error) bool {
	t, ok := target.(ErrNoDefaultAccount)
	if !ok {
		return false
	}
	if t.UserID == uuid.Nil {
		return true
	}
	return e.UserID == t.UserID
}

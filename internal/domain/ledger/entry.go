package ledger

import (
	"time"

	"github.com/google/uuid"
)

// EntryType distinguishes external funding from internal transfers
type EntryType string

const (
	EntryTypeExternal EntryType = "EXTERNAL"
	EntryTypeInternal EntryType = "INTERNAL"
)

// Entry is one signed, immutable movement of funds on one account. The two
// entries of an internal transfer share a trace id and sum to zero; the log is
// append-only and an account's balance is the sum of its entries' amounts.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	AccountID   uuid.UUID `json:"account_id"`
	TraceID     uuid.UUID `json:"trace_id"`
	Amount      int64     `json:"amount"` // Signed, in cents/minor units
	Description string    `json:"description"`
	Type        EntryType `json:"type"`
	CreatedAt   time.Time `json:"created_at"`
}

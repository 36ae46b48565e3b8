package scheduler

import (
	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/google/uuid"
)

// Job topics owned by the transfer engine
const (
	// TopicScheduledTransfer jobs execute one scheduled transfer, identified
	// by its row id.
	TopicScheduledTransfer = "scheduled-transfer"

	// TopicTransferMoney jobs execute one immediate transfer.
	TopicTransferMoney = "transfer-money"

	// TopicRunEventTransfers jobs fan out the pending on-deposit transfers of
	// one account.
	TopicRunEventTransfers = "run-event-transfers"
)

// ScheduledTransferPayload identifies the transfer to execute. Everything
// else is reloaded from the row, so edits made between scheduling and
// execution take effect.
type ScheduledTransferPayload struct {
	TransferID uuid.UUID `json:"transfer_id"`
}

// TransferMoneyPayload carries one immediate transfer request
type TransferMoneyPayload struct {
	SourceAccountID      uuid.UUID                `json:"source_account_id"`
	DestinationType      transfer.DestinationType `json:"destination_type"`
	DestinationAccountID *uuid.UUID               `json:"destination_account_id,omitempty"`
	DestinationUserID    *uuid.UUID               `json:"destination_user_id,omitempty"`
	AmountCents          int64                    `json:"amount_cents"`
	Description          string                   `json:"description,omitempty"`
}

// RunEventTransfersPayload identifies the account that received funds
type RunEventTransfersPayload struct {
	AccountID uuid.UUID `json:"account_id"`
}

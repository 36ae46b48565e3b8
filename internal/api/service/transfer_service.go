package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-engine/internal/domain/ledger"
	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/banking-transfer-engine/internal/engine/scheduler"
	"github.com/banking-transfer-engine/internal/jobqueue"
	"github.com/google/uuid"
)

// TransferServiceImpl implements the TransferService interface
type TransferServiceImpl struct {
	scheduler  *scheduler.Scheduler
	queue      jobqueue.Queue
	ledgerRepo ledger.Repository
	logger     *slog.Logger
}

// NewTransferService creates a new transfer service
func NewTransferService(
	logger *slog.Logger,
	sched *scheduler.Scheduler,
	queue jobqueue.Queue,
	ledgerRepo ledger.Repository,
) TransferService {
	return &TransferServiceImpl{
		scheduler:  sched,
		queue:      queue,
		ledgerRepo: ledgerRepo,
		logger:     logger,
	}
}

// Transfer pushes an immediate transfer through the durable queue and blocks
// on its result. Even synchronous transfers ride the queue so a crashed
// process never loses an accepted request.
func (s *TransferServiceImpl) Transfer(ctx context.Context, payload scheduler.TransferMoneyPayload) (*TransferOutcome, error) {
	response, err := s.queue.TriggerAndWait(ctx, scheduler.TopicTransferMoney, payload, jobqueue.Options{})
	if err != nil {
		return nil, err
	}

	var outcome TransferOutcome
	if err := json.Unmarshal(response, &outcome); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfer outcome: %w", err)
	}

	return &outcome, nil
}

// Schedule creates a scheduled transfer
func (s *TransferServiceImpl) Schedule(ctx context.Context, params scheduler.CreateParams) (*transfer.ScheduledTransfer, error) {
	return s.scheduler.Create(ctx, params)
}

// CancelScheduled cancels a pending scheduled transfer
func (s *TransferServiceImpl) CancelScheduled(ctx context.Context, transferID uuid.UUID) error {
	return s.scheduler.Cancel(ctx, transferID)
}

// ListScheduledByUser returns the user's scheduled transfers
func (s *TransferServiceImpl) ListScheduledByUser(ctx context.Context, userID uuid.UUID) ([]*transfer.ScheduledTransfer, error) {
	return s.scheduler.ListByUser(ctx, userID)
}

// ListTransactionsByUser returns ledger entries across the user's accounts
func (s *TransferServiceImpl) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*ledger.Entry, error) {
	offset := (page - 1) * perPage
	return s.ledgerRepo.GetByUserID(ctx, userID, perPage, offset)
}

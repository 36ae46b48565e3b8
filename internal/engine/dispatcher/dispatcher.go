// Package dispatcher reacts to incoming funds: every deposit fans out the
// account's pending on-deposit transfers through the durable queue.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-engine/internal/domain/job"
	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/banking-transfer-engine/internal/engine/scheduler"
	"github.com/banking-transfer-engine/internal/jobqueue"
	"github.com/google/uuid"
)

// Dispatcher bridges deposits to on-deposit transfers. It implements the
// executor's DepositListener: the notification itself only enqueues a durable
// fan-out job, so a crash after the deposit commits loses nothing.
type Dispatcher struct {
	transferRepo transfer.Repository
	queue        jobqueue.Queue
	logger       *slog.Logger
}

// NewDispatcher creates a deposit event dispatcher
func NewDispatcher(logger *slog.Logger, transferRepo transfer.Repository, queue jobqueue.Queue) *Dispatcher {
	return &Dispatcher{
		transferRepo: transferRepo,
		queue:        queue,
		logger:       logger,
	}
}

// OnDeposit enqueues a fan-out job for the account that received funds
func (d *Dispatcher) OnDeposit(ctx context.Context, accountID uuid.UUID) error {
	jobID, err := d.queue.Enqueue(ctx, scheduler.TopicRunEventTransfers,
		scheduler.RunEventTransfersPayload{AccountID: accountID},
		jobqueue.Options{},
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue deposit fan-out: %w", err)
	}

	d.logger.Info("Enqueued deposit fan-out", "account_id", accountID.String(), "job_id", jobID.String())
	return nil
}

// Register binds the fan-out handler to its topic
func (d *Dispatcher) Register(registry *jobqueue.Registry) {
	registry.Register(scheduler.TopicRunEventTransfers, d.HandleRunEventTransfers)
}

// HandleRunEventTransfers finds the account's pending on-deposit transfers
// and enqueues an immediate execution job for each. The execution handler's
// own status check keeps double fan-outs from double-spending.
func (d *Dispatcher) HandleRunEventTransfers(ctx context.Context, j *job.Job) (any, error) {
	var payload scheduler.RunEventTransfersPayload
	if err := json.Unmarshal(j.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deposit fan-out payload: %w", err)
	}

	transfers, err := d.transferRepo.ListPendingOnDeposit(ctx, payload.AccountID)
	if err != nil {
		return nil, err
	}

	triggered := make([]string, 0, len(transfers))
	for _, t := range transfers {
		jobID, err := d.queue.Enqueue(ctx, scheduler.TopicScheduledTransfer,
			scheduler.ScheduledTransferPayload{TransferID: t.ID},
			jobqueue.Options{},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to enqueue on-deposit transfer %s: %w", t.ID, err)
		}

		if err := d.transferRepo.AttachJob(ctx, t.ID, jobID); err != nil {
			d.logger.Error("Failed to attach job to on-deposit transfer",
				"transfer_id", t.ID.String(), "job_id", jobID.String(), "error", err,
			)
		}

		triggered = append(triggered, t.ID.String())
	}

	if len(triggered) > 0 {
		d.logger.Info("Triggered on-deposit transfers",
			"account_id", payload.AccountID.String(), "count", len(triggered),
		)
	}

	return map[string]any{"success": true, "triggered": triggered}, nil
}

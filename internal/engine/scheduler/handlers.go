package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/banking-transfer-engine/internal/domain/account"
	"github.com/banking-transfer-engine/internal/domain/job"
	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/banking-transfer-engine/internal/engine/executor"
	"github.com/banking-transfer-engine/internal/jobqueue"
	"github.com/google/uuid"
)

// TransferExecutor books transfers against the ledger
type TransferExecutor interface {
	Execute(ctx context.Context, params executor.Params) (*executor.Booking, error)
}

// Handlers holds the queue handlers that execute transfers
type Handlers struct {
	executor     TransferExecutor
	transferRepo transfer.Repository
	queue        jobqueue.Queue
	logger       *slog.Logger
}

// NewHandlers creates the transfer execution handlers
func NewHandlers(logger *slog.Logger, exec TransferExecutor, transferRepo transfer.Repository, queue jobqueue.Queue) *Handlers {
	return &Handlers{
		executor:     exec,
		transferRepo: transferRepo,
		queue:        queue,
		logger:       logger,
	}
}

// Register binds the handlers to their topics. The dead-letter topic receives
// the payloads of jobs the queue gave up on.
func (h *Handlers) Register(registry *jobqueue.Registry, deadLetterTopic string) {
	registry.Register(TopicScheduledTransfer, h.HandleScheduledTransfer)
	registry.Register(TopicTransferMoney, h.HandleTransferMoney)
	registry.Register(deadLetterTopic, h.HandleFailedTransfer)
}

// HandleScheduledTransfer executes one scheduled transfer when its job comes
// due. The row is reloaded first so edits and cancellations made after
// scheduling take effect, and the pending-to-processing compare-and-set makes
// duplicate deliveries harmless.
func (h *Handlers) HandleScheduledTransfer(ctx context.Context, j *job.Job) (any, error) {
	var payload ScheduledTransferPayload
	if err := json.Unmarshal(j.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scheduled transfer payload: %w", err)
	}

	t, err := h.transferRepo.GetByID(ctx, payload.TransferID)
	if err != nil {
		if errors.Is(err, transfer.ErrTransferNotFound{}) {
			// Retrying cannot bring the row back
			return failureResult(err), nil
		}
		return nil, err
	}

	claimed, err := h.transferRepo.UpdateStatusFrom(ctx, t.ID, transfer.StatusPending, transfer.StatusProcessing)
	if err != nil {
		return nil, err
	}
	if !claimed {
		h.logger.Info("Skipping scheduled transfer, not in pending state",
			"transfer_id", t.ID.String(), "status", string(t.Status),
		)
		return map[string]any{"success": true, "skipped": true}, nil
	}

	booking, err := h.executor.Execute(ctx, executor.Params{
		SourceAccountID: t.SourceAccountID,
		Destination: executor.Destination{
			Type:      t.DestinationType,
			AccountID: t.DestinationAccountID,
			UserID:    t.DestinationUserID,
		},
		AmountCents:         t.AmountCents,
		ScheduledTransferID: &t.ID,
	})
	if err != nil {
		if isBusinessRejection(err) {
			// A rejection will not resolve itself; fail the transfer now.
			if errUpd := h.transferRepo.UpdateStatus(ctx, t.ID, transfer.StatusFailed); errUpd != nil {
				h.logger.Error("Failed to mark rejected transfer failed", "transfer_id", t.ID.String(), "error", errUpd)
			}
			return failureResult(err), nil
		}

		// Release the row so the retry can claim it again
		if errUpd := h.transferRepo.UpdateStatus(ctx, t.ID, transfer.StatusPending); errUpd != nil {
			h.logger.Error("Failed to release transfer for retry", "transfer_id", t.ID.String(), "error", errUpd)
		}
		return nil, ExecutionError{TransferID: t.ID, Err: err}
	}

	if err := h.transferRepo.UpdateStatus(ctx, t.ID, transfer.StatusCompleted); err != nil {
		h.logger.Error("Failed to mark transfer completed", "transfer_id", t.ID.String(), "error", err)
	}

	if t.Type == transfer.TypeRecurring {
		if err := h.scheduleSuccessor(ctx, t); err != nil {
			// The executed transfer stands; only the next occurrence is lost.
			h.logger.Error("Failed to schedule recurring successor", "transfer_id", t.ID.String(), "error", err)
		}
	}

	return map[string]any{"success": true, "booking": booking}, nil
}

// HandleTransferMoney executes one immediate transfer. Business rejections
// are recorded as failed results instead of errors so the queue does not
// retry a transfer that can never succeed.
func (h *Handlers) HandleTransferMoney(ctx context.Context, j *job.Job) (any, error) {
	var payload TransferMoneyPayload
	if err := json.Unmarshal(j.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfer money payload: %w", err)
	}

	booking, err := h.executor.Execute(ctx, executor.Params{
		SourceAccountID: payload.SourceAccountID,
		Destination: executor.Destination{
			Type:      payload.DestinationType,
			AccountID: payload.DestinationAccountID,
			UserID:    payload.DestinationUserID,
		},
		AmountCents: payload.AmountCents,
		Description: payload.Description,
	})
	if err != nil {
		if isBusinessRejection(err) {
			return failureResult(err), nil
		}
		return nil, err
	}

	return map[string]any{"success": true, "booking": booking}, nil
}

// HandleFailedTransfer runs on the dead-letter topic. Scheduled transfers
// whose jobs expired or exhausted their retries are marked failed so they do
// not linger as pending or processing. The compare-and-sets leave terminal
// and deleted rows untouched; a transfer that actually completed before its
// job was abandoned stays completed.
func (h *Handlers) HandleFailedTransfer(ctx context.Context, j *job.Job) (any, error) {
	var payload ScheduledTransferPayload
	if err := json.Unmarshal(j.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dead-letter payload: %w", err)
	}

	if payload.TransferID == uuid.Nil {
		// Not a scheduled transfer payload, nothing to finalize
		return map[string]any{"success": true}, nil
	}

	for _, from := range []transfer.Status{transfer.StatusPending, transfer.StatusProcessing} {
		ok, err := h.transferRepo.UpdateStatusFrom(ctx, payload.TransferID, from, transfer.StatusFailed)
		if err != nil {
			return nil, err
		}
		if ok {
			h.logger.Warn("Marked abandoned scheduled transfer failed",
				"transfer_id", payload.TransferID.String(), "was", string(from),
			)
			return map[string]any{"success": true}, nil
		}
	}

	// Missing, terminal, or deleted: nothing left to finalize
	return map[string]any{"success": true}, nil
}

// scheduleSuccessor creates the next occurrence of a recurring transfer and
// binds it to a job due one interval later
func (h *Handlers) scheduleSuccessor(ctx context.Context, t *transfer.ScheduledTransfer) error {
	successor, err := t.Successor()
	if err != nil {
		return err
	}

	if err := h.transferRepo.Create(ctx, successor); err != nil {
		return err
	}

	jobID, err := h.queue.Enqueue(ctx, TopicScheduledTransfer,
		ScheduledTransferPayload{TransferID: successor.ID},
		jobqueue.Options{RunAt: *successor.ScheduleDate},
	)
	if err != nil {
		return err
	}

	if err := h.transferRepo.AttachJob(ctx, successor.ID, jobID); err != nil {
		return err
	}

	h.logger.Info("Scheduled recurring successor",
		"transfer_id", t.ID.String(),
		"successor_id", successor.ID.String(),
		"run_at", successor.ScheduleDate,
	)
	return nil
}

// isBusinessRejection reports whether the error is a terminal rejection of
// the transfer rather than a transient infrastructure failure
func isBusinessRejection(err error) bool {
	var validation transfer.ValidationError
	return errors.Is(err, executor.ErrInsufficientFunds{}) ||
		errors.Is(err, executor.ErrForbiddenDestination{}) ||
		errors.Is(err, executor.ErrNoDefaultAccount{}) ||
		errors.Is(err, account.ErrAccountNotFound{}) ||
		errors.As(err, &validation)
}

func failureResult(err error) map[string]any {
	return map[string]any{"success": false, "error": err.Error()}
}

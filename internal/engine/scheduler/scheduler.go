// Package scheduler owns the scheduled transfer lifecycle: creating rows,
// binding them to queue jobs, and the handlers that execute them when their
// jobs come due.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/banking-transfer-engine/internal/jobqueue"
	"github.com/google/uuid"
)

// CreateParams describes a scheduled transfer request
type CreateParams struct {
	SourceAccountID      uuid.UUID
	DestinationType      transfer.DestinationType
	DestinationAccountID *uuid.UUID
	DestinationUserID    *uuid.UUID
	AmountCents          int64
	Type                 transfer.Type
	ScheduleDate         *time.Time
	RecurrenceInterval   *int
	RecurrenceUnit       *transfer.RecurrenceUnit
	EventTopic           *string
}

// Scheduler manages scheduled transfers and their queue jobs
type Scheduler struct {
	transferRepo transfer.Repository
	queue        jobqueue.Queue
	logger       *slog.Logger
}

// NewScheduler creates a scheduler service
func NewScheduler(logger *slog.Logger, transferRepo transfer.Repository, queue jobqueue.Queue) *Scheduler {
	return &Scheduler{
		transferRepo: transferRepo,
		queue:        queue,
		logger:       logger,
	}
}

// Create validates and persists a scheduled transfer. Timed transfers get a
// queue job due at their schedule date; on-deposit transfers wait for the
// dispatcher instead and carry no job until funds arrive.
func (s *Scheduler) Create(ctx context.Context, params CreateParams) (*transfer.ScheduledTransfer, error) {
	now := time.Now()
	t := &transfer.ScheduledTransfer{
		ID:                   uuid.New(),
		SourceAccountID:      params.SourceAccountID,
		DestinationType:      params.DestinationType,
		DestinationAccountID: params.DestinationAccountID,
		DestinationUserID:    params.DestinationUserID,
		AmountCents:          params.AmountCents,
		Type:                 params.Type,
		ScheduleDate:         params.ScheduleDate,
		RecurrenceInterval:   params.RecurrenceInterval,
		RecurrenceUnit:       params.RecurrenceUnit,
		EventTopic:           params.EventTopic,
		Status:               transfer.StatusSubmitted,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	if err := s.transferRepo.Create(ctx, t); err != nil {
		return nil, err
	}

	if err := s.activate(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("Created scheduled transfer",
		"transfer_id", t.ID.String(),
		"type", string(t.Type),
		"source_account_id", t.SourceAccountID.String(),
	)
	return t, nil
}

// activate moves a submitted transfer to pending, enqueuing the timed job
// when the transfer has a schedule date
func (s *Scheduler) activate(ctx context.Context, t *transfer.ScheduledTransfer) error {
	if t.Type == transfer.TypeAtTime || t.Type == transfer.TypeRecurring {
		jobID, err := s.queue.Enqueue(ctx, TopicScheduledTransfer,
			ScheduledTransferPayload{TransferID: t.ID},
			jobqueue.Options{RunAt: *t.ScheduleDate},
		)
		if err != nil {
			return err
		}
		if err := s.transferRepo.AttachJob(ctx, t.ID, jobID); err != nil {
			return err
		}
		t.JobID = &jobID
	}

	if err := s.transferRepo.UpdateStatus(ctx, t.ID, transfer.StatusPending); err != nil {
		return err
	}
	t.Status = transfer.StatusPending
	return nil
}

// Cancel marks a pending transfer deleted and withdraws its queue job. A
// transfer that already started executing stays on its course; the
// compare-and-set on the row decides the race.
func (s *Scheduler) Cancel(ctx context.Context, transferID uuid.UUID) error {
	t, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil {
		return err
	}

	ok, err := s.transferRepo.UpdateStatusFrom(ctx, transferID, transfer.StatusPending, transfer.StatusDeleted)
	if err != nil {
		return err
	}
	if !ok {
		// Rows left in submitted when activation failed midway are
		// cancellable too
		ok, err = s.transferRepo.UpdateStatusFrom(ctx, transferID, transfer.StatusSubmitted, transfer.StatusDeleted)
		if err != nil {
			return err
		}
	}
	if !ok {
		current, err := s.transferRepo.GetByID(ctx, transferID)
		if err != nil {
			return err
		}
		return ErrTransferNotCancellable{TransferID: transferID, Status: current.Status}
	}

	if t.JobID != nil {
		cancelled, err := s.queue.Cancel(ctx, *t.JobID)
		if err != nil {
			s.logger.Error("Failed to cancel job for deleted transfer",
				"transfer_id", transferID.String(), "job_id", t.JobID.String(), "error", err,
			)
		} else if !cancelled {
			// The job already ran or is running; its handler will see the
			// deleted status and skip.
			s.logger.Warn("Job for deleted transfer was not cancellable",
				"transfer_id", transferID.String(), "job_id", t.JobID.String(),
			)
		}
	}

	s.logger.Info("Cancelled scheduled transfer", "transfer_id", transferID.String())
	return nil
}

// ListByUser returns the scheduled transfers rooted at the user's accounts
func (s *Scheduler) ListByUser(ctx context.Context, userID uuid.UUID) ([]*transfer.ScheduledTransfer, error) {
	return s.transferRepo.ListByUserID(ctx, userID)
}

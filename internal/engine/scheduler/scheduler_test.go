package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/banking-transfer-engine/internal/domain/transfer"
	"github.com/banking-transfer-engine/internal/jobqueue"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Create(t *testing.T) {
	ctx := context.Background()
	destID := uuid.New()

	t.Run("timed transfer gets a queue job", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		queue := new(MockQueue)
		s := NewScheduler(newTestLogger(), transferRepo, queue)

		scheduleDate := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		jobID := uuid.New()

		transferRepo.On("Create", ctx, mock.MatchedBy(func(tr *transfer.ScheduledTransfer) bool {
			return tr.Status == transfer.StatusSubmitted && tr.Type == transfer.TypeAtTime
		})).Return(nil).Once()
		queue.On("Enqueue", ctx, TopicScheduledTransfer, mock.AnythingOfType("scheduler.ScheduledTransferPayload"),
			mock.MatchedBy(func(opts jobqueue.Options) bool { return opts.RunAt.Equal(scheduleDate) }),
		).Return(jobID, nil).Once()
		transferRepo.On("AttachJob", ctx, mock.AnythingOfType("uuid.UUID"), jobID).Return(nil).Once()
		transferRepo.On("UpdateStatus", ctx, mock.AnythingOfType("uuid.UUID"), transfer.StatusPending).Return(nil).Once()

		tr, err := s.Create(ctx, CreateParams{
			SourceAccountID:      uuid.New(),
			DestinationType:      transfer.DestinationTypeAccount,
			DestinationAccountID: &destID,
			AmountCents:          2500,
			Type:                 transfer.TypeAtTime,
			ScheduleDate:         &scheduleDate,
		})
		require.NoError(t, err)
		assert.Equal(t, transfer.StatusPending, tr.Status)
		require.NotNil(t, tr.JobID)
		assert.Equal(t, jobID, *tr.JobID)

		transferRepo.AssertExpectations(t)
		queue.AssertExpectations(t)
	})

	t.Run("on-deposit transfer carries no job", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		queue := new(MockQueue)
		s := NewScheduler(newTestLogger(), transferRepo, queue)

		eventTopic := transfer.EventTopicDeposit
		transferRepo.On("Create", ctx, mock.AnythingOfType("*transfer.ScheduledTransfer")).Return(nil).Once()
		transferRepo.On("UpdateStatus", ctx, mock.AnythingOfType("uuid.UUID"), transfer.StatusPending).Return(nil).Once()

		tr, err := s.Create(ctx, CreateParams{
			SourceAccountID:      uuid.New(),
			DestinationType:      transfer.DestinationTypeAccount,
			DestinationAccountID: &destID,
			AmountCents:          2500,
			Type:                 transfer.TypeOnDeposit,
			EventTopic:           &eventTopic,
		})
		require.NoError(t, err)
		assert.Equal(t, transfer.StatusPending, tr.Status)
		assert.Nil(t, tr.JobID)
		queue.AssertNotCalled(t, "Enqueue")
	})

	t.Run("invalid request never touches the store", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		s := NewScheduler(newTestLogger(), transferRepo, new(MockQueue))

		tr, err := s.Create(ctx, CreateParams{
			SourceAccountID:      uuid.New(),
			DestinationType:      transfer.DestinationTypeAccount,
			DestinationAccountID: &destID,
			AmountCents:          2500,
			Type:                 transfer.TypeAtTime,
			// Missing schedule date
		})
		assert.Nil(t, tr)
		var validationErr transfer.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		transferRepo.AssertNotCalled(t, "Create")
	})
}

func TestScheduler_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels a pending transfer and its job", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		queue := new(MockQueue)
		s := NewScheduler(newTestLogger(), transferRepo, queue)

		tr := pendingTransfer(transfer.TypeAtTime)
		jobID := uuid.New()
		tr.JobID = &jobID

		transferRepo.On("GetByID", ctx, tr.ID).Return(tr, nil).Once()
		transferRepo.On("UpdateStatusFrom", ctx, tr.ID, transfer.StatusPending, transfer.StatusDeleted).Return(true, nil).Once()
		queue.On("Cancel", ctx, jobID).Return(true, nil).Once()

		err := s.Cancel(ctx, tr.ID)
		assert.NoError(t, err)
		transferRepo.AssertExpectations(t)
		queue.AssertExpectations(t)
	})

	t.Run("job already running still cancels the row", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		queue := new(MockQueue)
		s := NewScheduler(newTestLogger(), transferRepo, queue)

		tr := pendingTransfer(transfer.TypeAtTime)
		jobID := uuid.New()
		tr.JobID = &jobID

		transferRepo.On("GetByID", ctx, tr.ID).Return(tr, nil).Once()
		transferRepo.On("UpdateStatusFrom", ctx, tr.ID, transfer.StatusPending, transfer.StatusDeleted).Return(true, nil).Once()
		queue.On("Cancel", ctx, jobID).Return(false, nil).Once()

		err := s.Cancel(ctx, tr.ID)
		assert.NoError(t, err)
	})

	t.Run("cancels a transfer stuck in submitted", func(t *testing.T) {
		// Enqueue failed during activation, leaving the row submitted with
		// no job attached; it must still be cancellable.
		transferRepo := new(MockTransferRepository)
		s := NewScheduler(newTestLogger(), transferRepo, new(MockQueue))

		tr := pendingTransfer(transfer.TypeAtTime)
		tr.Status = transfer.StatusSubmitted
		tr.JobID = nil

		transferRepo.On("GetByID", ctx, tr.ID).Return(tr, nil).Once()
		transferRepo.On("UpdateStatusFrom", ctx, tr.ID, transfer.StatusPending, transfer.StatusDeleted).Return(false, nil).Once()
		transferRepo.On("UpdateStatusFrom", ctx, tr.ID, transfer.StatusSubmitted, transfer.StatusDeleted).Return(true, nil).Once()

		err := s.Cancel(ctx, tr.ID)
		assert.NoError(t, err)
		transferRepo.AssertExpectations(t)
	})

	t.Run("lost race reports the current status", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		s := NewScheduler(newTestLogger(), transferRepo, new(MockQueue))

		tr := pendingTransfer(transfer.TypeAtTime)
		completed := *tr
		completed.Status = transfer.StatusCompleted

		transferRepo.On("GetByID", ctx, tr.ID).Return(tr, nil).Once()
		transferRepo.On("UpdateStatusFrom", ctx, tr.ID, transfer.StatusPending, transfer.StatusDeleted).Return(false, nil).Once()
		transferRepo.On("UpdateStatusFrom", ctx, tr.ID, transfer.StatusSubmitted, transfer.StatusDeleted).Return(false, nil).Once()
		transferRepo.On("GetByID", ctx, tr.ID).Return(&completed, nil).Once()

		err := s.Cancel(ctx, tr.ID)
		var notCancellableErr ErrTransferNotCancellable
		require.ErrorAs(t, err, &notCancellableErr)
		assert.Equal(t, tr.ID, notCancellableErr.TransferID)
		assert.Equal(t, transfer.StatusCompleted, notCancellableErr.Status)
	})

	t.Run("unknown transfer", func(t *testing.T) {
		transferRepo := new(MockTransferRepository)
		s := NewScheduler(newTestLogger(), transferRepo, new(MockQueue))

		transferID := uuid.New()
		transferRepo.On("GetByID", ctx, transferID).Return(nil, transfer.ErrTransferNotFound{TransferID: transferID}).Once()

		err := s.Cancel(ctx, transferID)
		assert.ErrorIs(t, err, transfer.ErrTransferNotFound{})
	})
}

func TestScheduler_ListByUser(t *testing.T) {
	ctx := context.Background()
	transferRepo := new(MockTransferRepository)
	s := NewScheduler(newTestLogger(), transferRepo, new(MockQueue))

	userID := uuid.New()
	expected := []*transfer.ScheduledTransfer{pendingTransfer(transfer.TypeAtTime)}
	transferRepo.On("ListByUserID", ctx, userID).Return(expected, nil).Once()

	transfers, err := s.ListByUser(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, expected, transfers)
}

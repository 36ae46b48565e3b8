package jobqueue

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/banking-transfer-engine/internal/config"
	"github.com/banking-transfer-engine/internal/domain/job"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJobRepository is a mock implementation of job.Repository
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Create(ctx context.Context, j *job.Job) error {
	args := m.Called(ctx, j)
	return args.Error(0)
}

func (m *MockJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*job.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Job), args.Error(1)
}

func (m *MockJobRepository) LeaseDue(ctx context.Context, now time.Time, limit int) ([]*job.Job, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*job.Job), args.Error(1)
}

func (m *MockJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockJobRepository) Reschedule(ctx context.Context, id uuid.UUID, attempts int, runAt time.Time, lastError string) error {
	args := m.Called(ctx, id, attempts, runAt, lastError)
	return args.Error(0)
}

func (m *MockJobRepository) MarkDeadLettered(ctx context.Context, id uuid.UUID, reason job.DeadLetterReason, lastError string) error {
	args := m.Called(ctx, id, reason, lastError)
	return args.Error(0)
}

func (m *MockJobRepository) RequeueExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJobRepository) CancelQueued(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockJobRepository) WithTx(tx pgx.Tx) job.Repository {
	args := m.Called(tx)
	return args.Get(0).(job.Repository)
}

// MockResultRepository is a mock implementation of job.ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Save(ctx context.Context, r *job.Result) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockResultRepository) GetByJobID(ctx context.Context, jobID uuid.UUID) (*job.Result, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Result), args.Error(1)
}

func (m *MockResultRepository) WithTx(tx pgx.Tx) job.ResultRepository {
	args := m.Called(tx)
	return args.Get(0).(job.ResultRepository)
}

// MockDeadLetterPublisher is a mock implementation of producers.DeadLetterPublisher
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishDeadLetter(ctx context.Context, key string, originalPayload []byte, reason string) error {
	args := m.Called(ctx, key, originalPayload, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		PollInterval:       10 * time.Millisecond,
		BatchSize:          5,
		ResultPollInterval: 5 * time.Millisecond,
		WaitTimeout:        50 * time.Millisecond,
		RetryLimit:         3,
		RetryDelay:         time.Minute,
		RetryBackoff:       true,
		ExpireAfter:        5 * time.Minute,
		DeadLetterTopic:    "failed-transfers",
	}
}

func newQueueTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func TestPostgresQueue_Enqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("applies configured defaults", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, resultRepo)

		jobRepo.On("Create", ctx, mock.MatchedBy(func(j *job.Job) bool {
			return j.Topic == "scheduled-transfer" &&
				j.Status == job.StatusQueued &&
				j.MaxAttempts == 3 &&
				j.RetryDelay == time.Minute &&
				j.RetryBackoff &&
				j.ExpiresAt != nil &&
				j.ExpiresAt.Equal(j.RunAt.Add(5*time.Minute)) &&
				j.DeadLetterTopic != nil && *j.DeadLetterTopic == "failed-transfers"
		})).Return(nil).Once()

		jobID, err := q.Enqueue(ctx, "scheduled-transfer", map[string]string{"k": "v"}, Options{})
		assert.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, jobID)
		jobRepo.AssertExpectations(t)
	})

	t.Run("honors overrides", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, resultRepo)

		runAt := time.Now().Add(time.Hour)
		noDeadLetter := ""
		jobRepo.On("Create", ctx, mock.MatchedBy(func(j *job.Job) bool {
			return j.RunAt.Equal(runAt) &&
				j.MaxAttempts == 1 &&
				j.RetryDelay == 10*time.Second &&
				!j.RetryBackoff &&
				j.DeadLetterTopic == nil
		})).Return(nil).Once()

		_, err := q.Enqueue(ctx, "scheduled-transfer", map[string]string{"k": "v"}, Options{
			RunAt:           runAt,
			RetryPolicy:     &job.RetryPolicy{MaxAttempts: 1, BaseDelay: 10 * time.Second, Backoff: false},
			DeadLetterTopic: &noDeadLetter,
		})
		assert.NoError(t, err)
		jobRepo.AssertExpectations(t)
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, resultRepo)

		_, err := q.Enqueue(ctx, "scheduled-transfer", make(chan int), Options{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to marshal job payload")
		jobRepo.AssertNotCalled(t, "Create")
	})

	t.Run("store error", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, resultRepo)

		storeErr := errors.New("insert failed")
		jobRepo.On("Create", ctx, mock.AnythingOfType("*job.Job")).Return(storeErr).Once()

		jobID, err := q.Enqueue(ctx, "scheduled-transfer", map[string]string{"k": "v"}, Options{})
		assert.ErrorIs(t, err, storeErr)
		assert.Equal(t, uuid.Nil, jobID)
		jobRepo.AssertExpectations(t)
	})
}

func TestPostgresQueue_Cancel(t *testing.T) {
	ctx := context.Background()
	jobID := uuid.New()

	t.Run("cancelled", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, new(MockResultRepository))

		jobRepo.On("CancelQueued", ctx, jobID).Return(true, nil).Once()

		cancelled, err := q.Cancel(ctx, jobID)
		assert.NoError(t, err)
		assert.True(t, cancelled)
		jobRepo.AssertExpectations(t)
	})

	t.Run("already running", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, new(MockResultRepository))

		jobRepo.On("CancelQueued", ctx, jobID).Return(false, nil).Once()

		cancelled, err := q.Cancel(ctx, jobID)
		assert.NoError(t, err)
		assert.False(t, cancelled)
		jobRepo.AssertExpectations(t)
	})

	t.Run("store error", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, new(MockResultRepository))

		storeErr := errors.New("cancel failed")
		jobRepo.On("CancelQueued", ctx, jobID).Return(false, storeErr).Once()

		cancelled, err := q.Cancel(ctx, jobID)
		assert.ErrorIs(t, err, storeErr)
		assert.False(t, cancelled)
		jobRepo.AssertExpectations(t)
	})
}

func TestPostgresQueue_WaitForResult(t *testing.T) {
	ctx := context.Background()
	jobID := uuid.New()

	t.Run("result already recorded", func(t *testing.T) {
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), new(MockJobRepository), resultRepo)

		resultRepo.On("GetByJobID", ctx, jobID).
			Return(&job.Result{ID: uuid.New(), JobID: jobID, Response: []byte(`{"success":true}`)}, nil).Once()

		response, err := q.WaitForResult(ctx, jobID, 0)
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true}`, string(response))
		resultRepo.AssertExpectations(t)
	})

	t.Run("result appears after polling", func(t *testing.T) {
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), new(MockJobRepository), resultRepo)

		resultRepo.On("GetByJobID", ctx, jobID).Return(nil, nil).Once()
		resultRepo.On("GetByJobID", ctx, jobID).
			Return(&job.Result{ID: uuid.New(), JobID: jobID, Response: []byte(`{"success":true}`)}, nil).Once()

		response, err := q.WaitForResult(ctx, jobID, 0)
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true}`, string(response))
		resultRepo.AssertExpectations(t)
	})

	t.Run("timeout", func(t *testing.T) {
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), new(MockJobRepository), resultRepo)

		resultRepo.On("GetByJobID", ctx, jobID).Return(nil, nil)

		response, err := q.WaitForResult(ctx, jobID, 20*time.Millisecond)
		assert.ErrorIs(t, err, ErrWaitTimeout)
		assert.Nil(t, response)
	})

	t.Run("store error", func(t *testing.T) {
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), new(MockJobRepository), resultRepo)

		storeErr := errors.New("lookup failed")
		resultRepo.On("GetByJobID", ctx, jobID).Return(nil, storeErr).Once()

		response, err := q.WaitForResult(ctx, jobID, 0)
		assert.ErrorIs(t, err, storeErr)
		assert.Nil(t, response)
		resultRepo.AssertExpectations(t)
	})
}

func TestPostgresQueue_TriggerAndWait(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, resultRepo)

		jobRepo.On("Create", ctx, mock.AnythingOfType("*job.Job")).Return(nil).Once()
		resultRepo.On("GetByJobID", ctx, mock.AnythingOfType("uuid.UUID")).
			Return(&job.Result{ID: uuid.New(), Response: []byte(`{"success":true}`)}, nil).Once()

		response, err := q.TriggerAndWait(ctx, "transfer-money", map[string]string{"k": "v"}, Options{})
		require.NoError(t, err)
		assert.JSONEq(t, `{"success":true}`, string(response))
		jobRepo.AssertExpectations(t)
		resultRepo.AssertExpectations(t)
	})

	t.Run("enqueue failure short-circuits", func(t *testing.T) {
		jobRepo := new(MockJobRepository)
		resultRepo := new(MockResultRepository)
		q := NewPostgresQueue(newQueueTestLogger(), testQueueConfig(), jobRepo, resultRepo)

		storeErr := errors.New("insert failed")
		jobRepo.On("Create", ctx, mock.AnythingOfType("*job.Job")).Return(storeErr).Once()

		response, err := q.TriggerAndWait(ctx, "transfer-money", map[string]string{"k": "v"}, Options{})
		assert.ErrorIs(t, err, storeErr)
		assert.Nil(t, response)
		resultRepo.AssertNotCalled(t, "GetByJobID")
	})
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	t.Run("resolve registered handler", func(t *testing.T) {
		registry.Register("scheduled-transfer", func(ctx context.Context, j *job.Job) (any, error) {
			return "ok", nil
		})

		h, err := registry.Resolve("scheduled-transfer")
		require.NoError(t, err)
		result, err := h(context.Background(), &job.Job{})
		assert.NoError(t, err)
		assert.Equal(t, "ok", result)
	})

	t.Run("unknown topic", func(t *testing.T) {
		h, err := registry.Resolve("no-such-topic")
		assert.Error(t, err)
		assert.Nil(t, h)
	})
}

package publisher

import (
	"context"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/charterdesk/recon-engine/internal/config"
	"github.com/charterdesk/recon-engine/internal/domain/outbox"
	"github.com/charterdesk/recon-engine/internal/domain/shared"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockProducer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func pendingMessage(t *testing.T, id int64, attempts int) *outbox.Message {
	t.Helper()
	msg, err := outbox.NewMessage(&outbox.LinkEvent{
		RunID:      uuid.New(),
		Strategy:   shared.StrategyExactKey,
		Confidence: shared.ConfidenceHigh,
		CharterRef: "R100",
		Amount:     "250",
		AppliedAt:  time.Now(),
	})
	require.NoError(t, err)
	msg.ID = id
	msg.Attempts = attempts
	return msg
}

func newTestDrainer(t *testing.T, outboxRepo outbox.Repository, producer *MockProducer) *Drainer {
	t.Helper()
	cfg := &config.OutboxConfig{BatchSize: 10, MaxRetryAttempts: 3}
	d, err := NewDrainer(cfg, 4, outboxRepo, producer, slog.Default())
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func TestDrainer_Drain(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes and marks processed", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockProducer{}
		drainer := newTestDrainer(t, outboxRepo, producer)

		msg1 := pendingMessage(t, 1, 0)
		msg2 := pendingMessage(t, 2, 0)

		outboxRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg1, msg2}, nil).Once()
		outboxRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{}, nil).Once()
		producer.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)
		outboxRepo.On("UpdateStatus", ctx, int64(1), shared.OutboxStatusProcessed).Return(nil)
		outboxRepo.On("UpdateStatus", ctx, int64(2), shared.OutboxStatusProcessed).Return(nil)

		published, failed, err := drainer.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, published)
		assert.Equal(t, 0, failed)
		assert.Equal(t, shared.OutboxStatusProcessed, msg1.Status)
		assert.Equal(t, shared.OutboxStatusProcessed, msg2.Status)
		assert.NotNil(t, msg1.LastAttemptAt)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("empty outbox is a no-op", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockProducer{}
		drainer := newTestDrainer(t, outboxRepo, producer)

		outboxRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{}, nil).Once()

		published, failed, err := drainer.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)
		assert.Equal(t, 0, failed)
		producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish failure increments attempts and stops the pass", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockProducer{}
		drainer := newTestDrainer(t, outboxRepo, producer)

		msg := pendingMessage(t, 7, 0)

		outboxRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		producer.On("Publish", ctx, mock.Anything, mock.Anything).Return(assert.AnError)
		outboxRepo.On("IncrementAttempts", ctx, int64(7)).Return(nil)

		published, failed, err := drainer.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)
		assert.Equal(t, 1, failed)
		assert.Equal(t, 1, msg.Attempts)
		assert.Equal(t, shared.OutboxStatusPending, msg.Status)
		outboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("max attempts marks failed to publish", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockProducer{}
		drainer := newTestDrainer(t, outboxRepo, producer)

		msg := pendingMessage(t, 8, 2) // third attempt hits the limit

		outboxRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		producer.On("Publish", ctx, mock.Anything, mock.Anything).Return(assert.AnError)
		outboxRepo.On("IncrementAttempts", ctx, int64(8)).Return(nil)
		outboxRepo.On("UpdateStatus", ctx, int64(8), shared.OutboxStatusFailedToPublish).Return(nil)

		published, failed, err := drainer.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)
		assert.Equal(t, 1, failed)
		assert.Equal(t, 3, msg.Attempts)
		assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
		outboxRepo.AssertExpectations(t)
	})

	t.Run("undecodable payload marked failed", func(t *testing.T) {
		outboxRepo := &MockOutboxRepo{}
		producer := &MockProducer{}
		drainer := newTestDrainer(t, outboxRepo, producer)

		msg := pendingMessage(t, 9, 0)
		msg.Payload = []byte("not json")

		outboxRepo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil).Once()
		outboxRepo.On("UpdateStatus", ctx, int64(9), shared.OutboxStatusFailedToPublish).Return(nil)

		published, failed, err := drainer.Drain(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, published)
		assert.Equal(t, 1, failed)
		assert.Equal(t, shared.OutboxStatusFailedToPublish, msg.Status)
		producer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})
}

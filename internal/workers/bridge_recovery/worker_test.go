package bridge_recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListStalled(ctx context.Context, before time.Time, limit int) ([]*entities.BridgeSaga, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BridgeSaga), args.Error(1)
}

func (m *MockStore) MarkStalled(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type runningSet map[string]bool

func (r runningSet) IsRunning(id string) bool { return r[id] }

type recordingAlerter struct {
	alerted []string
	err     error
}

func (a *recordingAlerter) SagaStalled(_ context.Context, saga *entities.BridgeSaga) error {
	a.alerted = append(a.alerted, saga.ID)
	return a.err
}

func TestSweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := new(MockStore)
	alerter := &recordingAlerter{err: errors.New("smtp down")}

	store.On("ListStalled", mock.Anything, now.Add(-30*time.Minute), 100).Return([]*entities.BridgeSaga{
		{ID: "live", Stage: entities.StageBurned},
		{ID: "stale", Stage: entities.StageAttested, BurnTxHash: "0xburn"},
		{ID: "raced", Stage: entities.StageBurned},
		{ID: "broken", Stage: entities.StageMinted},
	}, nil)
	store.On("MarkStalled", mock.Anything, "stale").Return(true, nil)
	store.On("MarkStalled", mock.Anything, "raced").Return(false, nil)
	store.On("MarkStalled", mock.Anything, "broken").Return(false, errors.New("db gone"))

	w := NewWorker(store, runningSet{"live": true}, alerter, Config{}, zap.NewNop())
	w.now = func() time.Time { return now }

	flagged, err := w.Sweep(context.Background())

	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, "stale", flagged[0].ID)
	assert.True(t, flagged[0].Stalled)
	assert.Equal(t, []string{"stale"}, alerter.alerted)
	store.AssertNotCalled(t, "MarkStalled", mock.Anything, "live")
	store.AssertExpectations(t)
}

func TestSweep_ListError(t *testing.T) {
	store := new(MockStore)
	store.On("ListStalled", mock.Anything, mock.Anything, 10).Return(nil, errors.New("timeout"))

	w := NewWorker(store, nil, nil, Config{Limit: 10, StaleAfter: time.Minute}, zap.NewNop())
	_, err := w.Sweep(context.Background())

	assert.Error(t, err)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	w := NewWorker(new(MockStore), nil, nil, Config{Schedule: "every now and then"}, zap.NewNop())
	assert.Error(t, w.Start())
}

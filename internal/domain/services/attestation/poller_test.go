package attestation

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
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
	"github.com/rail-service/hub_bridge/internal/infrastructure/adapters/cctp"
	"github.com/rail-service/hub_bridge/pkg/retry"
)

type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) GetMessages(ctx context.Context, sourceDomain uint32, txHash string) (*cctp.AttestationResponse, error) {
	args := m.Called(ctx, sourceDomain, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cctp.AttestationResponse), args.Error(1)
}

type countingSleeper struct {
	calls int
	total time.Duration
}

func (s *countingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.calls++
	s.total += d
	return nil
}

func pending() *cctp.AttestationResponse {
	return &cctp.AttestationResponse{Messages: []cctp.CCTPMessage{{Status: "pending_confirmations", Attestation: "PENDING"}}}
}

func complete() *cctp.AttestationResponse {
	return &cctp.AttestationResponse{Messages: []cctp.CCTPMessage{{Status: "complete", Attestation: "0xatt", Message: "0xmsg"}}}
}

func receipt(domain uint32) entities.BurnReceipt {
	return entities.BurnReceipt{SourceDomain: domain, TxHash: "0xburn"}
}

func TestAwaitAttestation(t *testing.T) {
	ctx := context.Background()

	t.Run("always pending stops after the attempt budget", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("GetMessages", mock.Anything, uint32(26), "0xburn").Return(pending(), nil)
		sleeper := &countingSleeper{}

		poller := NewPoller(oracle, DefaultConfig(), zap.NewNop()).WithSleeper(sleeper.Sleep)
		att, err := poller.AwaitAttestation(ctx, receipt(26))

		require.Error(t, err)
		assert.Nil(t, att)
		assert.ErrorIs(t, err, domainerrors.ErrAttestationTimeout)
		assert.ErrorIs(t, err, retry.ErrPollExhausted)
		oracle.AssertNumberOfCalls(t, "GetMessages", 60)
		assert.Equal(t, 59, sleeper.calls)
		assert.Equal(t, 59*15*time.Second, sleeper.total)
	})

	t.Run("not found and errors are retried", func(t *testing.T) {
		oracle := new(MockOracle)
		oracle.On("GetMessages", mock.Anything, uint32(6), "0xburn").Return(nil, cctp.ErrNoMessages).Once()
		oracle.On("GetMessages", mock.Anything, uint32(6), "0xburn").Return(nil, errors.New("connection refused")).Once()
		oracle.On("GetMessages", mock.Anything, uint32(6), "0xburn").Return(pending(), nil).Once()
		oracle.On("GetMessages", mock.Anything, uint32(6), "0xburn").Return(complete(), nil).Once()

		poller := NewPoller(oracle, Config{MaxAttempts: 10, PollInterval: time.Second}, zap.NewNop()).
			WithSleeper((&countingSleeper{}).Sleep)
		att, err := poller.AwaitAttestation(ctx, receipt(6))

		require.NoError(t, err)
		assert.True(t, att.IsComplete())
		assert.Equal(t, "0xmsg", att.Message)
		assert.Equal(t, "0xatt", att.Attestation)
		oracle.AssertNumberOfCalls(t, "GetMessages", 4)
	})

	t.Run("cancelled context is a timeout", func(t *testing.T) {
		oracle := new(MockOracle)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		poller := NewPoller(oracle, DefaultConfig(), zap.NewNop())
		_, err := poller.AwaitAttestation(cctx, receipt(0))

		assert.ErrorIs(t, err, domainerrors.ErrAttestationTimeout)
		assert.ErrorIs(t, err, context.Canceled)
		oracle.AssertNotCalled(t, "GetMessages", mock.Anything, mock.Anything, mock.Anything)
	})
}

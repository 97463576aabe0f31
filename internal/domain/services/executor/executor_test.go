package executor

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
	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
)

type MockCustodyClient struct {
	mock.Mock
}

func (m *MockCustodyClient) CreateContractExecutionTransaction(ctx context.Context, req entities.CircleContractExecutionRequest) (*entities.CircleTransactionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CircleTransactionResponse), args.Error(1)
}

func (m *MockCustodyClient) CreateTransferTransaction(ctx context.Context, req entities.CircleTransferRequest) (*entities.CircleTransactionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CircleTransactionResponse), args.Error(1)
}

func (m *MockCustodyClient) GetTransaction(ctx context.Context, transactionID string) (*entities.CircleTransactionResponse, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CircleTransactionResponse), args.Error(1)
}

func txResp(id, state, hash string) *entities.CircleTransactionResponse {
	return &entities.CircleTransactionResponse{Transaction: entities.CircleTransactionData{ID: id, State: state, TxHash: hash}}
}

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestExecutor(custody CustodyClient, sleeper *recordingSleeper) *Executor {
	return NewExecutor(custody, chains.NewDefaultRegistry(), DefaultConfig(), zap.NewNop()).WithSleeper(sleeper.Sleep)
}

func approveCall() ContractCall {
	return ContractCall{
		WalletID:          "w-arc",
		ChainKey:          chains.ArcTestnet,
		ContractAddress:   "0x3600000000000000000000000000000000000000",
		FunctionSignature: "approve(address,uint256)",
		Parameters:        []interface{}{chains.TokenMessengerV2, "1500000"},
	}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves hash after polling", func(t *testing.T) {
		custody := new(MockCustodyClient)
		custody.On("CreateContractExecutionTransaction", ctx, mock.MatchedBy(func(req entities.CircleContractExecutionRequest) bool {
			return req.WalletID == "w-arc" && req.AbiFunctionSignature == "approve(address,uint256)" &&
				req.IdempotencyKey != "" && req.FeeLevel == "MEDIUM"
		})).Return(txResp("tx-1", entities.CircleTxStateInitiated, ""), nil)
		custody.On("GetTransaction", mock.Anything, "tx-1").Return(txResp("tx-1", entities.CircleTxStateQueued, ""), nil).Twice()
		custody.On("GetTransaction", mock.Anything, "tx-1").Return(txResp("tx-1", entities.CircleTxStateSent, "0xabc"), nil).Once()

		sleeper := &recordingSleeper{}
		result, err := newTestExecutor(custody, sleeper).Execute(ctx, approveCall())

		require.NoError(t, err)
		assert.Equal(t, "0xabc", result.TxHash)
		assert.Equal(t, "tx-1", result.CustodyTxID)
		assert.Equal(t, 3, result.Attempts)
		assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeper.delays)
	})

	t.Run("times out after the attempt bound", func(t *testing.T) {
		custody := new(MockCustodyClient)
		custody.On("CreateContractExecutionTransaction", ctx, mock.Anything).Return(txResp("tx-2", entities.CircleTxStateInitiated, ""), nil)
		custody.On("GetTransaction", mock.Anything, "tx-2").Return(nil, errors.New("flaky"))

		sleeper := &recordingSleeper{}
		result, err := newTestExecutor(custody, sleeper).Execute(ctx, approveCall())

		assert.ErrorIs(t, err, domainerrors.ErrExecutionTimeout)
		assert.Equal(t, "tx-2", result.CustodyTxID)
		custody.AssertNumberOfCalls(t, "GetTransaction", 15)
		assert.Len(t, sleeper.delays, 14)
	})

	t.Run("terminal state stops polling", func(t *testing.T) {
		custody := new(MockCustodyClient)
		custody.On("CreateContractExecutionTransaction", ctx, mock.Anything).Return(txResp("tx-3", entities.CircleTxStateInitiated, ""), nil)
		failed := txResp("tx-3", entities.CircleTxStateFailed, "")
		failed.Transaction.ErrorReason = "INSUFFICIENT_NATIVE_TOKEN"
		custody.On("GetTransaction", mock.Anything, "tx-3").Return(failed, nil)

		_, err := newTestExecutor(custody, &recordingSleeper{}).Execute(ctx, approveCall())

		assert.ErrorIs(t, err, domainerrors.ErrExecutionRejected)
		assert.Equal(t, "INSUFFICIENT_NATIVE_TOKEN", domainerrors.GetErrorDetails(err)["reason"])
		custody.AssertNumberOfCalls(t, "GetTransaction", 1)
	})

	t.Run("submission error is returned", func(t *testing.T) {
		custody := new(MockCustodyClient)
		boom := errors.New("custody unavailable")
		custody.On("CreateContractExecutionTransaction", ctx, mock.Anything).Return(nil, boom)

		_, err := newTestExecutor(custody, &recordingSleeper{}).Execute(ctx, approveCall())

		assert.ErrorIs(t, err, boom)
		custody.AssertNotCalled(t, "GetTransaction", mock.Anything, mock.Anything)
	})

	t.Run("every call gets a fresh idempotency key", func(t *testing.T) {
		custody := new(MockCustodyClient)
		var keys []string
		custody.On("CreateContractExecutionTransaction", ctx, mock.Anything).Run(func(args mock.Arguments) {
			keys = append(keys, args.Get(1).(entities.CircleContractExecutionRequest).IdempotencyKey)
		}).Return(txResp("tx-4", entities.CircleTxStateSent, "0xdef"), nil)

		exec := newTestExecutor(custody, &recordingSleeper{})
		_, err := exec.Execute(ctx, approveCall())
		require.NoError(t, err)
		_, err = exec.Execute(ctx, approveCall())
		require.NoError(t, err)

		require.Len(t, keys, 2)
		assert.NotEqual(t, keys[0], keys[1])
	})

	t.Run("unknown chain is rejected before submission", func(t *testing.T) {
		custody := new(MockCustodyClient)
		call := approveCall()
		call.ChainKey = "solana"

		_, err := newTestExecutor(custody, &recordingSleeper{}).Execute(ctx, call)

		assert.ErrorIs(t, err, domainerrors.ErrChainResolution)
		custody.AssertExpectations(t)
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	custody := new(MockCustodyClient)
	custody.On("CreateTransferTransaction", ctx, mock.MatchedBy(func(req entities.CircleTransferRequest) bool {
		return req.Blockchain == "BASE-SEPOLIA" &&
			req.TokenAddress == "0x036CbD53842c5426634e7929541eC2318f3dCF7e" &&
			len(req.Amounts) == 1 && req.Amounts[0] == "1.5"
	})).Return(txResp("tx-5", entities.CircleTxStateInitiated, ""), nil)
	custody.On("GetTransaction", mock.Anything, "tx-5").Return(txResp("tx-5", entities.CircleTxStateComplete, "0x999"), nil)

	result, err := newTestExecutor(custody, &recordingSleeper{}).Transfer(ctx, TransferCall{
		WalletID:           "w-base",
		ChainKey:           chains.BaseSepolia,
		DestinationAddress: "0x2222222222222222222222222222222222222222",
		Amount:             "1.5",
	})

	require.NoError(t, err)
	assert.Equal(t, "0x999", result.TxHash)
	custody.AssertExpectations(t)
}

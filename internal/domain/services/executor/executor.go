package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
	"github.com/rail-service/hub_bridge/pkg/metrics"
	"github.com/rail-service/hub_bridge/pkg/retry"
)

// CustodyClient is the subset of the custody API the executor submits through.
type CustodyClient interface {
	CreateContractExecutionTransaction(ctx context.Context, req entities.CircleContractExecutionRequest) (*entities.CircleTransactionResponse, error)
	CreateTransferTransaction(ctx context.Context, req entities.CircleTransferRequest) (*entities.CircleTransactionResponse, error)
	GetTransaction(ctx context.Context, transactionID string) (*entities.CircleTransactionResponse, error)
}

// Config captures runtime configuration for the executor
type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
	FeeLevel     string
}

// DefaultConfig polls 15 times at 2 second spacing.
func DefaultConfig() Config {
	return Config{
		PollInterval: 2 * time.Second,
		MaxAttempts:  15,
		FeeLevel:     "MEDIUM",
	}
}

// ContractCall is one ABI call signed by a custodial wallet.
type ContractCall struct {
	WalletID          string
	ChainKey          string
	ContractAddress   string
	FunctionSignature string
	Parameters        []interface{}
	RefID             string
}

// TransferCall moves tokens out of a custodial wallet. Amount is a human decimal string.
type TransferCall struct {
	WalletID           string
	ChainKey           string
	TokenAddress       string
	DestinationAddress string
	Amount             string
	RefID              string
}

// Result identifies a submitted call on both sides.
type Result struct {
	CustodyTxID string
	TxHash      string
	Attempts    int
}

// Executor submits calls through the custody service and resolves them to on-chain hashes.
type Executor struct {
	custody  CustodyClient
	registry *chains.Registry
	config   Config
	sleep    retry.Sleeper
	newKey   func() string
	logger   *zap.Logger
}

// NewExecutor creates a new contract call executor
func NewExecutor(custody CustodyClient, registry *chains.Registry, config Config, logger *zap.Logger) *Executor {
	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.FeeLevel == "" {
		config.FeeLevel = defaults.FeeLevel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Executor{
		custody:  custody,
		registry: registry,
		config:   config,
		sleep:    retry.ContextSleep,
		newKey:   uuid.NewString,
		logger:   logger,
	}
}

// WithSleeper replaces the wait between hash polls.
func (e *Executor) WithSleeper(s retry.Sleeper) *Executor {
	if s != nil {
		e.sleep = s
	}
	return e
}

// Execute submits an ABI call and waits for its transaction hash.
// Every call carries a fresh idempotency key, so a retried Execute is a new transaction.
func (e *Executor) Execute(ctx context.Context, call ContractCall) (*Result, error) {
	if _, err := e.registry.Get(call.ChainKey); err != nil {
		return nil, err
	}
	if call.WalletID == "" {
		return nil, domainerrors.ValidationError("wallet_id", "wallet id is required")
	}

	e.logger.Info("Submitting contract call",
		zap.String("chain", call.ChainKey),
		zap.String("walletId", call.WalletID),
		zap.String("contract", call.ContractAddress),
		zap.String("function", call.FunctionSignature))

	resp, err := e.custody.CreateContractExecutionTransaction(ctx, entities.CircleContractExecutionRequest{
		IdempotencyKey:       e.newKey(),
		WalletID:             call.WalletID,
		ContractAddress:      call.ContractAddress,
		AbiFunctionSignature: call.FunctionSignature,
		AbiParameters:        call.Parameters,
		FeeLevel:             e.config.FeeLevel,
		RefID:                call.RefID,
	})
	if err != nil {
		metrics.ExecutorCallsTotal.WithLabelValues("contract", "submit_error").Inc()
		return nil, fmt.Errorf("submit %s: %w", call.FunctionSignature, err)
	}

	return e.awaitHash(ctx, "contract", resp)
}

// Transfer submits a token transfer and waits for its transaction hash.
func (e *Executor) Transfer(ctx context.Context, call TransferCall) (*Result, error) {
	chain, err := e.registry.Get(call.ChainKey)
	if err != nil {
		return nil, err
	}
	if call.WalletID == "" {
		return nil, domainerrors.ValidationError("wallet_id", "wallet id is required")
	}

	token := call.TokenAddress
	if token == "" {
		token = chain.TokenAddress
	}

	e.logger.Info("Submitting transfer",
		zap.String("chain", chain.Key),
		zap.String("walletId", call.WalletID),
		zap.String("destination", call.DestinationAddress),
		zap.String("amount", call.Amount))

	resp, err := e.custody.CreateTransferTransaction(ctx, entities.CircleTransferRequest{
		IdempotencyKey:     e.newKey(),
		WalletID:           call.WalletID,
		TokenAddress:       token,
		Blockchain:         chain.CustodyBlockchain,
		DestinationAddress: call.DestinationAddress,
		Amounts:            []string{call.Amount},
		FeeLevel:           e.config.FeeLevel,
		RefID:              call.RefID,
	})
	if err != nil {
		metrics.ExecutorCallsTotal.WithLabelValues("transfer", "submit_error").Inc()
		return nil, fmt.Errorf("submit transfer: %w", err)
	}

	return e.awaitHash(ctx, "transfer", resp)
}

func (e *Executor) awaitHash(ctx context.Context, kind string, created *entities.CircleTransactionResponse) (*Result, error) {
	txID := created.Transaction.ID
	if txID == "" {
		metrics.ExecutorCallsTotal.WithLabelValues(kind, "submit_error").Inc()
		return nil, errors.New("custody service returned no transaction id")
	}

	result := &Result{CustodyTxID: txID}
	if isTxHash(created.Transaction.TxHash) {
		result.TxHash = created.Transaction.TxHash
		metrics.ExecutorCallsTotal.WithLabelValues(kind, "success").Inc()
		return result, nil
	}

	var rejected error
	policy := retry.PollPolicy{MaxAttempts: e.config.MaxAttempts, Interval: e.config.PollInterval}
	attempts, err := retry.Poll(ctx, policy, e.sleep, func(ctx context.Context, attempt int) (bool, error) {
		status, err := e.custody.GetTransaction(ctx, txID)
		if err != nil {
			e.logger.Debug("Transaction status unavailable",
				zap.String("custodyTxId", txID),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return false, nil
		}

		tx := status.Transaction
		if isTxHash(tx.TxHash) {
			result.TxHash = tx.TxHash
			return true, nil
		}
		if entities.IsTerminalFailure(tx.State) {
			rejected = &domainerrors.DomainError{
				Err:     domainerrors.ErrExecutionRejected,
				Code:    "EXECUTION_REJECTED",
				Message: fmt.Sprintf("custody transaction %s is %s", txID, tx.State),
				Details: map[string]interface{}{
					"custody_tx_id": txID,
					"state":         tx.State,
					"reason":        tx.ErrorReason,
				},
			}
			return false, rejected
		}
		return false, nil
	})
	result.Attempts = attempts

	switch {
	case err == nil:
		metrics.ExecutorCallsTotal.WithLabelValues(kind, "success").Inc()
		e.logger.Info("Transaction hash resolved",
			zap.String("custodyTxId", txID),
			zap.String("txHash", result.TxHash),
			zap.Int("attempts", attempts))
		return result, nil
	case rejected != nil:
		metrics.ExecutorCallsTotal.WithLabelValues(kind, "rejected").Inc()
		e.logger.Error("Custody transaction failed", zap.String("custodyTxId", txID), zap.Error(rejected))
		return result, rejected
	default:
		metrics.ExecutorCallsTotal.WithLabelValues(kind, "timeout").Inc()
		e.logger.Warn("Transaction hash not available in time",
			zap.String("custodyTxId", txID),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return result, &domainerrors.DomainError{
			Err:     domainerrors.ErrExecutionTimeout,
			Cause:   err,
			Code:    "EXECUTION_TIMEOUT",
			Message: fmt.Sprintf("transaction %s created but no hash after %s", txID, policy.Total()),
			Details: map[string]interface{}{"custody_tx_id": txID, "attempts": attempts},
		}
	}
}

func isTxHash(s string) bool {
	return strings.HasPrefix(s, "0x") && len(s) > 2
}

package balance

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
	"github.com/rail-service/hub_bridge/pkg/units"
)

// ChainReader is the read-only RPC surface the reader depends on.
type ChainReader interface {
	ERC20Balance(ctx context.Context, chainKey, token, owner string) (*big.Int, error)
	ERC20Allowance(ctx context.Context, chainKey, token, owner, spender string) (*big.Int, error)
	NativeBalance(ctx context.Context, chainKey, address string) (*big.Int, error)
}

// Reader reads token and native balances for registry chains.
// Atomic values come straight from the chain; human strings are derived with the registry's decimals.
type Reader struct {
	rpc      ChainReader
	registry *chains.Registry
	logger   *zap.Logger
}

// NewReader creates a new balance reader
func NewReader(rpc ChainReader, registry *chains.Registry, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{rpc: rpc, registry: registry, logger: logger}
}

// TokenBalance returns the bridged token balance of address in atomic units.
func (r *Reader) TokenBalance(ctx context.Context, chainKey, address string) (*big.Int, error) {
	chain, err := r.registry.Get(chainKey)
	if err != nil {
		return nil, err
	}
	balance, err := r.rpc.ERC20Balance(ctx, chain.Key, chain.TokenAddress, address)
	if err != nil {
		return nil, fmt.Errorf("read token balance on %s: %w", chain.Key, err)
	}
	return balance, nil
}

// Allowance returns how much of owner's token the chain's burn messenger may spend.
func (r *Reader) Allowance(ctx context.Context, chainKey, owner string) (*big.Int, error) {
	chain, err := r.registry.Get(chainKey)
	if err != nil {
		return nil, err
	}
	allowance, err := r.rpc.ERC20Allowance(ctx, chain.Key, chain.TokenAddress, owner, chain.TokenMessenger)
	if err != nil {
		return nil, fmt.Errorf("read allowance on %s: %w", chain.Key, err)
	}
	return allowance, nil
}

// NativeBalance returns the native gas balance in atomic units.
func (r *Reader) NativeBalance(ctx context.Context, chainKey, address string) (*big.Int, error) {
	chain, err := r.registry.Get(chainKey)
	if err != nil {
		return nil, err
	}
	balance, err := r.rpc.NativeBalance(ctx, chain.Key, address)
	if err != nil {
		return nil, fmt.Errorf("read native balance on %s: %w", chain.Key, err)
	}
	return balance, nil
}

// Balances reports token and native balances as human decimal strings.
func (r *Reader) Balances(ctx context.Context, chainKey, address string) (*entities.WalletBalanceResponse, error) {
	chain, err := r.registry.Get(chainKey)
	if err != nil {
		return nil, err
	}

	token, err := r.TokenBalance(ctx, chain.Key, address)
	if err != nil {
		return nil, err
	}
	native, err := r.NativeBalance(ctx, chain.Key, address)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Read wallet balances",
		zap.String("chain", chain.Key),
		zap.String("address", address),
		zap.String("token", token.String()),
		zap.String("native", native.String()))

	return &entities.WalletBalanceResponse{
		Chain:        chain.Key,
		Address:      address,
		Token:        units.FromAtomic(token, chain.TokenDecimals),
		NativeSymbol: chain.NativeSymbol,
		Native:       units.FromAtomic(native, chain.NativeDecimals),
	}, nil
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
)

const walletKeyPrefix = "hub_bridge:wallets:"

// WalletStore keeps a user's custodial wallets in one Redis hash keyed by chain.
// It is a read-through cache only; the custody service stays authoritative.
type WalletStore struct {
	redis  RedisClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewWalletStore creates a new wallet store. A zero ttl keeps entries until evicted.
func NewWalletStore(redis RedisClient, ttl time.Duration, logger *zap.Logger) *WalletStore {
	return &WalletStore{redis: redis, ttl: ttl, logger: logger}
}

func walletKey(userID string) string {
	return walletKeyPrefix + userID
}

// GetWallets returns an empty map on a miss.
func (s *WalletStore) GetWallets(ctx context.Context, userID string) (map[string]entities.CustodialWallet, error) {
	fields, err := s.redis.Client().HGetAll(ctx, walletKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read wallets for %s: %w", userID, err)
	}

	wallets := make(map[string]entities.CustodialWallet, len(fields))
	for chain, raw := range fields {
		var w entities.CustodialWallet
		if err := json.Unmarshal([]byte(raw), &w); err != nil {
			s.logger.Warn("Skipping unreadable stored wallet",
				zap.String("userID", userID),
				zap.String("chain", chain),
				zap.Error(err))
			continue
		}
		wallets[chain] = w
	}
	return wallets, nil
}

// PutWallets writes every wallet in one pipeline.
func (s *WalletStore) PutWallets(ctx context.Context, userID string, wallets []entities.CustodialWallet) error {
	if len(wallets) == 0 {
		return nil
	}

	values := make(map[string]interface{}, len(wallets))
	for _, w := range wallets {
		data, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("marshal wallet: %w", err)
		}
		values[w.ChainKey] = data
	}

	key := walletKey(userID)
	pipe := s.redis.Client().TxPipeline()
	pipe.HSet(ctx, key, values)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store wallets for %s: %w", userID, err)
	}
	return nil
}

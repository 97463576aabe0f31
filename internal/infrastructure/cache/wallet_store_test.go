package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	"github.com/rail-service/hub_bridge/internal/infrastructure/config"
)

func newTestRedis(t *testing.T) (RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(&config.RedisConfig{Host: mr.Host(), Port: port}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRedisClient(t *testing.T) {
	client, mr := newTestRedis(t)

	assert.NoError(t, client.Ping(context.Background()))

	mr.Close()
	assert.Error(t, client.Ping(context.Background()))

	_, err := NewRedisClient(&config.RedisConfig{Host: "127.0.0.1", Port: 1}, zap.NewNop())
	assert.Error(t, err)
}

func TestWalletStore(t *testing.T) {
	client, mr := newTestRedis(t)
	store := NewWalletStore(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	empty, err := store.GetWallets(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, empty)

	wallets := []entities.CustodialWallet{
		{WalletID: "w-arc", Address: "0xabc", AccountType: entities.AccountTypeSCA, ChainKey: "arcTestnet"},
		{WalletID: "w-base", Address: "0xabc", AccountType: entities.AccountTypeSCA, ChainKey: "baseSepolia"},
	}
	require.NoError(t, store.PutWallets(ctx, "user-1", wallets))

	got, err := store.GetWallets(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "w-base", got["baseSepolia"].WalletID)
	assert.Equal(t, entities.AccountTypeSCA, got["arcTestnet"].AccountType)
	assert.Equal(t, time.Hour, mr.TTL(walletKey("user-1")))

	mr.HSet(walletKey("user-1"), "ethereumSepolia", "not json")
	got, err = store.GetWallets(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestUserLocker(t *testing.T) {
	client, _ := newTestRedis(t)
	locker := NewUserLocker(client, time.Second, 10*time.Millisecond, zap.NewNop())

	release, err := locker.Acquire(context.Background(), "user-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = locker.Acquire(ctx, "user-1")
	assert.Error(t, err)

	other, err := locker.Acquire(context.Background(), "user-2")
	require.NoError(t, err)
	other()

	release()
	again, err := locker.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	again()
}

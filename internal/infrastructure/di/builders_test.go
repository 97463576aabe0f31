package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
	"github.com/rail-service/hub_bridge/internal/infrastructure/config"
)

func TestBuildRegistry(t *testing.T) {
	t.Run("lowercased override keys resolve", func(t *testing.T) {
		cfg := &config.Config{
			Bridge: config.BridgeConfig{HubChain: "arcTestnet"},
			Chains: map[string]config.ChainOverrideConfig{
				"basesepolia": {RPCURLs: []string{"https://base.example"}, MinNativeGas: "0.002"},
			},
		}

		registry, err := BuildRegistry(cfg, zap.NewNop())
		require.NoError(t, err)

		base, err := registry.Get(chains.BaseSepolia)
		require.NoError(t, err)
		assert.Equal(t, []string{"https://base.example"}, base.RPCURLs)
		assert.Equal(t, "0.002", base.MinNativeGas)
		assert.Equal(t, chains.ArcTestnet, registry.Hub().Key)

		endpoints := rpcEndpoints(registry)
		assert.Equal(t, []string{"https://base.example"}, endpoints[chains.BaseSepolia])
	})

	t.Run("hub alias", func(t *testing.T) {
		registry, err := BuildRegistry(&config.Config{Bridge: config.BridgeConfig{HubChain: "arc"}}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, chains.ArcTestnet, registry.Hub().Key)
	})

	t.Run("unknown override", func(t *testing.T) {
		cfg := &config.Config{Chains: map[string]config.ChainOverrideConfig{"solana": {}}}
		_, err := BuildRegistry(cfg, zap.NewNop())
		assert.ErrorContains(t, err, "solana")
	})
}

func TestComponentConfigs(t *testing.T) {
	cfg := &config.Config{
		Circle: config.CircleConfig{AccountType: "EOA", SupportedChains: []string{"arc"}, Timeout: 30, FeeLevel: "HIGH"},
		Bridge: config.BridgeConfig{MaxFee: "5", MinFinalityThreshold: 1000},
	}

	assert.Equal(t, "EOA", string(walletConfig(cfg.Circle).AccountType))
	assert.Equal(t, "HIGH", executorConfig(cfg).FeeLevel)
	assert.Equal(t, uint32(1000), bridgeConfig(cfg.Bridge, "arcTestnet").MinFinality)
	assert.Equal(t, "arcTestnet", bridgeConfig(cfg.Bridge, "arcTestnet").HubChain)
	assert.Equal(t, float64(30), circleConfig(cfg.Circle).Timeout.Seconds())
}

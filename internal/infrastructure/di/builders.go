package di

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	"github.com/rail-service/hub_bridge/internal/domain/services/attestation"
	"github.com/rail-service/hub_bridge/internal/domain/services/bridge"
	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
	"github.com/rail-service/hub_bridge/internal/domain/services/executor"
	"github.com/rail-service/hub_bridge/internal/domain/services/wallet"
	"github.com/rail-service/hub_bridge/internal/infrastructure/adapters"
	"github.com/rail-service/hub_bridge/internal/infrastructure/adapters/cctp"
	"github.com/rail-service/hub_bridge/internal/infrastructure/circle"
	"github.com/rail-service/hub_bridge/internal/infrastructure/config"
	"github.com/rail-service/hub_bridge/internal/workers/bridge_recovery"
)

// BuildRegistry applies configured chain overrides on top of the built-in chain table.
// Override keys are matched through the alias table, so "basesepolia" and "base" both hit baseSepolia.
func BuildRegistry(cfg *config.Config, logger *zap.Logger) (*chains.Registry, error) {
	defaults := chains.DefaultChains()
	index := make(map[string]int, len(defaults))
	for i, c := range defaults {
		index[c.Key] = i
	}

	for name, override := range cfg.Chains {
		key, ok := chains.ResolveChainKey(name)
		if !ok {
			return nil, fmt.Errorf("unknown chain %q in chain overrides", name)
		}
		i, ok := index[key]
		if !ok {
			return nil, fmt.Errorf("chain %q has no built-in entry", key)
		}
		applyOverride(&defaults[i], override)
		logger.Debug("Applied chain override", zap.String("chain", key))
	}

	hub := cfg.Bridge.HubChain
	if hub == "" {
		hub = chains.ArcTestnet
	}
	if key, ok := chains.ResolveChainKey(hub); ok {
		hub = key
	}
	return chains.NewRegistry(defaults, hub)
}

func applyOverride(chain *entities.ChainConfig, o config.ChainOverrideConfig) {
	if len(o.RPCURLs) > 0 {
		chain.RPCURLs = append([]string(nil), o.RPCURLs...)
	}
	if o.ExplorerTxURL != "" {
		chain.ExplorerTxURL = o.ExplorerTxURL
	}
	if o.TokenAddress != "" {
		chain.TokenAddress = o.TokenAddress
	}
	if o.MinNativeGas != "" {
		chain.MinNativeGas = o.MinNativeGas
	}
}

// rpcEndpoints extracts chain key -> RPC URLs from the registry.
func rpcEndpoints(registry *chains.Registry) map[string][]string {
	endpoints := make(map[string][]string)
	for _, c := range registry.All() {
		if len(c.RPCURLs) > 0 {
			endpoints[c.Key] = c.RPCURLs
		}
	}
	return endpoints
}

func circleConfig(cfg config.CircleConfig) circle.Config {
	return circle.Config{
		APIKey:                 cfg.APIKey,
		BaseURL:                cfg.BaseURL,
		Environment:            cfg.Environment,
		Timeout:                time.Duration(cfg.Timeout) * time.Second,
		EntitySecret:           cfg.EntitySecret,
		EntitySecretCiphertext: cfg.EntitySecretCiphertext,
		RequestsPerSecond:      cfg.RequestsPerSecond,
	}
}

func cctpConfig(cfg config.CCTPConfig) cctp.Config {
	return cctp.Config{
		BaseURL:     cfg.BaseURL,
		Environment: cfg.Environment,
		Timeout:     time.Duration(cfg.Timeout) * time.Second,
	}
}

func walletConfig(cfg config.CircleConfig) wallet.Config {
	return wallet.Config{
		WalletSetID:     cfg.WalletSetID,
		WalletSetName:   cfg.WalletSetName,
		MetadataName:    cfg.WalletMetadataName,
		AccountType:     entities.AccountType(cfg.AccountType),
		SupportedChains: cfg.SupportedChains,
	}
}

func executorConfig(cfg *config.Config) executor.Config {
	return executor.Config{
		PollInterval: cfg.Bridge.ExecutionPollInterval,
		MaxAttempts:  cfg.Bridge.ExecutionMaxAttempts,
		FeeLevel:     cfg.Circle.FeeLevel,
	}
}

func attestationConfig(cfg config.BridgeConfig) attestation.Config {
	return attestation.Config{
		PollInterval: cfg.AttestationPollInterval,
		MaxAttempts:  cfg.AttestationMaxAttempts,
	}
}

func bridgeConfig(cfg config.BridgeConfig, hub string) bridge.Config {
	return bridge.Config{
		HubChain:          hub,
		DeliveryBackoff:   cfg.DeliveryBackoff,
		MaxFee:            cfg.MaxFee,
		MinFinality:       cfg.MinFinalityThreshold,
		BackgroundTimeout: cfg.BackgroundTimeout,
	}
}

func alertConfig(cfg config.AlertConfig) adapters.AlertServiceConfig {
	return adapters.AlertServiceConfig{
		APIKey:     cfg.SendGridAPIKey,
		FromEmail:  cfg.FromEmail,
		FromName:   cfg.FromName,
		Recipients: cfg.Recipients,
	}
}

func recoveryConfig(cfg config.WorkerConfig) bridge_recovery.Config {
	return bridge_recovery.Config{
		Schedule:   cfg.RecoverySchedule,
		StaleAfter: cfg.StaleAfter,
		Limit:      cfg.SweepLimit,
	}
}

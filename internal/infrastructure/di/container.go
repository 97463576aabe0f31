package di

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rail-service/hub_bridge/internal/api/handlers"
	"github.com/rail-service/hub_bridge/internal/domain/services/attestation"
	"github.com/rail-service/hub_bridge/internal/domain/services/balance"
	"github.com/rail-service/hub_bridge/internal/domain/services/bridge"
	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
	"github.com/rail-service/hub_bridge/internal/domain/services/executor"
	"github.com/rail-service/hub_bridge/internal/domain/services/wallet"
	"github.com/rail-service/hub_bridge/internal/infrastructure/adapters"
	"github.com/rail-service/hub_bridge/internal/infrastructure/adapters/cctp"
	"github.com/rail-service/hub_bridge/internal/infrastructure/cache"
	"github.com/rail-service/hub_bridge/internal/infrastructure/circle"
	"github.com/rail-service/hub_bridge/internal/infrastructure/config"
	"github.com/rail-service/hub_bridge/internal/infrastructure/database"
	"github.com/rail-service/hub_bridge/internal/infrastructure/repositories"
	"github.com/rail-service/hub_bridge/internal/infrastructure/rpc"
	"github.com/rail-service/hub_bridge/internal/workers/bridge_recovery"
	"github.com/rail-service/hub_bridge/pkg/logger"
)

// Container holds every dependency of the bridge process
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Logger *logger.Logger

	Registry     *chains.Registry
	Redis        cache.RedisClient
	CircleClient *circle.Client
	CCTPClient   *cctp.Client
	RPCClient    *rpc.Client

	SagaRepository *repositories.BridgeSagaRepository

	WalletService     *wallet.Service
	BalanceReader     *balance.Reader
	Executor          *executor.Executor
	AttestationPoller *attestation.Poller
	BridgeService     *bridge.Service
	AlertService      *adapters.AlertService
	RecoveryWorker    *bridge_recovery.Worker
}

// NewContainer wires the process from configuration. db may not be nil.
func NewContainer(cfg *config.Config, db *sqlx.DB, log *logger.Logger) (*Container, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	zapLog := log.Zap()

	registry, err := BuildRegistry(cfg, zapLog)
	if err != nil {
		return nil, fmt.Errorf("failed to build chain registry: %w", err)
	}

	c := &Container{
		Config:   cfg,
		DB:       db,
		Logger:   log,
		Registry: registry,
	}

	var (
		store  wallet.Store
		locker wallet.Locker
	)
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cfg.Redis, zapLog)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		c.Redis = redisClient
		store = cache.NewWalletStore(redisClient, cfg.Redis.WalletTTL, zapLog)
		locker = cache.NewUserLocker(redisClient, cfg.Redis.LockTTL, cfg.Redis.LockRetry, zapLog)
	} else {
		log.Info("Redis disabled; wallet lookups stay in process")
	}

	c.CircleClient, err = circle.NewClient(circleConfig(cfg.Circle), zapLog.Named("circle"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize circle client: %w", err)
	}
	c.CCTPClient = cctp.NewClient(cctpConfig(cfg.CCTP), zapLog.Named("cctp"))
	c.RPCClient, err = rpc.NewClient(rpcEndpoints(registry), zapLog.Named("rpc"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rpc client: %w", err)
	}

	c.SagaRepository = repositories.NewBridgeSagaRepository(db)

	c.WalletService = wallet.NewService(c.CircleClient, registry, store, locker, walletConfig(cfg.Circle), zapLog.Named("wallet"))
	c.BalanceReader = balance.NewReader(c.RPCClient, registry, zapLog.Named("balance"))
	c.Executor = executor.NewExecutor(c.CircleClient, registry, executorConfig(cfg), zapLog.Named("executor"))
	c.AttestationPoller = attestation.NewPoller(c.CCTPClient, attestationConfig(cfg.Bridge), zapLog.Named("attestation"))

	c.BridgeService = bridge.NewService(
		c.SagaRepository,
		c.WalletService,
		c.BalanceReader,
		c.Executor,
		c.AttestationPoller,
		registry,
		bridgeConfig(cfg.Bridge, registry.Hub().Key),
		zapLog.Named("bridge"),
	)

	c.AlertService = adapters.NewAlertService(zapLog.Named("alerts"), alertConfig(cfg.Alerts))
	c.RecoveryWorker = bridge_recovery.NewWorker(
		c.SagaRepository,
		c.BridgeService,
		c.AlertService,
		recoveryConfig(cfg.Workers),
		zapLog.Named("bridge_recovery"),
	)

	log.Info("Container initialized",
		"hub_chain", registry.Hub().Key,
		"wallet_chains", c.WalletService.SupportedChains(),
		"redis", cfg.Redis.Enabled,
		"alerts", c.AlertService.Enabled(),
	)
	return c, nil
}

// ReadinessChecks returns the probes behind /ready
func (c *Container) ReadinessChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error {
			return database.HealthCheck(ctx, c.DB)
		},
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Ping
	}
	return checks
}

// Close releases network clients. The database is closed by its owner.
func (c *Container) Close() error {
	if c.RPCClient != nil {
		c.RPCClient.Close()
	}
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}

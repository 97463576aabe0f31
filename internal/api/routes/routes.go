package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rail-service/hub_bridge/docs"
	"github.com/rail-service/hub_bridge/internal/api/handlers"
	"github.com/rail-service/hub_bridge/internal/api/middleware"
	"github.com/rail-service/hub_bridge/internal/infrastructure/di"
	"github.com/rail-service/hub_bridge/pkg/tracing"
)

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Global middleware - order matters
	router.Use(tracing.HTTPMiddleware())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	router.Use(middleware.SecurityHeaders())

	zapLog := container.Logger.Zap()
	coreHandlers := handlers.NewCoreHandlers(container.ReadinessChecks(), zapLog)
	bridgeHandlers := handlers.NewBridgeHandlers(container.BridgeService, zapLog)
	walletHandlers := handlers.NewWalletHandlers(
		container.WalletService,
		container.BalanceReader,
		container.Registry,
		container.WalletService.SupportedChains(),
		zapLog,
	)

	// Health checks (no auth required)
	router.GET("/health", coreHandlers.Health)
	router.GET("/ready", coreHandlers.Ready)
	router.GET("/metrics", handlers.Metrics())
	registerDocs(router, container.Config.IsProduction())

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Authentication(container.Config.JWT.Secret))
	{
		bridges := v1.Group("/bridge")
		{
			bridges.POST("", bridgeHandlers.CreateBridge)
			bridges.GET("", bridgeHandlers.ListBridges)
			bridges.GET("/:id", bridgeHandlers.GetBridge)
			bridges.POST("/:id/resume", bridgeHandlers.ResumeBridge)
		}

		wallets := v1.Group("/wallets")
		{
			wallets.GET("/:chain", walletHandlers.GetWallet)
			wallets.GET("/:chain/balance", walletHandlers.GetBalance)
		}

		v1.GET("/chains", walletHandlers.ListChains)
	}

	return router
}

// registerDocs serves the OpenAPI document and UI outside production.
func registerDocs(router *gin.Engine, production bool) {
	if production {
		return
	}
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

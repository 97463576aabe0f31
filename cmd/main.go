package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rail-service/hub_bridge/internal/api/routes"
	"github.com/rail-service/hub_bridge/internal/infrastructure/config"
	"github.com/rail-service/hub_bridge/internal/infrastructure/database"
	"github.com/rail-service/hub_bridge/internal/infrastructure/di"
	"github.com/rail-service/hub_bridge/pkg/graceful"
	"github.com/rail-service/hub_bridge/pkg/logger"
	"github.com/rail-service/hub_bridge/pkg/tracing"
)

// @title Hub Bridge API
// @version 1.0
// @description Cross-chain USDC bridge through the hub chain with custodial wallets.

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		CollectorURL: cfg.Tracing.CollectorURL,
		Environment:  cfg.Environment,
		SampleRate:   cfg.Tracing.SampleRate,
		Insecure:     !cfg.IsProduction(),
	}
	tracingShutdown, err := tracing.InitTracer(context.Background(), tracingConfig, log.Zap())
	if err != nil {
		log.Fatal("Failed to initialize tracing", "error", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	// Build dependency injection container
	container, err := di.NewContainer(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to create DI container", "error", err)
	}

	router := routes.SetupRoutes(container)

	if err := container.RecoveryWorker.Start(); err != nil {
		log.Fatal("Failed to start bridge recovery worker", "error", err)
	}

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("Starting server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"hub_chain", container.Registry.Hub().Key,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", "error", err)
		}
	}()

	stopStats := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				database.ReportPoolStats(db)
			case <-stopStats:
				return
			}
		}
	}()

	shutdown := graceful.NewShutdownManager(server, 30*time.Second, log)
	shutdown.Register(graceful.ShutdownFunc(func(time.Duration) error {
		container.RecoveryWorker.Stop()
		return nil
	}))
	// Sagas past their burn keep running in the background; give them a chance to persist.
	shutdown.Register(graceful.ShutdownFunc(func(timeout time.Duration) error {
		done := make(chan struct{})
		go func() {
			container.BridgeService.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-time.After(timeout):
			return fmt.Errorf("background sagas still running after %s; resume them with bridgectl", timeout)
		}
	}))
	shutdown.Register(graceful.ShutdownFunc(func(timeout time.Duration) error {
		close(stopStats)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return tracingShutdown(ctx)
	}))
	shutdown.RegisterCloser(container)
	shutdown.RegisterCloser(db)

	shutdown.WaitForShutdown()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/rail-service/hub_bridge/internal/infrastructure/config"
	"github.com/rail-service/hub_bridge/internal/infrastructure/database"
	"github.com/rail-service/hub_bridge/internal/infrastructure/di"
	"github.com/rail-service/hub_bridge/pkg/auth"
	"github.com/rail-service/hub_bridge/pkg/logger"
)

type app struct {
	loadConfig func() (*config.Config, error)
	out        io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bridgectl",
		Short:         "Operate hub bridge sagas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		a.statusCmd(),
		a.resumeCmd(),
		a.sweepCmd(),
		a.migrateCmd(),
		a.tokenCmd(),
	)
	return root
}

// withContainer loads config, connects and builds the container for one command.
func (a *app) withContainer(fn func(ctx context.Context, c *di.Container) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	container, err := di.NewContainer(cfg, db, log)
	if err != nil {
		return err
	}
	defer container.Close()

	return fn(context.Background(), container)
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <saga-id>",
		Short: "Print the stored record of a saga",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(func(ctx context.Context, c *di.Container) error {
				saga, err := c.BridgeService.GetSaga(ctx, args[0])
				if err != nil {
					return err
				}
				return a.printJSON(saga)
			})
		},
	}
}

func (a *app) resumeCmd() *cobra.Command {
	var await bool
	cmd := &cobra.Command{
		Use:   "resume <saga-id>",
		Short: "Continue a saga from its last recorded stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(func(ctx context.Context, c *di.Container) error {
				report, err := c.BridgeService.Resume(ctx, args[0], await)
				if err != nil {
					return err
				}
				if !await {
					// the process exits with the command, so the background half must finish here
					c.BridgeService.Wait()
					saga, err := c.BridgeService.GetSaga(ctx, args[0])
					if err == nil {
						report.Saga = *saga
					}
				}
				fmt.Fprintln(a.out, report.Message())
				if report.Err != nil {
					return report.Err
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&await, "await", true, "run the saga in the foreground")
	return cmd
}

func (a *app) sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one stalled-saga recovery pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withContainer(func(ctx context.Context, c *di.Container) error {
				flagged, err := c.RecoveryWorker.Sweep(ctx)
				if err != nil {
					return err
				}
				for _, saga := range flagged {
					fmt.Fprintf(a.out, "%s\t%s\t%s -> %s\t%s\n", saga.ID, saga.Stage, saga.SourceChain, saga.DestinationChain, saga.Amount)
				}
				fmt.Fprintf(a.out, "%d saga(s) flagged as stalled\n", len(flagged))
				return nil
			})
		},
	}
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "migrations applied")
			return nil
		},
	}
}

func (a *app) tokenCmd() *cobra.Command {
	var (
		role string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWT.AccessTTL) * time.Second
			}
			token, err := auth.GenerateToken(args[0], role, cfg.JWT.Secret, cfg.JWT.Issuer, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "user", "role claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to jwt.access_token_ttl)")
	return cmd
}

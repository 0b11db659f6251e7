package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/Freeeeeet/slotbook/internal/app"
	"github.com/Freeeeeet/slotbook/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:           "slotbook",
		Short:         "Telegram bot for booking provider services",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, source, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			logger = app.NewLogger(cfg.Environment)
			logger.Info(source)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		RunE:  runBot,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}
	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  migrateUp,
	}
	migrateStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print migrations status",
		RunE:  migrateStatus,
	}
)

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd)
	rootCmd.AddCommand(runCmd, migrateCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting slotbook",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage),
		zap.String("timezone", cfg.Timezone),
		zap.Int("token_length", len(cfg.TelegramToken)),
	)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		return err
	}

	logger.Info("👋 Bot stopped")
	return nil
}

func migrateUp(cmd *cobra.Command, args []string) error {
	return withMigrator(cmd.Context(), func(ctx context.Context, mg *app.Migrator) error {
		return mg.Run(ctx)
	})
}

func migrateStatus(cmd *cobra.Command, args []string) error {
	return withMigrator(cmd.Context(), func(ctx context.Context, mg *app.Migrator) error {
		return mg.Status(ctx)
	})
}

func withMigrator(ctx context.Context, fn func(ctx context.Context, mg *app.Migrator) error) error {
	if cfg.Storage != config.StoragePostgres {
		return fmt.Errorf("migrations require STORAGE=%s", config.StoragePostgres)
	}

	pool, err := app.OpenPool(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	mg, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer mg.Close()

	return fn(ctx, mg)
}

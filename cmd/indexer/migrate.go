package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"chocoLedger/internal/config"
	"chocoLedger/internal/storage/postgres"
)

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	down, _ := cmd.Flags().GetBool("down")
	if down {
		logger.Info("rolling back latest migration")
		return postgres.MigrateDown(ctx, cfg.PGDSN)
	}

	logger.Info("applying migrations")
	return postgres.Migrate(ctx, cfg.PGDSN)
}

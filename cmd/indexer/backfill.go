package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"chocoLedger/internal/config"
	"chocoLedger/internal/feed"
	"chocoLedger/internal/indexer"
	"chocoLedger/internal/ledger"
	"chocoLedger/internal/storage"
)

func runBackfill(cmd *cobra.Command, _ []string) error {
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

	if cfg.In == "" {
		return fmt.Errorf("input file is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.PGDSN, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	source, err := feed.NewFileSource(cfg.In)
	if err != nil {
		return err
	}
	defer source.Close()

	led := ledger.New(store, logger)
	runner := indexer.NewRunner(indexer.RunConfig{
		CursorName:        cfg.CursorName,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		ProgressEvery:     1000,
	}, source, indexer.NewProcessor(led, logger), store, storage.NewDecodeErrorSink(cfg.DecodeErrorsOut), logger)

	logger.Info("backfill start", zap.String("in", cfg.In), zap.Bool("postgres", cfg.PGDSN != ""))

	return runner.Run(ctx)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chocoLedger/internal/api"
	"chocoLedger/internal/config"
	"chocoLedger/internal/feed"
	"chocoLedger/internal/indexer"
	"chocoLedger/internal/ledger"
	"chocoLedger/internal/storage"
	"chocoLedger/internal/storage/postgres"
)

// openStore picks Postgres when a DSN is configured and the in-memory store
// otherwise. The memory mode exists for local development and replays.
func openStore(ctx context.Context, dsn string, logger *zap.Logger) (storage.Store, error) {
	if dsn == "" {
		logger.Warn("no pg-dsn configured, state is in-memory only")
		return storage.NewMemoryStore(), nil
	}
	return postgres.NewStore(ctx, dsn)
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	if cfg.WSURL == "" {
		return fmt.Errorf("ws url is required")
	}
	if cfg.Program == "" {
		return fmt.Errorf("program address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.PGDSN, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	source := feed.NewWSSource(feed.WSConfig{
		WSURL:      cfg.WSURL,
		RPCURL:     cfg.RPCURL,
		Program:    cfg.Program,
		Commitment: cfg.Commitment,
	}, logger)
	defer source.Close()

	led := ledger.New(store, logger)
	runner := indexer.NewRunner(indexer.RunConfig{
		CursorName:        cfg.CursorName,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		ProgressEvery:     100,
	}, source, indexer.NewProcessor(led, logger), store, storage.NewDecodeErrorSink(cfg.DecodeErrorsOut), logger)

	server := api.NewServer(api.Config{
		Listen:      cfg.Listen,
		CORSOrigins: cfg.CORSOrigins,
	}, store, runner.Live, logger)

	logger.Info("indexer start",
		zap.String("ws_url", cfg.WSURL),
		zap.String("program", cfg.Program),
		zap.String("commitment", cfg.Commitment),
		zap.String("listen", cfg.Listen),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error { return runner.Run(ctx) })
	group.Go(func() error { return server.Run(ctx) })
	return group.Wait()
}

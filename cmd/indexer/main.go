package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Local .env overrides are optional.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "chocoledger",
		Short:        "Commit-reveal wager game indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Mirror the live event feed and serve the read API",
		RunE:  runServe,
	}

	runCmd.Flags().String("ws-url", "", "websocket RPC URL")
	runCmd.Flags().String("rpc-url", "", "HTTP RPC URL (block time lookups)")
	runCmd.Flags().String("program", "", "program address to follow")
	runCmd.Flags().String("commitment", "finalized", "subscription commitment level")
	runCmd.Flags().String("pg-dsn", "", "Postgres DSN (empty runs in-memory)")
	runCmd.Flags().String("listen", ":8080", "API listen address")
	runCmd.Flags().StringSlice("cors-origins", nil, "allowed CORS origins (comma-separated)")
	runCmd.Flags().String("cursor-name", "main", "cursor row name")
	runCmd.Flags().String("checkpoint", "./data/cursor.json", "cursor checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable cursor checkpointing")
	runCmd.Flags().String("decode-errors-out", "./data/decode_errors.jsonl", "decode errors JSONL")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay a captured log feed through the mirror",
		RunE:  runBackfill,
	}

	backfillCmd.Flags().String("in", "", "input log batches JSONL")
	backfillCmd.Flags().String("pg-dsn", "", "Postgres DSN (empty runs in-memory)")
	backfillCmd.Flags().String("cursor-name", "main", "cursor row name")
	backfillCmd.Flags().String("checkpoint", "./data/cursor.json", "cursor checkpoint file path")
	backfillCmd.Flags().Bool("checkpoint-enabled", true, "enable cursor checkpointing")
	backfillCmd.Flags().String("decode-errors-out", "./data/decode_errors.jsonl", "decode errors JSONL")
	backfillCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	backfillCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	backfillCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(backfillCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database schema migrations",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().Bool("down", false, "roll back the latest migration instead")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"chocoLedger/internal/decode"
	"chocoLedger/internal/feed"
	"chocoLedger/internal/model"
	"chocoLedger/internal/storage"
)

// RunConfig holds runtime settings for the indexing loop.
type RunConfig struct {
	CursorName        string
	MaxRetries        int
	RetryBackoff      time.Duration
	CheckpointPath    string
	CheckpointEnabled bool
	// ProgressEvery logs a progress line after this many batches. Zero
	// disables progress logging.
	ProgressEvery int
}

// Runner consumes the feed, decodes each transaction's logs, and applies the
// resulting events through the processor. The cursor advances only after a
// batch is fully applied, so a crash replays the boundary batch; idempotent
// ledger writes absorb the duplicates.
type Runner struct {
	cfg        RunConfig
	source     feed.Source
	processor  *Processor
	store      storage.Store
	sink       *storage.DecodeErrorSink
	checkpoint *CheckpointStore
	logger     *zap.Logger
	live       atomic.Bool
}

// Live reports whether the consuming loop is running. Readiness probes use
// it alongside a storage ping.
func (r *Runner) Live() bool { return r.live.Load() }

func NewRunner(cfg RunConfig, source feed.Source, processor *Processor, store storage.Store, sink *storage.DecodeErrorSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CursorName == "" {
		cfg.CursorName = "main"
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		processor:  processor,
		store:      store,
		sink:       sink,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		logger:     logger,
	}
}

// Run executes the loop until the source is exhausted or the context ends. A
// drained source (io.EOF) is a clean stop; live sources never return it.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("feed source is nil")
	}
	if r.processor == nil {
		return fmt.Errorf("processor is nil")
	}
	if r.store == nil {
		return fmt.Errorf("store is nil")
	}

	cursor, resumed, err := r.store.LoadCursor(ctx, r.cfg.CursorName)
	if err != nil {
		return fmt.Errorf("load cursor: %w", err)
	}
	if !resumed {
		cursor, resumed, err = r.checkpoint.Load()
		if err != nil {
			return err
		}
	}
	if resumed {
		r.logger.Info("resume after cursor", zap.Uint64("slot", cursor.Slot), zap.String("tx_sig", cursor.TxSig))
	}

	r.live.Store(true)
	defer r.live.Store(false)

	var batches, applied, replayed, failedTxs, decodeFailures uint64
	defer func() {
		r.logger.Info("indexing stopped",
			zap.Uint64("batches", batches),
			zap.Uint64("events_applied", applied),
			zap.Uint64("batches_replayed", replayed),
			zap.Uint64("failed_txs_skipped", failedTxs),
			zap.Uint64("decode_failures", decodeFailures),
		)
	}()

	for {
		batch, err := r.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("next batch: %w", err)
		}
		batches++

		if batch.Failed {
			// Reverted transactions emit no durable state changes.
			failedTxs++
			continue
		}
		if resumed && !cursor.Before(batch.Slot, batch.Signature) {
			replayed++
			continue
		}

		events, failures := decode.DecodeLogs(batch.Slot, batch.Signature, batch.BlockTime, batch.Logs)
		if len(failures) > 0 {
			decodeFailures += uint64(len(failures))
			for _, f := range failures {
				r.logger.Warn("undecodable event payload",
					zap.Uint64("slot", f.Slot),
					zap.String("tx_sig", f.TxSig),
					zap.Uint64("log_index", f.LogIndex),
					zap.String("error", f.Error),
				)
			}
			if err := r.sink.Put(failures); err != nil {
				r.logger.Warn("decode error sink write failed", zap.Error(err))
			}
		}

		for _, env := range events {
			env := env
			err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
				err := r.processor.Apply(ctx, env)
				if err != nil {
					r.logger.Warn("apply failed",
						zap.String("kind", string(env.Event.Kind())),
						zap.String("tx_sig", env.TxSig),
						zap.Error(err),
					)
				}
				return err
			})
			if err != nil {
				return fmt.Errorf("apply event: %w", err)
			}
			applied++
		}

		cursor = model.Cursor{Slot: batch.Slot, TxSig: batch.Signature}
		resumed = true
		if err := r.store.SaveCursor(ctx, r.cfg.CursorName, cursor); err != nil {
			return fmt.Errorf("save cursor: %w", err)
		}
		if err := r.checkpoint.Save(cursor); err != nil {
			return err
		}

		if r.cfg.ProgressEvery > 0 && batches%uint64(r.cfg.ProgressEvery) == 0 {
			r.logger.Info("progress",
				zap.Uint64("batches", batches),
				zap.Uint64("events_applied", applied),
				zap.Uint64("slot", batch.Slot),
			)
		}
	}
}

// Package feed supplies raw transaction log batches to the indexer. The
// delivery contract is at-least-once: a source may replay batches after a
// reconnect, and downstream processing is expected to deduplicate.
package feed

import "context"

// LogBatch is one transaction's worth of log lines with its coordinate.
type LogBatch struct {
	Slot      uint64   `json:"slot"`
	Signature string   `json:"signature"`
	BlockTime int64    `json:"block_time"`
	Failed    bool     `json:"failed"`
	Logs      []string `json:"logs"`
}

// Source yields log batches in feed order. Next blocks until a batch is
// available, the context ends, or the source is exhausted (io.EOF).
type Source interface {
	Next(ctx context.Context) (LogBatch, error)
	Close() error
}

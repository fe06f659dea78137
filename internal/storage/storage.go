// Package storage defines the keyed upsert store the ledger runs against,
// with an in-memory implementation for tests and a Postgres implementation
// under storage/postgres for deployments.
package storage

import (
	"context"

	"chocoLedger/internal/model"
)

// Store is the ledger's persistence port. Mutable entities (rounds, player
// rounds) are upserted by their natural key; receipts (claims, fees) are
// insert-if-absent keyed by (tx_sig, log_index), so redelivered events are
// no-ops.
type Store interface {
	GetRound(ctx context.Context, id model.Address) (model.Round, bool, error)
	PutRound(ctx context.Context, round model.Round) error
	ListRounds(ctx context.Context, limit int) ([]model.Round, error)
	ListSettledSince(ctx context.Context, since int64) ([]model.Round, error)

	GetPlayerRound(ctx context.Context, round, player model.Address) (model.PlayerRound, bool, error)
	PutPlayerRound(ctx context.Context, pr model.PlayerRound) error
	ListRoundEntries(ctx context.Context, round model.Address) ([]model.PlayerRound, error)
	ListPlayerRounds(ctx context.Context, player model.Address, limit int) ([]model.PlayerRound, error)

	// InsertClaim and InsertTreasuryFee report false when the receipt's
	// (tx_sig, log_index) coordinate was already recorded.
	InsertClaim(ctx context.Context, claim model.Claim) (bool, error)
	ListClaims(ctx context.Context) ([]model.Claim, error)
	InsertTreasuryFee(ctx context.Context, fee model.TreasuryFee) (bool, error)

	LoadCursor(ctx context.Context, name string) (model.Cursor, bool, error)
	SaveCursor(ctx context.Context, name string, cur model.Cursor) error

	Ping(ctx context.Context) error
	Close()
}

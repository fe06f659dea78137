package indexer

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"chocoLedger/internal/ledger"
	"chocoLedger/internal/model"
	"chocoLedger/internal/storage"
)

func TestApplyConflictingClaimReceiptWarns(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	led := ledger.New(store, nil)

	round, player := addr(1), addr(2)
	if err := led.CreateRound(ctx, ledger.CreateRoundParams{
		ID: round, CommitDeadline: 1_000, RevealDeadline: 2_000, StakeLamports: 5,
	}); err != nil {
		t.Fatalf("create round: %v", err)
	}
	// The claimant reveals milk against two cacao players and wins the pool.
	for i, tribe := range []model.Tribe{model.TribeMilk, model.TribeCacao, model.TribeCacao} {
		p := addr(byte(2 + i))
		if err := led.RecordCommit(ctx, ledger.CommitParams{RoundID: round, Player: p, Stake: 5, Now: 500}); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		if err := led.MarkRevealed(ctx, round, p, tribe, 1_500); err != nil {
			t.Fatalf("reveal %d: %v", i, err)
		}
	}
	if err := led.Finalize(ctx, round, 2_000); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	p := NewProcessor(led, zap.New(core))

	claim := model.TreatClaimed{RoundID: round, Player: player, AmountLamports: 15}
	first := model.Envelope{Slot: 10, TxSig: "sig-a", LogIndex: 0, BlockTime: 2_100, Event: claim}
	if err := p.Apply(ctx, first); err != nil {
		t.Fatalf("first receipt: %v", err)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected warnings: %+v", logs.All())
	}

	// A redelivery of the same coordinate stays quiet.
	if err := p.Apply(ctx, first); err != nil {
		t.Fatalf("redelivered receipt: %v", err)
	}
	if logs.Len() != 0 {
		t.Fatalf("redelivery warned: %+v", logs.All())
	}

	// A distinct second receipt for the same entry is an anomaly: swallowed,
	// kept for audit, and warned about.
	second := model.Envelope{Slot: 11, TxSig: "sig-b", LogIndex: 0, BlockTime: 2_200, Event: claim}
	if err := p.Apply(ctx, second); err != nil {
		t.Fatalf("conflicting receipt: %v", err)
	}
	if logs.Len() == 0 {
		t.Fatal("conflicting receipt produced no warning")
	}

	claims, _ := store.ListClaims(ctx)
	if len(claims) != 2 {
		t.Fatalf("audit trail = %d receipts, want 2", len(claims))
	}
	pr, _, _ := store.GetPlayerRound(ctx, round, player)
	if !pr.Claimed || pr.ClaimedAt != 2_100 {
		t.Fatalf("claim state: %+v", pr)
	}
}

// Package ledger maintains the off-chain mirror of round and commitment
// state. It is the single logical writer: mutations are serialized per round
// through striped locks, phase legality is derived from deadlines via
// model.CurrentPhase, and every write goes through the injected storage port
// so the same logic runs against an in-memory map in tests and Postgres in
// production.
package ledger

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"go.uber.org/zap"

	"chocoLedger/internal/commitment"
	"chocoLedger/internal/model"
	"chocoLedger/internal/settle"
	"chocoLedger/internal/storage"
)

const maxFeeBps = 2000

const lockStripes = 64

// Ledger is the authoritative-mirroring state store for rounds, commitments,
// and claim receipts.
type Ledger struct {
	store  storage.Store
	logger *zap.Logger
	locks  [lockStripes]sync.Mutex
}

func New(store storage.Store, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{store: store, logger: logger}
}

// Store exposes the underlying storage port for read-side consumers.
func (l *Ledger) Store() storage.Store { return l.store }

func (l *Ledger) lock(round model.Address) *sync.Mutex {
	h := fnv.New32a()
	h.Write(round[:])
	return &l.locks[h.Sum32()%lockStripes]
}

// Meta carries the event coordinate stamped onto mirrored records.
type Meta struct {
	Slot  uint64
	TxSig string
}

// CreateRoundParams are the fields of a round-creation event.
type CreateRoundParams struct {
	ID             model.Address
	CommitDeadline int64
	RevealDeadline int64
	StakeLamports  uint64
	FeeBps         uint16
	CreatedAt      int64
	Meta
}

// CreateRound registers a new round. A second creation for the same id fails
// with ErrDuplicateRound and leaves the first record untouched.
func (l *Ledger) CreateRound(ctx context.Context, p CreateRoundParams) error {
	if p.StakeLamports == 0 {
		return ErrInvalidStake
	}
	if p.RevealDeadline <= p.CommitDeadline {
		return ErrInvalidDeadlines
	}
	if p.FeeBps > maxFeeBps {
		return ErrFeeTooHigh
	}

	mu := l.lock(p.ID)
	mu.Lock()
	defer mu.Unlock()

	if _, ok, err := l.store.GetRound(ctx, p.ID); err != nil {
		return fmt.Errorf("get round: %w", err)
	} else if ok {
		return ErrDuplicateRound
	}

	return l.store.PutRound(ctx, model.Round{
		ID:             p.ID,
		CommitDeadline: p.CommitDeadline,
		RevealDeadline: p.RevealDeadline,
		StakeLamports:  p.StakeLamports,
		FeeBps:         p.FeeBps,
		CreatedAt:      p.CreatedAt,
		Slot:           p.Slot,
		TxSig:          p.TxSig,
	})
}

// CommitParams describe a player's hidden commitment.
type CommitParams struct {
	RoundID    model.Address
	Player     model.Address
	Commitment [32]byte
	Stake      uint64
	Now        int64
	Meta
}

// RecordCommit stores a player's commitment. Second attempts for the same
// (round, player) pair fail with ErrAlreadyCommitted and never overwrite the
// first record.
func (l *Ledger) RecordCommit(ctx context.Context, p CommitParams) error {
	mu := l.lock(p.RoundID)
	mu.Lock()
	defer mu.Unlock()

	round, ok, err := l.store.GetRound(ctx, p.RoundID)
	if err != nil {
		return fmt.Errorf("get round: %w", err)
	}
	if !ok {
		return ErrUnknownRound
	}
	if model.CurrentPhase(round, p.Now) != model.PhaseCommitOpen {
		return fmt.Errorf("%w: commit at %d, deadline %d", ErrPhase, p.Now, round.CommitDeadline)
	}

	if _, ok, err := l.store.GetPlayerRound(ctx, p.RoundID, p.Player); err != nil {
		return fmt.Errorf("get player round: %w", err)
	} else if ok {
		return ErrAlreadyCommitted
	}

	return l.store.PutPlayerRound(ctx, model.PlayerRound{
		RoundID:       p.RoundID,
		Player:        p.Player,
		Commitment:    p.Commitment,
		CommitmentHex: fmt.Sprintf("%x", p.Commitment),
		StakeLamports: p.Stake,
		CommittedAt:   p.Now,
		Slot:          p.Slot,
		TxSig:         p.TxSig,
	})
}

// RevealParams describe a salt-bearing reveal from a direct caller.
type RevealParams struct {
	RoundID model.Address
	Player  model.Address
	Tribe   model.Tribe
	Salt    commitment.Salt
	Now     int64
	Meta
}

// RecordReveal verifies the (tribe, salt) pair against the stored commitment
// and marks the entry revealed. Used by callers that hold the salt; the event
// processor uses MarkRevealed since the salt never crosses the wire.
func (l *Ledger) RecordReveal(ctx context.Context, p RevealParams) error {
	if p.Tribe != model.TribeMilk && p.Tribe != model.TribeCacao {
		return ErrInvalidTribe
	}

	mu := l.lock(p.RoundID)
	mu.Lock()
	defer mu.Unlock()

	round, ok, err := l.store.GetRound(ctx, p.RoundID)
	if err != nil {
		return fmt.Errorf("get round: %w", err)
	}
	if !ok {
		return ErrUnknownRound
	}
	if model.CurrentPhase(round, p.Now) != model.PhaseRevealOpen {
		return fmt.Errorf("%w: reveal at %d outside [%d, %d)", ErrPhase, p.Now, round.CommitDeadline, round.RevealDeadline)
	}

	pr, ok, err := l.store.GetPlayerRound(ctx, p.RoundID, p.Player)
	if err != nil {
		return fmt.Errorf("get player round: %w", err)
	}
	if !ok {
		return ErrNoSuchCommitment
	}
	if pr.Revealed {
		return ErrAlreadyRevealed
	}
	if !commitment.Verify(pr.Commitment, p.Tribe, p.Salt, p.Player, p.RoundID) {
		return ErrInvalidReveal
	}

	return l.applyReveal(ctx, round, pr, p.Tribe, p.Now)
}

// MarkRevealed mirrors a reveal already accepted by the authoritative
// program. Redelivery with the same tribe is a no-op.
func (l *Ledger) MarkRevealed(ctx context.Context, roundID, player model.Address, tribe model.Tribe, now int64) error {
	if tribe != model.TribeMilk && tribe != model.TribeCacao {
		return ErrInvalidTribe
	}

	mu := l.lock(roundID)
	mu.Lock()
	defer mu.Unlock()

	round, ok, err := l.store.GetRound(ctx, roundID)
	if err != nil {
		return fmt.Errorf("get round: %w", err)
	}
	if !ok {
		return ErrUnknownRound
	}

	pr, ok, err := l.store.GetPlayerRound(ctx, roundID, player)
	if err != nil {
		return fmt.Errorf("get player round: %w", err)
	}
	if !ok {
		return ErrNoSuchCommitment
	}
	if pr.Revealed {
		if pr.Tribe == tribe {
			return nil
		}
		return ErrAlreadyRevealed
	}
	if model.CurrentPhase(round, now) != model.PhaseRevealOpen {
		return fmt.Errorf("%w: reveal at %d outside [%d, %d)", ErrPhase, now, round.CommitDeadline, round.RevealDeadline)
	}

	return l.applyReveal(ctx, round, pr, tribe, now)
}

func (l *Ledger) applyReveal(ctx context.Context, round model.Round, pr model.PlayerRound, tribe model.Tribe, now int64) error {
	pr.Tribe = tribe
	pr.Revealed = true
	pr.RevealedAt = now
	if err := l.store.PutPlayerRound(ctx, pr); err != nil {
		return fmt.Errorf("put player round: %w", err)
	}

	switch tribe {
	case model.TribeMilk:
		round.MilkCount++
		round.MilkPool += pr.StakeLamports
	case model.TribeCacao:
		round.CacaoCount++
		round.CacaoPool += pr.StakeLamports
	}
	if err := l.store.PutRound(ctx, round); err != nil {
		return fmt.Errorf("put round: %w", err)
	}
	return nil
}

// Finalize settles a round from local state once the reveal deadline has
// passed. Calling it on an already-settled round is a no-op, because the
// event feed may redeliver the settlement trigger.
func (l *Ledger) Finalize(ctx context.Context, roundID model.Address, now int64) error {
	mu := l.lock(roundID)
	mu.Lock()
	defer mu.Unlock()

	round, ok, err := l.store.GetRound(ctx, roundID)
	if err != nil {
		return fmt.Errorf("get round: %w", err)
	}
	if !ok {
		return ErrUnknownRound
	}
	if round.Settled {
		return nil
	}
	if now < round.RevealDeadline {
		return ErrTooEarly
	}

	entries, err := l.store.ListRoundEntries(ctx, roundID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	res := settle.Settle(round, entries)

	round.Winner = res.Winner
	round.MilkCount = res.MilkCount
	round.CacaoCount = res.CacaoCount
	round.MilkPool = res.MilkPool
	round.CacaoPool = res.CacaoPool
	round.Settled = true
	round.SettledAt = now
	return l.store.PutRound(ctx, round)
}

// SealParams carry the settlement event's pass-through fields.
type SealParams struct {
	RoundID    model.Address
	Winner     model.Tribe
	MilkCount  uint32
	CacaoCount uint32
	MilkPool   uint64
	CacaoPool  uint64
	SettledAt  int64
	Meta
}

// SealSettlement mirrors the authoritative settlement decision. The event's
// counts and pools are recorded as-is; the locally derived outcome is
// computed alongside and any divergence is logged, since the mirror cannot
// resolve it unilaterally. Idempotent on redelivery.
func (l *Ledger) SealSettlement(ctx context.Context, p SealParams) error {
	mu := l.lock(p.RoundID)
	mu.Lock()
	defer mu.Unlock()

	round, ok, err := l.store.GetRound(ctx, p.RoundID)
	if err != nil {
		return fmt.Errorf("get round: %w", err)
	}
	if !ok {
		return ErrUnknownRound
	}
	if round.Settled {
		return nil
	}

	entries, err := l.store.ListRoundEntries(ctx, p.RoundID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	local := settle.Settle(round, entries)
	if local.Winner != p.Winner || local.MilkCount != p.MilkCount || local.CacaoCount != p.CacaoCount {
		l.logger.Warn("settlement divergence from authoritative source",
			zap.String("round", p.RoundID.String()),
			zap.String("event_winner", p.Winner.String()),
			zap.String("local_winner", local.Winner.String()),
			zap.Uint32("event_milk", p.MilkCount),
			zap.Uint32("local_milk", local.MilkCount),
			zap.Uint32("event_cacao", p.CacaoCount),
			zap.Uint32("local_cacao", local.CacaoCount),
		)
	}

	round.Winner = p.Winner
	round.MilkCount = p.MilkCount
	round.CacaoCount = p.CacaoCount
	round.MilkPool = p.MilkPool
	round.CacaoPool = p.CacaoPool
	round.Settled = true
	round.SettledAt = p.SettledAt
	return l.store.PutRound(ctx, round)
}

// RecordClaim validates a payout receipt and marks the player round claimed.
// Receipts are keyed by (tx_sig, log_index): a redelivered event inserts
// nothing and returns nil.
func (l *Ledger) RecordClaim(ctx context.Context, claim model.Claim) error {
	mu := l.lock(claim.RoundID)
	mu.Lock()
	defer mu.Unlock()

	round, ok, err := l.store.GetRound(ctx, claim.RoundID)
	if err != nil {
		return fmt.Errorf("get round: %w", err)
	}
	if !ok {
		return ErrUnknownRound
	}
	if !round.Settled {
		return ErrNotSettled
	}

	pr, ok, err := l.store.GetPlayerRound(ctx, claim.RoundID, claim.Player)
	if err != nil {
		return fmt.Errorf("get player round: %w", err)
	}
	if !ok {
		return ErrNoSuchCommitment
	}

	if round.Winner != model.TribeNone {
		if !pr.Revealed {
			return ErrNoReward
		}
		if pr.Tribe != round.Winner {
			return ErrNotWinner
		}
	} else if !pr.Revealed {
		// Tie refunds go to revealed committers only.
		return ErrNoReward
	}

	inserted, err := l.store.InsertClaim(ctx, claim)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	if !inserted && pr.Claimed {
		// Same receipt redelivered, already fully applied.
		return nil
	}
	if inserted && pr.Claimed {
		// A second, distinct receipt for an already-claimed entry. The
		// receipt is kept for audit; the caller flags it for inspection.
		return ErrAlreadyClaimed
	}
	// Either a fresh receipt, or a retry of one whose flag update failed
	// after the receipt insert; both paths finish by marking the entry
	// claimed, so the operation stays an idempotent upsert end to end.

	entries, err := l.store.ListRoundEntries(ctx, claim.RoundID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}
	if expected := settle.ClaimAmount(pr, settle.Settle(round, entries)); expected != claim.AmountLamports {
		l.logger.Warn("claim amount differs from derived payout",
			zap.String("round", claim.RoundID.String()),
			zap.String("player", claim.Player.String()),
			zap.Uint64("event_amount", claim.AmountLamports),
			zap.Uint64("derived_amount", expected),
		)
	}

	pr.Claimed = true
	pr.ClaimedAt = claim.ClaimedAt
	return l.store.PutPlayerRound(ctx, pr)
}

// RecordFee stores a treasury fee receipt; duplicates by coordinate are
// no-ops.
func (l *Ledger) RecordFee(ctx context.Context, fee model.TreasuryFee) error {
	if _, err := l.store.InsertTreasuryFee(ctx, fee); err != nil {
		return fmt.Errorf("insert fee: %w", err)
	}
	return nil
}

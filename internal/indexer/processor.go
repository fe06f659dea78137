package indexer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"chocoLedger/internal/ledger"
	"chocoLedger/internal/model"
)

// Processor applies decoded events to the ledger. Protocol-level rejections
// are logged and swallowed, since the feed is at-least-once and the
// authoritative program already enforced legality; only storage failures
// propagate so the caller can retry the event.
type Processor struct {
	ledger *ledger.Ledger
	logger *zap.Logger
}

func NewProcessor(l *ledger.Ledger, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{ledger: l, logger: logger}
}

// Redeliveries of an already-applied event surface as these sentinels.
// ErrAlreadyClaimed is deliberately absent: a redelivered claim receipt
// returns nil, so that sentinel only ever means a second, distinct receipt
// for the same entry, which is an anomaly worth a warning.
var redeliveryErrs = []error{
	ledger.ErrDuplicateRound,
	ledger.ErrAlreadyCommitted,
	ledger.ErrAlreadyRevealed,
}

// Events arriving before their causal predecessors, or outside their phase
// window. The batch is skipped, not retried: replaying it cannot succeed
// until the missing predecessor arrives on its own.
var orderingErrs = []error{
	ledger.ErrUnknownRound,
	ledger.ErrNoSuchCommitment,
	ledger.ErrPhase,
	ledger.ErrNotSettled,
	ledger.ErrTooEarly,
}

// Apply routes one event to its ledger operation. The returned error is nil
// for anything that must not be retried.
func (p *Processor) Apply(ctx context.Context, env model.Envelope) error {
	var err error
	switch ev := env.Event.(type) {
	case model.RoundCreated:
		err = p.ledger.CreateRound(ctx, ledger.CreateRoundParams{
			ID:             ev.RoundID,
			CommitDeadline: ev.CommitDeadline,
			RevealDeadline: ev.RevealDeadline,
			StakeLamports:  ev.StakeLamports,
			FeeBps:         ev.FeeBps,
			CreatedAt:      env.BlockTime,
			Meta:           ledger.Meta{Slot: env.Slot, TxSig: env.TxSig},
		})
	case model.MeowCommitted:
		err = p.ledger.RecordCommit(ctx, ledger.CommitParams{
			RoundID:    ev.RoundID,
			Player:     ev.Player,
			Commitment: ev.Commitment,
			Stake:      ev.StakeLamports,
			Now:        env.BlockTime,
			Meta:       ledger.Meta{Slot: env.Slot, TxSig: env.TxSig},
		})
	case model.MeowRevealed:
		err = p.ledger.MarkRevealed(ctx, ev.RoundID, ev.Player, ev.Tribe, env.BlockTime)
	case model.RoundMeowed:
		err = p.ledger.SealSettlement(ctx, ledger.SealParams{
			RoundID:    ev.RoundID,
			Winner:     ev.Winner,
			MilkCount:  ev.MilkCount,
			CacaoCount: ev.CacaoCount,
			MilkPool:   ev.MilkPool,
			CacaoPool:  ev.CacaoPool,
			SettledAt:  env.BlockTime,
			Meta:       ledger.Meta{Slot: env.Slot, TxSig: env.TxSig},
		})
	case model.TreatClaimed:
		err = p.ledger.RecordClaim(ctx, model.Claim{
			RoundID:        ev.RoundID,
			Player:         ev.Player,
			AmountLamports: ev.AmountLamports,
			ClaimedAt:      env.BlockTime,
			Slot:           env.Slot,
			TxSig:          env.TxSig,
			LogIndex:       env.LogIndex,
		})
	case model.FeeCollected:
		err = p.ledger.RecordFee(ctx, model.TreasuryFee{
			RoundID:        ev.RoundID,
			AmountLamports: ev.AmountLamports,
			CollectedAt:    env.BlockTime,
			Slot:           env.Slot,
			TxSig:          env.TxSig,
			LogIndex:       env.LogIndex,
		})
	default:
		p.logger.Warn("event kind without handler", zap.String("kind", string(env.Event.Kind())))
		return nil
	}
	if err == nil {
		return nil
	}

	for _, sentinel := range redeliveryErrs {
		if errors.Is(err, sentinel) {
			p.logger.Debug("redelivered event ignored",
				zap.String("kind", string(env.Event.Kind())),
				zap.String("tx_sig", env.TxSig),
				zap.Uint64("log_index", env.LogIndex),
			)
			return nil
		}
	}
	for _, sentinel := range orderingErrs {
		if errors.Is(err, sentinel) {
			p.logger.Warn("event skipped",
				zap.String("kind", string(env.Event.Kind())),
				zap.Uint64("slot", env.Slot),
				zap.String("tx_sig", env.TxSig),
				zap.Error(err),
			)
			return nil
		}
	}
	if errors.Is(err, ledger.ErrInvalidTribe) || errors.Is(err, ledger.ErrNotWinner) ||
		errors.Is(err, ledger.ErrNoReward) || errors.Is(err, ledger.ErrInvalidStake) ||
		errors.Is(err, ledger.ErrInvalidDeadlines) || errors.Is(err, ledger.ErrFeeTooHigh) ||
		errors.Is(err, ledger.ErrAlreadyClaimed) {
		p.logger.Warn("event rejected",
			zap.String("kind", string(env.Event.Kind())),
			zap.String("tx_sig", env.TxSig),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("apply %s at %s/%d: %w", env.Event.Kind(), env.TxSig, env.LogIndex, err)
}

// Package settle computes settlement outcomes for finalized rounds. All
// functions are pure: the same round and entry set always produce the same
// result, independent of processing order, so the outcome can be re-derived
// at any time and must match the authoritative program's decision.
package settle

import (
	"math/bits"

	"chocoLedger/internal/model"
)

// Result is the settlement outcome for one round.
type Result struct {
	Winner          model.Tribe
	MilkCount       uint32
	CacaoCount      uint32
	MilkPool        uint64
	CacaoPool       uint64
	TotalPool       uint64
	Fee             uint64
	PayoutPerWinner uint64
	WinnerCount     uint32
}

// Settle applies the minority rule over the revealed entries of a round.
// Unrevealed commits are excluded from both counts and from the pool: a
// player who commits and never reveals must not change who wins. The fee is
// floor(pool*bps/10000); each winner gets floor((pool-fee)/winnerCount). On
// a tie (equal counts, including zero-zero) there is no winner, no fee, and
// no payout.
func Settle(round model.Round, entries []model.PlayerRound) Result {
	var res Result
	for _, e := range entries {
		if !e.Revealed {
			continue
		}
		switch e.Tribe {
		case model.TribeMilk:
			res.MilkCount++
			res.MilkPool += e.StakeLamports
		case model.TribeCacao:
			res.CacaoCount++
			res.CacaoPool += e.StakeLamports
		}
	}

	res.TotalPool = res.MilkPool + res.CacaoPool

	switch {
	case res.MilkCount == res.CacaoCount:
		res.Winner = model.TribeNone
	case res.MilkCount < res.CacaoCount:
		res.Winner = model.TribeMilk
		res.WinnerCount = res.MilkCount
	default:
		res.Winner = model.TribeCacao
		res.WinnerCount = res.CacaoCount
	}

	if res.Winner == model.TribeNone {
		return res
	}

	res.Fee = feeAmount(res.TotalPool, round.FeeBps)
	distributable := res.TotalPool - res.Fee
	if res.WinnerCount > 0 {
		res.PayoutPerWinner = distributable / uint64(res.WinnerCount)
	}
	return res
}

// ClaimAmount returns what a given participant is owed once the round is
// settled: winners get the per-winner payout, revealed players get their
// stake back on a tie, everyone else gets zero. Non-revealers forfeit their
// stake in every case.
func ClaimAmount(pr model.PlayerRound, res Result) uint64 {
	if !pr.Revealed {
		return 0
	}
	if res.Winner == model.TribeNone {
		return pr.StakeLamports
	}
	if pr.Tribe == res.Winner {
		return res.PayoutPerWinner
	}
	return 0
}

// feeAmount computes floor(pool*bps/10000) through a 128-bit intermediate so
// lamport-scale pools cannot overflow.
func feeAmount(pool uint64, bps uint16) uint64 {
	hi, lo := bits.Mul64(pool, uint64(bps))
	if hi >= 10_000 {
		// Unreachable for bps < 10000; guard against a panic in Div64.
		return pool
	}
	quo, _ := bits.Div64(hi, lo, 10_000)
	return quo
}

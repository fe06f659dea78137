// Package leaderboard derives read-side rankings from stored claims and
// rounds. Everything here is pure recomputation over a snapshot; there is no
// second source of truth to drift from the ledger.
package leaderboard

import (
	"context"
	"sort"

	"chocoLedger/internal/model"
	"chocoLedger/internal/storage"
)

// PayoutEntry is one row of the all-time top payout board.
type PayoutEntry struct {
	Player        model.Address `json:"player"`
	TotalLamports uint64        `json:"total_lamports,string"`
	Claims        int           `json:"claims"`
	LastClaimedAt int64         `json:"last_claimed_at"`
}

// TopPayout ranks players by total claimed lamports, descending, with a
// stable tie-break on player id so paginated output never reshuffles.
func TopPayout(claims []model.Claim, limit, offset int) []PayoutEntry {
	totals := make(map[model.Address]*PayoutEntry)
	for _, c := range claims {
		entry, ok := totals[c.Player]
		if !ok {
			entry = &PayoutEntry{Player: c.Player}
			totals[c.Player] = entry
		}
		entry.TotalLamports += c.AmountLamports
		entry.Claims++
		if c.ClaimedAt > entry.LastClaimedAt {
			entry.LastClaimedAt = c.ClaimedAt
		}
	}

	entries := make([]PayoutEntry, 0, len(totals))
	for _, e := range totals {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalLamports != entries[j].TotalLamports {
			return entries[i].TotalLamports > entries[j].TotalLamports
		}
		return entries[i].Player.String() < entries[j].Player.String()
	})

	return page(entries, limit, offset)
}

// WinRateEntry is one row of the windowed win-rate board. Ties count toward
// Rounds but not Wins, so sitting out a tied round is not penalized twice.
type WinRateEntry struct {
	Player model.Address `json:"player"`
	Wins   int           `json:"wins"`
	Rounds int           `json:"rounds"`
	Rate   float64       `json:"rate"`
}

// WinRate ranks players by share of wins over revealed entries in rounds
// settled at or after windowStart. Order: rate desc, then rounds desc, then
// wins desc, then player id asc.
func WinRate(rounds []model.Round, entries []model.PlayerRound, windowStart int64, limit, offset int) []WinRateEntry {
	winners := make(map[model.Address]model.Tribe)
	for _, r := range rounds {
		if r.Settled && r.SettledAt >= windowStart {
			winners[r.ID] = r.Winner
		}
	}

	stats := make(map[model.Address]*WinRateEntry)
	for _, pr := range entries {
		winner, ok := winners[pr.RoundID]
		if !ok || !pr.Revealed {
			continue
		}
		s, ok := stats[pr.Player]
		if !ok {
			s = &WinRateEntry{Player: pr.Player}
			stats[pr.Player] = s
		}
		s.Rounds++
		if winner != model.TribeNone && pr.Tribe == winner {
			s.Wins++
		}
	}

	out := make([]WinRateEntry, 0, len(stats))
	for _, s := range stats {
		s.Rate = float64(s.Wins) / float64(s.Rounds)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate > out[j].Rate
		}
		if out[i].Rounds != out[j].Rounds {
			return out[i].Rounds > out[j].Rounds
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Player.String() < out[j].Player.String()
	})

	return page(out, limit, offset)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

// Aggregator binds the pure rankings to a store.
type Aggregator struct {
	store storage.Store
}

func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) TopPayout(ctx context.Context, limit, offset int) ([]PayoutEntry, error) {
	claims, err := a.store.ListClaims(ctx)
	if err != nil {
		return nil, err
	}
	return TopPayout(claims, limit, offset), nil
}

// WinRateSince computes the win-rate board for rounds settled in the window.
func (a *Aggregator) WinRateSince(ctx context.Context, windowStart int64, limit, offset int) ([]WinRateEntry, error) {
	rounds, err := a.store.ListSettledSince(ctx, windowStart)
	if err != nil {
		return nil, err
	}
	var entries []model.PlayerRound
	for _, r := range rounds {
		prs, err := a.store.ListRoundEntries(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, prs...)
	}
	return WinRate(rounds, entries, windowStart, limit, offset), nil
}

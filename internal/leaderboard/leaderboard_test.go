package leaderboard

import (
	"reflect"
	"testing"

	"chocoLedger/internal/model"
)

func addr(b byte) model.Address {
	var a model.Address
	a[0] = b
	return a
}

func TestTopPayoutOrderingAndTieBreak(t *testing.T) {
	claims := []model.Claim{
		{Player: addr(3), AmountLamports: 10, ClaimedAt: 100, TxSig: "a"},
		{Player: addr(1), AmountLamports: 30, ClaimedAt: 200, TxSig: "b"},
		{Player: addr(3), AmountLamports: 20, ClaimedAt: 300, TxSig: "c"},
		{Player: addr(2), AmountLamports: 30, ClaimedAt: 150, TxSig: "d"},
	}

	got := TopPayout(claims, 0, 0)
	if len(got) != 3 {
		t.Fatalf("entries = %d", len(got))
	}

	// addr(1) and addr(2) both total 30; addr(3) totals 30 too, so order is
	// purely the player-id tie-break.
	wantOrder := []model.Address{addr(1), addr(2), addr(3)}
	for i, want := range wantOrder {
		if got[i].Player != want {
			t.Fatalf("position %d: %s", i, got[i].Player)
		}
		if got[i].TotalLamports != 30 {
			t.Fatalf("position %d total = %d", i, got[i].TotalLamports)
		}
	}
	if got[2].Claims != 2 || got[2].LastClaimedAt != 300 {
		t.Fatalf("claim stats: %+v", got[2])
	}
}

func TestTopPayoutPaging(t *testing.T) {
	claims := []model.Claim{
		{Player: addr(1), AmountLamports: 3, TxSig: "a"},
		{Player: addr(2), AmountLamports: 2, TxSig: "b"},
		{Player: addr(3), AmountLamports: 1, TxSig: "c"},
	}

	pageOne := TopPayout(claims, 2, 0)
	pageTwo := TopPayout(claims, 2, 2)
	if len(pageOne) != 2 || len(pageTwo) != 1 {
		t.Fatalf("pages: %d, %d", len(pageOne), len(pageTwo))
	}
	if pageTwo[0].Player != addr(3) {
		t.Fatalf("second page: %+v", pageTwo)
	}

	if got := TopPayout(claims, 2, 10); !reflect.DeepEqual(got, []PayoutEntry{}) {
		t.Fatalf("past-the-end offset: %+v", got)
	}
}

func TestWinRateWindowAndTies(t *testing.T) {
	rounds := []model.Round{
		{ID: addr(10), Settled: true, SettledAt: 100, Winner: model.TribeMilk},
		{ID: addr(11), Settled: true, SettledAt: 200, Winner: model.TribeNone},
		{ID: addr(12), Settled: true, SettledAt: 50, Winner: model.TribeCacao}, // before window
		{ID: addr(13), Settled: false},                                        // unsettled
	}
	entries := []model.PlayerRound{
		{RoundID: addr(10), Player: addr(1), Revealed: true, Tribe: model.TribeMilk},
		{RoundID: addr(10), Player: addr(2), Revealed: true, Tribe: model.TribeCacao},
		{RoundID: addr(10), Player: addr(3), Revealed: false}, // never revealed
		{RoundID: addr(11), Player: addr(1), Revealed: true, Tribe: model.TribeMilk},
		{RoundID: addr(12), Player: addr(2), Revealed: true, Tribe: model.TribeCacao},
		{RoundID: addr(13), Player: addr(2), Revealed: true, Tribe: model.TribeMilk},
	}

	got := WinRate(rounds, entries, 100, 0, 0)
	want := []WinRateEntry{
		{Player: addr(1), Wins: 1, Rounds: 2, Rate: 0.5}, // tie counts in denominator only
		{Player: addr(2), Wins: 0, Rounds: 1, Rate: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestWinRateOrdering(t *testing.T) {
	rounds := []model.Round{
		{ID: addr(10), Settled: true, SettledAt: 10, Winner: model.TribeMilk},
		{ID: addr(11), Settled: true, SettledAt: 10, Winner: model.TribeMilk},
	}
	entries := []model.PlayerRound{
		// Both at rate 1.0; addr(2) has more rounds and ranks first.
		{RoundID: addr(10), Player: addr(1), Revealed: true, Tribe: model.TribeMilk},
		{RoundID: addr(10), Player: addr(2), Revealed: true, Tribe: model.TribeMilk},
		{RoundID: addr(11), Player: addr(2), Revealed: true, Tribe: model.TribeMilk},
	}

	got := WinRate(rounds, entries, 0, 0, 0)
	if len(got) != 2 || got[0].Player != addr(2) || got[1].Player != addr(1) {
		t.Fatalf("order: %+v", got)
	}
}

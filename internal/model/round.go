package model

// Round is one instance of the minority wager game, mirrored from the
// authoritative program. Counts and pools cover revealed entries only.
type Round struct {
	ID             Address `json:"id"`
	CommitDeadline int64   `json:"commit_deadline"`
	RevealDeadline int64   `json:"reveal_deadline"`
	StakeLamports  uint64  `json:"stake_lamports"`
	FeeBps         uint16  `json:"fee_bps"`
	MilkCount      uint32  `json:"milk_count"`
	CacaoCount     uint32  `json:"cacao_count"`
	MilkPool       uint64  `json:"milk_pool"`
	CacaoPool      uint64  `json:"cacao_pool"`
	Winner         Tribe   `json:"winner_side"`
	Settled        bool    `json:"settled"`
	SettledAt      int64   `json:"settled_at,omitempty"`
	CreatedAt      int64   `json:"created_at"`
	Slot           uint64  `json:"slot"`
	TxSig          string  `json:"tx_sig"`
}

// CurrentPhase derives the round's phase from its deadlines at the given unix
// time. Every operation that gates on phase goes through this one function so
// the time logic cannot drift between call sites. A settled round stays
// settled regardless of the clock.
func CurrentPhase(r Round, now int64) Phase {
	if r.Settled {
		return PhaseSettled
	}
	switch {
	case now < r.CommitDeadline:
		return PhaseCommitOpen
	case now < r.RevealDeadline:
		return PhaseRevealOpen
	default:
		// Past the reveal deadline but not yet sealed: eligible for
		// settlement, still reported as reveal_open until Finalize runs.
		return PhaseRevealOpen
	}
}

// SettleEligible reports whether the round may be finalized at the given time.
func SettleEligible(r Round, now int64) bool {
	return !r.Settled && now >= r.RevealDeadline
}

package model

// Claim is an append-only payout receipt, keyed by (tx_sig, log_index). It is
// never mutated after insertion; the leaderboard is derived from these rows.
type Claim struct {
	RoundID        Address `json:"round_id"`
	Player         Address `json:"player"`
	AmountLamports uint64  `json:"amount_lamports"`
	ClaimedAt      int64   `json:"claimed_at"`
	Slot           uint64  `json:"slot"`
	TxSig          string  `json:"tx_sig"`
	LogIndex       uint64  `json:"log_index"`
}

// TreasuryFee is an append-only receipt of the protocol fee taken at
// settlement, keyed the same way as Claim.
type TreasuryFee struct {
	RoundID        Address `json:"round_id"`
	AmountLamports uint64  `json:"amount_lamports"`
	CollectedAt    int64   `json:"collected_at"`
	Slot           uint64  `json:"slot"`
	TxSig          string  `json:"tx_sig"`
	LogIndex       uint64  `json:"log_index"`
}

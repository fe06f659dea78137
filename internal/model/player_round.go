package model

// PlayerRound is a player's participation record for one round. There is at
// most one per (round, player) pair; a second commit is rejected, never
// merged.
type PlayerRound struct {
	RoundID       Address  `json:"round_id"`
	Player        Address  `json:"player"`
	Commitment    [32]byte `json:"-"`
	CommitmentHex string   `json:"commitment"`
	Tribe         Tribe    `json:"side"`
	StakeLamports uint64   `json:"stake_lamports"`
	Revealed      bool     `json:"revealed"`
	Claimed       bool     `json:"claimed"`
	CommittedAt   int64    `json:"committed_at"`
	RevealedAt    int64    `json:"revealed_at,omitempty"`
	ClaimedAt     int64    `json:"claimed_at,omitempty"`
	Slot          uint64   `json:"slot"`
	TxSig         string   `json:"tx_sig"`
}

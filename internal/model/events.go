package model

// EventKind identifies one of the protocol's event types.
type EventKind string

const (
	KindRoundCreated  EventKind = "RoundCreated"
	KindMeowCommitted EventKind = "MeowCommitted"
	KindMeowRevealed  EventKind = "MeowRevealed"
	KindRoundMeowed   EventKind = "RoundMeowed"
	KindTreatClaimed  EventKind = "TreatClaimed"
	KindFeeCollected  EventKind = "FeeCollected"
)

// Event is the closed union of decoded protocol events. The processor
// switches exhaustively over the concrete types; there is no string-keyed
// dispatch and no "unknown event" fallback past the decoder.
type Event interface {
	Kind() EventKind
}

// Envelope pairs a decoded event with its unique feed coordinate.
type Envelope struct {
	Slot      uint64 `json:"slot"`
	TxSig     string `json:"tx_sig"`
	LogIndex  uint64 `json:"log_index"`
	BlockTime int64  `json:"block_time"`
	Event     Event  `json:"event"`
}

// RoundCreated announces a new round with its deadlines and stake.
type RoundCreated struct {
	RoundID        Address `json:"round_id"`
	StakeLamports  uint64  `json:"stake_lamports"`
	CommitDeadline int64   `json:"commit_deadline"`
	RevealDeadline int64   `json:"reveal_deadline"`
	FeeBps         uint16  `json:"fee_bps"`
}

// MeowCommitted records a player's hidden commitment and stake transfer.
type MeowCommitted struct {
	RoundID       Address  `json:"round_id"`
	Player        Address  `json:"player"`
	Commitment    [32]byte `json:"-"`
	StakeLamports uint64   `json:"stake_lamports"`
}

// MeowRevealed records a successful reveal. The salt never appears on the
// wire; acceptance was already verified by the authoritative program.
type MeowRevealed struct {
	RoundID Address `json:"round_id"`
	Player  Address `json:"player"`
	Tribe   Tribe   `json:"tribe"`
}

// RoundMeowed is the settlement event. Winner is TribeNone on a tie.
type RoundMeowed struct {
	RoundID    Address `json:"round_id"`
	Winner     Tribe   `json:"winner_side"`
	MilkCount  uint32  `json:"milk_count"`
	CacaoCount uint32  `json:"cacao_count"`
	MilkPool   uint64  `json:"milk_pool"`
	CacaoPool  uint64  `json:"cacao_pool"`
}

// TreatClaimed records a pull-payment to a winner (or a tie refund).
type TreatClaimed struct {
	RoundID        Address `json:"round_id"`
	Player         Address `json:"player"`
	AmountLamports uint64  `json:"amount_lamports"`
}

// FeeCollected records the protocol fee transfer at settlement.
type FeeCollected struct {
	RoundID        Address `json:"round_id"`
	AmountLamports uint64  `json:"amount_lamports"`
}

func (RoundCreated) Kind() EventKind  { return KindRoundCreated }
func (MeowCommitted) Kind() EventKind { return KindMeowCommitted }
func (MeowRevealed) Kind() EventKind  { return KindMeowRevealed }
func (RoundMeowed) Kind() EventKind   { return KindRoundMeowed }
func (TreatClaimed) Kind() EventKind  { return KindTreatClaimed }
func (FeeCollected) Kind() EventKind  { return KindFeeCollected }

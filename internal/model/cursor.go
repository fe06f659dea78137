package model

// Cursor records the last successfully applied event coordinate. Processing
// resumes strictly after it on restart. Idempotent upserts, not the cursor,
// are the real duplicate-safety mechanism around the restart boundary.
type Cursor struct {
	Slot      uint64 `json:"slot"`
	TxSig     string `json:"tx_sig"`
	UpdatedAt string `json:"updated_at"`
}

// Before reports whether the cursor is strictly before the given coordinate.
func (c Cursor) Before(slot uint64, txSig string) bool {
	if c.Slot != slot {
		return c.Slot < slot
	}
	return c.TxSig != txSig
}

package model

// DecodeError records a decode failure for one log line. Decode failures are
// non-fatal: the processor logs them, skips the line, and keeps going.
type DecodeError struct {
	Slot          uint64 `json:"slot"`
	TxSig         string `json:"tx_sig"`
	LogIndex      uint64 `json:"log_index"`
	Discriminator string `json:"discriminator,omitempty"`
	Error         string `json:"error"`
}

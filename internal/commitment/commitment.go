// Package commitment implements the hash binding a hidden tribe choice to a
// player and round. The preimage layout is fixed-width and fixed-order:
//
//	tribe tag (1 byte) || salt (32 bytes) || player (32 bytes) || round (32 bytes)
//
// The widths are part of the protocol contract; changing any of them breaks
// verification of previously issued commitments.
package commitment

import (
	"crypto/sha256"

	"chocoLedger/internal/model"
)

// SaltSize is the required salt length in bytes.
const SaltSize = 32

// Salt is the client-side random value kept secret until reveal.
type Salt [SaltSize]byte

// Commit computes the commitment hash for a tribe choice.
func Commit(tribe model.Tribe, salt Salt, player, round model.Address) [32]byte {
	var buf [1 + SaltSize + 32 + 32]byte
	buf[0] = byte(tribe)
	copy(buf[1:], salt[:])
	copy(buf[1+SaltSize:], player[:])
	copy(buf[1+SaltSize+32:], round[:])
	return sha256.Sum256(buf[:])
}

// Verify recomputes the commitment and compares it to the stored hash. The
// mirror only replays decisions already accepted upstream, so plain equality
// is sufficient here.
func Verify(hash [32]byte, tribe model.Tribe, salt Salt, player, round model.Address) bool {
	return Commit(tribe, salt, player, round) == hash
}

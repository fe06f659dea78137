package model

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Address is a 32-byte account key, rendered as base58 on the wire and in JSON.
type Address [32]byte

// ParseAddress decodes a base58 string into an Address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != len(a) {
		return a, fmt.Errorf("address must be %d bytes, got %d", len(a), len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

package model

import "fmt"

// Tribe is one of the two hidden choices a player commits to. The numeric
// values are the on-chain wire tags and feed the commitment hash, so they are
// part of the protocol contract.
type Tribe uint8

const (
	TribeNone  Tribe = 0 // no winner (tie) or not yet revealed
	TribeMilk  Tribe = 1
	TribeCacao Tribe = 2
)

// ParseTribe maps a wire tag to a Tribe. Zero is not a valid player choice.
func ParseTribe(tag uint8) (Tribe, error) {
	switch Tribe(tag) {
	case TribeMilk, TribeCacao:
		return Tribe(tag), nil
	default:
		return TribeNone, fmt.Errorf("invalid tribe tag %d", tag)
	}
}

func (t Tribe) String() string {
	switch t {
	case TribeMilk:
		return "milk"
	case TribeCacao:
		return "cacao"
	default:
		return "none"
	}
}

// MarshalJSON encodes a tribe as "milk"/"cacao", and TribeNone as null so
// settled ties serialize the same way the upstream feed does.
func (t Tribe) MarshalJSON() ([]byte, error) {
	if t == TribeNone {
		return []byte("null"), nil
	}
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Tribe) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*t = TribeNone
	case `"milk"`:
		*t = TribeMilk
	case `"cacao"`:
		*t = TribeCacao
	default:
		return fmt.Errorf("invalid tribe %s", data)
	}
	return nil
}

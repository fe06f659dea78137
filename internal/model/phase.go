package model

// Phase is the lifecycle stage of a round. Ordering matters: a round's phase
// is monotonically non-decreasing over time.
type Phase int

const (
	PhaseCreated Phase = iota
	PhaseCommitOpen
	PhaseRevealOpen
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseCommitOpen:
		return "commit_open"
	case PhaseRevealOpen:
		return "reveal_open"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

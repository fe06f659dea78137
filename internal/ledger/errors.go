package ledger

import "errors"

// Protocol violations. These indicate a caller or upstream logic error, not a
// transient condition, and are never retried.
var (
	ErrDuplicateRound   = errors.New("round already exists")
	ErrUnknownRound     = errors.New("unknown round")
	ErrPhase            = errors.New("operation not allowed in current phase")
	ErrAlreadyCommitted = errors.New("player already committed")
	ErrNoSuchCommitment = errors.New("no commitment for player")
	ErrAlreadyRevealed  = errors.New("player already revealed")
	ErrInvalidReveal    = errors.New("reveal does not match commitment")
	ErrInvalidTribe     = errors.New("invalid tribe")
	ErrTooEarly         = errors.New("reveal deadline not reached")
	ErrNotSettled       = errors.New("round not settled")
	ErrNotWinner        = errors.New("player is not on the winning side")
	ErrAlreadyClaimed   = errors.New("player already claimed")
	ErrNoReward         = errors.New("nothing to claim")
	ErrInvalidStake     = errors.New("stake must be positive")
	ErrInvalidDeadlines = errors.New("reveal deadline must follow commit deadline")
	ErrFeeTooHigh       = errors.New("fee exceeds 2000 basis points")
)

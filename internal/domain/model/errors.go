package model

import "errors"

// Sentinel contract violations shared across the engine.
var (
	ErrInvalidGeometry = errors.New("invalid hole geometry")
	ErrInvalidRTP      = errors.New("target rtp must be in (0,1)")
	ErrUnknownHole     = errors.New("unknown hole")
	ErrInvalidWager    = errors.New("wager must be positive")
	ErrInvalidDistance = errors.New("distance must be finite and non-negative")
)

package policy

import "errors"

// Sentinel kinds for policy errors.
var (
	ErrInvalidConfig  = errors.New("invalid policy config")
	ErrWrongCategory  = errors.New("hole does not belong to this unit's category")
	ErrNothingToFlush = errors.New("no pending observations")
)

package shotdist

import "errors"

// Sentinel contract violations.
var (
	ErrInvalidSigma     = errors.New("sigma must be finite and positive")
	ErrInvalidParameter = errors.New("invalid distribution parameter")
)

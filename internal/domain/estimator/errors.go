package estimator

import (
	"errors"

	"github.com/okian/fairplay/internal/domain/model"
)

// Sentinel contract violations.
var (
	ErrEmptyBatch         = errors.New("batch has no usable observations")
	ErrInvalidEstimate    = errors.New("estimate must be finite and positive")
	ErrInvalidMeasurement = errors.New("invalid measurement")
	ErrInvalidHandicap    = errors.New("handicap out of range")
	ErrInvalidDistance    = model.ErrInvalidDistance
)

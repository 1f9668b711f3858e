// Package policy decides when pending shots feed a player's estimator, which
// of them are trusted, and how far the published ceiling may move per update.
package policy

import (
	"fmt"

	"github.com/okian/fairplay/internal/domain/estimator"
	"github.com/okian/fairplay/internal/domain/model"
)

// Defaults for the update policy.
const (
	DefaultBatchSize          = 5
	DefaultHighStakesMultiple = 2.0
	DefaultOutlierSigma       = 3.0
	DefaultRateLimit          = 0.20

	// minScreenSize is the smallest batch the leave-one-out screen runs on.
	minScreenSize = 4
	// scaleBackIterations bounds the bisection that re-aligns the estimate
	// with a clamped ceiling.
	scaleBackIterations = 40
)

// Config holds the tunable thresholds of the policy and its estimators.
type Config struct {
	BatchSize          int
	HighStakesMultiple float64
	OutlierSigma       float64
	RateLimit          float64

	MinMeasurementNoise float64
	ProcessNoise        float64
	InitialUncertainty  float64
	ConfidenceLow       float64
	ConfidenceHigh      float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		BatchSize:           DefaultBatchSize,
		HighStakesMultiple:  DefaultHighStakesMultiple,
		OutlierSigma:        DefaultOutlierSigma,
		RateLimit:           DefaultRateLimit,
		MinMeasurementNoise: estimator.DefaultMinNoise,
		ProcessNoise:        estimator.DefaultProcessNoise,
		InitialUncertainty:  estimator.DefaultInitialUncertainty,
		ConfidenceLow:       estimator.DefaultConfidenceLow,
		ConfidenceHigh:      estimator.DefaultConfidenceHigh,
	}
}

// Validate rejects thresholds that would break the policy invariants.
func (c Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("batch size %d: %w", c.BatchSize, ErrInvalidConfig)
	case c.HighStakesMultiple <= 1:
		return fmt.Errorf("high stakes multiple %v: %w", c.HighStakesMultiple, ErrInvalidConfig)
	case c.OutlierSigma < 0:
		return fmt.Errorf("outlier sigma %v: %w", c.OutlierSigma, ErrInvalidConfig)
	case c.RateLimit <= 0 || c.RateLimit >= 1:
		return fmt.Errorf("rate limit %v: %w", c.RateLimit, ErrInvalidConfig)
	case c.MinMeasurementNoise <= 0:
		return fmt.Errorf("min measurement noise %v: %w", c.MinMeasurementNoise, ErrInvalidConfig)
	case c.ProcessNoise < 0:
		return fmt.Errorf("process noise %v: %w", c.ProcessNoise, ErrInvalidConfig)
	case c.InitialUncertainty <= 0:
		return fmt.Errorf("initial uncertainty %v: %w", c.InitialUncertainty, ErrInvalidConfig)
	case c.ConfidenceLow <= 0 || c.ConfidenceHigh <= c.ConfidenceLow:
		return fmt.Errorf("confidence band [%v, %v]: %w", c.ConfidenceLow, c.ConfidenceHigh, ErrInvalidConfig)
	}
	return nil
}

// IsHighStakes reports whether a wager must bypass batching. The anchor is
// the larger of the session and all-time average wager; there is no anchor
// before the first wager.
func (c Config) IsHighStakes(wager float64, agg model.Aggregates) bool {
	ref := agg.Reference()
	return ref > 0 && wager >= c.HighStakesMultiple*ref
}

func (c Config) filterOptions() []estimator.Option {
	return []estimator.Option{
		estimator.WithProcessNoise(c.ProcessNoise),
		estimator.WithInitialUncertainty(c.InitialUncertainty),
		estimator.WithConfidenceBand(c.ConfidenceLow, c.ConfidenceHigh),
	}
}

package anomaly

import "fmt"

// Default detector thresholds.
const (
	DefaultCherryCorrelation       = 0.5
	DefaultCherryWagerCV           = 0.25
	DefaultSandbagDistanceMultiple = 2.0
	DefaultSandbagLowWagerFraction = 0.5
	DefaultSandbagMinRun           = 4
	DefaultSandbagInflation        = 1.5
	DefaultSkillJumpWindow         = 3
	DefaultSkillJumpThreshold      = 0.30
	DefaultSkillJumpOrganicRatio   = 2.0
)

// Config holds the detector thresholds.
type Config struct {
	CherryCorrelation float64
	CherryWagerCV     float64

	SandbagDistanceMultiple float64
	SandbagLowWagerFraction float64
	SandbagMinRun           int
	SandbagInflation        float64

	SkillJumpWindow       int
	SkillJumpThreshold    float64
	SkillJumpOrganicRatio float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		CherryCorrelation:       DefaultCherryCorrelation,
		CherryWagerCV:           DefaultCherryWagerCV,
		SandbagDistanceMultiple: DefaultSandbagDistanceMultiple,
		SandbagLowWagerFraction: DefaultSandbagLowWagerFraction,
		SandbagMinRun:           DefaultSandbagMinRun,
		SandbagInflation:        DefaultSandbagInflation,
		SkillJumpWindow:         DefaultSkillJumpWindow,
		SkillJumpThreshold:      DefaultSkillJumpThreshold,
		SkillJumpOrganicRatio:   DefaultSkillJumpOrganicRatio,
	}
}

// Validate rejects thresholds no detector can work with.
func (c Config) Validate() error {
	switch {
	case c.CherryCorrelation <= 0 || c.CherryCorrelation > 1:
		return fmt.Errorf("cherry correlation %v: %w", c.CherryCorrelation, ErrInvalidConfig)
	case c.CherryWagerCV <= 0:
		return fmt.Errorf("cherry wager cv %v: %w", c.CherryWagerCV, ErrInvalidConfig)
	case c.SandbagDistanceMultiple <= 1:
		return fmt.Errorf("sandbag distance multiple %v: %w", c.SandbagDistanceMultiple, ErrInvalidConfig)
	case c.SandbagLowWagerFraction <= 0 || c.SandbagLowWagerFraction > 1:
		return fmt.Errorf("sandbag low wager fraction %v: %w", c.SandbagLowWagerFraction, ErrInvalidConfig)
	case c.SandbagMinRun < 1:
		return fmt.Errorf("sandbag min run %d: %w", c.SandbagMinRun, ErrInvalidConfig)
	case c.SandbagInflation <= 1:
		return fmt.Errorf("sandbag inflation %v: %w", c.SandbagInflation, ErrInvalidConfig)
	case c.SkillJumpWindow < 1:
		return fmt.Errorf("skill jump window %d: %w", c.SkillJumpWindow, ErrInvalidConfig)
	case c.SkillJumpThreshold <= 0 || c.SkillJumpThreshold >= 1:
		return fmt.Errorf("skill jump threshold %v: %w", c.SkillJumpThreshold, ErrInvalidConfig)
	case c.SkillJumpOrganicRatio <= 1:
		return fmt.Errorf("skill jump organic ratio %v: %w", c.SkillJumpOrganicRatio, ErrInvalidConfig)
	}
	return nil
}

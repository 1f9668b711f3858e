// Package config defines the engine and venue configuration and how it is
// loaded.
//
// Conventions:
// - Keys are flat and lowercase; env vars are FAIRPLAY_<KEY>.
// - New(ctx) returns the defaults; Load(ctx) layers file and env on top.
// - Validate wraps ErrInvalidConfig so callers can use errors.Is.
package config

import (
	"context"
	"fmt"
	"runtime"

	"github.com/okian/fairplay/internal/domain/anomaly"
	"github.com/okian/fairplay/internal/domain/calibration"
	"github.com/okian/fairplay/internal/domain/estimator"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/domain/policy"
	"github.com/okian/fairplay/internal/domain/shotdist"
)

// Deployment modes.
const (
	// ModeSettlement settles real wagers; the manual override is disabled.
	ModeSettlement = "settlement"
	// ModeDevelopment enables the manual override for testing.
	ModeDevelopment = "development"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`
	// Mode is settlement or development.
	Mode string `koanf:"mode"`
	// MetricsAddr serves /metrics when non-empty, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	BatchSize          int     `koanf:"batch_size"`
	HighStakesMultiple float64 `koanf:"high_stakes_multiple"`
	OutlierSigma       float64 `koanf:"outlier_sigma"`
	RateLimit          float64 `koanf:"rate_limit"`

	FatTailProbability float64 `koanf:"fat_tail_probability"`
	FatTailMultiplier  float64 `koanf:"fat_tail_multiplier"`

	ProcessNoise        float64 `koanf:"process_noise"`
	InitialUncertainty  float64 `koanf:"initial_uncertainty"`
	MinMeasurementNoise float64 `koanf:"min_measurement_noise"`
	ConfidenceLow       float64 `koanf:"confidence_low"`
	ConfidenceHigh      float64 `koanf:"confidence_high"`

	CalibrationSubdivisions    int     `koanf:"calibration_subdivisions"`
	CalibrationMaxRefinements  int     `koanf:"calibration_max_refinements"`
	CalibrationTolerance       float64 `koanf:"calibration_tolerance"`
	// TargetRTP overrides every hole's RTP when positive.
	TargetRTP float64 `koanf:"target_rtp"`

	CherryCorrelation       float64 `koanf:"cherry_correlation"`
	CherryWagerCV           float64 `koanf:"cherry_wager_cv"`
	SandbagDistanceMultiple float64 `koanf:"sandbag_distance_multiple"`
	SandbagLowWagerFraction float64 `koanf:"sandbag_low_wager_fraction"`
	SandbagMinRun           int     `koanf:"sandbag_min_run"`
	SandbagInflation        float64 `koanf:"sandbag_inflation"`
	SkillJumpWindow         int     `koanf:"skilljump_window"`
	SkillJumpThreshold      float64 `koanf:"skilljump_threshold"`
	SkillJumpOrganicRatio   float64 `koanf:"skilljump_organic_ratio"`

	// ShardCount configures the number of shards in the profile store.
	ShardCount int `koanf:"shard_count"`
	// DedupeSize bounds the shot-ID idempotency window.
	DedupeSize int `koanf:"dedupe_size"`
	// QueueSize bounds the venue session queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of bays running sessions in parallel.
	WorkerCount int `koanf:"worker_count"`

	SimPlayers       int     `koanf:"sim_players"`
	SimSessions      int     `koanf:"sim_sessions"`
	SimShots         int     `koanf:"sim_shots"`
	SimSeed          uint64  `koanf:"sim_seed"`
	SimWagerMin      float64 `koanf:"sim_wager_min"`
	SimWagerMax      float64 `koanf:"sim_wager_max"`
	SimHoleSelection string  `koanf:"sim_hole_selection"`
}

// New returns the default configuration. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Mode:      ModeSettlement,

		BatchSize:          policy.DefaultBatchSize,
		HighStakesMultiple: policy.DefaultHighStakesMultiple,
		OutlierSigma:       policy.DefaultOutlierSigma,
		RateLimit:          policy.DefaultRateLimit,

		FatTailProbability: shotdist.DefaultFatTailProbability,
		FatTailMultiplier:  shotdist.DefaultFatTailMultiplier,

		ProcessNoise:        estimator.DefaultProcessNoise,
		InitialUncertainty:  estimator.DefaultInitialUncertainty,
		MinMeasurementNoise: estimator.DefaultMinNoise,
		ConfidenceLow:       estimator.DefaultConfidenceLow,
		ConfidenceHigh:      estimator.DefaultConfidenceHigh,

		CalibrationSubdivisions:   calibration.DefaultSubdivisions,
		CalibrationMaxRefinements: calibration.DefaultMaxRefinements,
		CalibrationTolerance:      calibration.DefaultTolerance,
		TargetRTP:                 model.DefaultRTP,

		CherryCorrelation:       anomaly.DefaultCherryCorrelation,
		CherryWagerCV:           anomaly.DefaultCherryWagerCV,
		SandbagDistanceMultiple: anomaly.DefaultSandbagDistanceMultiple,
		SandbagLowWagerFraction: anomaly.DefaultSandbagLowWagerFraction,
		SandbagMinRun:           anomaly.DefaultSandbagMinRun,
		SandbagInflation:        anomaly.DefaultSandbagInflation,
		SkillJumpWindow:         anomaly.DefaultSkillJumpWindow,
		SkillJumpThreshold:      anomaly.DefaultSkillJumpThreshold,
		SkillJumpOrganicRatio:   anomaly.DefaultSkillJumpOrganicRatio,

		ShardCount:  8,
		DedupeSize:  50_000,
		QueueSize:   1024,
		WorkerCount: runtime.NumCPU(),

		SimPlayers:       24,
		SimSessions:      3,
		SimShots:         60,
		SimSeed:          1,
		SimWagerMin:      1,
		SimWagerMax:      20,
		SimHoleSelection: "random",
	}
}

// Validate checks the settings that are not already validated by the
// components they configure.
func (c *Config) Validate() error {
	switch {
	case c.Mode != ModeSettlement && c.Mode != ModeDevelopment:
		return fmt.Errorf("mode %q: %w", c.Mode, ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("log format %q: %w", c.LogFormat, ErrInvalidConfig)
	case c.FatTailProbability < 0 || c.FatTailProbability > 1:
		return fmt.Errorf("fat tail probability %v: %w", c.FatTailProbability, ErrInvalidConfig)
	case c.FatTailMultiplier < 1:
		return fmt.Errorf("fat tail multiplier %v: %w", c.FatTailMultiplier, ErrInvalidConfig)
	case c.TargetRTP < 0 || c.TargetRTP >= 1:
		return fmt.Errorf("target rtp %v: %w", c.TargetRTP, ErrInvalidConfig)
	case c.CalibrationSubdivisions < 2 || c.CalibrationMaxRefinements < 1 || c.CalibrationTolerance <= 0:
		return fmt.Errorf("calibration integrator (%d, %d, %v): %w",
			c.CalibrationSubdivisions, c.CalibrationMaxRefinements, c.CalibrationTolerance, ErrInvalidConfig)
	case c.SimWagerMin <= 0 || c.SimWagerMax < c.SimWagerMin:
		return fmt.Errorf("sim wager range [%v, %v]: %w", c.SimWagerMin, c.SimWagerMax, ErrInvalidConfig)
	case c.SimPlayers < 1 || c.SimSessions < 1 || c.SimShots < 1:
		return fmt.Errorf("sim size (%d players, %d sessions, %d shots): %w",
			c.SimPlayers, c.SimSessions, c.SimShots, ErrInvalidConfig)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Anomaly().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Settlement reports whether the process settles real wagers.
func (c *Config) Settlement() bool { return c.Mode != ModeDevelopment }

// Policy returns the update-policy thresholds.
func (c *Config) Policy() policy.Config {
	return policy.Config{
		BatchSize:           c.BatchSize,
		HighStakesMultiple:  c.HighStakesMultiple,
		OutlierSigma:        c.OutlierSigma,
		RateLimit:           c.RateLimit,
		MinMeasurementNoise: c.MinMeasurementNoise,
		ProcessNoise:        c.ProcessNoise,
		InitialUncertainty:  c.InitialUncertainty,
		ConfidenceLow:       c.ConfidenceLow,
		ConfidenceHigh:      c.ConfidenceHigh,
	}
}

// Anomaly returns the detector thresholds.
func (c *Config) Anomaly() anomaly.Config {
	return anomaly.Config{
		CherryCorrelation:       c.CherryCorrelation,
		CherryWagerCV:           c.CherryWagerCV,
		SandbagDistanceMultiple: c.SandbagDistanceMultiple,
		SandbagLowWagerFraction: c.SandbagLowWagerFraction,
		SandbagMinRun:           c.SandbagMinRun,
		SandbagInflation:        c.SandbagInflation,
		SkillJumpWindow:         c.SkillJumpWindow,
		SkillJumpThreshold:      c.SkillJumpThreshold,
		SkillJumpOrganicRatio:   c.SkillJumpOrganicRatio,
	}
}

// Calibrator builds the integrator with the configured budget.
func (c *Config) Calibrator() *calibration.Calibrator {
	return calibration.New(
		calibration.WithSubdivisions(c.CalibrationSubdivisions),
		calibration.WithMaxRefinements(c.CalibrationMaxRefinements),
		calibration.WithTolerance(c.CalibrationTolerance),
	)
}

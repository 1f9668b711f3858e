package app

import (
	"github.com/okian/fairplay/internal/adapters/repository"
	"github.com/okian/fairplay/internal/domain/anomaly"
	"github.com/okian/fairplay/internal/domain/calibration"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/domain/policy"
	"github.com/okian/fairplay/pkg/logger"
)

// Option configures an Engine.
type Option func(*Engine)

// WithPolicy sets the update-policy thresholds.
func WithPolicy(cfg policy.Config) Option {
	return func(e *Engine) { e.policy = cfg }
}

// WithAnomalyConfig sets the detector thresholds.
func WithAnomalyConfig(cfg anomaly.Config) Option {
	return func(e *Engine) { e.anomaly = cfg }
}

// WithCourse replaces the stock course.
func WithCourse(c *model.Course) Option {
	return func(e *Engine) {
		if c != nil {
			e.course = c
		}
	}
}

// WithCalibrator replaces the default integrator.
func WithCalibrator(c *calibration.Calibrator) Option {
	return func(e *Engine) {
		if c != nil {
			e.calibrator = c
		}
	}
}

// WithDedupeSize bounds the shot-ID idempotency window.
func WithDedupeSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.dedupeSize = n
		}
	}
}

// WithShardCount sets the number of profile store shards.
func WithShardCount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.shardCount = n
		}
	}
}

// WithStore replaces the profile store.
func WithStore(s repository.Store[*Profile]) Option {
	return func(e *Engine) {
		if s != nil {
			e.profiles = s
		}
	}
}

// WithSettlement marks the engine as settling real wagers, which disables
// the manual override. Engines settle by default.
func WithSettlement(on bool) Option {
	return func(e *Engine) { e.settlement = on }
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

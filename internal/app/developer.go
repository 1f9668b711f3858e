package app

import (
	"context"

	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/pkg/logger"
)

// Developer is the manual-override surface used to exercise a bay without a
// launch monitor. Shots it records bypass no protections of their own; they
// are only tagged so that audits can tell them apart.
type Developer struct {
	engine *Engine
}

// Developer returns the manual-override surface. Engines in settlement mode
// refuse it.
func (e *Engine) Developer() (*Developer, error) {
	if e.settlement {
		return nil, ErrManualOverrideDisabled
	}
	return &Developer{engine: e}, nil
}

// RecordManualShot records a shot whose distance was typed in rather than
// measured.
func (d *Developer) RecordManualShot(ctx context.Context, playerID string, shot model.Shot) (Outcome, error) {
	d.engine.logger.Warn(ctx, "manual shot",
		logger.String("player", playerID),
		logger.Int("hole", shot.HoleID),
		logger.Float64("distance", shot.Distance),
	)
	return d.engine.record(ctx, playerID, shot, model.SourceManual)
}

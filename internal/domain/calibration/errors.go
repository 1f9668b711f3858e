package calibration

import (
	"errors"

	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/domain/shotdist"
)

// Sentinel kinds for calibration errors.
var (
	// ErrCalibrationStalled reports that the integral did not converge within
	// the refinement budget. It is not fatal; callers keep their last ceiling.
	ErrCalibrationStalled = errors.New("calibration stalled")

	ErrInvalidRTP      = model.ErrInvalidRTP
	ErrInvalidGeometry = model.ErrInvalidGeometry
	ErrInvalidSigma    = shotdist.ErrInvalidSigma
)

package sim

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/fairplay/internal/domain/calibration"
	"github.com/okian/fairplay/internal/domain/estimator"
	"github.com/okian/fairplay/internal/domain/model"
)

// DefaultFairnessTolerance is the widest expected-RTP spread across
// handicaps that still counts as fair.
const DefaultFairnessTolerance = 0.01

// FairnessRow is one handicap on one hole.
type FairnessRow struct {
	Handicap    float64
	Sigma       float64
	Ceiling     float64
	ExpectedRTP float64
}

// HoleFairness compares handicaps on one hole.
type HoleFairness struct {
	Hole model.Hole
	Rows []FairnessRow
	// RTPSpread is max − min expected RTP across the rows.
	RTPSpread float64
	// MultiplierRatio is the largest ceiling over the smallest.
	MultiplierRatio float64
	Fair            bool
}

// Fairness is the report for a whole course.
type Fairness struct {
	Holes     []HoleFairness
	Tolerance float64
}

// Fair reports whether every hole is fair.
func (f Fairness) Fair() bool {
	for _, h := range f.Holes {
		if !h.Fair {
			return false
		}
	}
	return true
}

// FairnessReport calibrates every hole for the prior dispersion of each
// handicap and re-derives the expected RTP on an independent grid. A fair
// course pays every handicap the same expected return through different
// ceilings.
func FairnessReport(course *model.Course, handicaps []float64, cal *calibration.Calibrator, tolerance float64) (Fairness, error) {
	if len(handicaps) == 0 {
		return Fairness{}, fmt.Errorf("no handicaps: %w", ErrInvalidSession)
	}
	if cal == nil {
		cal = calibration.New()
	}
	if tolerance <= 0 {
		tolerance = DefaultFairnessTolerance
	}

	report := Fairness{Tolerance: tolerance}
	for _, hole := range course.Holes() {
		hf := HoleFairness{Hole: hole, Rows: make([]FairnessRow, 0, len(handicaps))}
		ceilings := make([]float64, 0, len(handicaps))
		rtps := make([]float64, 0, len(handicaps))
		for _, hcp := range handicaps {
			sigma, err := estimator.PriorSigma(hole.Category(), hcp)
			if err != nil {
				return Fairness{}, err
			}
			c, err := cal.Solve(hole.RTP, hole.MaxRadius, hole.Decay, sigma)
			if err != nil {
				return Fairness{}, fmt.Errorf("hole %d handicap %v: %w", hole.ID, hcp, err)
			}
			rtp, err := calibration.ExpectedReturn(c, hole.MaxRadius, hole.Decay, sigma)
			if err != nil {
				return Fairness{}, err
			}
			hf.Rows = append(hf.Rows, FairnessRow{Handicap: hcp, Sigma: sigma, Ceiling: c, ExpectedRTP: rtp})
			ceilings = append(ceilings, c)
			rtps = append(rtps, rtp)
		}
		hf.RTPSpread = floats.Max(rtps) - floats.Min(rtps)
		hf.MultiplierRatio = floats.Max(ceilings) / floats.Min(ceilings)
		hf.Fair = hf.RTPSpread <= tolerance
		report.Holes = append(report.Holes, hf)
	}
	return report, nil
}

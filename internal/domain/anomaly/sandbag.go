package anomaly

import (
	"fmt"
	"math"

	"github.com/okian/fairplay/internal/domain/model"
)

// detectSandbagging looks for the longest run of cheap, deliberately bad
// shots and measures how far the ceiling rose from before the run to any
// point after it started. Ceilings are compared per hole.
func detectSandbagging(shots []model.Observation, cfg Config) *Report {
	if len(shots) < MinSandbaggingShots {
		return nil
	}

	distances := make([]float64, len(shots))
	wagers := make([]float64, len(shots))
	for i, o := range shots {
		distances[i] = o.Distance
		wagers[i] = o.Wager
	}
	baseline := median(sortedCopy(distances))
	typicalWager := median(sortedCopy(wagers))

	poor := func(o model.Observation) bool {
		return o.Distance >= cfg.SandbagDistanceMultiple*baseline &&
			o.Wager <= cfg.SandbagLowWagerFraction*typicalWager
	}

	start, length := -1, 0
	for i := 0; i < len(shots); {
		if !poor(shots[i]) {
			i++
			continue
		}
		j := i
		for j < len(shots) && poor(shots[j]) {
			j++
		}
		if j-i > length {
			start, length = i, j-i
		}
		i = j
	}

	if length == 0 {
		return &Report{
			Kind:     KindSandbagging,
			Evidence: fmt.Sprintf("no low-wager run of poor shots against a %.1f yd baseline", baseline),
		}
	}

	inflation := ceilingInflation(shots, start)
	runScore := math.Min(1, float64(length)/float64(2*cfg.SandbagMinRun))
	inflScore := clamp01((inflation - 1) / (cfg.SandbagInflation - 1))

	return &Report{
		Kind:       KindSandbagging,
		Confidence: clamp01((runScore + inflScore) / 2),
		Statistic:  inflation,
		Flagged:    length >= cfg.SandbagMinRun && inflation >= cfg.SandbagInflation,
		Evidence: fmt.Sprintf("%d consecutive poor low-wager shots from seq %d (baseline %.1f yd), ceiling inflated %.2fx",
			length, shots[start].Seq, baseline, inflation),
	}
}

// ceilingInflation returns the largest per-hole ratio of the maximum ceiling
// paid from start onward to the minimum ceiling paid before start. A hole
// first played inside the run is measured against its first ceiling.
func ceilingInflation(shots []model.Observation, start int) float64 {
	before := make(map[int]float64)
	for _, o := range shots[:start] {
		if c, ok := before[o.HoleID]; !ok || o.Ceiling < c {
			before[o.HoleID] = o.Ceiling
		}
	}
	after := make(map[int]float64)
	for _, o := range shots[start:] {
		if _, ok := before[o.HoleID]; !ok {
			before[o.HoleID] = o.Ceiling
		}
		if o.Ceiling > after[o.HoleID] {
			after[o.HoleID] = o.Ceiling
		}
	}

	ratio := 1.0
	for hole, hi := range after {
		if lo := before[hole]; lo > 0 && hi/lo > ratio {
			ratio = hi / lo
		}
	}
	return ratio
}

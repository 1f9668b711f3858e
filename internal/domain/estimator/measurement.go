package estimator

import (
	"fmt"
	"math"

	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/domain/shotdist"
	"gonum.org/v1/gonum/stat"
)

// Measurement noise defaults.
const (
	DefaultMinNoise = 50.0
	// singleShotVariance stands in for the sample variance of a one-shot batch.
	singleShotVariance = 100.0
)

// Measurement is a batch reduced to one observation of σ.
type Measurement struct {
	// Value is the bias-corrected estimate of σ.
	Value float64
	// Noise is the measurement variance handed to the filter.
	Noise float64
	// WeightedMean is the raw wager-weighted mean distance.
	WeightedMean float64
	Used         int
	Excluded     []int64
}

// BuildMeasurement reduces a batch to a measurement. Observations with a
// non-positive wager are excluded individually; a batch with nothing left is
// rejected with ErrEmptyBatch.
func BuildMeasurement(batch []model.Observation, minNoise float64) (Measurement, error) {
	var m Measurement
	dists := make([]float64, 0, len(batch))
	wagers := make([]float64, 0, len(batch))
	for _, o := range batch {
		if math.IsNaN(o.Distance) || math.IsInf(o.Distance, 0) || o.Distance < 0 {
			return Measurement{}, fmt.Errorf("observation %d distance %v: %w", o.Seq, o.Distance, ErrInvalidDistance)
		}
		if !(o.Wager > 0) || math.IsInf(o.Wager, 0) {
			m.Excluded = append(m.Excluded, o.Seq)
			continue
		}
		dists = append(dists, o.Distance)
		wagers = append(wagers, o.Wager)
	}
	if len(dists) == 0 {
		return Measurement{}, ErrEmptyBatch
	}

	m.Used = len(dists)
	m.WeightedMean = stat.Mean(dists, wagers)
	m.Value = m.WeightedMean / shotdist.MeanFactor

	variance := singleShotVariance
	if len(dists) > 1 {
		variance = stat.Variance(dists, nil)
	}
	m.Noise = math.Max(variance, minNoise)
	return m, nil
}

package policy

import (
	"math"

	"github.com/okian/fairplay/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Screen drops observations whose distance lies more than k standard
// deviations from the mean of the rest of the batch. Each shot is judged
// against the others so that a single wild shot cannot widen the spread it
// is measured against. Batches smaller than four are returned unchanged, as
// is a batch the screen would empty.
func Screen(batch []model.Observation, k float64) (kept []model.Observation, excluded []int64) {
	if k <= 0 || len(batch) < minScreenSize {
		return batch, nil
	}

	others := make([]float64, 0, len(batch)-1)
	kept = make([]model.Observation, 0, len(batch))
	for i, o := range batch {
		others = others[:0]
		for j, p := range batch {
			if j != i {
				others = append(others, p.Distance)
			}
		}
		mean, std := stat.MeanStdDev(others, nil)
		if std > 0 && math.Abs(o.Distance-mean) > k*std {
			excluded = append(excluded, o.Seq)
			continue
		}
		kept = append(kept, o)
	}
	if len(kept) == 0 {
		return batch, nil
	}
	return kept, excluded
}

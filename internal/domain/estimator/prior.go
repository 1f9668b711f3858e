package estimator

import (
	"fmt"
	"math"

	"github.com/okian/fairplay/internal/domain/model"
)

// Handicap bounds accepted by PriorSigma.
const (
	MinHandicap = -10.0
	MaxHandicap = 54.0
)

// PriorSigma seeds a category estimate from a handicap:
//
//	σ = yds · 3 · (0.05 + (yds − 75)/175 · 0.01) · (0.5 + handicap/30)
//
// where yds is the category's representative distance. Longer clubs and
// higher handicaps both widen the prior.
func PriorSigma(cat model.Category, handicap float64) (float64, error) {
	if math.IsNaN(handicap) || handicap < MinHandicap || handicap > MaxHandicap {
		return 0, fmt.Errorf("handicap %v: %w", handicap, ErrInvalidHandicap)
	}
	yds := cat.RepresentativeYards()
	base := yds * 3 * (0.05 + (yds-75)/175*0.01)
	return base * (0.5 + handicap/30), nil
}

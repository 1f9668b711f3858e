package anomaly

import (
	"fmt"
	"math"

	"github.com/okian/fairplay/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// quality maps a miss distance to (0, 1]; closer is better.
func quality(d float64) float64 { return 1 / (1 + d) }

// detectCherryPicking correlates wager size with shot quality. A player who
// only bets big on shots they already know are good shows a strong positive
// correlation together with wagers that actually vary.
func detectCherryPicking(shots []model.Observation, cfg Config) *Report {
	if len(shots) < MinCherryPickingShots {
		return nil
	}

	wagers := make([]float64, len(shots))
	qualities := make([]float64, len(shots))
	for i, o := range shots {
		wagers[i] = o.Wager
		qualities[i] = quality(o.Distance)
	}

	mean, std := stat.MeanStdDev(wagers, nil)
	cv := 0.0
	if mean > 0 {
		cv = std / mean
	}
	corr := 0.0
	if std > 0 {
		if c := stat.Correlation(wagers, qualities, nil); !math.IsNaN(c) {
			corr = c
		}
	}

	confidence := clamp01(corr) * math.Min(1, cv/cfg.CherryWagerCV)
	flagged := corr >= cfg.CherryCorrelation && cv >= cfg.CherryWagerCV

	return &Report{
		Kind:       KindCherryPicking,
		Confidence: confidence,
		Statistic:  corr,
		Flagged:    flagged,
		Evidence: fmt.Sprintf("wager/quality correlation %.2f over %d shots, wager variation %s",
			corr, len(shots), pct(cv)),
	}
}

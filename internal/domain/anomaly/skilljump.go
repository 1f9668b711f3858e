package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/fairplay/internal/domain/model"
)

// detectSkillJump scans each category's published estimates for an
// improvement larger than the threshold within the window. A drop that
// coincides with the uncertainty shrinking by the organic ratio or more is
// ordinary convergence and is ignored.
func detectSkillJump(shotCount int, updates []model.UpdateRecord, cfg Config) *Report {
	if shotCount < MinSkillJumpShots {
		return nil
	}

	byCategory := make(map[model.Category][]model.UpdateRecord)
	for _, u := range updates {
		byCategory[u.Category] = append(byCategory[u.Category], u)
	}

	best := 0.0
	var where string
	for _, cat := range model.Categories() {
		series := byCategory[cat]
		sort.SliceStable(series, func(i, j int) bool { return series[i].Seq < series[j].Seq })
		for i := range series {
			for lag := 1; lag <= cfg.SkillJumpWindow && lag <= i; lag++ {
				from, to := series[i-lag], series[i]
				if from.Estimate <= 0 || to.Uncertainty <= 0 {
					continue
				}
				if from.Uncertainty/to.Uncertainty >= cfg.SkillJumpOrganicRatio {
					continue
				}
				imp := (from.Estimate - to.Estimate) / from.Estimate
				if imp > best {
					best = imp
					where = fmt.Sprintf("%s estimate %.1f -> %.1f over %d updates (update %d)",
						cat, from.Estimate, to.Estimate, lag, to.Seq)
				}
			}
		}
	}

	if where == "" {
		return &Report{
			Kind:     KindSkillJump,
			Evidence: fmt.Sprintf("no non-organic improvement across %d updates", len(updates)),
		}
	}
	return &Report{
		Kind:       KindSkillJump,
		Confidence: clamp01(1 - math.Exp(-best/cfg.SkillJumpThreshold)),
		Statistic:  best,
		Flagged:    best > cfg.SkillJumpThreshold,
		Evidence:   fmt.Sprintf("%s improved %s", where, pct(best)),
	}
}

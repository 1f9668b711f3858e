// Package anomaly holds read-only detectors that look for manipulation in a
// finished shot history. Detectors never touch live estimator state; they
// work on an immutable model.HistorySnapshot.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/fairplay/internal/domain/model"
	"gonum.org/v1/gonum/stat"
)

// Kind names a detector.
type Kind string

const (
	KindCherryPicking Kind = "cherry_picking"
	KindSandbagging   Kind = "sandbagging"
	KindSkillJump     Kind = "skill_jump"
)

// Minimum history sizes below which a detector has no opinion.
const (
	MinCherryPickingShots = 10
	MinSandbaggingShots   = 10
	MinSkillJumpShots     = 20
)

// Report is one detector's verdict.
type Report struct {
	Kind       Kind
	Confidence float64
	// Statistic is the detector's headline number: the wager/quality
	// correlation, the ceiling inflation ratio, or the relative improvement.
	Statistic float64
	Evidence  string
	Flagged   bool
}

// Analysis bundles the three detectors. A nil report means the history was
// too short for that detector.
type Analysis struct {
	CherryPicking *Report
	Sandbagging   *Report
	SkillJump     *Report
}

// Reports returns the non-nil reports in a stable order.
func (a Analysis) Reports() []*Report {
	out := make([]*Report, 0, 3)
	for _, r := range []*Report{a.CherryPicking, a.Sandbagging, a.SkillJump} {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Flagged reports whether any detector flagged the history.
func (a Analysis) Flagged() bool {
	for _, r := range a.Reports() {
		if r.Flagged {
			return true
		}
	}
	return false
}

// Analyze runs every detector over the snapshot.
func Analyze(h model.HistorySnapshot, cfg Config) (Analysis, error) {
	if err := cfg.Validate(); err != nil {
		return Analysis{}, err
	}
	shots := ordered(h.Shots)
	return Analysis{
		CherryPicking: detectCherryPicking(shots, cfg),
		Sandbagging:   detectSandbagging(shots, cfg),
		SkillJump:     detectSkillJump(len(shots), h.Updates, cfg),
	}, nil
}

// DetectCherryPicking runs the cherry-picking detector alone.
func DetectCherryPicking(shots []model.Observation, cfg Config) *Report {
	return detectCherryPicking(ordered(shots), cfg)
}

// DetectSandbagging runs the sandbagging detector alone.
func DetectSandbagging(shots []model.Observation, cfg Config) *Report {
	return detectSandbagging(ordered(shots), cfg)
}

// DetectSkillJump runs the skill-jump detector alone.
func DetectSkillJump(h model.HistorySnapshot, cfg Config) *Report {
	return detectSkillJump(len(h.Shots), h.Updates, cfg)
}

func ordered(shots []model.Observation) []model.Observation {
	out := append([]model.Observation(nil), shots...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// median expects a sorted copy.
func median(sorted []float64) float64 {
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

func sortedCopy(xs []float64) []float64 {
	out := append([]float64(nil), xs...)
	sort.Float64s(out)
	return out
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(1, x))
}

func pct(x float64) string { return fmt.Sprintf("%.1f%%", 100*x) }

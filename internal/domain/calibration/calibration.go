// Package calibration solves the payout-multiplier ceiling that holds a
// target return to player for a given miss-distance dispersion.
//
// The expected payout ratio for ceiling P is
//
//	RTP = P · ∫₀^dmax (1 − d/dmax)^k · ρ(d, σ) dd
//
// and the integral has no closed form, so it is evaluated with composite
// Simpson's rule on a grid graded toward d = 0. The subdivision count is
// doubled until two successive estimates agree within the tolerance, inside a
// fixed refinement budget.
package calibration

import (
	"fmt"
	"math"

	"github.com/okian/fairplay/internal/domain/shotdist"
	"gonum.org/v1/gonum/integrate"
)

// Defaults for the integrator.
const (
	DefaultSubdivisions   = 64
	DefaultMaxRefinements = 8
	DefaultTolerance      = 1e-3
	// DefaultTailSpan bounds the grid at tailSpan·σ; the density beyond
	// 12σ is below 1e-30.
	DefaultTailSpan = 12.0

	auditPoints = 20001
)

// MinCeiling is the lowest ceiling ever published.
const MinCeiling = 1.0

// Calibrator evaluates the payout integral with a bounded budget.
type Calibrator struct {
	subdivisions   int
	maxRefinements int
	tolerance      float64
	tailSpan       float64
}

// New creates a Calibrator with defaults overridden by opts.
func New(opts ...Option) *Calibrator {
	c := &Calibrator{
		subdivisions:   DefaultSubdivisions,
		maxRefinements: DefaultMaxRefinements,
		tolerance:      DefaultTolerance,
		tailSpan:       DefaultTailSpan,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var std = New()

// Solve uses the default calibrator.
func Solve(rtp, dMax, k, sigma float64) (float64, error) {
	return std.Solve(rtp, dMax, k, sigma)
}

// Solve returns the ceiling P_max = rtp / I(σ), floored at MinCeiling.
// It is a pure function of its inputs.
func (c *Calibrator) Solve(rtp, dMax, k, sigma float64) (float64, error) {
	if !(rtp > 0 && rtp < 1) {
		return 0, fmt.Errorf("rtp %v: %w", rtp, ErrInvalidRTP)
	}
	integral, err := c.Integral(dMax, k, sigma)
	if err != nil {
		return 0, err
	}
	pMax := rtp / integral
	if math.IsInf(pMax, 0) || math.IsNaN(pMax) {
		return 0, fmt.Errorf("ceiling for sigma %v is not finite: %w", sigma, ErrCalibrationStalled)
	}
	return math.Max(pMax, MinCeiling), nil
}

// Integral returns I(σ) = ∫₀^dmax (1 − d/dmax)^k ρ(d, σ) dd.
func (c *Calibrator) Integral(dMax, k, sigma float64) (float64, error) {
	if err := checkGeometry(dMax, k); err != nil {
		return 0, err
	}
	dist, err := shotdist.New(sigma)
	if err != nil {
		return 0, err
	}

	upper := math.Min(dMax, c.tailSpan*sigma)
	n := c.subdivisions
	prev := c.simpson(dist, dMax, k, upper, n)
	for i := 0; i < c.maxRefinements; i++ {
		n *= 2
		cur := c.simpson(dist, dMax, k, upper, n)
		if math.IsNaN(cur) || math.IsInf(cur, 0) {
			break
		}
		if math.Abs(cur-prev) <= c.tolerance*math.Abs(cur) {
			if cur <= 0 {
				break
			}
			return cur, nil
		}
		prev = cur
	}
	return 0, fmt.Errorf("sigma %v, dmax %v, k %v after %d refinements: %w",
		sigma, dMax, k, c.maxRefinements, ErrCalibrationStalled)
}

// simpson integrates on x_i = upper·(i/n)², which concentrates points near
// zero where both the density and the decay curve change fastest.
func (c *Calibrator) simpson(dist shotdist.Rayleigh, dMax, k, upper float64, n int) float64 {
	xs := make([]float64, n+1)
	fs := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		x := upper * t * t
		xs[i] = x
		fs[i] = decay(x, dMax, k) * dist.Density(x)
	}
	return integrate.Simpsons(xs, fs)
}

// ExpectedReturn re-derives the payout ratio for a ceiling on an independent
// uniform trapezoidal grid. It is used for audits.
func ExpectedReturn(pMax, dMax, k, sigma float64) (float64, error) {
	if err := checkGeometry(dMax, k); err != nil {
		return 0, err
	}
	dist, err := shotdist.New(sigma)
	if err != nil {
		return 0, err
	}
	xs := make([]float64, auditPoints)
	fs := make([]float64, auditPoints)
	for i := range xs {
		x := dMax * float64(i) / float64(auditPoints-1)
		xs[i] = x
		fs[i] = decay(x, dMax, k) * dist.Density(x)
	}
	return pMax * integrate.Trapezoidal(xs, fs), nil
}

// Payout returns the multiplier for a miss distance: P·(1 − d/dmax)^k inside
// the scoring radius and zero outside it.
func Payout(distance, pMax, dMax, k float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return pMax * decay(distance, dMax, k)
}

// BreakevenRadius is the distance at which the multiplier equals 1.
func BreakevenRadius(pMax, dMax, k float64) float64 {
	if pMax <= 1 {
		return 0
	}
	return dMax * (1 - math.Pow(pMax, -1/k))
}

func decay(d, dMax, k float64) float64 {
	if d >= dMax {
		return 0
	}
	return math.Pow(1-d/dMax, k)
}

func checkGeometry(dMax, k float64) error {
	if !(dMax > 0) || math.IsInf(dMax, 0) {
		return fmt.Errorf("max radius %v: %w", dMax, ErrInvalidGeometry)
	}
	if !(k > 0) || math.IsInf(k, 0) {
		return fmt.Errorf("decay exponent %v: %w", k, ErrInvalidGeometry)
	}
	return nil
}

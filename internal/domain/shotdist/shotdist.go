// Package shotdist models a player's miss distance.
//
// The base family is the Rayleigh distribution with scale σ, expressed as a
// Weibull with shape 2 and scale σ·√2. An optional mixture component scaled
// by a fat-tail multiplier models occasional severe mishits.
package shotdist

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Default mixture parameters.
const (
	DefaultFatTailProbability = 0.02
	DefaultFatTailMultiplier  = 3.0
)

// MeanFactor is the ratio mean/σ of the base family (√(π/2)).
var MeanFactor = math.Sqrt(math.Pi / 2)

// Uniform yields values in [0, 1). *rand.Rand from math/rand/v2 satisfies it.
type Uniform interface {
	Float64() float64
}

// Rayleigh is the base miss-distance distribution for a fixed σ.
type Rayleigh struct {
	sigma float64
	w     distuv.Weibull
}

// New builds the distribution, rejecting σ that is not finite and positive.
func New(sigma float64) (Rayleigh, error) {
	if err := checkSigma(sigma); err != nil {
		return Rayleigh{}, err
	}
	return Rayleigh{sigma: sigma, w: distuv.Weibull{K: 2, Lambda: sigma * math.Sqrt2}}, nil
}

// Sigma returns the scale parameter.
func (r Rayleigh) Sigma() float64 { return r.sigma }

// Density returns the probability density at d; zero for d < 0.
func (r Rayleigh) Density(d float64) float64 {
	if d < 0 {
		return 0
	}
	return r.w.Prob(d)
}

// CDF returns P(D ≤ d).
func (r Rayleigh) CDF(d float64) float64 {
	if d <= 0 {
		return 0
	}
	return r.w.CDF(d)
}

// Quantile inverts the CDF; u is clamped into [0, 1).
func (r Rayleigh) Quantile(u float64) float64 {
	if u <= 0 {
		return 0
	}
	if u >= 1 {
		u = math.Nextafter(1, 0)
	}
	return r.w.Quantile(u)
}

// Mean returns σ·√(π/2).
func (r Rayleigh) Mean() float64 { return r.sigma * MeanFactor }

// Density is the stateless form of Rayleigh.Density.
func Density(d, sigma float64) (float64, error) {
	r, err := New(sigma)
	if err != nil {
		return 0, err
	}
	return r.Density(d), nil
}

// Draw is one sampled miss distance.
type Draw struct {
	Distance float64
	FatTail  bool
}

// Sample draws a miss distance. With probability fatTailProb the draw comes
// from the same family scaled by fatTailMult. The fat-tail roll only consumes
// a uniform when fatTailProb > 0.
func Sample(src Uniform, sigma, fatTailProb, fatTailMult float64) (Draw, error) {
	if src == nil {
		return Draw{}, fmt.Errorf("nil uniform source: %w", ErrInvalidParameter)
	}
	if err := checkSigma(sigma); err != nil {
		return Draw{}, err
	}
	if fatTailProb < 0 || fatTailProb > 1 || math.IsNaN(fatTailProb) {
		return Draw{}, fmt.Errorf("fat tail probability %v: %w", fatTailProb, ErrInvalidParameter)
	}
	if fatTailMult < 1 || math.IsNaN(fatTailMult) || math.IsInf(fatTailMult, 0) {
		return Draw{}, fmt.Errorf("fat tail multiplier %v: %w", fatTailMult, ErrInvalidParameter)
	}

	scale := sigma
	fat := false
	if fatTailProb > 0 && src.Float64() < fatTailProb {
		scale *= fatTailMult
		fat = true
	}
	r, err := New(scale)
	if err != nil {
		return Draw{}, err
	}
	return Draw{Distance: r.Quantile(src.Float64()), FatTail: fat}, nil
}

func checkSigma(sigma float64) error {
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return fmt.Errorf("sigma %v: %w", sigma, ErrInvalidSigma)
	}
	return nil
}

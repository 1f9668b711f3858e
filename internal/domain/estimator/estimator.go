// Package estimator tracks a player's dispersion with a one-dimensional
// recursive Bayesian (Kalman) filter.
//
// A Filter is owned by exactly one (player, category) unit and is not safe
// for concurrent use; the owner serializes access.
package estimator

import (
	"fmt"
	"math"
)

// Defaults for a new filter.
const (
	DefaultInitialUncertainty = 1000.0
	DefaultProcessNoise       = 1.0
	DefaultConfidenceLow      = 50.0
	DefaultConfidenceHigh     = 1000.0
)

// State is a value copy of a filter.
type State struct {
	Estimate           float64
	Uncertainty        float64
	Initial            float64
	InitialUncertainty float64
	ProcessNoise       float64
	Updates            int
}

// Filter holds the current estimate and its uncertainty.
type Filter struct {
	state    State
	confLow  float64
	confHigh float64
}

// New creates a filter seeded at initial.
func New(initial float64, opts ...Option) (*Filter, error) {
	if !(initial > 0) || math.IsInf(initial, 0) {
		return nil, fmt.Errorf("initial estimate %v: %w", initial, ErrInvalidEstimate)
	}
	f := &Filter{
		state: State{
			Estimate:           initial,
			Initial:            initial,
			InitialUncertainty: DefaultInitialUncertainty,
			ProcessNoise:       DefaultProcessNoise,
		},
		confLow:  DefaultConfidenceLow,
		confHigh: DefaultConfidenceHigh,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.state.Uncertainty = f.state.InitialUncertainty
	return f, nil
}

// Predict inflates the uncertainty by the process noise.
func (f *Filter) Predict() {
	f.state.Uncertainty += f.state.ProcessNoise
}

// Update folds in a measurement z with noise r and returns the gain used.
func (f *Filter) Update(z, r float64) (float64, error) {
	if !(z >= 0) || math.IsInf(z, 0) {
		return 0, fmt.Errorf("measurement %v: %w", z, ErrInvalidMeasurement)
	}
	if !(r > 0) || math.IsInf(r, 0) {
		return 0, fmt.Errorf("measurement noise %v: %w", r, ErrInvalidMeasurement)
	}
	p := f.state.Uncertainty
	gain := p / (p + r)
	f.state.Estimate += gain * (z - f.state.Estimate)
	f.state.Uncertainty = (1 - gain) * p
	f.state.Updates++
	return gain, nil
}

// ScaleBack moves the estimate back toward prev so that only the fraction t
// of the last change remains. t is clamped to [0, 1].
func (f *Filter) ScaleBack(prev, t float64) {
	t = math.Max(0, math.Min(1, t))
	f.state.Estimate = prev + t*(f.state.Estimate-prev)
}

// Estimate returns the current dispersion estimate.
func (f *Filter) Estimate() float64 { return f.state.Estimate }

// Uncertainty returns the current error variance.
func (f *Filter) Uncertainty() float64 { return f.state.Uncertainty }

// StandardError returns √uncertainty.
func (f *Filter) StandardError() float64 { return math.Sqrt(f.state.Uncertainty) }

// State returns a copy of the filter state.
func (f *Filter) State() State { return f.state }

// Restore replaces the filter state, e.g. to undo a rejected update.
func (f *Filter) Restore(s State) { f.state = s }

// Reset returns the filter to its seed estimate and initial uncertainty.
func (f *Filter) Reset() {
	f.state.Estimate = f.state.Initial
	f.state.Uncertainty = f.state.InitialUncertainty
	f.state.Updates = 0
}

// Confidence maps uncertainty onto [0, 100]. Inside the configured band the
// score is linear in log-uncertainty; outside it clamps.
func (f *Filter) Confidence() float64 {
	return ConfidenceFor(f.state.Uncertainty, f.confLow, f.confHigh)
}

// ConfidenceFor is the stateless form of Filter.Confidence.
func ConfidenceFor(uncertainty, low, high float64) float64 {
	switch {
	case uncertainty <= low:
		return 100
	case uncertainty >= high:
		return 0
	}
	return 100 * (1 - math.Log(uncertainty/low)/math.Log(high/low))
}

package estimator

// Option applies a configuration option to the Filter.
type Option func(*Filter)

// WithInitialUncertainty sets the starting error variance.
func WithInitialUncertainty(p float64) Option {
	return func(f *Filter) {
		if p > 0 {
			f.state.InitialUncertainty = p
		}
	}
}

// WithProcessNoise sets the drift added by each Predict.
func WithProcessNoise(q float64) Option {
	return func(f *Filter) {
		if q >= 0 {
			f.state.ProcessNoise = q
		}
	}
}

// WithConfidenceBand sets the uncertainty range mapped onto 100..0.
func WithConfidenceBand(low, high float64) Option {
	return func(f *Filter) {
		if low > 0 && high > low {
			f.confLow = low
			f.confHigh = high
		}
	}
}

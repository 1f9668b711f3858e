package calibration

// Option applies a configuration option to the Calibrator.
type Option func(*Calibrator)

// WithSubdivisions sets the starting subdivision count, rounded up to even.
func WithSubdivisions(n int) Option {
	return func(c *Calibrator) {
		if n < 2 {
			return
		}
		if n%2 == 1 {
			n++
		}
		c.subdivisions = n
	}
}

// WithMaxRefinements bounds how many times the subdivision count doubles.
func WithMaxRefinements(n int) Option {
	return func(c *Calibrator) {
		if n >= 0 {
			c.maxRefinements = n
		}
	}
}

// WithTolerance sets the relative agreement required between refinements.
func WithTolerance(tol float64) Option {
	return func(c *Calibrator) {
		if tol > 0 {
			c.tolerance = tol
		}
	}
}

// WithTailSpan sets how many σ the grid extends before it is cut off.
func WithTailSpan(span float64) Option {
	return func(c *Calibrator) {
		if span > 0 {
			c.tailSpan = span
		}
	}
}

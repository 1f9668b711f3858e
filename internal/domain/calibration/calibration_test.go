package calibration_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/okian/fairplay/internal/domain/calibration"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	holeRadius = 47.58
	holeDecay  = 6.0
	targetRTP  = 0.88
)

func TestSolve(t *testing.T) {
	Convey("Given the mid-iron hole geometry and an 0.88 target", t, func() {
		Convey("When sigma is 40", func() {
			pMax, err := calibration.Solve(targetRTP, holeRadius, holeDecay, 40)

			Convey("Then the ceiling lands in the pinned band", func() {
				So(err, ShouldBeNil)
				So(pMax, ShouldBeBetween, 36.3, 36.6)
			})
		})

		Convey("When sweeping sigma across the operating range", func() {
			for _, sigma := range []float64{1, 2, 5, 10, 20, 40, 75, 100, 200} {
				pMax, err := calibration.Solve(targetRTP, holeRadius, holeDecay, sigma)
				So(err, ShouldBeNil)

				Convey(fmt.Sprintf("Then sigma %g keeps the ceiling at or above one and reproduces the target", sigma), func() {
					So(pMax, ShouldBeGreaterThanOrEqualTo, calibration.MinCeiling)
					rtp, err := calibration.ExpectedReturn(pMax, holeRadius, holeDecay, sigma)
					So(err, ShouldBeNil)
					So(math.Abs(rtp/targetRTP-1), ShouldBeLessThanOrEqualTo, 0.005)
				})
			}
		})

		Convey("When sigma is tiny", func() {
			pMax, err := calibration.Solve(targetRTP, holeRadius, holeDecay, 0.05)

			Convey("Then the ceiling is floored at one", func() {
				So(err, ShouldBeNil)
				So(pMax, ShouldEqual, calibration.MinCeiling)
			})
		})

		Convey("When called twice with identical inputs", func() {
			a, errA := calibration.Solve(targetRTP, holeRadius, holeDecay, 33.3)
			b, errB := calibration.Solve(targetRTP, holeRadius, holeDecay, 33.3)

			Convey("Then the results are identical", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldEqual, b)
			})
		})

		Convey("When sigma increases", func() {
			prev := 0.0
			monotone := true
			for sigma := 0.25; sigma <= 300; sigma += 0.75 {
				pMax, err := calibration.Solve(targetRTP, holeRadius, holeDecay, sigma)
				So(err, ShouldBeNil)
				if pMax < prev {
					monotone = false
				}
				prev = pMax
			}

			Convey("Then the ceiling never decreases", func() {
				So(monotone, ShouldBeTrue)
			})
		})

		Convey("When sigma dwarfs the scoring radius", func() {
			pMax, err := calibration.Solve(targetRTP, holeRadius, holeDecay, 5000)

			Convey("Then the ceiling grows large but stays finite", func() {
				So(err, ShouldBeNil)
				So(pMax, ShouldBeGreaterThan, 1e5)
				So(math.IsInf(pMax, 0), ShouldBeFalse)
			})
		})
	})
}

func TestSolveRejectsInvalidInput(t *testing.T) {
	Convey("Given invalid calibration inputs", t, func() {
		_, err := calibration.Solve(1.0, holeRadius, holeDecay, 10)
		So(errors.Is(err, calibration.ErrInvalidRTP), ShouldBeTrue)

		_, err = calibration.Solve(0, holeRadius, holeDecay, 10)
		So(errors.Is(err, calibration.ErrInvalidRTP), ShouldBeTrue)

		_, err = calibration.Solve(targetRTP, 0, holeDecay, 10)
		So(errors.Is(err, calibration.ErrInvalidGeometry), ShouldBeTrue)

		_, err = calibration.Solve(targetRTP, holeRadius, -2, 10)
		So(errors.Is(err, calibration.ErrInvalidGeometry), ShouldBeTrue)

		_, err = calibration.Solve(targetRTP, holeRadius, holeDecay, 0)
		So(errors.Is(err, calibration.ErrInvalidSigma), ShouldBeTrue)

		_, err = calibration.Solve(targetRTP, holeRadius, holeDecay, math.NaN())
		So(errors.Is(err, calibration.ErrInvalidSigma), ShouldBeTrue)
	})
}

func TestStall(t *testing.T) {
	Convey("Given a calibrator with a starved refinement budget", t, func() {
		c := calibration.New(calibration.WithSubdivisions(2), calibration.WithMaxRefinements(1))

		Convey("When the coarse estimates disagree", func() {
			_, err := c.Solve(targetRTP, holeRadius, holeDecay, 40)

			Convey("Then calibration reports a stall", func() {
				So(errors.Is(err, calibration.ErrCalibrationStalled), ShouldBeTrue)
			})
		})
	})

	Convey("Given a sigma so large the integral underflows", t, func() {
		_, err := calibration.Solve(targetRTP, holeRadius, holeDecay, 1e200)

		Convey("Then calibration reports a stall instead of an infinite ceiling", func() {
			So(errors.Is(err, calibration.ErrCalibrationStalled), ShouldBeTrue)
		})
	})
}

func TestPayoutCurve(t *testing.T) {
	Convey("Given a ceiling of 36.46", t, func() {
		pMax := 36.46

		Convey("Then a perfect shot pays the ceiling", func() {
			So(calibration.Payout(0, pMax, holeRadius, holeDecay), ShouldEqual, pMax)
		})

		Convey("Then shots at or beyond the radius pay nothing", func() {
			So(calibration.Payout(holeRadius, pMax, holeRadius, holeDecay), ShouldEqual, 0)
			So(calibration.Payout(80, pMax, holeRadius, holeDecay), ShouldEqual, 0)
		})

		Convey("Then the breakeven radius pays exactly one", func() {
			r := calibration.BreakevenRadius(pMax, holeRadius, holeDecay)
			So(r, ShouldBeGreaterThan, 0)
			So(r, ShouldBeLessThan, holeRadius)
			So(calibration.Payout(r, pMax, holeRadius, holeDecay), ShouldAlmostEqual, 1, 1e-9)
		})

		Convey("Then a unit ceiling has no breakeven radius", func() {
			So(calibration.BreakevenRadius(1, holeRadius, holeDecay), ShouldEqual, 0)
		})
	})
}

func TestIntegral(t *testing.T) {
	Convey("Given the payout integral", t, func() {
		c := calibration.New()

		Convey("Then it decreases as sigma grows and stays within (0,1)", func() {
			small, err := c.Integral(holeRadius, holeDecay, 5)
			So(err, ShouldBeNil)
			large, err := c.Integral(holeRadius, holeDecay, 50)
			So(err, ShouldBeNil)
			So(small, ShouldBeLessThan, 1)
			So(large, ShouldBeGreaterThan, 0)
			So(large, ShouldBeLessThan, small)
		})

		Convey("Then a wider tail span leaves the result unchanged", func() {
			a, err := c.Integral(holeRadius, holeDecay, 3)
			So(err, ShouldBeNil)
			b, err := calibration.New(calibration.WithTailSpan(40)).Integral(holeRadius, holeDecay, 3)
			So(err, ShouldBeNil)
			So(a, ShouldAlmostEqual, b, 1e-4)
		})
	})
}

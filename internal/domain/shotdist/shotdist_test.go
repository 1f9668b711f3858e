package shotdist_test

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/okian/fairplay/internal/domain/shotdist"
	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

func TestDensity(t *testing.T) {
	Convey("Given the miss-distance density", t, func() {
		Convey("When integrated over its support", func() {
			for _, sigma := range []float64{0.5, 5, 40, 300} {
				r, err := shotdist.New(sigma)
				So(err, ShouldBeNil)

				n := 20001
				xs := make([]float64, n)
				fs := make([]float64, n)
				upper := 20 * sigma
				for i := range xs {
					xs[i] = upper * float64(i) / float64(n-1)
					fs[i] = r.Density(xs[i])
					So(fs[i], ShouldBeGreaterThanOrEqualTo, 0)
				}

				Convey(fmt.Sprintf("Then it integrates to one for sigma %g", sigma), func() {
					So(integrate.Trapezoidal(xs, fs), ShouldAlmostEqual, 1, 1e-6)
				})
			}
		})

		Convey("When evaluated at negative distance", func() {
			d, err := shotdist.Density(-1, 10)
			So(err, ShouldBeNil)
			So(d, ShouldEqual, 0)
		})

		Convey("When evaluated against the closed form", func() {
			sigma, d := 12.0, 9.0
			want := d / (sigma * sigma) * math.Exp(-d*d/(2*sigma*sigma))
			got, err := shotdist.Density(d, sigma)
			So(err, ShouldBeNil)
			So(got, ShouldAlmostEqual, want, 1e-12)
		})

		Convey("When sigma is not positive", func() {
			for _, sigma := range []float64{0, -3, math.NaN(), math.Inf(1)} {
				_, err := shotdist.Density(1, sigma)
				So(errors.Is(err, shotdist.ErrInvalidSigma), ShouldBeTrue)
			}
		})
	})
}

func TestSample(t *testing.T) {
	Convey("Given a seeded uniform source", t, func() {
		rng := rand.New(rand.NewPCG(7, 11))

		Convey("When sampling without fat tails", func() {
			sigma := 25.0
			xs := make([]float64, 20000)
			for i := range xs {
				d, err := shotdist.Sample(rng, sigma, 0, 3)
				So(err, ShouldBeNil)
				So(d.FatTail, ShouldBeFalse)
				xs[i] = d.Distance
			}

			Convey("Then distances are non-negative with the family mean", func() {
				for _, x := range xs {
					So(x, ShouldBeGreaterThanOrEqualTo, 0)
				}
				So(stat.Mean(xs, nil)/(sigma*shotdist.MeanFactor), ShouldAlmostEqual, 1, 0.02)
			})
		})

		Convey("When sampling with a fat tail mixture", func() {
			fat := 0
			n := 20000
			for i := 0; i < n; i++ {
				d, err := shotdist.Sample(rng, 10, 0.1, 3)
				So(err, ShouldBeNil)
				if d.FatTail {
					fat++
				}
			}

			Convey("Then the mishit rate tracks the probability", func() {
				So(float64(fat)/float64(n), ShouldAlmostEqual, 0.1, 0.01)
			})
		})

		Convey("When parameters are invalid", func() {
			_, err := shotdist.Sample(rng, 0, 0.02, 3)
			So(errors.Is(err, shotdist.ErrInvalidSigma), ShouldBeTrue)
			_, err = shotdist.Sample(rng, 5, 1.5, 3)
			So(errors.Is(err, shotdist.ErrInvalidParameter), ShouldBeTrue)
			_, err = shotdist.Sample(rng, 5, 0.02, 0.5)
			So(errors.Is(err, shotdist.ErrInvalidParameter), ShouldBeTrue)
			_, err = shotdist.Sample(nil, 5, 0.02, 3)
			So(errors.Is(err, shotdist.ErrInvalidParameter), ShouldBeTrue)
		})
	})
}

func TestQuantile(t *testing.T) {
	Convey("Given a distribution", t, func() {
		r, err := shotdist.New(8)
		So(err, ShouldBeNil)

		Convey("Then quantile and CDF invert each other", func() {
			for _, u := range []float64{0.01, 0.25, 0.5, 0.9, 0.999} {
				So(r.CDF(r.Quantile(u)), ShouldAlmostEqual, u, 1e-9)
			}
		})

		Convey("Then the edges stay finite and non-negative", func() {
			So(r.Quantile(0), ShouldEqual, 0)
			So(math.IsInf(r.Quantile(1), 0), ShouldBeFalse)
			So(r.Mean(), ShouldAlmostEqual, 8*math.Sqrt(math.Pi/2), 1e-12)
		})
	})
}

func TestStratified(t *testing.T) {
	Convey("Given a stratified source", t, func() {
		n := 1000
		s := shotdist.NewStratified(n, rand.New(rand.NewPCG(1, 2)))

		Convey("When drawing one full cycle", func() {
			hit := make([]bool, n)
			for i := 0; i < n; i++ {
				u := s.Float64()
				So(u, ShouldBeGreaterThanOrEqualTo, 0)
				So(u, ShouldBeLessThan, 1)
				hit[int(u*float64(n))] = true
			}

			Convey("Then every stratum is visited exactly once", func() {
				for _, h := range hit {
					So(h, ShouldBeTrue)
				}
			})
		})
	})
}

func TestSampler(t *testing.T) {
	Convey("Given two samplers with the same seed", t, func() {
		a := shotdist.NewSampler(42)
		b := shotdist.NewSampler(42)

		Convey("Then they produce the same sequence", func() {
			for i := 0; i < 100; i++ {
				da, err := a.Sample(15)
				So(err, ShouldBeNil)
				db, err := b.Sample(15)
				So(err, ShouldBeNil)
				So(da, ShouldResemble, db)
			}
		})
	})
}

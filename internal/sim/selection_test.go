package sim

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/okian/fairplay/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func stockCourse() *model.Course {
	c, err := model.NewCourse(model.DefaultHoles(), 0)
	So(err, ShouldBeNil)
	return c
}

func TestHoleSelection(t *testing.T) {
	Convey("Given the stock course", t, func() {
		course := stockCourse()
		rng := rand.New(rand.NewPCG(1, 2))

		Convey("Fixed always returns its hole", func() {
			for i := 0; i < 20; i++ {
				h, err := Fixed(3).pick(rng, course)
				So(err, ShouldBeNil)
				So(h.ID, ShouldEqual, 3)
			}
		})

		Convey("Random visits more than one hole", func() {
			seen := make(map[int]bool)
			for i := 0; i < 200; i++ {
				h, err := Random{}.pick(rng, course)
				So(err, ShouldBeNil)
				seen[h.ID] = true
			}
			So(len(seen), ShouldBeGreaterThan, 1)
		})

		Convey("Weighted with one non-zero weight always returns that hole", func() {
			w := Weighted{{HoleID: 2, Weight: 0}, {HoleID: 5, Weight: 1}}
			for i := 0; i < 50; i++ {
				h, err := w.pick(rng, course)
				So(err, ShouldBeNil)
				So(h.ID, ShouldEqual, 5)
			}
		})

		Convey("Weighted with no mass is rejected", func() {
			_, err := Weighted{{HoleID: 2, Weight: 0}}.pick(rng, course)
			So(errors.Is(err, ErrInvalidSelection), ShouldBeTrue)
		})

		Convey("Fixed on a missing hole is rejected", func() {
			_, err := Fixed(99).pick(rng, course)
			So(errors.Is(err, model.ErrUnknownHole), ShouldBeTrue)
		})
	})
}

func TestParseHoleSelection(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "random"},
		{"random", "random"},
		{"Fixed:4", "fixed:4"},
		{"weighted:1=0.25, 4=0.75", "weighted:1=0.25,4=0.75"},
	}
	Convey("Given valid selection strings", t, func() {
		for _, c := range cases {
			sel, err := ParseHoleSelection(c.in)
			So(err, ShouldBeNil)
			So(sel.String(), ShouldEqual, c.want)
		}
	})

	Convey("Given invalid selection strings", t, func() {
		for _, in := range []string{"fixed:x", "weighted:1", "weighted:1=-2", "sideways"} {
			_, err := ParseHoleSelection(in)
			So(errors.Is(err, ErrInvalidSelection), ShouldBeTrue)
		}
	})
}

func TestArchetypes(t *testing.T) {
	Convey("Given a turn", t, func() {
		base := turn{total: 10, draw: 12, sigma: 20, min: 1, max: 20, rng: rand.New(rand.NewPCG(3, 4))}

		Convey("A sandbagger misses cheaply early and bets big late", func() {
			early := base
			early.index = 1
			d, w := Sandbagger.play(early)
			So(d, ShouldEqual, 92)
			So(w, ShouldEqual, 1)

			late := base
			late.index = 8
			d, w = Sandbagger.play(late)
			So(d, ShouldEqual, 12)
			So(w, ShouldEqual, 20)
		})

		Convey("A cherry picker bets big only on good shots", func() {
			_, w := CherryPicker.play(base)
			So(w, ShouldEqual, 20)

			bad := base
			bad.draw = 45
			_, w = CherryPicker.play(bad)
			So(w, ShouldEqual, 1)
		})

		Convey("An honest player keeps the draw and wagers inside the range", func() {
			for i := 0; i < 20; i++ {
				d, w := Honest.play(base)
				So(d, ShouldEqual, 12)
				So(w, ShouldBeBetweenOrEqual, 1, 20)
			}
		})
	})

	Convey("Archetype names round-trip", t, func() {
		for _, a := range []Archetype{Honest, Sandbagger, CherryPicker} {
			got, err := ParseArchetype(a.String())
			So(err, ShouldBeNil)
			So(got, ShouldEqual, a)
		}
		_, err := ParseArchetype("whale")
		So(errors.Is(err, ErrInvalidSession), ShouldBeTrue)
	})
}

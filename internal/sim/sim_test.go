package sim_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/okian/fairplay/internal/app"
	"github.com/okian/fairplay/internal/domain/calibration"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/sim"
	"github.com/okian/fairplay/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var auditHole = model.Hole{ID: 4, Yards: 150, MaxRadius: 47.58, Decay: 6.0, RTP: 0.88}

func newEngine(ctx context.Context) *app.Engine {
	e, err := app.New(ctx)
	So(err, ShouldBeNil)
	return e
}

func TestValidateRTP(t *testing.T) {
	Convey("Given 10,000 stratified shots at σ=40 on a 47.58 ft hole", t, func() {
		res, err := sim.ValidateRTP(sim.RTPCheck{
			Hole:       auditHole,
			Sigma:      40,
			Shots:      10000,
			Wager:      10,
			Seed:       1,
			Stratified: true,
		})

		Convey("Then the realized RTP is within 1.5% of the target", func() {
			So(err, ShouldBeNil)
			So(res.Within(0.015), ShouldBeTrue)
			So(res.Target, ShouldEqual, 0.88)
			want, err := calibration.Solve(0.88, 47.58, 6, 40)
			So(err, ShouldBeNil)
			So(res.Ceiling, ShouldEqual, want)
			So(res.Wagered.Equal(decimal.NewFromInt(100000)), ShouldBeTrue)
			So(res.Won.IsPositive(), ShouldBeTrue)
		})
	})

	Convey("Given plain pseudo-random shots", t, func() {
		res, err := sim.ValidateRTP(sim.RTPCheck{Hole: auditHole, Sigma: 25, Shots: 20000, Seed: 7})

		Convey("Then the realized RTP is within five standard errors", func() {
			So(err, ShouldBeNil)
			So(res.StdError, ShouldBeGreaterThan, 0)
			So(math.Abs(res.Realized-res.Target), ShouldBeLessThan, 5*res.StdError)
		})
	})

	Convey("Given a check with no shots", t, func() {
		_, err := sim.ValidateRTP(sim.RTPCheck{Hole: auditHole, Sigma: 25})
		So(errors.Is(err, sim.ErrInvalidSession), ShouldBeTrue)
	})
}

func TestFairnessReport(t *testing.T) {
	Convey("Given the stock course and a spread of handicaps", t, func() {
		course, err := model.NewCourse(model.DefaultHoles(), 0)
		So(err, ShouldBeNil)
		report, err := sim.FairnessReport(course, []float64{0, 12, 24, 36}, nil, 0)
		So(err, ShouldBeNil)

		Convey("Then every handicap expects the same return", func() {
			So(report.Fair(), ShouldBeTrue)
			So(len(report.Holes), ShouldEqual, 8)
			for _, h := range report.Holes {
				So(h.RTPSpread, ShouldBeLessThanOrEqualTo, sim.DefaultFairnessTolerance)
				for _, row := range h.Rows {
					So(row.ExpectedRTP, ShouldAlmostEqual, h.Hole.RTP, 0.005)
				}
			}
		})

		Convey("Then worse players get larger ceilings", func() {
			for _, h := range report.Holes {
				So(h.MultiplierRatio, ShouldBeGreaterThan, 1)
				for i := 1; i < len(h.Rows); i++ {
					So(h.Rows[i].Ceiling, ShouldBeGreaterThan, h.Rows[i-1].Ceiling)
				}
			}
		})
	})

	Convey("Given no handicaps", t, func() {
		course, err := model.NewCourse(model.DefaultHoles(), 0)
		So(err, ShouldBeNil)
		_, err = sim.FairnessReport(course, nil, nil, 0)
		So(errors.Is(err, sim.ErrInvalidSession), ShouldBeTrue)
	})
}

func TestRunSession(t *testing.T) {
	Convey("Given an honest player on a fixed hole", t, func() {
		ctx := context.Background()
		player := sim.Player{ID: "p-1", Handicap: 14, Skill: 1}
		cfg := sim.DefaultSessionConfig()
		cfg.Shots = 30
		cfg.Selection = sim.Fixed(4)

		play := func() sim.SessionResult {
			e := newEngine(ctx)
			defer e.Close()
			_, err := e.CreateProfile(ctx, player.ID, player.Handicap)
			So(err, ShouldBeNil)
			res, err := sim.RunSession(ctx, e, player, cfg, 11)
			So(err, ShouldBeNil)
			return res
		}
		res := play()

		Convey("Then the ledger covers every shot", func() {
			So(res.Shots, ShouldEqual, 30)
			So(res.SessionID, ShouldNotBeEmpty)
			So(res.Wagered.GreaterThanOrEqual(decimal.NewFromInt(150)), ShouldBeTrue)
			So(res.Wagered.LessThanOrEqual(decimal.NewFromInt(300)), ShouldBeTrue)
			So(res.Net().Equal(res.Won.Sub(res.Wagered)), ShouldBeTrue)
			So(res.WinRate(), ShouldBeBetweenOrEqual, 0, 1)
			So(res.AverageWager().InexactFloat64(), ShouldBeBetweenOrEqual, 5, 10)
		})

		Convey("Then every full batch was flushed", func() {
			So(res.Updates, ShouldEqual, 6)
			So(res.HighStakesFlushes, ShouldEqual, 0)
			So(len(res.FinalEstimates), ShouldEqual, 3)
		})

		Convey("Then the same seed replays the same session", func() {
			again := play()
			So(again.Wagered.Equal(res.Wagered), ShouldBeTrue)
			So(again.Won.Equal(res.Won), ShouldBeTrue)
			So(again.FinalEstimates, ShouldResemble, res.FinalEstimates)
		})
	})

	Convey("Given a player without a profile", t, func() {
		ctx := context.Background()
		e := newEngine(ctx)
		defer e.Close()
		_, err := sim.RunSession(ctx, e, sim.Player{ID: "ghost"}, sim.DefaultSessionConfig(), 1)
		So(errors.Is(err, app.ErrPlayerNotFound), ShouldBeTrue)
	})

	Convey("Given an unplayable session config", t, func() {
		ctx := context.Background()
		e := newEngine(ctx)
		defer e.Close()
		cfg := sim.DefaultSessionConfig()
		cfg.WagerMax = 1
		_, err := sim.RunSession(ctx, e, sim.Player{ID: "p"}, cfg, 1)
		So(errors.Is(err, sim.ErrInvalidSession), ShouldBeTrue)
	})
}

func TestRoster(t *testing.T) {
	Convey("Given a roster of twenty", t, func() {
		a := sim.Roster(20, 5)
		b := sim.Roster(20, 5)

		Convey("Then it is reproducible and mixes archetypes", func() {
			So(a, ShouldResemble, b)
			counts := make(map[sim.Archetype]int)
			for _, p := range a {
				counts[p.Archetype]++
				So(p.Handicap, ShouldBeBetweenOrEqual, 0, 36)
			}
			So(counts[sim.Sandbagger], ShouldEqual, 2)
			So(counts[sim.CherryPicker], ShouldEqual, 2)
			So(counts[sim.Honest], ShouldEqual, 16)
		})
	})
}

func TestRunVenue(t *testing.T) {
	Convey("Given a small venue", t, func() {
		ctx := context.Background()
		e := newEngine(ctx)
		defer e.Close()

		session := sim.DefaultSessionConfig()
		session.Shots = 20
		res, err := sim.RunVenue(ctx, e, sim.VenueConfig{
			Players:   6,
			Sessions:  2,
			Workers:   3,
			QueueSize: 4,
			Seed:      42,
			Session:   session,
		})

		Convey("Then every session is played and accounted for", func() {
			So(err, ShouldBeNil)
			So(res.Failed, ShouldEqual, 0)
			So(len(res.Sessions), ShouldEqual, 12)
			So(len(res.Players), ShouldEqual, 6)

			total := decimal.Zero
			for _, s := range res.Sessions {
				So(s.Shots, ShouldEqual, 20)
				total = total.Add(s.Wagered)
			}
			So(total.Equal(res.Wagered), ShouldBeTrue)
			So(res.HouseEdge().Equal(res.Wagered.Sub(res.Paid)), ShouldBeTrue)
			So(res.RTP(), ShouldBeGreaterThan, 0)
			lo, hi := res.RTPRange()
			So(lo, ShouldBeLessThanOrEqualTo, hi)
		})

		Convey("Then every player's history holds both sessions", func() {
			for _, pr := range res.Players {
				So(pr.Sessions, ShouldEqual, 2)
				p, err := e.Profile(ctx, pr.Player.ID)
				So(err, ShouldBeNil)
				So(len(p.History().Shots), ShouldEqual, 40)
			}
		})
	})

	Convey("Given a venue with no players", t, func() {
		ctx := context.Background()
		e := newEngine(ctx)
		defer e.Close()
		_, err := sim.RunVenue(ctx, e, sim.VenueConfig{Sessions: 1, Session: sim.DefaultSessionConfig()})
		So(errors.Is(err, sim.ErrInvalidSession), ShouldBeTrue)
	})
}

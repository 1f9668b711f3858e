package main

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/fairplay/internal/app"
	"github.com/okian/fairplay/internal/config"
	"github.com/okian/fairplay/internal/sim"
	"github.com/okian/fairplay/pkg/logger"
	"github.com/okian/fairplay/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func smallConfig(ctx context.Context) *config.Config {
	cfg := config.New(ctx)
	cfg.SimPlayers = 4
	cfg.SimSessions = 1
	cfg.SimShots = 15
	cfg.WorkerCount = 2
	return cfg
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When configuration comes from the environment", func() {
			_ = os.Setenv("FAIRPLAY_SIM_PLAYERS", "5")
			_ = os.Setenv("FAIRPLAY_SIM_HOLE_SELECTION", "fixed:6")
			_ = os.Setenv("FAIRPLAY_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("FAIRPLAY_SIM_PLAYERS")
				_ = os.Unsetenv("FAIRPLAY_SIM_HOLE_SELECTION")
				_ = os.Unsetenv("FAIRPLAY_WORKER_COUNT")
			}()

			convey.Convey("Then the venue run follows it", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				vc, err := venueConfig(cfg)
				convey.So(err, convey.ShouldBeNil)
				convey.So(vc.Players, convey.ShouldEqual, 5)
				convey.So(vc.Workers, convey.ShouldEqual, 4)
				convey.So(vc.Session.Selection, convey.ShouldEqual, sim.Fixed(6))
				convey.So(vc.Session.Shots, convey.ShouldEqual, cfg.SimShots)
			})
		})

		convey.Convey("When the hole selection is malformed", func() {
			cfg := config.New(context.Background())
			cfg.SimHoleSelection = "fixed:six"
			_, err := venueConfig(cfg)
			convey.So(errors.Is(err, sim.ErrInvalidSelection), convey.ShouldBeTrue)
		})
	})
}

func TestNewEngine(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("Then the engine settles and refuses the manual override", func() {
			e, err := newEngine(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer e.Close()
			_, err = e.Developer()
			convey.So(errors.Is(err, app.ErrManualOverrideDisabled), convey.ShouldBeTrue)
			for _, h := range e.Course().Holes() {
				convey.So(h.RTP, convey.ShouldEqual, cfg.TargetRTP)
			}
		})

		convey.Convey("Then development mode opens the manual override", func() {
			cfg.Mode = config.ModeDevelopment
			e, err := newEngine(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer e.Close()
			d, err := e.Developer()
			convey.So(err, convey.ShouldBeNil)
			convey.So(d, convey.ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a small venue configuration", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		convey.Convey("Then the audit and the venue run complete", func() {
			convey.So(run(ctx, smallConfig(ctx)), convey.ShouldBeNil)
		})

		convey.Convey("Then an unplayable wager range fails the run", func() {
			cfg := smallConfig(ctx)
			cfg.SimWagerMin = 0
			convey.So(errors.Is(run(ctx, cfg), sim.ErrInvalidSession), convey.ShouldBeTrue)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() {
				startSystemMetricsUpdater(ctx)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When system metrics are updated", func() {
			convey.So(func() {
				updateSystemMetrics()
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When the metrics endpoint is scraped", func() {
			metrics.RecordShot("wedge")
			srv := newMetricsServer(":0")
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

			convey.So(rec.Code, convey.ShouldEqual, 200)
			convey.So(rec.Body.String(), convey.ShouldContainSubstring, "fairplay_engine_shots_recorded_total")
		})
	})
}

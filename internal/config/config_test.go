package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/okian/fairplay/internal/config"
	"github.com/okian/fairplay/internal/domain/anomaly"
	"github.com/okian/fairplay/internal/domain/policy"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Mode, convey.ShouldEqual, config.ModeSettlement)
			convey.So(cfg.Settlement(), convey.ShouldBeTrue)
			convey.So(cfg.BatchSize, convey.ShouldEqual, 5)
			convey.So(cfg.HighStakesMultiple, convey.ShouldEqual, 2.0)
			convey.So(cfg.RateLimit, convey.ShouldEqual, 0.20)
			convey.So(cfg.FatTailProbability, convey.ShouldEqual, 0.02)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.MetricsAddr, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the derived thresholds match the component defaults", func() {
			convey.So(cfg.Policy(), convey.ShouldResemble, policy.DefaultConfig())
			convey.So(cfg.Anomaly(), convey.ShouldResemble, anomaly.DefaultConfig())
			convey.So(cfg.Calibrator(), convey.ShouldNotBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"mode", func(c *config.Config) { c.Mode = "production" }},
			{"log format", func(c *config.Config) { c.LogFormat = "xml" }},
			{"fat tail", func(c *config.Config) { c.FatTailProbability = 1.5 }},
			{"multiplier", func(c *config.Config) { c.FatTailMultiplier = 0.5 }},
			{"rtp", func(c *config.Config) { c.TargetRTP = 1 }},
			{"integrator", func(c *config.Config) { c.CalibrationMaxRefinements = 0 }},
			{"wager range", func(c *config.Config) { c.SimWagerMax = 0.5 }},
			{"sim size", func(c *config.Config) { c.SimShots = 0 }},
			{"policy", func(c *config.Config) { c.RateLimit = 0 }},
			{"anomaly", func(c *config.Config) { c.SkillJumpWindow = 0 }},
			{"batch size", func(c *config.Config) { c.BatchSize = 0 }},
			{"organic ratio", func(c *config.Config) { c.SkillJumpOrganicRatio = 1 }},
		}
		for _, tc := range cases {
			convey.Convey("When "+tc.name+" is invalid", func() {
				cfg := config.New(context.Background())
				tc.mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When development mode is selected", func() {
			cfg := config.New(context.Background())
			cfg.Mode = config.ModeDevelopment

			convey.Convey("Then it validates and is not a settlement build", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				convey.So(cfg.Settlement(), convey.ShouldBeFalse)
			})
		})
	})
}

package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/fairplay/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New(ctx))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FAIRPLAY_BATCH_SIZE", "8")
			_ = os.Setenv("FAIRPLAY_RATE_LIMIT", "0.1")
			_ = os.Setenv("FAIRPLAY_MODE", "development")
			_ = os.Setenv("FAIRPLAY_SIM_SEED", "42")
			_ = os.Setenv("FAIRPLAY_METRICS_ADDR", ":9102")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BatchSize, convey.ShouldEqual, 8)
				convey.So(cfg.RateLimit, convey.ShouldEqual, 0.1)
				convey.So(cfg.Mode, convey.ShouldEqual, config.ModeDevelopment)
				convey.So(cfg.SimSeed, convey.ShouldEqual, 42)
				convey.So(cfg.MetricsAddr, convey.ShouldEqual, ":9102")
				convey.So(cfg.Policy().BatchSize, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
# venue overrides
batch_size: 6
target_rtp: 0.88
worker_count: 12
sim_hole_selection: weighted
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("FAIRPLAY_CONFIG", tmpFile)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.BatchSize, convey.ShouldEqual, 6)
				convey.So(cfg.TargetRTP, convey.ShouldEqual, 0.88)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 12)
				convey.So(cfg.SimHoleSelection, convey.ShouldEqual, "weighted")
				convey.So(cfg.OutlierSigma, convey.ShouldEqual, 3.0)
			})

			convey.Convey("Then environment variables should override file values", func() {
				_ = os.Setenv("FAIRPLAY_WORKER_COUNT", "32")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32)
				convey.So(cfg.BatchSize, convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("FAIRPLAY_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("FAIRPLAY_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("FAIRPLAY_BATCH_SIZE", "invalid")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the loaded values fail validation", func() {
			_ = os.Setenv("FAIRPLAY_MODE", "production")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				if name := kv[:i]; len(name) > 9 && name[:9] == "FAIRPLAY_" {
					_ = os.Unsetenv(name)
				}
				break
			}
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "fairplay-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}

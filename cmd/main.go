package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/fairplay/internal/app"
	"github.com/okian/fairplay/internal/config"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/sim"
	"github.com/okian/fairplay/pkg/logger"
	"github.com/okian/fairplay/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

var fairnessHandicaps = []float64{0, 9, 18, 27, 36}

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := logger.InitWithWriter(os.Stderr, cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	go startSystemMetricsUpdater(ctx)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = newMetricsServer(cfg.MetricsAddr)
		go func() {
			log.Info(ctx, "serving metrics", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics server failed", logger.Error(err))
			}
		}()
	}

	if err := run(ctx, cfg); err != nil {
		log.Error(ctx, "venue run failed", logger.Error(err))
	}

	if srv != nil {
		// keep the final counters scrapeable until asked to stop
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "metrics server shutdown failed", logger.Error(err))
		}
	}
	log.Info(ctx, "stopped")
}

// newEngine builds an engine from the configuration.
func newEngine(ctx context.Context, cfg *config.Config) (*app.Engine, error) {
	course, err := model.NewCourse(model.DefaultHoles(), cfg.TargetRTP)
	if err != nil {
		return nil, err
	}
	return app.New(ctx,
		app.WithLogger(logger.Get().Named("engine")),
		app.WithPolicy(cfg.Policy()),
		app.WithAnomalyConfig(cfg.Anomaly()),
		app.WithCalibrator(cfg.Calibrator()),
		app.WithCourse(course),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithShardCount(cfg.ShardCount),
		app.WithSettlement(cfg.Settlement()),
	)
}

// venueConfig maps the sim_* settings onto a venue run.
func venueConfig(cfg *config.Config) (sim.VenueConfig, error) {
	sel, err := sim.ParseHoleSelection(cfg.SimHoleSelection)
	if err != nil {
		return sim.VenueConfig{}, err
	}
	return sim.VenueConfig{
		Players:   cfg.SimPlayers,
		Sessions:  cfg.SimSessions,
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.QueueSize,
		Seed:      cfg.SimSeed,
		Session: sim.SessionConfig{
			Shots:              cfg.SimShots,
			WagerMin:           cfg.SimWagerMin,
			WagerMax:           cfg.SimWagerMax,
			Selection:          sel,
			FatTailProbability: cfg.FatTailProbability,
			FatTailMultiplier:  cfg.FatTailMultiplier,
		},
	}, nil
}

// run audits the course for fairness and then plays a venue simulation.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get().Named("fairplay")

	engine, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	report, err := sim.FairnessReport(engine.Course(), fairnessHandicaps, cfg.Calibrator(), 0)
	if err != nil {
		return err
	}
	for _, h := range report.Holes {
		log.Info(ctx, "hole fairness",
			logger.Int("hole", h.Hole.ID),
			logger.String("category", h.Hole.Category().String()),
			logger.Float64("rtp_spread", h.RTPSpread),
			logger.Float64("multiplier_ratio", h.MultiplierRatio),
			logger.Bool("fair", h.Fair),
		)
	}

	vc, err := venueConfig(cfg)
	if err != nil {
		return err
	}
	res, err := sim.RunVenue(ctx, engine, vc)
	if err != nil {
		return err
	}

	lo, hi := res.RTPRange()
	log.Info(ctx, "venue summary",
		logger.Int("sessions", len(res.Sessions)),
		logger.Int("failed", res.Failed),
		logger.String("wagered", res.Wagered.StringFixed(2)),
		logger.String("paid", res.Paid.StringFixed(2)),
		logger.String("house_edge", res.HouseEdge().StringFixed(2)),
		logger.Float64("rtp", res.RTP()),
		logger.Float64("target_rtp", cfg.TargetRTP),
		logger.Float64("session_rtp_min", lo),
		logger.Float64("session_rtp_max", hi),
	)
	for _, p := range res.Flagged() {
		var kinds []string
		for _, r := range p.Analysis.Reports() {
			if r.Flagged {
				kinds = append(kinds, string(r.Kind))
			}
		}
		log.Warn(ctx, "player flagged",
			logger.String("player", p.Player.ID),
			logger.String("archetype", p.Player.Archetype.String()),
			logger.String("kinds", strings.Join(kinds, ",")),
		)
	}
	return nil
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater updates process metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

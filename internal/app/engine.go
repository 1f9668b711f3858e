// Package app wires the fairness engine: player profiles, shot intake with
// idempotency, calibration, and anomaly analysis, behind one Engine.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fairplay/internal/adapters/repository"
	"github.com/okian/fairplay/internal/domain/anomaly"
	"github.com/okian/fairplay/internal/domain/calibration"
	"github.com/okian/fairplay/internal/domain/dedupe"
	"github.com/okian/fairplay/internal/domain/estimator"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/domain/policy"
	"github.com/okian/fairplay/pkg/logger"
	"github.com/okian/fairplay/pkg/metrics"
)

// Outcome reports what recording one shot did.
type Outcome struct {
	Accepted    bool
	Observation model.Observation
	// Payout is the multiplier the shot earned against the ceiling in force.
	Payout  float64
	Flushed bool
	Trigger model.Trigger
	// Ceiling is set only when the flush published a new ceiling.
	Ceiling     *float64
	RateLimited bool
	Stalled     bool
	Update      *model.UpdateRecord
}

// Winnings is the amount paid out for the shot.
func (o Outcome) Winnings() float64 { return o.Observation.Wager * o.Payout }

// Engine is the library surface of the fairness engine.
type Engine struct {
	policy     policy.Config
	anomaly    anomaly.Config
	course     *model.Course
	calibrator *calibration.Calibrator
	profiles   repository.Store[*Profile]
	deduper    dedupe.Deduper
	settlement bool

	dedupeSize int
	shardCount int

	closeOnce sync.Once
	closed    atomic.Bool
	closer    func() error

	logger logger.Logger
}

// New builds an engine. The profile store's background work is bound to
// ctx; call Close to stop it early.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		policy:     policy.DefaultConfig(),
		anomaly:    anomaly.DefaultConfig(),
		calibrator: calibration.New(),
		settlement: true,
		dedupeSize: dedupe.DefaultMaxSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Get().Named("engine")
	}
	if err := e.policy.Validate(); err != nil {
		return nil, err
	}
	if err := e.anomaly.Validate(); err != nil {
		return nil, err
	}
	if e.course == nil {
		c, err := model.NewCourse(model.DefaultHoles(), 0)
		if err != nil {
			return nil, err
		}
		e.course = c
	}
	if e.profiles == nil {
		var storeOpts []repository.Option
		if e.shardCount > 0 {
			storeOpts = append(storeOpts, repository.WithShardCount(e.shardCount))
		}
		s := repository.NewShardedStore[*Profile](ctx, storeOpts...)
		e.profiles = s
		e.closer = s.Close
	}
	e.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(e.dedupeSize))

	e.logger.Info(ctx, "engine ready",
		logger.Bool("settlement", e.settlement),
		logger.Int("holes", len(e.course.Holes())),
		logger.Int("batch_size", e.policy.BatchSize),
		logger.Float64("rate_limit", e.policy.RateLimit),
	)
	return e, nil
}

// Close releases background resources.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		if e.closer != nil {
			err = e.closer()
		}
	})
	return err
}

// Course returns the holes the engine settles.
func (e *Engine) Course() *model.Course { return e.course }

// CreateProfile registers a player and seeds one estimator per category
// from the handicap. An empty playerID is replaced by a generated one.
func (e *Engine) CreateProfile(ctx context.Context, playerID string, handicap float64) (*Profile, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if playerID == "" {
		playerID = uuid.NewString()
	}
	p := &Profile{
		ID:        playerID,
		Handicap:  handicap,
		CreatedAt: time.Now(),
		units:     make(map[model.Category]*policy.Unit, len(model.Categories())),
		history:   model.NewHistory(playerID),
	}
	unitLogger := e.logger.Named("policy")
	for _, cat := range model.Categories() {
		prior, err := estimator.PriorSigma(cat, handicap)
		if err != nil {
			return nil, err
		}
		u, err := policy.NewUnit(cat, prior, e.policy,
			policy.WithCalibrator(e.calibrator),
			policy.WithLogger(unitLogger),
		)
		if err != nil {
			return nil, err
		}
		p.units[cat] = u
	}

	if err := e.profiles.Create(ctx, playerID, p); err != nil {
		return nil, fmt.Errorf("create %s: %w", playerID, wrapStoreErr(err))
	}
	metrics.UpdateProfiles(e.profiles.Count(ctx))
	e.logger.Debug(ctx, "profile created", logger.String("player", playerID), logger.Float64("handicap", handicap))
	return p, nil
}

// Profile returns a registered player.
func (e *Engine) Profile(ctx context.Context, playerID string) (*Profile, error) {
	p, err := e.profiles.Get(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", playerID, wrapStoreErr(err))
	}
	return p, nil
}

// Profiles returns the number of registered players.
func (e *Engine) Profiles(ctx context.Context) int { return e.profiles.Count(ctx) }

// RecordShot settles a measured shot and feeds it to the player's
// estimator. A shot whose ID was already recorded for the player returns
// ErrDuplicateShot.
func (e *Engine) RecordShot(ctx context.Context, playerID string, shot model.Shot) (Outcome, error) {
	return e.record(ctx, playerID, shot, model.SourceMeasured)
}

func (e *Engine) record(ctx context.Context, playerID string, shot model.Shot, src model.Source) (Outcome, error) {
	if e.closed.Load() {
		return Outcome{}, ErrEngineClosed
	}
	if err := shot.Validate(); err != nil {
		metrics.RecordShotRejected("invalid")
		return Outcome{}, err
	}
	hole, err := e.course.Hole(shot.HoleID)
	if err != nil {
		metrics.RecordShotRejected("unknown_hole")
		return Outcome{}, err
	}
	p, err := e.Profile(ctx, playerID)
	if err != nil {
		metrics.RecordShotRejected("unknown_player")
		return Outcome{}, err
	}

	if shot.ID == "" {
		shot.ID = uuid.NewString()
	}
	key := playerID + "/" + shot.ID
	if e.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordShotRejected("duplicate")
		return Outcome{}, fmt.Errorf("shot %s: %w", shot.ID, ErrDuplicateShot)
	}
	if shot.At.IsZero() {
		shot.At = time.Now()
	}

	obs := model.Observation{
		ID:        shot.ID,
		Distance:  shot.Distance,
		Wager:     shot.Wager,
		Timestamp: shot.At,
		Source:    src,
	}
	res, err := p.units[hole.Category()].Record(ctx, p.history, obs, hole, p.Aggregates())
	if res.Observation.Seq == 0 {
		// never reached the history; let the caller retry the same ID
		e.deduper.Unrecord(ctx, key)
		if err == nil {
			err = fmt.Errorf("shot %s was not recorded", shot.ID)
		}
		metrics.RecordErrorByComponent("engine", "record_failed")
		return Outcome{}, err
	}
	p.addWager(shot.Wager)
	metrics.RecordShot(hole.Category().String())

	out := Outcome{
		Accepted:    true,
		Observation: res.Observation,
		Payout:      res.Observation.Payout,
		Flushed:     res.Flushed,
		Update:      res.Update,
	}
	if res.Update != nil {
		out.Trigger = res.Update.Trigger
		out.RateLimited = res.Update.RateLimited
		out.Stalled = res.Update.Stalled
	}
	if c, ok := res.Ceiling(); ok {
		out.Ceiling = &c
	}
	if res.StallErr != nil {
		e.logger.Warn(ctx, "ceiling kept after calibration stall",
			logger.String("player", playerID),
			logger.Int("hole", hole.ID),
			logger.Error(res.StallErr),
		)
	}
	return out, err
}

// Ceiling returns the ceiling in force for a player on a hole.
func (e *Engine) Ceiling(ctx context.Context, playerID string, holeID int) (float64, error) {
	hole, err := e.course.Hole(holeID)
	if err != nil {
		return 0, err
	}
	p, err := e.Profile(ctx, playerID)
	if err != nil {
		return 0, err
	}
	return p.units[hole.Category()].Ceiling(hole)
}

// Calibrate solves the ceiling for the given hole geometry and dispersion.
func (e *Engine) Calibrate(rtp, dMax, k, sigma float64) (float64, error) {
	return e.calibrator.Solve(rtp, dMax, k, sigma)
}

// Analyze runs the anomaly detectors over a snapshot of the player's
// history. It does not block recording.
func (e *Engine) Analyze(ctx context.Context, playerID string) (anomaly.Analysis, error) {
	p, err := e.Profile(ctx, playerID)
	if err != nil {
		return anomaly.Analysis{}, err
	}
	a, err := anomaly.Analyze(p.History(), e.anomaly)
	if err != nil {
		return anomaly.Analysis{}, err
	}
	for _, r := range a.Reports() {
		metrics.RecordAnomalyReport(string(r.Kind), r.Flagged)
		if r.Flagged {
			e.logger.Warn(ctx, "anomaly flagged",
				logger.String("player", playerID),
				logger.String("kind", string(r.Kind)),
				logger.Float64("confidence", r.Confidence),
				logger.String("evidence", r.Evidence),
			)
		}
	}
	return a, nil
}

// BeginSession starts a session for the player and returns its ID. The
// in-session wager average restarts; the all-time one carries over.
func (e *Engine) BeginSession(ctx context.Context, playerID string) (string, error) {
	p, err := e.Profile(ctx, playerID)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	p.beginSession(id)
	e.logger.Debug(ctx, "session started", logger.String("player", playerID), logger.String("session", id))
	return id, nil
}

// EndSession flushes every category's pending batch and closes the
// session. It returns the updates the flushes produced.
func (e *Engine) EndSession(ctx context.Context, playerID string) ([]model.UpdateRecord, error) {
	p, err := e.Profile(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var updates []model.UpdateRecord
	var errs []error
	for _, cat := range model.Categories() {
		res, err := p.units[cat].Flush(ctx, p.history, model.TriggerSessionEnd)
		switch {
		case errors.Is(err, policy.ErrNothingToFlush):
		case err != nil:
			errs = append(errs, err)
		default:
			updates = append(updates, *res.Update)
		}
	}
	id := p.endSession()
	e.logger.Debug(ctx, "session ended",
		logger.String("player", playerID),
		logger.String("session", id),
		logger.Int("flushes", len(updates)),
	)
	return updates, errors.Join(errs...)
}

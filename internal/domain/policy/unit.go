package policy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/okian/fairplay/internal/domain/calibration"
	"github.com/okian/fairplay/internal/domain/estimator"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/pkg/logger"
	"github.com/okian/fairplay/pkg/metrics"
)

// Calibrator solves a ceiling for a dispersion estimate.
type Calibrator interface {
	Solve(rtp, dMax, k, sigma float64) (float64, error)
}

// Recorder is where a unit writes its shots and update audits.
type Recorder interface {
	AppendShot(o model.Observation) model.Observation
	AppendUpdate(u model.UpdateRecord) model.UpdateRecord
}

// Result describes what happened to one recorded shot.
type Result struct {
	Observation model.Observation
	Flushed     bool
	Update      *model.UpdateRecord
	// StallErr is set when calibration stalled; the previous ceiling stands.
	StallErr error
}

// Ceiling returns the ceiling published by the flush, if any.
func (r Result) Ceiling() (float64, bool) {
	if r.Update == nil || r.Update.Stalled {
		return 0, false
	}
	return r.Update.Ceiling, true
}

// UnitState is a read-only view of a unit.
type UnitState struct {
	Category   model.Category
	Estimator  estimator.State
	Confidence float64
	Pending    int
	Ceilings   map[int]float64
}

// Unit is the mutable record of one (player, category): the estimator, its
// pending batch, and the ceiling history of every hole in the category.
// All three change together under one lock so that a published ceiling is
// always derivable from the stored estimate.
type Unit struct {
	mu         sync.Mutex
	category   model.Category
	cfg        Config
	calibrator Calibrator
	filter     *estimator.Filter
	pending    []model.Observation
	holes      map[int]model.Hole
	ceilings   map[int][]float64
	logger     logger.Logger
}

// UnitOption configures a Unit.
type UnitOption func(*Unit)

// WithCalibrator replaces the default calibrator.
func WithCalibrator(c Calibrator) UnitOption {
	return func(u *Unit) {
		if c != nil {
			u.calibrator = c
		}
	}
}

// WithLogger sets a custom logger for the unit.
func WithLogger(l logger.Logger) UnitOption {
	return func(u *Unit) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUnit creates a unit whose estimator starts at prior.
func NewUnit(cat model.Category, prior float64, cfg Config, opts ...UnitOption) (*Unit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f, err := estimator.New(prior, cfg.filterOptions()...)
	if err != nil {
		return nil, err
	}
	u := &Unit{
		category:   cat,
		cfg:        cfg,
		calibrator: calibration.New(),
		filter:     f,
		pending:    make([]model.Observation, 0, cfg.BatchSize),
		holes:      make(map[int]model.Hole),
		ceilings:   make(map[int][]float64),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.logger == nil {
		u.logger = logger.Get().Named("policy")
	}
	return u, nil
}

// Category returns the unit's skill band.
func (u *Unit) Category() model.Category { return u.category }

// Ceiling returns the ceiling in force for hole, seeding it from the current
// estimate the first time the hole is seen.
func (u *Unit) Ceiling(hole model.Hole) (float64, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.currentCeiling(hole)
}

// History returns the published ceilings for a hole, oldest first.
func (u *Unit) History(holeID int) []float64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]float64(nil), u.ceilings[holeID]...)
}

// State returns a snapshot of the unit.
func (u *Unit) State() UnitState {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := UnitState{
		Category:   u.category,
		Estimator:  u.filter.State(),
		Confidence: u.filter.Confidence(),
		Pending:    len(u.pending),
		Ceilings:   make(map[int]float64, len(u.ceilings)),
	}
	for id, hist := range u.ceilings {
		s.Ceilings[id] = hist[len(hist)-1]
	}
	return s
}

// Record pays a shot against the current ceiling, writes it to rec, adds it
// to the pending batch and flushes when the batch is full or the wager is
// high-stakes relative to agg.
func (u *Unit) Record(ctx context.Context, rec Recorder, obs model.Observation, hole model.Hole, agg model.Aggregates) (Result, error) {
	if hole.Category() != u.category {
		return Result{}, fmt.Errorf("hole %d (%s) in %s unit: %w", hole.ID, hole.Category(), u.category, ErrWrongCategory)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	ceiling, err := u.currentCeiling(hole)
	if err != nil {
		return Result{}, err
	}
	obs.HoleID = hole.ID
	obs.Category = u.category
	obs.Ceiling = ceiling
	obs.Payout = calibration.Payout(obs.Distance, ceiling, hole.MaxRadius, hole.Decay)
	obs = rec.AppendShot(obs)
	u.pending = append(u.pending, obs)

	res := Result{Observation: obs}
	var trigger model.Trigger
	switch {
	case u.cfg.IsHighStakes(obs.Wager, agg):
		trigger = model.TriggerHighStakes
	case len(u.pending) >= u.cfg.BatchSize:
		trigger = model.TriggerBatchSize
	default:
		return res, nil
	}

	flushed, err := u.flush(ctx, rec, hole, trigger)
	if err != nil {
		return res, err
	}
	flushed.Observation = obs
	return flushed, nil
}

// Flush forces the pending batch through the estimator, e.g. at session end.
// The ceiling of the hole of the last pending shot is republished.
func (u *Unit) Flush(ctx context.Context, rec Recorder, trigger model.Trigger) (Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.pending) == 0 {
		return Result{}, ErrNothingToFlush
	}
	hole := u.holes[u.pending[len(u.pending)-1].HoleID]
	return u.flush(ctx, rec, hole, trigger)
}

// flush must be called with u.mu held. The pending batch is cleared whether
// or not the update succeeds; its shots remain in the recorder.
func (u *Unit) flush(ctx context.Context, rec Recorder, hole model.Hole, trigger model.Trigger) (Result, error) {
	batch := u.pending
	u.pending = make([]model.Observation, 0, u.cfg.BatchSize)

	kept, excluded := Screen(batch, u.cfg.OutlierSigma)
	m, err := estimator.BuildMeasurement(kept, u.cfg.MinMeasurementNoise)
	if err != nil {
		return Result{}, fmt.Errorf("flush %s batch: %w", u.category, err)
	}
	excluded = append(excluded, m.Excluded...)

	before := u.filter.State()
	u.filter.Predict()
	if _, err := u.filter.Update(m.Value, m.Noise); err != nil {
		u.filter.Restore(before)
		return Result{}, fmt.Errorf("flush %s batch: %w", u.category, err)
	}

	metrics.RecordFlush(trigger.String())
	metrics.RecordOutliersExcluded(len(excluded))

	upd := model.UpdateRecord{
		Category:       u.category,
		HoleID:         hole.ID,
		Trigger:        trigger,
		BatchSeqs:      seqs(batch),
		ExcludedSeqs:   excluded,
		Measurement:    m.Value,
		Noise:          m.Noise,
		EstimateBefore: before.Estimate,
		Timestamp:      time.Now(),
	}

	prev, err := u.currentCeiling(hole)
	if err != nil {
		prev = 0
	}
	raw, stallErr := u.solve(hole, u.filter.Estimate())
	switch {
	case stallErr != nil:
		upd.Stalled = true
		upd.Ceiling = prev
		u.logger.Warn(ctx, "calibration stalled; keeping previous ceiling",
			logger.String("category", u.category.String()),
			logger.Int("hole", hole.ID),
			logger.Float64("estimate", u.filter.Estimate()),
			logger.Error(stallErr),
		)
	case prev == 0:
		upd.Ceiling, upd.Unclamped = raw, raw
		u.publish(hole, raw)
	default:
		upd.Unclamped = raw
		published, limited := u.clamp(prev, raw)
		upd.Ceiling = published
		upd.RateLimited = limited
		if limited {
			t := u.alignEstimate(hole, before.Estimate, u.filter.Estimate(), published)
			u.filter.ScaleBack(before.Estimate, t)
			metrics.RecordRateLimited()
			u.logger.Debug(ctx, "ceiling rate limited",
				logger.Int("hole", hole.ID),
				logger.Float64("previous", prev),
				logger.Float64("requested", raw),
				logger.Float64("published", published),
				logger.Float64("retained_fraction", t),
			)
		}
		u.publish(hole, published)
	}

	upd.Estimate = u.filter.Estimate()
	upd.Uncertainty = u.filter.Uncertainty()
	if !upd.Stalled {
		u.republishSiblings(ctx, hole.ID)
	}
	upd = rec.AppendUpdate(upd)

	u.logger.Debug(ctx, "batch flushed",
		logger.String("category", u.category.String()),
		logger.String("trigger", trigger.String()),
		logger.Int("size", len(batch)),
		logger.Int("excluded", len(excluded)),
		logger.Float64("estimate", upd.Estimate),
		logger.Float64("ceiling", upd.Ceiling),
		logger.Bool("rate_limited", upd.RateLimited),
	)
	return Result{Flushed: true, Update: &upd, StallErr: stallErr}, nil
}

// currentCeiling must be called with u.mu held.
func (u *Unit) currentCeiling(hole model.Hole) (float64, error) {
	if hist := u.ceilings[hole.ID]; len(hist) > 0 {
		return hist[len(hist)-1], nil
	}
	c, err := u.solve(hole, u.filter.Estimate())
	if err != nil {
		return 0, err
	}
	u.publish(hole, c)
	return c, nil
}

func (u *Unit) publish(hole model.Hole, c float64) {
	u.holes[hole.ID] = hole
	u.ceilings[hole.ID] = append(u.ceilings[hole.ID], c)
}

func (u *Unit) solve(hole model.Hole, sigma float64) (float64, error) {
	start := time.Now()
	c, err := u.calibrator.Solve(hole.RTP, hole.MaxRadius, hole.Decay, sigma)
	metrics.RecordCalibration(float64(time.Since(start).Microseconds()) / 1000)
	if errors.Is(err, calibration.ErrCalibrationStalled) {
		metrics.RecordCalibrationStall()
	}
	return c, err
}

// clamp bounds next to ±RateLimit of prev, never below the minimum ceiling.
func (u *Unit) clamp(prev, next float64) (float64, bool) {
	lo := math.Max(calibration.MinCeiling, prev*(1-u.cfg.RateLimit))
	hi := prev * (1 + u.cfg.RateLimit)
	switch {
	case next > hi:
		return hi, true
	case next < lo:
		return lo, true
	}
	return next, false
}

// alignEstimate finds the fraction t of the move from before to after whose
// calibrated ceiling equals target. Ceilings are monotone in σ, so bisection
// on t converges; t = 0 when even the old estimate overshoots the target.
func (u *Unit) alignEstimate(hole model.Hole, before, after, target float64) float64 {
	rising := after > before
	beyond := func(t float64) bool {
		c, err := u.calibrator.Solve(hole.RTP, hole.MaxRadius, hole.Decay, before+t*(after-before))
		if err != nil {
			return true
		}
		if rising {
			return c > target
		}
		return c < target
	}
	if beyond(0) {
		return 0
	}
	lo, hi := 0.0, 1.0
	for i := 0; i < scaleBackIterations; i++ {
		mid := (lo + hi) / 2
		if beyond(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo
}

// republishSiblings moves the other seen holes of the category toward the
// new estimate, each under its own rate limit.
func (u *Unit) republishSiblings(ctx context.Context, skip int) {
	ids := make([]int, 0, len(u.holes))
	for id := range u.holes {
		if id != skip {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	for _, id := range ids {
		hole := u.holes[id]
		raw, err := u.solve(hole, u.filter.Estimate())
		if err != nil {
			u.logger.Warn(ctx, "sibling calibration stalled", logger.Int("hole", id), logger.Error(err))
			continue
		}
		hist := u.ceilings[id]
		published, limited := u.clamp(hist[len(hist)-1], raw)
		if limited {
			metrics.RecordRateLimited()
		}
		u.publish(hole, published)
	}
}

func seqs(batch []model.Observation) []int64 {
	out := make([]int64, len(batch))
	for i, o := range batch {
		out[i] = o.Seq
	}
	return out
}

package sim

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"github.com/okian/fairplay/internal/adapters/mq/queue"
	"github.com/okian/fairplay/internal/adapters/mq/worker"
	"github.com/okian/fairplay/internal/app"
	"github.com/okian/fairplay/internal/domain/anomaly"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/pkg/logger"
)

const enqueueRetryInterval = 5 * time.Millisecond

// VenueConfig shapes a venue run.
type VenueConfig struct {
	Players  int
	Sessions int
	// Workers is the number of bays playing at once.
	Workers   int
	QueueSize int
	Seed      uint64
	Session   SessionConfig
}

// Validate rejects runs that cannot be scheduled.
func (c VenueConfig) Validate() error {
	if c.Players < 1 || c.Sessions < 1 {
		return fmt.Errorf("players %d sessions %d: %w", c.Players, c.Sessions, ErrInvalidSession)
	}
	return c.Session.Validate()
}

// PlayerReport is one player's totals over a venue run.
type PlayerReport struct {
	Player   Player
	Sessions int
	Wagered  decimal.Decimal
	Paid     decimal.Decimal
	Analysis anomaly.Analysis
}

// VenueResult aggregates every session of a run.
type VenueResult struct {
	Sessions []model.SessionSummary
	Players  []PlayerReport
	Wagered  decimal.Decimal
	Paid     decimal.Decimal
	// Failed counts sessions that did not complete.
	Failed int
	// SessionRTPs are the per-session realized returns, for spread stats.
	SessionRTPs []float64
}

// RTP is the realized return to player over the whole run.
func (r VenueResult) RTP() float64 {
	if !r.Wagered.IsPositive() {
		return 0
	}
	return r.Paid.Div(r.Wagered).InexactFloat64()
}

// HouseEdge is the amount the venue kept.
func (r VenueResult) HouseEdge() decimal.Decimal { return r.Wagered.Sub(r.Paid) }

// RTPRange returns the lowest and highest session RTP.
func (r VenueResult) RTPRange() (lo, hi float64) {
	if len(r.SessionRTPs) == 0 {
		return 0, 0
	}
	return floats.Min(r.SessionRTPs), floats.Max(r.SessionRTPs)
}

// Flagged returns the players with at least one flagged detector.
func (r VenueResult) Flagged() []PlayerReport {
	var out []PlayerReport
	for _, p := range r.Players {
		if p.Analysis.Flagged() {
			out = append(out, p)
		}
	}
	return out
}

type rosterEntry struct {
	mu     sync.Mutex
	player Player
}

// SessionRunner plays queued session jobs against an engine. Sessions of
// the same player never overlap.
type SessionRunner struct {
	engine  *app.Engine
	session SessionConfig
	roster  map[string]*rosterEntry
}

// NewSessionRunner builds a runner for the given players. They must already
// have engine profiles.
func NewSessionRunner(engine *app.Engine, session SessionConfig, players []Player) *SessionRunner {
	r := &SessionRunner{engine: engine, session: session, roster: make(map[string]*rosterEntry, len(players))}
	for _, p := range players {
		r.roster[p.ID] = &rosterEntry{player: p}
	}
	return r
}

// RunSession implements worker.Runner.
func (r *SessionRunner) RunSession(ctx context.Context, job model.SessionJob) (model.SessionSummary, error) {
	entry, ok := r.roster[job.PlayerID]
	if !ok {
		return model.SessionSummary{}, fmt.Errorf("%s: %w", job.PlayerID, ErrUnknownPlayer)
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	cfg := r.session
	if job.Shots > 0 {
		cfg.Shots = job.Shots
	}
	res, err := RunSession(ctx, r.engine, entry.player, cfg, job.Seed)
	if err != nil {
		return model.SessionSummary{}, err
	}
	a, err := r.engine.Analyze(ctx, job.PlayerID)
	if err != nil {
		return model.SessionSummary{}, err
	}
	summary := model.SessionSummary{
		JobID:       job.ID,
		PlayerID:    job.PlayerID,
		Bay:         job.Bay,
		Shots:       res.Shots,
		Flushes:     res.Updates,
		RateLimited: res.RateLimited,
		Stalls:      res.Stalls,
		Wagered:     res.Wagered,
		Paid:        res.Won,
	}
	for _, rep := range a.Reports() {
		if rep.Flagged {
			summary.Flagged = append(summary.Flagged, string(rep.Kind))
		}
	}
	return summary, nil
}

// collector is the worker.Sink of a venue run.
type collector struct {
	mu  sync.Mutex
	got []model.SessionSummary
}

func (c *collector) Collect(_ context.Context, s model.SessionSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, s)
}

// RunVenue registers a roster, queues cfg.Sessions sessions per player and
// lets a pool of bays drain the queue. Every player is analysed at the end.
func RunVenue(ctx context.Context, engine *app.Engine, cfg VenueConfig) (VenueResult, error) {
	if err := cfg.Validate(); err != nil {
		return VenueResult{}, err
	}
	log := logger.Get().Named("venue")

	players := Roster(cfg.Players, cfg.Seed)
	for _, p := range players {
		if _, err := engine.CreateProfile(ctx, p.ID, p.Handicap); err != nil {
			return VenueResult{}, err
		}
	}

	var qopts []queue.Option
	if cfg.QueueSize > 0 {
		qopts = append(qopts, queue.WithCapacity(cfg.QueueSize))
	}
	q := queue.NewInMemoryQueue(qopts...)
	sink := &collector{}
	pool := worker.NewPool(cfg.Workers, q, NewSessionRunner(engine, cfg.Session, players), sink)
	pool.Start(ctx)

	log.Info(ctx, "venue open",
		logger.Int("players", cfg.Players),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("shots", cfg.Session.Shots),
		logger.String("selection", cfg.Session.Selection.String()),
	)

	jobs := 0
	seed := cfg.Seed
	for round := 0; round < cfg.Sessions; round++ {
		for i, p := range players {
			seed++
			job := queue.Job{
				ID:       uuid.NewString(),
				PlayerID: p.ID,
				Bay:      i % max(cfg.Workers, 1),
				Shots:    cfg.Session.Shots,
				Seed:     seed,
				Enqueued: time.Now(),
			}
			if err := enqueue(ctx, q, job); err != nil {
				_ = pool.Shutdown(ctx)
				return VenueResult{}, err
			}
			jobs++
		}
	}
	if err := q.Close(); err != nil {
		return VenueResult{}, err
	}
	if err := pool.Wait(ctx); err != nil {
		return VenueResult{}, err
	}
	if err := pool.Shutdown(ctx); err != nil {
		return VenueResult{}, err
	}

	res := VenueResult{Wagered: decimal.Zero, Paid: decimal.Zero}
	sink.mu.Lock()
	res.Sessions = append(res.Sessions, sink.got...)
	sink.mu.Unlock()
	sort.Slice(res.Sessions, func(i, j int) bool { return res.Sessions[i].JobID < res.Sessions[j].JobID })
	res.Failed = jobs - len(res.Sessions)

	byPlayer := make(map[string]*PlayerReport, len(players))
	for _, p := range players {
		byPlayer[p.ID] = &PlayerReport{Player: p, Wagered: decimal.Zero, Paid: decimal.Zero}
	}
	for _, s := range res.Sessions {
		res.Wagered = res.Wagered.Add(s.Wagered)
		res.Paid = res.Paid.Add(s.Paid)
		res.SessionRTPs = append(res.SessionRTPs, s.RTP())
		pr := byPlayer[s.PlayerID]
		pr.Sessions++
		pr.Wagered = pr.Wagered.Add(s.Wagered)
		pr.Paid = pr.Paid.Add(s.Paid)
	}
	for _, p := range players {
		pr := byPlayer[p.ID]
		a, err := engine.Analyze(ctx, p.ID)
		if err != nil {
			return res, err
		}
		pr.Analysis = a
		res.Players = append(res.Players, *pr)
	}

	lo, hi := res.RTPRange()
	log.Info(ctx, "venue closed",
		logger.Int("sessions", len(res.Sessions)),
		logger.Int("failed", res.Failed),
		logger.String("wagered", res.Wagered.StringFixed(2)),
		logger.String("paid", res.Paid.StringFixed(2)),
		logger.Float64("rtp", res.RTP()),
		logger.Float64("session_rtp_min", lo),
		logger.Float64("session_rtp_max", hi),
		logger.Int("flagged_players", len(res.Flagged())),
	)
	return res, nil
}

// enqueue retries while the queue is full.
func enqueue(ctx context.Context, q *queue.InMemoryQueue, job queue.Job) error {
	for !q.Enqueue(ctx, job) {
		if q.IsClosed() {
			return fmt.Errorf("job %s: %w", job.ID, ErrQueueRejected)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(enqueueRetryInterval):
		}
	}
	return nil
}

var _ worker.Runner = (*SessionRunner)(nil)

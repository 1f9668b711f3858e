package model

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Source tags where a shot's distance came from.
type Source int

const (
	// SourceMeasured is a distance reported by the launch monitor or sampler.
	SourceMeasured Source = iota
	// SourceManual is a developer-entered distance. It bypasses every
	// statistical protection and is never accepted in settlement mode.
	SourceManual
)

func (s Source) String() string {
	if s == SourceManual {
		return "manual"
	}
	return "measured"
}

// Shot is an incoming shot before it is recorded.
type Shot struct {
	// ID is optional; when set it is used for idempotency.
	ID       string
	HoleID   int
	Distance float64
	Wager    float64
	At       time.Time
}

// Validate rejects contract violations.
func (s Shot) Validate() error {
	if math.IsNaN(s.Distance) || math.IsInf(s.Distance, 0) || s.Distance < 0 {
		return fmt.Errorf("distance %v: %w", s.Distance, ErrInvalidDistance)
	}
	if !(s.Wager > 0) || math.IsInf(s.Wager, 0) {
		return fmt.Errorf("wager %v: %w", s.Wager, ErrInvalidWager)
	}
	return nil
}

// Observation is an immutable recorded shot.
type Observation struct {
	ID        string
	PlayerID  string
	Seq       int64
	HoleID    int
	Category  Category
	Distance  float64
	Wager     float64
	Timestamp time.Time
	Source    Source
	// Ceiling is the multiplier ceiling the shot was paid against.
	Ceiling float64
	// Payout is the multiplier awarded for the shot.
	Payout float64
}

// Trigger says why a batch was flushed.
type Trigger int

const (
	TriggerBatchSize Trigger = iota
	TriggerHighStakes
	TriggerSessionEnd
)

func (t Trigger) String() string {
	switch t {
	case TriggerHighStakes:
		return "high_stakes"
	case TriggerSessionEnd:
		return "session_end"
	default:
		return "batch_size"
	}
}

// UpdateRecord is the audit entry written for every flushed batch.
type UpdateRecord struct {
	Seq            int64
	PlayerID       string
	Category       Category
	HoleID         int
	Trigger        Trigger
	BatchSeqs      []int64
	ExcludedSeqs   []int64
	Measurement    float64
	Noise          float64
	EstimateBefore float64
	Estimate       float64
	Uncertainty    float64
	// Ceiling is the published ceiling; Unclamped is what calibration asked for.
	Ceiling     float64
	Unclamped   float64
	RateLimited bool
	Stalled     bool
	Timestamp   time.Time
}

// WagerAggregate is a running total of wagers.
type WagerAggregate struct {
	Total float64
	Count int64
}

// Add folds one wager into the aggregate.
func (a *WagerAggregate) Add(wager float64) {
	a.Total += wager
	a.Count++
}

// Average returns the mean wager, or 0 with no wagers.
func (a WagerAggregate) Average() float64 {
	if a.Count == 0 {
		return 0
	}
	return a.Total / float64(a.Count)
}

// Aggregates carries the wager anchors a flush decision needs.
type Aggregates struct {
	Session WagerAggregate
	AllTime WagerAggregate
}

// Reference is the larger of the session and all-time averages.
func (a Aggregates) Reference() float64 {
	return math.Max(a.Session.Average(), a.AllTime.Average())
}

// HistorySnapshot is an immutable copy of a player's history.
type HistorySnapshot struct {
	PlayerID string
	Shots    []Observation
	Updates  []UpdateRecord
}

// History is a player's append-only shot and update log.
type History struct {
	mu       sync.RWMutex
	playerID string
	shots    []Observation
	updates  []UpdateRecord
	nextSeq  int64
	nextUpd  int64
}

// NewHistory creates an empty history for a player.
func NewHistory(playerID string) *History {
	return &History{playerID: playerID}
}

// AppendShot stamps the observation with the next sequence number and stores it.
func (h *History) AppendShot(o Observation) Observation {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSeq++
	o.Seq = h.nextSeq
	o.PlayerID = h.playerID
	h.shots = append(h.shots, o)
	return o
}

// AppendUpdate stamps and stores an update record.
func (h *History) AppendUpdate(u UpdateRecord) UpdateRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextUpd++
	u.Seq = h.nextUpd
	u.PlayerID = h.playerID
	h.updates = append(h.updates, u)
	return u
}

// Len returns the number of recorded shots.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.shots)
}

// Snapshot returns a deep copy that later appends never touch.
func (h *History) Snapshot() HistorySnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := HistorySnapshot{
		PlayerID: h.playerID,
		Shots:    make([]Observation, len(h.shots)),
		Updates:  make([]UpdateRecord, len(h.updates)),
	}
	copy(s.Shots, h.shots)
	for i, u := range h.updates {
		u.BatchSeqs = append([]int64(nil), u.BatchSeqs...)
		u.ExcludedSeqs = append([]int64(nil), u.ExcludedSeqs...)
		s.Updates[i] = u
	}
	return s
}

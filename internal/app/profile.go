package app

import (
	"sync"
	"time"

	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/domain/policy"
)

// Profile is a player's persistent record: one policy unit per category,
// the shot history, and the wager aggregates that anchor high-stakes
// detection across sessions.
type Profile struct {
	ID        string
	Handicap  float64
	CreatedAt time.Time

	units   map[model.Category]*policy.Unit
	history *model.History

	mu        sync.Mutex
	allTime   model.WagerAggregate
	session   model.WagerAggregate
	sessionID string
}

// ProfileState is a point-in-time view of a profile.
type ProfileState struct {
	ID         string
	Handicap   float64
	SessionID  string
	Aggregates model.Aggregates
	Units      map[model.Category]policy.UnitState
	Shots      int
}

// Aggregates returns the current session and all-time wager aggregates.
func (p *Profile) Aggregates() model.Aggregates {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.Aggregates{Session: p.session, AllTime: p.allTime}
}

// Unit returns the policy unit for a category.
func (p *Profile) Unit(cat model.Category) *policy.Unit { return p.units[cat] }

// History returns an immutable copy of the player's shots and updates.
func (p *Profile) History() model.HistorySnapshot { return p.history.Snapshot() }

// State returns a snapshot of the profile.
func (p *Profile) State() ProfileState {
	p.mu.Lock()
	s := ProfileState{
		ID:         p.ID,
		Handicap:   p.Handicap,
		SessionID:  p.sessionID,
		Aggregates: model.Aggregates{Session: p.session, AllTime: p.allTime},
	}
	p.mu.Unlock()

	s.Units = make(map[model.Category]policy.UnitState, len(p.units))
	for cat, u := range p.units {
		s.Units[cat] = u.State()
	}
	s.Shots = p.history.Len()
	return s
}

func (p *Profile) addWager(w float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.Add(w)
	p.allTime.Add(w)
}

func (p *Profile) beginSession(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessionID = id
	p.session = model.WagerAggregate{}
}

func (p *Profile) endSession() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.sessionID
	p.sessionID = ""
	p.session = model.WagerAggregate{}
	return id
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionJob asks a venue worker to run one player's session at one bay.
type SessionJob struct {
	ID       string
	PlayerID string
	Bay      int
	Shots    int
	// Seed makes the session reproducible.
	Seed     uint64
	Enqueued time.Time
}

// SessionSummary is what a worker reports back for a finished session.
// Money is kept in decimal so that venue totals add up to the cent.
type SessionSummary struct {
	JobID    string
	PlayerID string
	Bay      int

	Shots       int
	Flushes     int
	RateLimited int
	Stalls      int

	Wagered decimal.Decimal
	Paid    decimal.Decimal

	// Flagged lists the anomaly kinds raised on the player's history.
	Flagged  []string
	Duration time.Duration
}

// RTP is the realized return to player of the session, or 0 when nothing
// was wagered.
func (s SessionSummary) RTP() float64 {
	if !s.Wagered.IsPositive() {
		return 0
	}
	return s.Paid.Div(s.Wagered).InexactFloat64()
}

// HouseEdge is the wagered amount the venue kept.
func (s SessionSummary) HouseEdge() decimal.Decimal {
	return s.Wagered.Sub(s.Paid)
}

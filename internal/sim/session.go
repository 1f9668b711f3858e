// Package sim drives the engine with synthetic players: single sessions,
// RTP and fairness audits, and whole-venue runs spread over a worker pool.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/okian/fairplay/internal/app"
	"github.com/okian/fairplay/internal/domain/model"
	"github.com/okian/fairplay/internal/domain/shotdist"
)

// SessionConfig shapes one simulated session.
type SessionConfig struct {
	Shots     int
	WagerMin  float64
	WagerMax  float64
	Selection HoleSelection

	FatTailProbability float64
	FatTailMultiplier  float64
}

// DefaultSessionConfig returns a hundred random-hole shots wagering 5 to 10.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Shots:              100,
		WagerMin:           5,
		WagerMax:           10,
		Selection:          Random{},
		FatTailProbability: shotdist.DefaultFatTailProbability,
		FatTailMultiplier:  shotdist.DefaultFatTailMultiplier,
	}
}

// Validate rejects sessions that cannot be played.
func (c SessionConfig) Validate() error {
	switch {
	case c.Shots < 1:
		return fmt.Errorf("shots %d: %w", c.Shots, ErrInvalidSession)
	case !(c.WagerMin > 0) || c.WagerMax < c.WagerMin:
		return fmt.Errorf("wager range [%v, %v]: %w", c.WagerMin, c.WagerMax, ErrInvalidSession)
	case c.Selection == nil:
		return fmt.Errorf("no hole selection: %w", ErrInvalidSession)
	}
	return nil
}

// SessionResult is the ledger of one session. Money is rounded to the cent
// per shot.
type SessionResult struct {
	PlayerID  string
	SessionID string
	Shots     int
	Wagered   decimal.Decimal
	Won       decimal.Decimal
	// Wins counts shots that paid anything.
	Wins              int
	Updates           int
	HighStakesFlushes int
	RateLimited       int
	Stalls            int
	FatTailShots      int
	FinalEstimates    map[model.Category]float64
}

// Net is what the player walked away with, negative when they lost.
func (r SessionResult) Net() decimal.Decimal { return r.Won.Sub(r.Wagered) }

// HouseEdge is the fraction of wagers the venue kept.
func (r SessionResult) HouseEdge() float64 {
	if !r.Wagered.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(1).Sub(r.Won.Div(r.Wagered)).InexactFloat64()
}

// WinRate is the fraction of shots that paid anything.
func (r SessionResult) WinRate() float64 {
	if r.Shots == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Shots)
}

// AverageWager is the mean stake per shot.
func (r SessionResult) AverageWager() decimal.Decimal {
	if r.Shots == 0 {
		return decimal.Zero
	}
	return r.Wagered.Div(decimal.NewFromInt(int64(r.Shots))).Round(2)
}

func (r *SessionResult) count(u model.UpdateRecord) {
	r.Updates++
	if u.Trigger == model.TriggerHighStakes {
		r.HighStakesFlushes++
	}
	if u.RateLimited {
		r.RateLimited++
	}
	if u.Stalled {
		r.Stalls++
	}
}

// RunSession plays one session for a registered player. The same seed
// replays the same shots.
func RunSession(ctx context.Context, engine *app.Engine, player Player, cfg SessionConfig, seed uint64) (SessionResult, error) {
	if err := cfg.Validate(); err != nil {
		return SessionResult{}, err
	}
	rng := rand.New(rand.NewPCG(seed, seed^sessionStream))
	sampler := shotdist.NewSampler(seed,
		shotdist.WithSource(rng),
		shotdist.WithFatTail(cfg.FatTailProbability, cfg.FatTailMultiplier),
	)

	sessionID, err := engine.BeginSession(ctx, player.ID)
	if err != nil {
		return SessionResult{}, err
	}
	res := SessionResult{
		PlayerID:  player.ID,
		SessionID: sessionID,
		Wagered:   decimal.Zero,
		Won:       decimal.Zero,
	}

	for i := 0; i < cfg.Shots; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		hole, err := cfg.Selection.pick(rng, engine.Course())
		if err != nil {
			return res, err
		}
		sigma, err := player.TrueSigma(hole.Category())
		if err != nil {
			return res, err
		}
		draw, err := sampler.Sample(sigma)
		if err != nil {
			return res, err
		}
		distance, wager := player.Archetype.play(turn{
			index: i,
			total: cfg.Shots,
			draw:  draw.Distance,
			sigma: sigma,
			min:   cfg.WagerMin,
			max:   cfg.WagerMax,
			rng:   rng,
		})
		stake := decimal.NewFromFloat(wager).Round(2)

		out, err := engine.RecordShot(ctx, player.ID, model.Shot{
			HoleID:   hole.ID,
			Distance: distance,
			Wager:    stake.InexactFloat64(),
		})
		if !out.Accepted {
			return res, fmt.Errorf("shot %d: %w", i, err)
		}

		res.Shots++
		res.Wagered = res.Wagered.Add(stake)
		res.Won = res.Won.Add(stake.Mul(decimal.NewFromFloat(out.Payout)).Round(2))
		if out.Payout > 0 {
			res.Wins++
		}
		if draw.FatTail {
			res.FatTailShots++
		}
		if out.Update != nil {
			res.count(*out.Update)
		}
	}

	updates, err := engine.EndSession(ctx, player.ID)
	for _, u := range updates {
		res.count(u)
	}
	if err != nil {
		return res, err
	}

	p, err := engine.Profile(ctx, player.ID)
	if err != nil {
		return res, err
	}
	st := p.State()
	res.FinalEstimates = make(map[model.Category]float64, len(st.Units))
	for cat, u := range st.Units {
		res.FinalEstimates[cat] = u.Estimator.Estimate
	}
	return res, nil
}

const sessionStream = 0xda3e39cb94b95bdb

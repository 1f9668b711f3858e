package sim

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/okian/fairplay/internal/domain/estimator"
	"github.com/okian/fairplay/internal/domain/model"
)

// Archetype is the behaviour a synthetic player follows. The set is closed.
type Archetype int

const (
	// Honest plays every shot for real and varies the wager at random.
	Honest Archetype = iota
	// Sandbagger opens each session with a run of deliberate misses on
	// minimum wagers, then plays properly on maximum wagers.
	Sandbagger
	// CherryPicker somehow knows how the shot will land and bets big only
	// on the good ones.
	CherryPicker
)

// sandbagPhase is the share of a session spent missing on purpose.
const sandbagPhase = 0.4

func (a Archetype) String() string {
	switch a {
	case Sandbagger:
		return "sandbagger"
	case CherryPicker:
		return "cherry_picker"
	default:
		return "honest"
	}
}

// ParseArchetype reads an archetype name.
func ParseArchetype(s string) (Archetype, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "honest":
		return Honest, nil
	case "sandbagger":
		return Sandbagger, nil
	case "cherry_picker", "cherrypicker":
		return CherryPicker, nil
	}
	return Honest, fmt.Errorf("archetype %q: %w", s, ErrInvalidSession)
}

// turn is what an archetype sees before committing to a shot.
type turn struct {
	index, total int
	// draw is the miss distance the player would get playing honestly.
	draw  float64
	sigma float64
	min   float64
	max   float64
	rng   *rand.Rand
}

// play returns the distance the shot actually lands at and the wager placed
// on it.
func (a Archetype) play(t turn) (distance, wager float64) {
	switch a {
	case Sandbagger:
		if float64(t.index) < sandbagPhase*float64(t.total) {
			return t.draw + 4*t.sigma, t.min
		}
		return t.draw, t.max
	case CherryPicker:
		if t.draw < t.sigma {
			return t.draw, t.max
		}
		return t.draw, t.min
	default:
		return t.draw, t.min + t.rng.Float64()*(t.max-t.min)
	}
}

// Player is a synthetic venue customer.
type Player struct {
	ID        string
	Handicap  float64
	Archetype Archetype
	// Skill scales the handicap prior into the player's true dispersion;
	// below 1 the player is better than their handicap says.
	Skill float64
}

// TrueSigma is the dispersion the player's shots are actually drawn from.
func (p Player) TrueSigma(cat model.Category) (float64, error) {
	prior, err := estimator.PriorSigma(cat, p.Handicap)
	if err != nil {
		return 0, err
	}
	skill := p.Skill
	if skill <= 0 {
		skill = 1
	}
	return prior * skill, nil
}

// Roster builds n players with handicaps spread over 0..36. Every tenth
// player from the fourth on sandbags and every tenth from the eighth on
// cherry-picks; the rest are honest.
func Roster(n int, seed uint64) []Player {
	rng := rand.New(rand.NewPCG(seed, seed^rosterStream))
	players := make([]Player, n)
	for i := range players {
		a := Honest
		switch i % 10 {
		case 3:
			a = Sandbagger
		case 7:
			a = CherryPicker
		}
		players[i] = Player{
			ID:        fmt.Sprintf("player-%03d", i),
			Handicap:  float64(rng.IntN(37)),
			Archetype: a,
			Skill:     0.8 + 0.4*rng.Float64(),
		}
	}
	return players
}

const rosterStream = 0x5851f42d4c957f2d

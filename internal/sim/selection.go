package sim

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/okian/fairplay/internal/domain/model"
)

// HoleSelection decides which hole a player aims at next. The set of
// strategies is closed: Random, Weighted and Fixed.
type HoleSelection interface {
	pick(rng *rand.Rand, course *model.Course) (model.Hole, error)
	String() string
}

// Random picks uniformly among the course holes.
type Random struct{}

func (Random) pick(rng *rand.Rand, course *model.Course) (model.Hole, error) {
	holes := course.Holes()
	return holes[rng.IntN(len(holes))], nil
}

func (Random) String() string { return "random" }

// HoleWeight is the relative frequency of one hole.
type HoleWeight struct {
	HoleID int
	Weight float64
}

// Weighted picks holes in proportion to their weights.
type Weighted []HoleWeight

func (w Weighted) pick(rng *rand.Rand, course *model.Course) (model.Hole, error) {
	total := 0.0
	for _, hw := range w {
		total += hw.Weight
	}
	if !(total > 0) {
		return model.Hole{}, fmt.Errorf("weights sum to %v: %w", total, ErrInvalidSelection)
	}
	r := rng.Float64() * total
	for _, hw := range w {
		if r < hw.Weight {
			return course.Hole(hw.HoleID)
		}
		r -= hw.Weight
	}
	return course.Hole(w[len(w)-1].HoleID)
}

func (w Weighted) String() string {
	parts := make([]string, len(w))
	for i, hw := range w {
		parts[i] = fmt.Sprintf("%d=%g", hw.HoleID, hw.Weight)
	}
	return "weighted:" + strings.Join(parts, ",")
}

// Fixed always plays the same hole.
type Fixed int

func (f Fixed) pick(_ *rand.Rand, course *model.Course) (model.Hole, error) {
	return course.Hole(int(f))
}

func (f Fixed) String() string { return "fixed:" + strconv.Itoa(int(f)) }

// ParseHoleSelection reads "random", "fixed:<hole>" or
// "weighted:<hole>=<weight>,...".
func ParseHoleSelection(s string) (HoleSelection, error) {
	kind, arg, _ := strings.Cut(strings.TrimSpace(strings.ToLower(s)), ":")
	switch kind {
	case "", "random":
		return Random{}, nil
	case "fixed":
		id, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("fixed hole %q: %w", arg, ErrInvalidSelection)
		}
		return Fixed(id), nil
	case "weighted":
		var w Weighted
		for _, pair := range strings.Split(arg, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("weight %q: %w", pair, ErrInvalidSelection)
			}
			id, err := strconv.Atoi(strings.TrimSpace(k))
			if err != nil {
				return nil, fmt.Errorf("weight %q: %w", pair, ErrInvalidSelection)
			}
			weight, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil || weight < 0 {
				return nil, fmt.Errorf("weight %q: %w", pair, ErrInvalidSelection)
			}
			w = append(w, HoleWeight{HoleID: id, Weight: weight})
		}
		return w, nil
	}
	return nil, fmt.Errorf("hole selection %q: %w", s, ErrInvalidSelection)
}

// Package model holds the shared domain types of the fairness engine.
package model

import (
	"fmt"
	"math"
)

// Category groups holes into skill bands; one estimator is kept per player
// per category.
type Category int

// Skill categories, shortest to longest.
const (
	CategoryWedge Category = iota
	CategoryMidIron
	CategoryLongIron
)

// Category boundaries in yards.
const (
	wedgeMaxYards   = 130
	midIronMaxYards = 185
)

// Categories lists every category in ascending distance order.
func Categories() []Category {
	return []Category{CategoryWedge, CategoryMidIron, CategoryLongIron}
}

func (c Category) String() string {
	switch c {
	case CategoryWedge:
		return "wedge"
	case CategoryMidIron:
		return "mid_iron"
	case CategoryLongIron:
		return "long_iron"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// RepresentativeYards is the distance used to seed a category prior.
func (c Category) RepresentativeYards() float64 {
	switch c {
	case CategoryWedge:
		return 100
	case CategoryMidIron:
		return 162
	default:
		return 225
	}
}

// CategoryFor maps a hole distance onto its skill category.
func CategoryFor(yards float64) Category {
	switch {
	case yards <= wedgeMaxYards:
		return CategoryWedge
	case yards <= midIronMaxYards:
		return CategoryMidIron
	default:
		return CategoryLongIron
	}
}

// Hole describes the scoring geometry of one target.
type Hole struct {
	ID    int
	Yards float64
	// MaxRadius is the miss distance (feet) beyond which nothing is paid.
	MaxRadius float64
	// Decay is the exponent k of the payout curve.
	Decay float64
	// RTP is the target return to player for this hole.
	RTP float64
}

// Category returns the skill band the hole belongs to.
func (h Hole) Category() Category { return CategoryFor(h.Yards) }

// Validate checks the geometry is usable for calibration.
func (h Hole) Validate() error {
	if h.MaxRadius <= 0 || math.IsNaN(h.MaxRadius) || math.IsInf(h.MaxRadius, 0) {
		return fmt.Errorf("hole %d: max radius %v: %w", h.ID, h.MaxRadius, ErrInvalidGeometry)
	}
	if h.Decay <= 0 || math.IsNaN(h.Decay) || math.IsInf(h.Decay, 0) {
		return fmt.Errorf("hole %d: decay %v: %w", h.ID, h.Decay, ErrInvalidGeometry)
	}
	if !(h.RTP > 0 && h.RTP < 1) {
		return fmt.Errorf("hole %d: rtp %v: %w", h.ID, h.RTP, ErrInvalidRTP)
	}
	return nil
}

// DefaultRTP is the venue return to player used by the stock course.
const DefaultRTP = 0.85

// DefaultHoles returns the stock eight-hole course.
func DefaultHoles() []Hole {
	return []Hole{
		{ID: 1, Yards: 75, MaxRadius: 17.95, Decay: 5.0, RTP: DefaultRTP},
		{ID: 2, Yards: 100, MaxRadius: 25.69, Decay: 5.0, RTP: DefaultRTP},
		{ID: 3, Yards: 125, MaxRadius: 36.71, Decay: 5.5, RTP: DefaultRTP},
		{ID: 4, Yards: 150, MaxRadius: 47.58, Decay: 6.0, RTP: DefaultRTP},
		{ID: 5, Yards: 175, MaxRadius: 59.09, Decay: 6.0, RTP: DefaultRTP},
		{ID: 6, Yards: 200, MaxRadius: 73.58, Decay: 6.5, RTP: DefaultRTP},
		{ID: 7, Yards: 225, MaxRadius: 84.84, Decay: 6.5, RTP: DefaultRTP},
		{ID: 8, Yards: 250, MaxRadius: 101.14, Decay: 6.5, RTP: DefaultRTP},
	}
}

// Course is an indexed, read-only set of holes.
type Course struct {
	holes []Hole
	byID  map[int]int
}

// NewCourse validates and indexes holes. An rtp > 0 overrides each hole's RTP.
func NewCourse(holes []Hole, rtp float64) (*Course, error) {
	if len(holes) == 0 {
		return nil, fmt.Errorf("empty course: %w", ErrInvalidGeometry)
	}
	c := &Course{holes: make([]Hole, len(holes)), byID: make(map[int]int, len(holes))}
	for i, h := range holes {
		if rtp > 0 {
			h.RTP = rtp
		}
		if err := h.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[h.ID]; dup {
			return nil, fmt.Errorf("duplicate hole %d: %w", h.ID, ErrInvalidGeometry)
		}
		c.holes[i] = h
		c.byID[h.ID] = i
	}
	return c, nil
}

// Hole looks up a hole by ID.
func (c *Course) Hole(id int) (Hole, error) {
	i, ok := c.byID[id]
	if !ok {
		return Hole{}, fmt.Errorf("hole %d: %w", id, ErrUnknownHole)
	}
	return c.holes[i], nil
}

// Holes returns a copy of the course holes in their configured order.
func (c *Course) Holes() []Hole {
	out := make([]Hole, len(c.holes))
	copy(out, c.holes)
	return out
}

// InCategory returns the holes that share the given category.
func (c *Course) InCategory(cat Category) []Hole {
	var out []Hole
	for _, h := range c.holes {
		if h.Category() == cat {
			out = append(out, h)
		}
	}
	return out
}

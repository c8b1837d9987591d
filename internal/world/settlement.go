package world

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/paulmach/orb"
)

// ID is a stable handle into a World's settlement table.
type ID int

// Now selects the current value instead of a recorded round in View.
const Now = -1

var (
	// ErrRoundOutOfRange is returned when a history lookup names a round that was never recorded.
	ErrRoundOutOfRange = errors.New("round out of range")
	// ErrNoHistory is returned when a settlement has not recorded any round yet.
	ErrNoHistory = errors.New("no recorded history")
)

// Settlement is one node of the network.
// Neighbors maps neighbor IDs to connection weights in (0, 1]; the same
// weight is stored on both endpoints.
type Settlement struct {
	ID           ID             `json:"id"`
	Name         string         `json:"name"`
	Position     orb.Point      `json:"position"`
	Kind         Kind           `json:"type"`
	RateOfChange float64        `json:"rate_of_change"`
	History      []float64      `json:"history"`
	Neighbors    map[ID]float64 `json:"-"`

	dialect Dialect
}

// NewSettlement creates a village at (x, y) with value 0 and rate of change 1.
func NewSettlement(id ID, x, y float64, d Dialect) *Settlement {
	if d == nil {
		d = &Plain{}
	}
	return &Settlement{
		ID:           id,
		Position:     orb.Point{x, y},
		Kind:         KindVillage,
		RateOfChange: 1.0,
		Neighbors:    make(map[ID]float64),
		dialect:      d,
	}
}

// X returns the horizontal coordinate.
func (s *Settlement) X() float64 { return s.Position.X() }

// Y returns the vertical coordinate.
func (s *Settlement) Y() float64 { return s.Position.Y() }

// Size returns the aggregation weight of the settlement's kind.
func (s *Settlement) Size() int { return s.Kind.Size() }

// Dialect exposes the value model.
func (s *Settlement) Dialect() Dialect { return s.dialect }

// Value returns the current dialect value.
func (s *Settlement) Value() float64 { return s.dialect.Value() }

// SetValue overwrites the dialect value. Only used when seeding.
func (s *Settlement) SetValue(v float64) { s.dialect.Set(v) }

// Anchor pins the settlement at v; its value never changes afterwards.
func (s *Settlement) Anchor(v float64) {
	s.dialect.Set(v)
	s.RateOfChange = 0
}

// Anchored reports whether the settlement's value is frozen.
func (s *Settlement) Anchored() bool { return s.RateOfChange == 0 }

// NewGeneration records the current value and ages the dialect.
func (s *Settlement) NewGeneration() {
	s.History = append(s.History, s.dialect.Value())
	s.dialect.Advance()
}

// Update moves the value toward target, scaled by the rate of change.
func (s *Settlement) Update(target float64) {
	s.dialect.Nudge(target, s.RateOfChange)
}

// Jitter perturbs the value by up to ±amt, clamped to [0, 1].
func (s *Settlement) Jitter(rng *rand.Rand, amt float64) {
	s.dialect.Jitter(rng, amt)
}

// ValueAt returns the value recorded for round t.
func (s *Settlement) ValueAt(t int) (float64, error) {
	if t < 0 || t >= len(s.History) {
		return 0, fmt.Errorf("settlement %d round %d of %d: %w", s.ID, t, len(s.History), ErrRoundOutOfRange)
	}
	return s.History[t], nil
}

// Last returns the most recently recorded value.
func (s *Settlement) Last() (float64, error) {
	if len(s.History) == 0 {
		return 0, fmt.Errorf("settlement %d: %w", s.ID, ErrNoHistory)
	}
	return s.History[len(s.History)-1], nil
}

// NeighborIDs returns the neighbor IDs in ascending order.
func (s *Settlement) NeighborIDs() []ID {
	ids := make([]ID, 0, len(s.Neighbors))
	for id := range s.Neighbors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Degree returns the number of neighbors.
func (s *Settlement) Degree() int { return len(s.Neighbors) }

// View is the serialization view of a settlement at one point in time.
type View struct {
	ID    ID      `json:"id"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Type  Kind    `json:"type"`
	Size  int     `json:"size"`
	Value float64 `json:"val"`
}

// View returns the settlement at round t, or its current value when t is Now.
func (s *Settlement) View(t int) (View, error) {
	v := View{
		ID:   s.ID,
		Name: s.Name,
		X:    s.X(),
		Y:    s.Y(),
		Type: s.Kind,
		Size: s.Size(),
	}
	if t == Now {
		v.Value = s.Value()
		return v, nil
	}
	val, err := s.ValueAt(t)
	if err != nil {
		return View{}, err
	}
	v.Value = val
	return v, nil
}

package world

import (
	"fmt"
	"math/rand"
)

// DefaultGenerations is the adult cohort count of a generational dialect.
const DefaultGenerations = 5

// Dialect holds the variant value carried by a settlement.
type Dialect interface {
	// Value returns the current dialect value.
	Value() float64
	// Set overwrites all state with v. Used when seeding.
	Set(v float64)
	// Nudge moves the pending value toward target, scaled by rate.
	Nudge(target, rate float64)
	// Advance ages the model by one generation.
	Advance()
	// Jitter perturbs the value by up to ±amt, clamped to [0, 1].
	Jitter(rng *rand.Rand, amt float64)
}

// Model selects the Dialect implementation used by a world.
type Model uint8

const (
	ModelPlain Model = iota
	ModelGenerational
)

func (m Model) String() string {
	switch m {
	case ModelPlain:
		return "plain"
	case ModelGenerational:
		return "generational"
	default:
		return fmt.Sprintf("model(%d)", uint8(m))
	}
}

// MarshalText encodes the model by name.
func (m Model) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes a model name.
func (m *Model) UnmarshalText(b []byte) error {
	parsed, err := ParseModel(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseModel maps a model name to a Model.
func ParseModel(s string) (Model, error) {
	switch s {
	case "", "plain":
		return ModelPlain, nil
	case "generational":
		return ModelGenerational, nil
	}
	return 0, fmt.Errorf("unknown dialect model %q", s)
}

// New returns a fresh dialect for the model.
func (m Model) New(generations int) Dialect {
	if m == ModelGenerational {
		return NewGenerational(generations)
	}
	return &Plain{}
}

// Plain is a dialect with a single current value.
type Plain struct {
	val float64
}

func (p *Plain) Value() float64 { return p.val }

func (p *Plain) Set(v float64) { p.val = v }

func (p *Plain) Nudge(target, rate float64) {
	p.val += rate * (target - p.val)
}

// Advance is a no-op: a plain dialect has no cohorts.
func (p *Plain) Advance() {}

func (p *Plain) Jitter(rng *rand.Rand, amt float64) {
	p.val = jitter(rng, p.val, amt)
}

// Generational ages values through a fixed pipeline of adult cohorts.
// The current value is the mean of the adults; updates only touch the
// children's pending value, which joins the adults on Advance.
type Generational struct {
	children float64
	adults   []float64
}

// NewGenerational creates a generational dialect with n adult cohorts.
// n <= 0 falls back to DefaultGenerations.
func NewGenerational(n int) *Generational {
	if n <= 0 {
		n = DefaultGenerations
	}
	return &Generational{adults: make([]float64, n)}
}

func (g *Generational) Value() float64 {
	if len(g.adults) == 0 {
		return g.children
	}
	sum := 0.0
	for _, v := range g.adults {
		sum += v
	}
	return sum / float64(len(g.adults))
}

func (g *Generational) Set(v float64) {
	g.children = v
	for i := range g.adults {
		g.adults[i] = v
	}
}

func (g *Generational) Nudge(target, rate float64) {
	cur := g.Value()
	g.children = cur + rate*(target-cur)
}

// Advance drops the oldest adult cohort and appends the children's value.
func (g *Generational) Advance() {
	if len(g.adults) == 0 {
		return
	}
	copy(g.adults, g.adults[1:])
	g.adults[len(g.adults)-1] = g.children
}

func (g *Generational) Jitter(rng *rand.Rand, amt float64) {
	for i := range g.adults {
		g.adults[i] = jitter(rng, g.adults[i], amt)
	}
}

// Children returns the pending value of the youngest cohort.
func (g *Generational) Children() float64 { return g.children }

// Adults returns a copy of the adult cohort values, oldest first.
func (g *Generational) Adults() []float64 {
	out := make([]float64, len(g.adults))
	copy(out, g.adults)
	return out
}

// jitter adds amt*U(-1,1) to val and clamps the result to [0, 1].
func jitter(rng *rand.Rand, val, amt float64) float64 {
	v := val + amt*(rng.Float64()*2-1)
	if v > 1.0 {
		return 1.0
	}
	if v < 0.0 {
		return 0.0
	}
	return v
}

package strategy

import (
	"fmt"
	"math/rand"

	"github.com/talgya/lingnet/internal/world"
)

// Init selects how a world's initial dialect values are seeded.
type Init uint8

const (
	// SingleLocusRandomFree sets one random settlement to 1.
	SingleLocusRandomFree Init = iota
	// SingleLocusRandomUnchanging anchors one random settlement at 1.
	SingleLocusRandomUnchanging
	// SingleLocusUnchangingLargest anchors the largest settlement at 1.
	SingleLocusUnchangingLargest
	// DoubleLocusRandom sets everything to 0.5 and anchors two distinct random settlements at 0 and 1.
	DoubleLocusRandom
	// DoubleLocusOppositeCorners sets everything to 0.5 and anchors two large
	// settlements on opposite diagonal corners at 0 and 1.
	DoubleLocusOppositeCorners
)

var initNames = map[Init]string{
	SingleLocusRandomFree:        "single-locus-random-free",
	SingleLocusRandomUnchanging:  "single-locus-random-unchanging",
	SingleLocusUnchangingLargest: "single-locus-unchanging-largest",
	DoubleLocusRandom:            "double-locus-random",
	DoubleLocusOppositeCorners:   "double-locus-opposite-corners",
}

func (m Init) String() string {
	if n, ok := initNames[m]; ok {
		return n
	}
	return fmt.Sprintf("init(%d)", uint8(m))
}

// ParseInit maps a name such as "double-locus-random" to an Init.
func ParseInit(name string) (Init, error) {
	return parseName("init", name, initNames)
}

// InitNames lists the accepted initialization names.
func InitNames() []string { return sortedNames(initNames) }

// Seed applies the initialization to w. Random choices draw from rng.
func (m Init) Seed(w *world.World, rng *rand.Rand) error {
	n := w.Len()
	need := 1
	if m == DoubleLocusRandom || m == DoubleLocusOppositeCorners {
		need = 2
	}
	if n < need {
		return fmt.Errorf("%w: %s needs %d, have %d", ErrEmptyWorld, m, need, n)
	}

	switch m {
	case SingleLocusRandomFree:
		w.Settlements[rng.Intn(n)].SetValue(1.0)

	case SingleLocusRandomUnchanging:
		w.Settlements[rng.Intn(n)].Anchor(1.0)

	case SingleLocusUnchangingLargest:
		largest(w.Settlements, nil, func(s *world.Settlement) float64 { return 0 }).Anchor(1.0)

	case DoubleLocusRandom:
		setAll(w, 0.5)
		i := rng.Intn(n)
		j := rng.Intn(n - 1)
		if j >= i {
			j++
		}
		w.Settlements[i].Anchor(0.0)
		w.Settlements[j].Anchor(1.0)

	case DoubleLocusOppositeCorners:
		setAll(w, 0.5)
		first := largest(w.Settlements, nil, func(s *world.Settlement) float64 {
			return s.X() + s.Y()
		})
		second := largest(w.Settlements, first, func(s *world.Settlement) float64 {
			return -(s.X() + s.Y())
		})
		first.Anchor(0.0)
		second.Anchor(1.0)

	default:
		return fmt.Errorf("%w: init %d", ErrUnknownStrategy, uint8(m))
	}
	return nil
}

func setAll(w *world.World, v float64) {
	for _, s := range w.Settlements {
		s.SetValue(v)
	}
}

// largest returns the first settlement maximizing (size, tiebreak), skipping
// exclude. Ties keep the earliest settlement.
func largest(setts []*world.Settlement, exclude *world.Settlement, tiebreak func(*world.Settlement) float64) *world.Settlement {
	var best *world.Settlement
	var bestTie float64
	for _, s := range setts {
		if s == exclude {
			continue
		}
		tie := tiebreak(s)
		if best == nil || s.Size() > best.Size() || (s.Size() == best.Size() && tie > bestTie) {
			best, bestTie = s, tie
		}
	}
	return best
}

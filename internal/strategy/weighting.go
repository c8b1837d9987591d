package strategy

import (
	"fmt"

	"github.com/talgya/lingnet/internal/world"
)

// WeightMethod selects how neighbor values are combined into a target.
type WeightMethod uint8

const (
	// NeighborWeighted averages own and neighbor values, neighbors scaled by influence.
	NeighborWeighted WeightMethod = iota
	// NeighborSizeWeighted additionally scales every term by settlement size.
	NeighborSizeWeighted
	// NeighborSizeDistanceWeighted additionally scales neighbor terms by connection weight.
	NeighborSizeDistanceWeighted
)

var weightNames = map[WeightMethod]string{
	NeighborWeighted:             "neighbor-weighted",
	NeighborSizeWeighted:         "neighbor-size-weighted",
	NeighborSizeDistanceWeighted: "neighbor-size-distance-weighted",
}

// Default neighbor influence per method.
const (
	DefaultInfluence         = 0.10
	DefaultDistanceInfluence = 1.0
)

func (m WeightMethod) String() string {
	if n, ok := weightNames[m]; ok {
		return n
	}
	return fmt.Sprintf("weighting(%d)", uint8(m))
}

// ParseWeighting maps a name such as "neighbor-weighted" to a method.
func ParseWeighting(name string) (WeightMethod, error) {
	return parseName("weighting", name, weightNames)
}

// WeightingNames lists the accepted weighting names.
func WeightingNames() []string { return sortedNames(weightNames) }

// Weighting computes a target value for a settlement from its own and its
// neighbors' most recently recorded values. It never reads current values,
// so every settlement in a round sees the same snapshot.
type Weighting struct {
	Method    WeightMethod
	Influence float64 // 0 = method default
}

// influence returns the configured influence or the method default.
func (wt Weighting) influence() float64 {
	if wt.Influence != 0 {
		return wt.Influence
	}
	if wt.Method == NeighborSizeDistanceWeighted {
		return DefaultDistanceInfluence
	}
	return DefaultInfluence
}

func (wt Weighting) String() string {
	return fmt.Sprintf("%s(influence=%g)", wt.Method, wt.influence())
}

// Target returns the weighted value for s.
func (wt Weighting) Target(w *world.World, s *world.Settlement) (float64, error) {
	own, err := s.Last()
	if err != nil {
		return 0, err
	}
	infl := wt.influence()

	var numer, denom float64
	switch wt.Method {
	case NeighborWeighted:
		numer, denom = own, 1
	case NeighborSizeWeighted, NeighborSizeDistanceWeighted:
		size := float64(s.Size())
		numer, denom = own*size, size
	default:
		return 0, fmt.Errorf("%w: weighting %d", ErrUnknownStrategy, uint8(wt.Method))
	}

	// Sorted order keeps the floating-point sum identical across runs.
	for _, id := range s.NeighborIDs() {
		closeness := s.Neighbors[id]
		n := w.Get(id)
		if n == nil {
			return 0, fmt.Errorf("settlement %d: unknown neighbor %d", s.ID, id)
		}
		last, err := n.Last()
		if err != nil {
			return 0, err
		}

		term := 1.0
		switch wt.Method {
		case NeighborSizeWeighted:
			term = float64(n.Size())
		case NeighborSizeDistanceWeighted:
			term = float64(n.Size()) * closeness
		}
		numer += infl * last * term
		denom += infl * term
	}

	return numer / denom, nil
}

// Settlement network generation.
// Villages are scattered uniformly, then the network grows in tiers: each
// tier connects nearby pairs and promotes well-connected settlements, and
// the promoted kinds reach further in the next tier.
package world

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/talgya/lingnet/internal/entropy"
)

// ErrNegativeCount is returned when generation parameters would yield a negative settlement count.
var ErrNegativeCount = errors.New("settlement count must be non-negative")

// GenConfig holds world generation parameters.
type GenConfig struct {
	Size        int   // Side length of the square area
	Density     int   // Settlements per 10×10 cell
	Seed        int64 // Random seed (0 = random)
	Model       Model // Dialect model for every settlement
	Generations int   // Adult cohorts for the generational model (0 = DefaultGenerations)
}

// DefaultGenConfig returns the configuration used by the demo runs.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Size:        50,
		Density:     4,
		Seed:        0,
		Model:       ModelPlain,
		Generations: DefaultGenerations,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Size:        30,
		Density:     4,
		Seed:        42,
		Model:       ModelPlain,
		Generations: DefaultGenerations,
	}
}

// Count returns the number of settlements the configuration places.
func (cfg GenConfig) Count() (int, error) {
	if cfg.Size < 0 || cfg.Density < 0 {
		return 0, fmt.Errorf("%w: size=%d density=%d", ErrNegativeCount, cfg.Size, cfg.Density)
	}
	side := cfg.Size / 10
	return side * side * cfg.Density, nil
}

// NewRand returns a generator for seed. Seed 0 picks a random non-zero seed,
// which is returned so the run can be reproduced.
func NewRand(seed int64) (int64, *rand.Rand) {
	if seed == 0 {
		seed = entropy.Seed()
	}
	return seed, rand.New(rand.NewSource(seed))
}

// Generate builds a settlement network. Every random draw comes from rng,
// so the same seed yields the same world.
func Generate(cfg GenConfig, rng *rand.Rand) (*World, error) {
	count, err := cfg.Count()
	if err != nil {
		return nil, err
	}

	w := &World{
		Size:        cfg.Size,
		Density:     cfg.Density,
		Seed:        cfg.Seed,
		Model:       cfg.Model,
		Generations: cfg.Generations,
		Settlements: make([]*Settlement, 0, count),
	}

	// Placement: every settlement starts as a village.
	for i := 0; i < count; i++ {
		x := rng.Intn(cfg.Size)
		y := rng.Intn(cfg.Size)
		w.Settlements = append(w.Settlements,
			NewSettlement(ID(i), float64(x), float64(y), cfg.Model.New(cfg.Generations)))
	}

	if err := connectTier(w, KindVillage); err != nil {
		return nil, err
	}

	// Villages surrounded by villages (and not already served by a town) become towns.
	promote(w, KindVillage, KindTown, func(villages, towns, _ int) bool {
		return villages-5*towns > 5
	})
	if err := connectTier(w, KindTown); err != nil {
		return nil, err
	}

	promote(w, KindTown, KindCity, func(_, towns, cities int) bool {
		return towns-4*cities > 4
	})
	if err := connectTier(w, KindCity); err != nil {
		return nil, err
	}

	names := generateNames(rng, len(w.Settlements))
	for i, s := range w.Settlements {
		s.Name = names[i]
	}

	return w, nil
}

// connectTier links every unconnected pair whose higher kind is tier and
// whose distance is below the pair threshold.
func connectTier(w *World, tier Kind) error {
	for i, a := range w.Settlements {
		for _, b := range w.Settlements[i+1:] {
			if max(a.Kind, b.Kind) != tier {
				continue
			}
			if _, err := w.Connect(a.ID, b.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// promote walks settlements of kind from in descending neighbor-count order
// and promotes those satisfying rule. Promotions are visible to settlements
// examined later in the same pass.
func promote(w *World, from, to Kind, rule func(villages, towns, cities int) bool) {
	order := make([]*Settlement, len(w.Settlements))
	copy(order, w.Settlements)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Degree() > order[j].Degree()
	})

	for _, s := range order {
		if s.Kind != from {
			continue
		}
		if rule(w.neighborKinds(s)) {
			s.Kind = to
		}
	}
}

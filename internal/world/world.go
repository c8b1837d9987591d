package world

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb/planar"
)

// World is the flat settlement table. Neighbor relations live inside
// each settlement and refer to other settlements by ID.
type World struct {
	Size        int           `json:"size"`
	Density     int           `json:"density"`
	Seed        int64         `json:"seed"`
	Model       Model         `json:"model"`
	Generations int           `json:"generations"`
	Settlements []*Settlement `json:"settlements"`
}

// Edge is one unordered connection, A < B.
type Edge struct {
	A      ID      `json:"a"`
	B      ID      `json:"b"`
	Weight float64 `json:"weight"`
}

// Get returns the settlement with the given ID, or nil if out of range.
func (w *World) Get(id ID) *Settlement {
	if id < 0 || int(id) >= len(w.Settlements) {
		return nil
	}
	return w.Settlements[id]
}

// Len returns the number of settlements.
func (w *World) Len() int { return len(w.Settlements) }

// Distance returns the Euclidean distance between two settlements.
func Distance(a, b *Settlement) float64 {
	return planar.Distance(a.Position, b.Position)
}

// Connected reports whether a and b are neighbors.
func (w *World) Connected(a, b ID) bool {
	s := w.Get(a)
	if s == nil {
		return false
	}
	_, ok := s.Neighbors[b]
	return ok
}

// Connect links a and b if their distance is below the threshold for their
// current kinds. Existing edges are left untouched so the first weight
// computed for a pair wins. Reports whether a new edge was added.
func (w *World) Connect(a, b ID) (bool, error) {
	sa, sb := w.Get(a), w.Get(b)
	if sa == nil || sb == nil {
		return false, fmt.Errorf("connect %d-%d: unknown settlement", a, b)
	}
	if a == b || w.Connected(a, b) {
		return false, nil
	}
	weight, ok, err := ConnectionWeight(sa.Kind, sb.Kind, Distance(sa, sb))
	if err != nil {
		return false, fmt.Errorf("connect %d-%d: %w", a, b, err)
	}
	if !ok {
		return false, nil
	}
	sa.Neighbors[b] = weight
	sb.Neighbors[a] = weight
	return true, nil
}

// Edges enumerates every connection once, ordered by (A, B).
func (w *World) Edges() []Edge {
	var edges []Edge
	for _, s := range w.Settlements {
		for n, wt := range s.Neighbors {
			if s.ID < n {
				edges = append(edges, Edge{A: s.ID, B: n, Weight: wt})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})
	return edges
}

// Views returns the serialization view of every settlement at round t (or Now).
func (w *World) Views(t int) ([]View, error) {
	views := make([]View, 0, len(w.Settlements))
	for _, s := range w.Settlements {
		v, err := s.View(t)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

// Rounds returns the number of recorded rounds.
func (w *World) Rounds() int {
	if len(w.Settlements) == 0 {
		return 0
	}
	return len(w.Settlements[0].History)
}

// Mean returns the average current value across all settlements.
func (w *World) Mean() float64 {
	if len(w.Settlements) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range w.Settlements {
		sum += s.Value()
	}
	return sum / float64(len(w.Settlements))
}

// MeanAt returns the average recorded value across all settlements at round t.
func (w *World) MeanAt(t int) (float64, error) {
	if len(w.Settlements) == 0 {
		return 0, nil
	}
	sum := 0.0
	for _, s := range w.Settlements {
		v, err := s.ValueAt(t)
		if err != nil {
			return 0, err
		}
		sum += v
	}
	return sum / float64(len(w.Settlements)), nil
}

// MeanHistory returns the average value for every recorded round.
func (w *World) MeanHistory() []float64 {
	rounds := w.Rounds()
	out := make([]float64, 0, rounds)
	for t := 0; t < rounds; t++ {
		m, err := w.MeanAt(t)
		if err != nil {
			break
		}
		out = append(out, m)
	}
	return out
}

// IndirectNeighbors returns the settlements two hops away from id that are
// neither direct neighbors nor id itself, in ascending ID order.
func (w *World) IndirectNeighbors(id ID) []ID {
	s := w.Get(id)
	if s == nil {
		return nil
	}
	seen := make(map[ID]bool)
	for n := range s.Neighbors {
		nb := w.Get(n)
		if nb == nil {
			continue
		}
		for nn := range nb.Neighbors {
			if nn == id {
				continue
			}
			if _, direct := s.Neighbors[nn]; direct {
				continue
			}
			seen[nn] = true
		}
	}
	out := make([]ID, 0, len(seen))
	for nn := range seen {
		out = append(out, nn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// KindCounts returns the number of settlements per kind.
func (w *World) KindCounts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, s := range w.Settlements {
		counts[s.Kind]++
	}
	return counts
}

// neighborKinds counts a settlement's neighbors by kind.
func (w *World) neighborKinds(s *Settlement) (villages, towns, cities int) {
	for n := range s.Neighbors {
		switch w.Get(n).Kind {
		case KindVillage:
			villages++
		case KindTown:
			towns++
		case KindCity:
			cities++
		}
	}
	return villages, towns, cities
}

package engine

import (
	"fmt"
	"log/slog"
)

// step advances the simulation by one round in three separate passes:
//  1. record: jitter (if randomized) and append every value to history
//  2. read: compute every learned target from the recorded snapshot
//  3. write: apply every update
//
// No settlement's update is visible to another's target within a round.
func (s *Simulation) step(p Phase) error {
	setts := s.World.Settlements

	for _, st := range setts {
		// Anchors are boundary conditions; jitter would move them.
		if p.Randomize && !st.Anchored() {
			st.Jitter(s.Rand, p.jitter())
		}
		st.NewGeneration()
	}

	targets := make([]float64, len(setts))
	for i, st := range setts {
		t, err := p.Weighting.Target(s.World, st)
		if err != nil {
			return fmt.Errorf("weighting settlement %d: %w", st.ID, err)
		}
		targets[i] = p.Learning.Learn(st, t)
	}

	for i, st := range setts {
		st.Update(targets[i])
	}

	stats := s.collectStats()
	s.Stats = append(s.Stats, stats)
	s.Round++

	slog.Debug("round complete",
		"round", stats.Round,
		"mean", fmt.Sprintf("%.4f", stats.Mean),
		"adopters", stats.Adopters,
	)

	if s.OnRound != nil {
		s.OnRound(s.Round)
	}
	return nil
}

// collectStats summarizes the values recorded for the current round.
func (s *Simulation) collectStats() RoundStats {
	stats := RoundStats{Round: s.Round}
	setts := s.World.Settlements
	if len(setts) == 0 {
		return stats
	}

	first := setts[0].History[len(setts[0].History)-1]
	stats.Min, stats.Max = first, first
	sum := 0.0
	for _, st := range setts {
		v := st.History[len(st.History)-1]
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		if v > 0.5 {
			stats.Adopters++
		}
	}
	stats.Mean = sum / float64(len(setts))
	return stats
}

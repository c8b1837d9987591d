// Package engine drives the dialect diffusion simulation round by round.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/lingnet/internal/strategy"
	"github.com/talgya/lingnet/internal/world"
)

// ErrInvalidState is returned when an operation is not legal in the simulation's current state.
var ErrInvalidState = errors.New("invalid simulation state")

// DefaultJitter is the jitter amplitude used when a randomized phase sets none.
const DefaultJitter = 0.05

// State is the simulation lifecycle stage.
type State uint8

const (
	StateUninitialized State = iota // World generated, no values seeded
	StateSeeded                     // Initial values applied
	StateRunning                    // Inside a phase
	StateFinished                   // Last phase complete; more phases may follow
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateSeeded:
		return "seeded"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Phase is a block of rounds run with one weighting and learning rule.
type Phase struct {
	Rounds    int
	Weighting strategy.Weighting
	Learning  strategy.Learning
	Randomize bool    // Jitter non-anchored settlements before recording each round
	Jitter    float64 // Jitter amplitude (0 = DefaultJitter)
}

func (p Phase) jitter() float64 {
	if p.Jitter > 0 {
		return p.Jitter
	}
	return DefaultJitter
}

// Simulation holds a world and the single random source for its run.
type Simulation struct {
	World *world.World
	Rand  *rand.Rand
	State State
	Round int // Rounds completed so far

	Init   strategy.Init // Set by Seed
	Phases []Phase       // Phases run so far, in order
	Stats  []RoundStats  // One entry per completed round

	// OnRound is called after each completed round, if set.
	OnRound func(round int)
}

// RoundStats summarizes the values recorded at the start of one round.
type RoundStats struct {
	Round    int     `json:"round"`
	Mean     float64 `json:"mean"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Adopters int     `json:"adopters"` // Settlements recorded above 0.5
}

// NewSimulation wraps a generated world. rng must be the generator the
// world was built with so one seed reproduces the whole run.
func NewSimulation(w *world.World, rng *rand.Rand) *Simulation {
	return &Simulation{
		World: w,
		Rand:  rng,
		State: StateUninitialized,
	}
}

// Seed applies an initialization strategy. Legal only once, before any round.
func (s *Simulation) Seed(init strategy.Init) error {
	if s.State != StateUninitialized {
		return fmt.Errorf("%w: seed while %s", ErrInvalidState, s.State)
	}
	slog.Info("initializing simulation", "method", init.String(), "settlements", s.World.Len())
	if err := init.Seed(s.World, s.Rand); err != nil {
		return fmt.Errorf("seed %s: %w", init, err)
	}
	s.Init = init
	s.State = StateSeeded
	return nil
}

// Run executes one phase. Legal once seeded; a finished simulation may be
// extended by further phases.
func (s *Simulation) Run(p Phase) error {
	if s.State != StateSeeded && s.State != StateFinished {
		return fmt.Errorf("%w: run while %s", ErrInvalidState, s.State)
	}
	if p.Rounds < 0 {
		return fmt.Errorf("%w: rounds=%d", world.ErrNegativeCount, p.Rounds)
	}

	slog.Info("running simulation",
		"rounds", p.Rounds,
		"weighting", p.Weighting.String(),
		"learning", p.Learning.String(),
		"randomize", p.Randomize,
		"start_round", s.Round,
	)

	s.State = StateRunning
	s.Phases = append(s.Phases, p)
	for i := 0; i < p.Rounds; i++ {
		if err := s.step(p); err != nil {
			s.State = StateFinished
			return fmt.Errorf("round %d: %w", s.Round, err)
		}
	}
	s.State = StateFinished

	if len(s.Stats) > 0 {
		last := s.Stats[len(s.Stats)-1]
		slog.Info("phase complete",
			"rounds", s.Round,
			"mean", fmt.Sprintf("%.3f", last.Mean),
			"adopters", last.Adopters,
		)
	}
	return nil
}

// RunScenario executes phases in order, stopping at the first error.
func (s *Simulation) RunScenario(phases []Phase) error {
	for i, p := range phases {
		if err := s.Run(p); err != nil {
			return fmt.Errorf("phase %d: %w", i, err)
		}
	}
	return nil
}

// Package config provides YAML configuration and presets for lingnet runs.
// Order: defaults or preset -> config file -> command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/talgya/lingnet/internal/engine"
	"github.com/talgya/lingnet/internal/strategy"
	"github.com/talgya/lingnet/internal/world"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config contains all settings for one generate-seed-run invocation.
type Config struct {
	// LogLevel sets log verbosity: "debug", "info" (default), "warn", or "error".
	LogLevel string `yaml:"log_level"`

	// World contains settlement network generation settings.
	World WorldConfig `yaml:"world"`

	// Init names the initialization strategy, e.g. "single-locus-unchanging-largest".
	Init string `yaml:"init"`

	// Phases are run in order; each is a block of rounds with one rule set.
	Phases []PhaseConfig `yaml:"phases"`

	// Output contains result destinations.
	Output OutputConfig `yaml:"output"`
}

// WorldConfig configures the network generator.
type WorldConfig struct {
	Size        int    `yaml:"size"`
	Density     int    `yaml:"density"`
	Seed        int64  `yaml:"seed"`        // 0 = random, logged for reproduction
	Model       string `yaml:"model"`       // "plain" or "generational"
	Generations int    `yaml:"generations"` // adult cohorts for the generational model
}

// PhaseConfig configures one block of rounds.
type PhaseConfig struct {
	Rounds    int     `yaml:"rounds"`
	Weighting string  `yaml:"weighting"`
	Influence float64 `yaml:"influence,omitempty"` // 0 = weighting default
	Learning  string  `yaml:"learning"`
	Cutoff    float64 `yaml:"cutoff,omitempty"` // 0 = clamp default
	Randomize bool    `yaml:"randomize"`
	Jitter    float64 `yaml:"jitter,omitempty"` // 0 = engine default
}

// OutputConfig configures where results go. Empty paths disable an output.
type OutputConfig struct {
	// DB is a SQLite run archive path.
	DB string `yaml:"db,omitempty"`
	// GeoJSON is a snapshot path; a ".zst" suffix compresses it.
	GeoJSON string `yaml:"geojson,omitempty"`
	// Listen serves the finished run over HTTP, e.g. ":8080".
	Listen string `yaml:"listen,omitempty"`
}

// Default returns the single-locus demo configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		World: WorldConfig{
			Size:        50,
			Density:     4,
			Model:       "plain",
			Generations: world.DefaultGenerations,
		},
		Init: strategy.SingleLocusUnchangingLargest.String(),
		Phases: []PhaseConfig{{
			Rounds:    50,
			Weighting: strategy.NeighborSizeDistanceWeighted.String(),
			Learning:  strategy.CopyInput.String(),
		}},
	}
}

// LoadFromFile reads a YAML config over the defaults.
func LoadFromFile(path string) (*Config, error) {
	return LoadOver(Default(), path)
}

// LoadOver reads a YAML config on top of base. Fields absent from the file keep base's values.
func LoadOver(base *Config, path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := *base
	cfg.Phases = append([]PhaseConfig(nil), base.Phases...)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// Encode writes the config as YAML to w.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return enc.Close()
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that every selector parses and every count is non-negative.
func (c *Config) Validate() error {
	if _, err := c.GenConfig(); err != nil {
		return err
	}
	if _, err := strategy.ParseInit(c.Init); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.EnginePhases(); err != nil {
		return err
	}
	return nil
}

// GenConfig converts the world section for the generator.
func (c *Config) GenConfig() (world.GenConfig, error) {
	model, err := world.ParseModel(c.World.Model)
	if err != nil {
		return world.GenConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	gc := world.GenConfig{
		Size:        c.World.Size,
		Density:     c.World.Density,
		Seed:        c.World.Seed,
		Model:       model,
		Generations: c.World.Generations,
	}
	if _, err := gc.Count(); err != nil {
		return world.GenConfig{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if gc.Generations < 0 {
		return world.GenConfig{}, fmt.Errorf("%w: generations=%d", ErrInvalidConfig, gc.Generations)
	}
	return gc, nil
}

// InitStrategy parses the init selector.
func (c *Config) InitStrategy() (strategy.Init, error) {
	m, err := strategy.ParseInit(c.Init)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return m, nil
}

// EnginePhases converts the phase list for the simulation driver.
func (c *Config) EnginePhases() ([]engine.Phase, error) {
	phases := make([]engine.Phase, 0, len(c.Phases))
	for i, pc := range c.Phases {
		p, err := pc.Phase()
		if err != nil {
			return nil, fmt.Errorf("phase %d: %w", i, err)
		}
		phases = append(phases, p)
	}
	return phases, nil
}

// Phase converts one phase section.
func (pc PhaseConfig) Phase() (engine.Phase, error) {
	if pc.Rounds < 0 {
		return engine.Phase{}, fmt.Errorf("%w: rounds=%d", ErrInvalidConfig, pc.Rounds)
	}
	if pc.Jitter < 0 || pc.Jitter > 1 {
		return engine.Phase{}, fmt.Errorf("%w: jitter=%g", ErrInvalidConfig, pc.Jitter)
	}
	wm, err := strategy.ParseWeighting(pc.Weighting)
	if err != nil {
		return engine.Phase{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	lm, err := strategy.ParseLearning(pc.Learning)
	if err != nil {
		return engine.Phase{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return engine.Phase{
		Rounds:    pc.Rounds,
		Weighting: strategy.Weighting{Method: wm, Influence: pc.Influence},
		Learning:  strategy.Learning{Method: lm, Cutoff: pc.Cutoff},
		Randomize: pc.Randomize,
		Jitter:    pc.Jitter,
	}, nil
}

// presets mirror the experiments the model was built for.
var presets = map[string]func() *Config{
	"worldgen": func() *Config {
		c := Default()
		c.Phases = nil
		return c
	},
	"simple": Default,
	"double-locus": func() *Config {
		c := Default()
		c.Init = strategy.DoubleLocusOppositeCorners.String()
		c.Phases[0].Rounds = 20
		return c
	},
	"generations": func() *Config {
		c := Default()
		c.World.Model = "generational"
		c.Phases[0].Rounds = 20
		c.Phases[0].Learning = strategy.Clamp.String()
		return c
	},
	// Spread, then crystallize into categories, then perturb.
	"low-back-merger": func() *Config {
		c := Default()
		c.World.Size = 100
		c.World.Model = "generational"
		c.Init = strategy.DoubleLocusOppositeCorners.String()
		dist := strategy.NeighborSizeDistanceWeighted.String()
		c.Phases = []PhaseConfig{
			{Rounds: 10, Weighting: dist, Learning: strategy.CopyInput.String()},
			{Rounds: 40, Weighting: dist, Learning: strategy.Clamp.String(), Cutoff: 0.5},
			{Rounds: 50, Weighting: dist, Learning: strategy.Clamp.String(), Cutoff: 0.5, Randomize: true},
		}
		return c
	},
}

// Preset returns a fresh copy of a named preset.
func Preset(name string) (*Config, error) {
	fn, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown preset %q (have %v)", ErrInvalidConfig, name, PresetNames())
	}
	return fn(), nil
}

// PresetNames lists the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

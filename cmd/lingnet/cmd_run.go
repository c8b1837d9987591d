package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/lingnet/internal/api"
	"github.com/talgya/lingnet/internal/config"
	"github.com/talgya/lingnet/internal/engine"
	"github.com/talgya/lingnet/internal/export"
	"github.com/talgya/lingnet/internal/logging"
	"github.com/talgya/lingnet/internal/persistence"
	"github.com/talgya/lingnet/internal/world"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a world, seed it, and run the configured phases",
		Long: `Run builds a settlement network, applies an initialization strategy and
runs each configured phase in order. Settings come from a preset (default
"simple"), then --config, then individual flags.

Results can be archived to SQLite (--db), exported as GeoJSON (--geojson,
".zst" suffix compresses), and served over HTTP (--listen) until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
				logging.Setup(cfg.LogLevel, cmd.ErrOrStderr())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := execute(ctx, cfg)
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if err := printResult(cmd.OutOrStdout(), res, jsonOut); err != nil {
				return err
			}

			if cfg.Output.Listen == "" {
				return nil
			}
			srv := api.NewServer(res.sim, cfg.Output.Listen)
			srv.RunID = res.runID
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("preset", "simple", "Starting preset (see 'lingnet presets')")
	cmd.Flags().StringP("config", "c", "", "YAML config file applied over the preset")
	cmd.Flags().Int64("seed", 0, "Random seed (0 = random)")
	cmd.Flags().Int("size", 0, "Side length of the world square")
	cmd.Flags().Int("density", 0, "Settlements per 10x10 cell")
	cmd.Flags().String("model", "", "Dialect model: plain or generational")
	cmd.Flags().String("init", "", "Initialization strategy")
	cmd.Flags().String("db", "", "SQLite archive path")
	cmd.Flags().String("geojson", "", "GeoJSON output path (.zst compresses)")
	cmd.Flags().String("listen", "", "Serve the finished run over HTTP, e.g. :8080")
	return cmd
}

// loadRunConfig resolves preset, config file, then flags.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	presetName, _ := cmd.Flags().GetString("preset")
	cfg, err := config.Preset(presetName)
	if err != nil {
		return nil, err
	}

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadOver(cfg, path)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.World.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("size") {
		cfg.World.Size, _ = flags.GetInt("size")
	}
	if flags.Changed("density") {
		cfg.World.Density, _ = flags.GetInt("density")
	}
	if flags.Changed("model") {
		cfg.World.Model, _ = flags.GetString("model")
	}
	if flags.Changed("init") {
		cfg.Init, _ = flags.GetString("init")
	}
	if flags.Changed("db") {
		cfg.Output.DB, _ = flags.GetString("db")
	}
	if flags.Changed("geojson") {
		cfg.Output.GeoJSON, _ = flags.GetString("geojson")
	}
	if flags.Changed("listen") {
		cfg.Output.Listen, _ = flags.GetString("listen")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type runResult struct {
	sim          *engine.Simulation
	runID        string
	geojsonPath  string
	geojsonBytes int64
}

// execute runs one full generate-seed-run cycle and writes the configured outputs.
func execute(ctx context.Context, cfg *config.Config) (*runResult, error) {
	gc, err := cfg.GenConfig()
	if err != nil {
		return nil, err
	}
	initStrategy, err := cfg.InitStrategy()
	if err != nil {
		return nil, err
	}
	phases, err := cfg.EnginePhases()
	if err != nil {
		return nil, err
	}

	seed, rng := world.NewRand(gc.Seed)
	gc.Seed = seed
	slog.Info("generating world", "seed", seed, "size", gc.Size, "density", gc.Density, "model", gc.Model.String())

	w, err := world.Generate(gc, rng)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	logWorld(w)

	sim := engine.NewSimulation(w, rng)
	if err := sim.Seed(initStrategy); err != nil {
		return nil, err
	}
	for i, p := range phases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("phase %d: %w", i, err)
		}
		if err := sim.Run(p); err != nil {
			return nil, fmt.Errorf("phase %d: %w", i, err)
		}
	}

	res := &runResult{sim: sim}

	if cfg.Output.DB != "" {
		db, err := persistence.Open(cfg.Output.DB)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		res.runID, err = db.SaveRun(sim)
		if err != nil {
			return nil, fmt.Errorf("archive: %w", err)
		}
	}

	if cfg.Output.GeoJSON != "" {
		n, err := export.WriteFile(cfg.Output.GeoJSON, w, world.Now)
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		res.geojsonPath, res.geojsonBytes = cfg.Output.GeoJSON, n
		slog.Info("geojson written", "path", cfg.Output.GeoJSON, "size", humanize.Bytes(uint64(n)))
	}

	return res, nil
}

func logWorld(w *world.World) {
	counts := w.KindCounts()
	slog.Info("world generated",
		"settlements", humanize.Comma(int64(w.Len())),
		"edges", humanize.Comma(int64(len(w.Edges()))),
		"villages", counts[world.KindVillage],
		"towns", counts[world.KindTown],
		"cities", counts[world.KindCity],
	)
}

func printResult(out io.Writer, res *runResult, jsonOut bool) error {
	sim := res.sim
	var last engine.RoundStats
	if n := len(sim.Stats); n > 0 {
		last = sim.Stats[n-1]
	}
	final := sim.World.Mean()

	if jsonOut {
		return json.NewEncoder(out).Encode(map[string]any{
			"seed":          sim.World.Seed,
			"run_id":        res.runID,
			"settlements":   sim.World.Len(),
			"rounds":        sim.Round,
			"final_mean":    final,
			"last_recorded": last,
			"geojson":       res.geojsonPath,
		})
	}

	fmt.Fprintf(out, "seed:        %d\n", sim.World.Seed)
	fmt.Fprintf(out, "settlements: %s\n", humanize.Comma(int64(sim.World.Len())))
	fmt.Fprintf(out, "rounds:      %d (%s)\n", sim.Round, sim.Init)
	fmt.Fprintf(out, "final mean:  %.4f\n", final)
	fmt.Fprintf(out, "adopters:    %d of %d at round %d\n", last.Adopters, sim.World.Len(), last.Round)
	if res.runID != "" {
		fmt.Fprintf(out, "run id:      %s\n", res.runID)
	}
	if res.geojsonPath != "" {
		fmt.Fprintf(out, "geojson:     %s (%s)\n", res.geojsonPath, humanize.Bytes(uint64(res.geojsonBytes)))
	}
	return nil
}

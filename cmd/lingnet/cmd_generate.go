package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/lingnet/internal/config"
	"github.com/talgya/lingnet/internal/export"
	"github.com/talgya/lingnet/internal/world"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a settlement network without running a simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			size, _ := flags.GetInt("size")
			density, _ := flags.GetInt("density")
			seed, _ := flags.GetInt64("seed")
			modelName, _ := flags.GetString("model")
			generations, _ := flags.GetInt("generations")
			geojsonPath, _ := flags.GetString("geojson")
			list, _ := flags.GetBool("list")
			jsonOut, _ := flags.GetBool("json")

			model, err := world.ParseModel(modelName)
			if err != nil {
				return err
			}
			seed, rng := world.NewRand(seed)
			gc := world.GenConfig{
				Size:        size,
				Density:     density,
				Seed:        seed,
				Model:       model,
				Generations: generations,
			}
			w, err := world.Generate(gc, rng)
			if err != nil {
				return err
			}
			logWorld(w)

			if geojsonPath != "" {
				n, err := export.WriteFile(geojsonPath, w, world.Now)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				slog.Info("geojson written", "path", geojsonPath, "size", humanize.Bytes(uint64(n)))
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				views, _ := w.Views(world.Now)
				return json.NewEncoder(out).Encode(map[string]any{
					"seed":        seed,
					"size":        size,
					"density":     density,
					"settlements": views,
					"edges":       w.Edges(),
				})
			}

			counts := w.KindCounts()
			fmt.Fprintf(out, "seed:        %d\n", seed)
			fmt.Fprintf(out, "settlements: %s (%d villages, %d towns, %d cities)\n",
				humanize.Comma(int64(w.Len())),
				counts[world.KindVillage], counts[world.KindTown], counts[world.KindCity])
			fmt.Fprintf(out, "edges:       %s\n", humanize.Comma(int64(len(w.Edges()))))

			if list {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tTYPE\tX\tY\tDEGREE")
				for _, s := range w.Settlements {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\t%.0f\t%d\n", s.ID, s.Name, s.Kind, s.X(), s.Y(), s.Degree())
				}
				return tw.Flush()
			}
			return nil
		},
	}

	def := world.DefaultGenConfig()
	cmd.Flags().Int("size", def.Size, "Side length of the world square")
	cmd.Flags().Int("density", def.Density, "Settlements per 10x10 cell")
	cmd.Flags().Int64("seed", def.Seed, "Random seed (0 = random)")
	cmd.Flags().String("model", def.Model.String(), "Dialect model: plain or generational")
	cmd.Flags().Int("generations", def.Generations, "Adult cohorts for the generational model")
	cmd.Flags().String("geojson", "", "GeoJSON output path (.zst compresses)")
	cmd.Flags().Bool("list", false, "List every settlement")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets [name]",
		Short: "List presets, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range config.PresetNames() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			cfg, err := config.Preset(args[0])
			if err != nil {
				return err
			}
			return cfg.Encode(out)
		},
	}
}

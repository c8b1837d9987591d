package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/talgya/lingnet/internal/persistence"
	"github.com/talgya/lingnet/internal/world"
)

const defaultDB = "lingnet.db"

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				if runs == nil {
					runs = []persistence.RunSummary{}
				}
				return json.NewEncoder(out).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No archived runs.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tSEED\tSETTLEMENTS\tROUNDS\tMODEL\tINIT")
			for _, r := range runs {
				created := r.CreatedAt
				if ts, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
					created = humanize.Time(ts)
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
					r.ID[:8], created, r.Seed, humanize.Comma(int64(r.Settlements)), r.Rounds, r.Model, r.Init)
			}
			return tw.Flush()
		},
	}
	cmd.PersistentFlags().String("db", defaultDB, "SQLite archive path")
	cmd.AddCommand(newRunsRmCmd())
	return cmd
}

func newRunsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <run-id>",
		Short: "Delete an archived run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := db.GetRun(args[0])
			if err != nil {
				return err
			}
			if err := db.DeleteRun(run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", run.ID)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <run-id> [settlement-id]",
		Short: "Print a settlement's recorded values, or the mean per round",
		Long: `History reads an archived run. With a settlement ID it prints that
settlement's recorded value per round; without one it prints the mean over
all settlements per round. A unique run ID prefix is accepted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openArchive(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			run, err := db.GetRun(args[0])
			if err != nil {
				return err
			}

			var values []float64
			label := "mean"
			if len(args) == 2 {
				id, err := strconv.Atoi(args[1])
				if err != nil || id < 0 || id >= run.Settlements {
					return fmt.Errorf("settlement %q not in run %s (%d settlements)", args[1], run.ID[:8], run.Settlements)
				}
				values, err = db.History(run.ID, world.ID(id))
				if err != nil {
					return err
				}
				label = "value"
			} else {
				values, err = db.MeanHistory(run.ID)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				if values == nil {
					values = []float64{}
				}
				return json.NewEncoder(out).Encode(map[string]any{"run_id": run.ID, label: values})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ROUND\t%s\n", label)
			for r, v := range values {
				fmt.Fprintf(tw, "%d\t%.4f\n", r, v)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("db", defaultDB, "SQLite archive path")
	return cmd
}

func openArchive(cmd *cobra.Command) (*persistence.DB, error) {
	path, _ := cmd.Flags().GetString("db")
	db, err := persistence.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return db, nil
}

package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dbqueue/internal/config"
	"dbqueue/internal/preflight"
	"dbqueue/internal/queue"
	"dbqueue/internal/store"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize every queue in the table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, db *store.Store) error {
				stats, err := queue.StatsAll(cmd.Context(), db, cfg.Store.Table, time.Now())
				if err != nil {
					return err
				}
				if asJSON {
					if stats == nil {
						stats = []queue.Stats{}
					}
					return writeJSON(cmd, stats)
				}
				if len(stats) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "Table %s is empty\n", cfg.Store.Table)
					return nil
				}
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					rows = append(rows, []string{
						s.Queue,
						strconv.Itoa(s.Unclaimed),
						strconv.Itoa(s.Delayed),
						strconv.Itoa(s.Claimed),
						formatTime(s.OldestUnclaimed),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Queue", "Unclaimed", "Delayed", "Claimed", "Oldest unclaimed"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Run readiness checks and show store diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				state := colorize("OK", ansiGreen, color)
				if !r.Passed {
					state = colorize("FAIL", ansiRed, color)
				}
				rows = append(rows, []string{r.Name, state, r.Detail})
			}
			fmt.Fprint(out, renderTable([]string{"Check", "Result", "Detail"}, rows, nil))

			if err := ctx.withStore(func(cfg *config.Config, db *store.Store) error {
				health, err := db.CheckHealth(cmd.Context(), cfg.Store.Table)
				if err != nil {
					return err
				}
				fmt.Fprint(out, renderTable([]string{"Store", "Value"}, healthRows(health, color), nil))
				return nil
			}); err != nil {
				return err
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d health checks failed", len(failed))
			}
			return nil
		},
	}
}

func healthRows(h store.Health, color bool) [][]string {
	integrity := colorize("ok", ansiGreen, color)
	if !h.IntegrityCheck {
		integrity = colorize("failed", ansiRed, color)
	}
	missing := "-"
	if len(h.MissingColumns) > 0 {
		missing = colorize(strings.Join(h.MissingColumns, ", "), ansiYellow, color)
	}
	rows := [][]string{
		{"Path", h.Path},
		{"Exists", yesNo(h.Exists)},
		{"Readable", yesNo(h.Readable)},
		{"Schema version", strconv.Itoa(h.SchemaVersion)},
		{"Table", h.Table},
		{"Table exists", yesNo(h.TableExists)},
		{"Missing columns", missing},
		{"Rows", strconv.Itoa(h.TotalRows)},
		{"Integrity", integrity},
	}
	if h.Error != "" {
		rows = append(rows, []string{"Error", colorize(h.Error, ansiRed, color)})
	}
	return rows
}

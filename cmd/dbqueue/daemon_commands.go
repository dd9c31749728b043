package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dbqueue/internal/config"
	"dbqueue/internal/daemonctl"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Inspect the dbqueued maintenance daemon",
	}
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	daemonCmd.AddCommand(newDaemonSweepCommand(ctx))
	daemonCmd.AddCommand(newDaemonLogsCommand(ctx))
	return daemonCmd
}

func daemonClient(cfg *config.Config) (*daemonctl.Client, error) {
	client, err := daemonctl.NewClient(cfg.Maintenance.APIBind, cfg.Maintenance.APIToken)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, errors.New("maintenance.api_bind is not set; the daemon API is disabled")
	}
	return client, nil
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether dbqueued is running and when it sweeps next",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color := shouldColorize(out)

			state, err := daemonctl.Inspect(cfg)
			if err != nil {
				return err
			}
			running := colorize("stopped", ansiYellow, color)
			if state.Running {
				running = colorize("running", ansiGreen, color)
			}
			pid := "-"
			if state.PID > 0 {
				pid = strconv.Itoa(state.PID)
			}
			rows := [][]string{
				{"Daemon", running},
				{"PID", pid},
				{"Lock", state.LockPath},
				{"Log", state.LogPath},
			}

			client, _ := daemonctl.NewClient(cfg.Maintenance.APIBind, cfg.Maintenance.APIToken)
			if state.Running && client != nil {
				status, err := client.Status(cmd.Context())
				switch {
				case err == nil:
					rows = append(rows,
						[]string{"Schedule", status.Schedule},
						[]string{"Next sweep", formatTime(status.NextSweep)},
						[]string{"Last sweep", formatTime(status.LastSweep.StartedAt)},
						[]string{"Last removed", strconv.FormatInt(status.LastSweep.RowsRemoved, 10)},
					)
					if status.LastSweep.Error != "" {
						rows = append(rows, []string{"Last error", colorize(status.LastSweep.Error, ansiRed, color)})
					}
				case daemonctl.IsAPIUnavailable(err):
					rows = append(rows, []string{"API", colorize("unreachable", ansiYellow, color)})
				default:
					rows = append(rows, []string{"API", colorize(err.Error(), ansiRed, color)})
				}
			}
			fmt.Fprint(out, renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newDaemonSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Ask the running daemon to sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := daemonClient(cfg)
			if err != nil {
				return err
			}
			result, err := client.Sweep(cmd.Context())
			if err != nil {
				if daemonctl.IsAPIUnavailable(err) {
					return fmt.Errorf("dbqueued is not reachable at %s; run `dbqueue cleanup` to sweep locally", cfg.Maintenance.APIBind)
				}
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d claimed rows and %d old logs in %s\n",
				result.RowsRemoved, result.LogsRemoved, result.Duration)
			return nil
		},
	}
}

func newDaemonLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the daemon's current log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			state, err := daemonctl.Inspect(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return daemonctl.TailLog(cmd.Context(), state.LogPath, lines, follow, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dbqueue/internal/queue"
)

var errEmpty = errors.New("queue is empty")

func newQueueCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newPeekCommand(ctx),
		newPollCommand(ctx),
		newTakeCommand(ctx),
		newSizeCommand(ctx),
		newClearCommand(ctx),
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var priority int
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "add <value>...",
		Short: "Enqueue one or more values",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				for _, value := range args {
					id, err := q.AddWith(cmd.Context(), value, queue.AddOptions{Priority: priority, Delay: delay})
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Priority; higher is claimed first on priority queues")
	cmd.Flags().DurationVarP(&delay, "delay", "d", 0, "Delay before the value becomes eligible (delay queues only)")
	return cmd
}

func newPeekCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Show the next eligible value without claiming it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				item, err := q.PeekItem(cmd.Context())
				if err != nil {
					return err
				}
				if item == nil {
					return errEmpty
				}
				return writeItem(cmd, item, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newPollCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Claim the next eligible value, waiting up to --timeout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				var (
					item *queue.Item[string]
					err  error
				)
				if timeout > 0 {
					item, err = q.PollItemTimeout(cmd.Context(), timeout)
				} else {
					item, err = q.PollItem(cmd.Context())
				}
				if err != nil {
					return err
				}
				if item == nil {
					return errEmpty
				}
				return writeClaimed(cmd, item, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "How long to wait for a value (0 returns immediately)")
	return cmd
}

func newTakeCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "take",
		Short: "Block until a value can be claimed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				item, err := q.TakeItem(cmd.Context())
				if err != nil {
					return err
				}
				return writeClaimed(cmd, item, asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

// writeClaimed prints only the value unless JSON is requested, so claimed
// payloads can be piped.
func writeClaimed(cmd *cobra.Command, item *queue.Item[string], asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, newItemView(item))
	}
	fmt.Fprintln(cmd.OutOrStdout(), item.Value)
	return nil
}

func newSizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "size",
		Short: "Count unclaimed values, including delayed ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				n, err := q.Size(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every row of the queue, claimed or not",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear without --yes")
			}
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				n, err := q.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d rows from %s\n", n, q.Name())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Read or write the free-form status of a row",
	}

	statusCmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Print the status of a row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				status, ok, err := q.GetStatus(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "Row %d not found\n", id)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), status)
				return nil
			})
		},
	})

	statusCmd.AddCommand(&cobra.Command{
		Use:   "set <id> <status>",
		Short: "Set the status of a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				updated, err := q.UpdateStatus(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				if !updated {
					fmt.Fprintf(cmd.OutOrStdout(), "Row %d not found\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Row %d status set to %s\n", id, args[1])
				return nil
			})
		},
	})

	return statusCmd
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var days int
	var all bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete claimed rows older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd, func(q *queue.Queue[string]) error {
				retention := days
				if !cmd.Flags().Changed("days") {
					cfg, _ := ctx.ensureConfig()
					retention = cfg.Maintenance.RetentionDays
				}
				var (
					n   int64
					err error
				)
				if all {
					n, err = q.CleanupAll(cmd.Context(), retention)
				} else {
					n, err = q.Cleanup(cmd.Context(), retention)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d claimed rows older than %d days\n", n, retention)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", queue.DefaultRetentionDays, "Retention window in days (defaults to maintenance.retention_days)")
	cmd.Flags().BoolVar(&all, "all", false, "Clean every queue in the table")
	return cmd
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid row id %q", raw)
	}
	return id, nil
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"dbqueue/internal/queue"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

// itemView is the JSON shape of a queue row.
type itemView struct {
	ID         int64      `json:"id"`
	Queue      string     `json:"queue"`
	Status     string     `json:"status"`
	Priority   int        `json:"priority"`
	Value      string     `json:"value"`
	InsertedAt time.Time  `json:"inserted_at"`
	InsertedBy string     `json:"inserted_by"`
	AcquiredAt *time.Time `json:"acquired_at,omitempty"`
	AcquiredBy string     `json:"acquired_by,omitempty"`
	EligibleAt *time.Time `json:"eligible_at,omitempty"`
}

func newItemView(item *queue.Item[string]) itemView {
	return itemView{
		ID:         item.ID,
		Queue:      item.Queue,
		Status:     item.Status,
		Priority:   item.Priority,
		Value:      item.Value,
		InsertedAt: item.InsertedAt,
		InsertedBy: item.InsertedBy,
		AcquiredAt: optionalTime(item.AcquiredAt),
		AcquiredBy: item.AcquiredBy,
		EligibleAt: optionalTime(item.EligibleAt),
	}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// writeItem prints item as JSON, or as a table when asJSON is false.
func writeItem(cmd *cobra.Command, item *queue.Item[string], asJSON bool) error {
	if asJSON {
		return writeJSON(cmd, newItemView(item))
	}
	rows := [][]string{
		{"ID", strconv.FormatInt(item.ID, 10)},
		{"Queue", item.Queue},
		{"Status", item.Status},
		{"Priority", strconv.Itoa(item.Priority)},
		{"Value", item.Value},
		{"Inserted", formatTime(item.InsertedAt) + " by " + item.InsertedBy},
	}
	if item.Claimed() {
		rows = append(rows, []string{"Acquired", formatTime(item.AcquiredAt) + " by " + item.AcquiredBy})
	}
	if !item.EligibleAt.IsZero() {
		rows = append(rows, []string{"Eligible", formatTime(item.EligibleAt)})
	}
	fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func colorize(s, color string, enabled bool) string {
	if !enabled || color == "" {
		return s
	}
	return color + s + ansiReset
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

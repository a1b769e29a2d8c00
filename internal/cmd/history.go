package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent build runs and their lookups",
	Long: `Show the lookup journals written by recent build runs, newest first.
Use --session to list the individual lookups of one run.`,
	Args: cobra.NoArgs,
	RunE: runHistoryCommand,
}

var (
	historyLimit   int
	historySession string
)

func runHistoryCommand(cmd *cobra.Command, args []string) error {
	sessions, err := log.ReadSessions(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read lookup journals: %w", err)
	}
	out := cmd.OutOrStdout()

	if historySession != "" {
		for _, session := range sessions {
			if strings.HasPrefix(session.Metadata.SessionID, historySession) {
				fmt.Fprintln(out, renderOperations(session))
				return nil
			}
		}
		return fmt.Errorf("no journal found for session %q", historySession)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(out, "No build runs recorded yet.")
		return nil
	}
	fmt.Fprintln(out, renderSessions(sessions, time.Now()))
	return nil
}

func renderSessions(sessions []*log.LogSession, now time.Time) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Session", "When", "Command", "Lookups", "OK", "Failed"})
	for _, s := range sessions {
		meta := s.Metadata
		tw.AppendRow(table.Row{
			meta.SessionID,
			relativeTime(meta.Timestamp, now),
			strings.Join(meta.CommandArgs, " "),
			meta.TotalOps,
			meta.SuccessfulOps,
			meta.FailedOps,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.Render()
}

func renderOperations(session *log.LogSession) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Session " + session.Metadata.SessionID)
	tw.AppendHeader(table.Row{"Time", "Type", "Query", "Target", "Result"})
	for _, op := range session.Operations {
		result := "ok"
		if !op.Success {
			result = "failed"
			if op.Error != "" {
				result += ": " + op.Error
			}
		}
		tw.AppendRow(table.Row{op.Timestamp.Format(time.TimeOnly), string(op.Type), op.Query, op.Target, result})
	}
	return tw.Render()
}

func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	default:
		return strconv.Itoa(int(d.Hours()/24)) + "d ago"
	}
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")
	historyCmd.Flags().StringVar(&historySession, "session", "", "Show the lookups of one session (id prefix)")
	rootCmd.AddCommand(historyCmd)
}

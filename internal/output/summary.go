package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/Digital-Shane/catalog-tidy/internal/core"
	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	missStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Summary is everything the end-of-run report shows.
type Summary struct {
	Catalog  *catalog.Catalog
	Stats    catalog.BuildStats
	Outcomes []core.Outcome
	Backend  string
	Elapsed  time.Duration
}

// PrintSummary renders s to w, colouring only when w is a terminal.
func PrintSummary(w io.Writer, s Summary) error {
	_, err := io.WriteString(w, RenderSummary(s, IsTerminal(w)))
	return err
}

// RenderSummary builds the report text.
func RenderSummary(s Summary, colorize bool) string {
	paint := func(style lipgloss.Style, value string) string {
		if !colorize {
			return value
		}
		return style.Render(value)
	}

	outcomes := make(map[string]core.Outcome, len(s.Outcomes))
	for _, o := range s.Outcomes {
		outcomes[o.ShowID] = o
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Show", "Seasons", "Episodes", "Lookup", "Queries"})

	matched := 0
	var shows, seasons, episodes int
	if s.Catalog != nil {
		shows, seasons, episodes = s.Catalog.Counts()
		for _, show := range s.Catalog.Shows {
			count := 0
			for _, season := range show.Seasons {
				count += len(season.Episodes)
			}
			lookup, queries := "-", "-"
			if o, ok := outcomes[show.ID]; ok {
				queries = strconv.Itoa(o.Attempts)
				switch {
				case o.Matched:
					matched++
					lookup = "matched " + o.ExternalID
				case len(o.Errs) > 0:
					lookup = paint(missStyle, "error")
				default:
					lookup = paint(missStyle, "miss")
				}
			}
			tw.AppendRow(table.Row{show.Title, len(show.Seasons), count, lookup, queries})
		}
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	var b strings.Builder
	b.WriteString(paint(headingStyle, "Catalog summary"))
	b.WriteString("\n")
	if shows > 0 {
		b.WriteString(tw.Render())
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%d shows, %d seasons, %d episodes", shows, seasons, episodes)
	if s.Stats.Skipped > 0 {
		fmt.Fprintf(&b, ", %d entries skipped", s.Stats.Skipped)
	}
	b.WriteString("\n")
	if s.Backend != "" {
		fmt.Fprintf(&b, "Lookup via %s: %d of %d shows matched\n", s.Backend, matched, shows)
	}
	if s.Elapsed > 0 {
		fmt.Fprintf(&b, "Finished in %s\n", s.Elapsed.Round(time.Millisecond))
	}
	return b.String()
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

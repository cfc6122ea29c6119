package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/atikulmunna/lognorm/internal/aggregator"
	"github.com/charmbracelet/lipgloss"
)

var (
	styleHeading = lipgloss.NewStyle().Bold(true)
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true) // green
)

// WriteSummary prints run statistics as "text" or "json".
func WriteSummary(w io.Writer, stats aggregator.Stats, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case "", "text":
		return writeTextSummary(w, stats)
	default:
		return fmt.Errorf("unknown summary format %q (want text or json)", format)
	}
}

func writeTextSummary(w io.Writer, s aggregator.Stats) error {
	var err error
	p := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	p("%s %s\n", styleHeading.Render("run"), s.RunID)
	p("  files        %d\n", s.FilesWatched)
	p("  lines        %d\n", s.TotalLines)
	p("  unparseable  %d\n", s.Unparseable)
	p("  level-less   %d\n", s.LevelLess)
	if s.DroppedLogs > 0 {
		p("  dropped      %d\n", s.DroppedLogs)
	}

	p("%s\n", styleHeading.Render("formats"))
	for _, k := range sortedKeys(s.FormatCounts) {
		p("  %-12s %d\n", k, s.FormatCounts[k])
	}
	p("%s\n", styleHeading.Render("levels"))
	for _, k := range sortedKeys(s.LevelCounts) {
		p("  %-12s %s\n", styleLevelTag(k, false), fmt.Sprint(s.LevelCounts[k]))
	}

	if s.FirstFailure == nil {
		p("%s\n", styleOK.Render("no failing levels"))
		return err
	}
	f := s.FirstFailure
	p("%s %d line(s)\n", styleError.Render("failing"), s.Failures)
	p("  first at %s:%d [%s] %s\n", f.Source, f.Line, f.Format, f.Raw)
	return err
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// table.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/gewnthar/samsync/services"
)

// writeTable prints rows under header with columns padded to display width.
// Sub-region and country names carry accents, so byte length is not enough.
func writeTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], runewidth.StringWidth(row[i]))
		}
	}

	line := func(cells []string) {
		var sb strings.Builder
		for i, width := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(widths)-1 {
				sb.WriteString(cell)
			} else {
				sb.WriteString(runewidth.FillRight(cell, width))
			}
		}
		fmt.Fprintln(w, sb.String())
	}

	line(header)
	sep := make([]string, len(widths))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// writeReport prints a run report as a table, or as JSON when asJSON is set.
func writeReport(w io.Writer, report *services.RunReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(w, "run %s (%s)\n\n", report.RunID, report.Mode)
	var rows [][]string
	for _, s := range report.Scopes {
		status := string(s.Phase)
		switch {
		case s.AlreadyComplete:
			status += " (already complete)"
		case s.Resumed:
			status += " (resumed)"
		}
		if s.Error != "" {
			status += ": " + string(s.FailureKind) + ": " + s.Error
		}
		rows = append(rows, []string{
			s.ScopeID, s.ExportKey,
			itoa(s.Counts.Inserted), itoa(s.Counts.Updated), itoa(s.Counts.Unchanged),
			itoa(s.Counts.Skipped), itoa(s.Counts.Unresolved),
			status,
		})
	}
	t := report.Totals()
	rows = append(rows, []string{"TOTAL", "",
		itoa(t.Inserted), itoa(t.Updated), itoa(t.Unchanged), itoa(t.Skipped), itoa(t.Unresolved), ""})

	writeTable(w, []string{"SCOPE", "EXPORT", "INSERTED", "UPDATED", "UNCHANGED", "SKIPPED", "UNRESOLVED", "STATUS"}, rows)
	return nil
}

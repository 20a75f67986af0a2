package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/forest-guardian/blackmarble-ntl/internal/coverage"
)

var (
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	success = color.New(color.FgGreen)
	info    = color.New(color.FgBlue)
)

func PrintBanner(w io.Writer) {
	banner := figure.NewFigure("Black Marble", "standard", true)
	color.New(color.FgCyan).Fprintln(w, banner.String())
}

func PrintWarning(w io.Writer, message string) {
	warning.Fprintf(w, "Warning: %s\n", message)
}

func PrintError(w io.Writer, message string) {
	failure.Fprintf(w, "\nError: %s\n", message)
}

func PrintSuccess(w io.Writer, message string) {
	success.Fprintf(w, "\n%s\n", message)
}

func PrintInfo(w io.Writer, message string) {
	info.Fprintln(w, message)
}

const separator = "───────────────────────────────────────────────────────────────"

// PrintRecords renders a coverage table; degraded dates are highlighted.
func PrintRecords(w io.Writer, regionName string, records []coverage.Record) {
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "  Coverage for %s\n", regionName)
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "  %-10s  %9s  %9s  %7s  %10s  %s\n", "date", "pixels", "valid", "ratio", "mean", "status")
	for _, r := range records {
		line := fmt.Sprintf("  %-10s  %9d  %9d  %7s  %10s  %s",
			r.Date.Format("2006-01-02"),
			r.TotalPixels,
			r.NonMissingPixels,
			formatOptional(r.CoverageRatio, "%.3f"),
			formatOptional(r.MeanValue, "%.2f"),
			r.Status,
		)
		switch r.Status {
		case coverage.StatusFetchFailed:
			failure.Fprintln(w, line)
		case coverage.StatusEmptyRegion:
			warning.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w, separator)
}

func formatOptional(v *float64, format string) string {
	if v == nil {
		return "NA"
	}
	return fmt.Sprintf(format, *v)
}

// PrintTable prints rows under a header, padding every column to its widest cell.
func PrintTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	format := func(cells []string) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		return "  " + strings.TrimRight(strings.Join(parts, "  "), " ")
	}
	info.Fprintln(w, format(header))
	for _, row := range rows {
		fmt.Fprintln(w, format(row))
	}
}

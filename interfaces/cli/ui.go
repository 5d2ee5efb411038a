package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Palette
var (
	Brand  = color.New(color.FgHiCyan, color.Bold)
	Subtle = color.New(color.FgHiBlack)
	Warn   = color.New(color.FgYellow)
	Good   = color.New(color.FgGreen)
	Bad    = color.New(color.FgRed)
)

// summaryRow is one label/value line of a summary block
type summaryRow struct {
	label string
	value string
	warn  bool
}

func printSummary(w io.Writer, title string, rows []summaryRow) {
	fmt.Fprintf(w, "%s\n", Brand.Sprint(title))
	for _, row := range rows {
		value := row.value
		if row.warn {
			value = Warn.Sprint(value)
		}
		fmt.Fprintf(w, "  %s  %s\n", Subtle.Sprintf("%-16s", row.label), value)
	}
}

func stateColor(settled bool) *color.Color {
	if settled {
		return Good
	}
	return Warn
}

package export

import (
	"fmt"
	"time"

	"github.com/multitest/report-harness/report"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderSummaryTable returns a table with one row per multitest and a footer for the whole
// report.
func RenderSummaryTable(r *report.Report) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("%s: %s", r.Name(), r.Status()))
	t.AppendHeader(table.Row{"Multitest", "Status", "Duration", "Tests", "Passed", "Failed", "Skipped", "Other"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Multitest", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Skipped", Align: text.AlignRight},
		{Name: "Other", Align: text.AlignRight},
	})

	var total time.Duration
	for child := range r.Children() {
		d := child.Timer()[report.TimerRun].Duration()
		total += d
		t.AppendRow(counterRow(child.Name(), child.Status(), d, child.Counter()))
	}
	t.AppendFooter(counterRow("Total", r.Status(), total, r.Counter()))

	switch {
	case r.Status().IsFailure():
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case r.Status() == report.StatusPassed:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	}
	return t.Render()
}

func counterRow(name string, status report.Status, d time.Duration, c report.Counter) table.Row {
	other := c.Total() - c[report.StatusPassed] - c.Failed() - c[report.StatusSkipped]
	return table.Row{name, status, formatDuration(d), c.Total(), c[report.StatusPassed], c.Failed(),
		c[report.StatusSkipped], other}
}

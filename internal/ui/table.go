package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"martflow/internal/dataset"
	"martflow/internal/pipeline"
	"martflow/internal/quality"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// RenderTable prints up to limit rows of a model. A limit of zero or less
// prints everything.
func RenderTable(w io.Writer, t dataset.Table, limit int) {
	table := newTable(w, t.ColumnNames())

	aligns := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		switch c.Type {
		case dataset.Integer, dataset.Decimal:
			aligns[i] = tablewriter.ALIGN_RIGHT
		default:
			aligns[i] = tablewriter.ALIGN_LEFT
		}
	}
	table.SetColumnAlignment(aligns)

	shown := t.Rows
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for _, row := range shown {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = ColorDim("null")
				continue
			}
			cells[i] = dataset.Format(v)
		}
		table.Append(cells)
	}
	table.Render()

	if len(shown) < len(t.Rows) {
		fmt.Fprintf(w, "%s\n", ColorDim(fmt.Sprintf("showing %d of %d rows", len(shown), len(t.Rows))))
	} else {
		fmt.Fprintf(w, "%s\n", ColorDim(fmt.Sprintf("%d rows", len(t.Rows))))
	}
}

// RenderModels prints the model graph with each model's direct parents.
func RenderModels(w io.Writer, dag pipeline.DAG) {
	table := newTable(w, []string{"#", "Model", "Layer", "Depends on"})
	for i, n := range dag {
		deps := strings.Join(n.DependsOn, ", ")
		if deps == "" {
			deps = "-"
		}
		table.Append([]string{fmt.Sprintf("%d", i+1), n.Name, string(n.Layer), deps})
	}
	table.Render()
}

// RenderRunSummary prints rows and build time per computed model.
func RenderRunSummary(w io.Writer, res *pipeline.Results) {
	table := newTable(w, []string{"Model", "Layer", "Rows", "Duration"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT})
	for _, n := range pipeline.Models {
		elapsed, ok := res.Timings[n.Name]
		if !ok {
			continue
		}
		rows := 0
		if t, found := res.Table(n.Name); found {
			rows = t.Len()
		}
		table.Append([]string{n.Name, string(n.Layer), fmt.Sprintf("%d", rows), FormatDuration(elapsed)})
	}
	table.Render()
}

func statusLabel(s quality.Status) string {
	switch s {
	case quality.StatusPass:
		return color.GreenString("PASS")
	case quality.StatusWarn:
		return color.YellowString("WARN")
	default:
		return color.RedString("FAIL")
	}
}

// RenderReport prints every test, then the offending rows of each failing
// test (at most maxFailures per test), then the totals.
func RenderReport(w io.Writer, rep *quality.Report, maxFailures int) {
	table := newTable(w, []string{"Status", "Test", "Severity", "Failures"})
	for _, r := range rep.Results {
		table.Append([]string{statusLabel(r.Status()), r.Name, string(r.Severity), fmt.Sprintf("%d", len(r.Failures))})
	}
	for _, name := range rep.Skipped {
		table.Append([]string{color.HiBlackString("SKIP"), name, "", ""})
	}
	table.Render()

	for _, r := range rep.Results {
		if len(r.Failures) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s %s\n", statusLabel(r.Status()), ColorBold(r.Name))
		for i, f := range r.Failures {
			if maxFailures > 0 && i == maxFailures {
				fmt.Fprintf(w, "  %s\n", ColorDim(fmt.Sprintf("... %d more", len(r.Failures)-maxFailures)))
				break
			}
			fmt.Fprintf(w, "  %s  %s\n", f.Key, ColorDim(f.Detail))
		}
	}

	fmt.Fprintf(w, "\nPASS=%d WARN=%d FAIL=%d SKIP=%d TOTAL=%d\n",
		rep.Count(quality.StatusPass),
		rep.Count(quality.StatusWarn),
		rep.Count(quality.StatusFail),
		len(rep.Skipped),
		len(rep.Results)+len(rep.Skipped),
	)
}

package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// ProgressBar tracks tables as they are materialized.
type ProgressBar struct {
	total     int
	current   int
	startTime time.Time
	mu        sync.Mutex

	successCount int
	failureCount int
	currentTable string
	interactive  bool
}

// NewProgressBar creates a progress bar. Without a colour terminal it prints
// one line per table instead of redrawing.
func NewProgressBar(total int) *ProgressBar {
	return &ProgressBar{
		total:       total,
		startTime:   time.Now(),
		interactive: supportsColor,
	}
}

// Update records a finished table.
func (p *ProgressBar) Update(current int, table string, success bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	p.currentTable = table

	if success {
		p.successCount++
	} else {
		p.failureCount++
	}

	p.render(success)
}

// Finish prints the totals.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	if p.interactive {
		fmt.Fprintln(Output)
	}
	fmt.Fprintf(Output, "\n%s Materialized %d tables in %s\n",
		ColorSuccess("✓"),
		p.successCount,
		FormatDuration(elapsed),
	)
	if p.failureCount > 0 {
		fmt.Fprintf(Output, "  %s %d failed\n", ColorError("✗"), p.failureCount)
	}
}

func (p *ProgressBar) render(success bool) {
	if !p.interactive {
		mark := "ok"
		if !success {
			mark = "FAILED"
		}
		fmt.Fprintf(Output, "[%d/%d] %s %s\n", p.current, p.total, p.currentTable, mark)
		return
	}

	fmt.Fprint(Output, "\r\033[K")

	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100
	}
	barWidth := 30
	filled := int(percentage / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(Output, "%s %s %.0f%% [%d/%d] %s - %s",
		ColorProgress("►"),
		bar,
		percentage,
		p.current,
		p.total,
		p.currentTable,
		FormatDuration(time.Since(p.startTime)),
	)
}

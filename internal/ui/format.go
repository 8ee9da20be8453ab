// Package ui renders terminal output: colours, tables, the quality report
// and the init wizard.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mgutz/ansi"

	"martflow/pkg/errors"
)

var (
	// Output receives everything this package prints.
	Output io.Writer = os.Stdout

	// Check if output supports colors
	supportsColor = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

	// Color functions
	ColorSuccess  = colorFunc(ansi.Green)
	ColorError    = colorFunc(ansi.Red)
	ColorWarning  = colorFunc(ansi.Yellow)
	ColorInfo     = colorFunc(ansi.Cyan)
	ColorProgress = colorFunc(ansi.Blue)
	ColorBold     = colorFunc("default+b")
	ColorDim      = colorFunc("default+h")
)

// colorFunc returns a function that colors text if supported
func colorFunc(style string) func(string) string {
	return func(text string) string {
		if supportsColor {
			return ansi.Color(text, style)
		}
		return text
	}
}

// SetColor forces colours on or off, e.g. for --no-color or NO_COLOR.
func SetColor(enabled bool) {
	supportsColor = enabled
	color.NoColor = !enabled
}

// ColorEnabled reports whether output is coloured.
func ColorEnabled() bool {
	return supportsColor
}

// ShowHeader displays a formatted header
func ShowHeader(title string) {
	width := 50
	padding := (width - len(title) - 2) / 2
	if padding < 0 {
		padding = 0
	}
	right := width - 2 - padding - len(title)
	if right < 0 {
		right = 0
	}

	fmt.Fprintln(Output, "\n+"+strings.Repeat("-", width-2)+"+")
	fmt.Fprintf(Output, "|%s%s%s|\n",
		strings.Repeat(" ", padding),
		ColorBold(title),
		strings.Repeat(" ", right),
	)
	fmt.Fprintln(Output, "+"+strings.Repeat("-", width-2)+"+")
}

// ShowError displays an error. Application errors show their code,
// context and suggestions; anything else falls back to keyword tips.
func ShowError(err error) {
	if err == nil {
		return
	}

	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		fmt.Fprintf(Output, "\n%s %s\n", ColorError("ERROR ["+string(appErr.Code)+"]:"), appErr.Message)
		for _, key := range sortedKeys(appErr.Context) {
			fmt.Fprintf(Output, "  %s %v\n", ColorDim(key+":"), appErr.Context[key])
		}
		if appErr.Cause != nil {
			fmt.Fprintf(Output, "  %s %s\n", ColorDim("cause:"), appErr.Cause.Error())
		}
		for _, s := range appErr.Suggestions {
			fmt.Fprintf(Output, "  %s %s\n", ColorInfo("TIP:"), s)
		}
		if len(appErr.Suggestions) == 0 {
			if tip := getSuggestion(err.Error()); tip != "" {
				fmt.Fprintf(Output, "  %s %s\n", ColorInfo("TIP:"), tip)
			}
		}
		return
	}

	fmt.Fprintf(Output, "\n%s\n", ColorError("ERROR:"))
	for i, line := range strings.Split(err.Error(), "\n") {
		if i == 0 {
			fmt.Fprintf(Output, "  %s\n", line)
		} else {
			fmt.Fprintf(Output, "  %s\n", ColorDim(line))
		}
	}
	if tip := getSuggestion(err.Error()); tip != "" {
		fmt.Fprintf(Output, "\n  %s %s\n", ColorInfo("TIP:"), ColorInfo(tip))
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorSuccess("SUCCESS:"), message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorWarning("WARNING:"), ColorWarning(message))
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	fmt.Fprintf(Output, "%s %s\n", ColorInfo("INFO:"), message)
}

// PrintSection prints a section header
func PrintSection(title string) {
	fmt.Fprintf(Output, "\n%s %s\n", ColorBold(">"), ColorBold(title))
	fmt.Fprintln(Output, strings.Repeat("-", 50))
}

// PrintKeyValue prints a key-value pair in a formatted way
func PrintKeyValue(key, value string) {
	fmt.Fprintf(Output, "  %-20s %s\n", ColorDim(key+":"), value)
}

// FormatDuration formats a duration in a human-readable way
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}

// getSuggestion returns helpful suggestions based on error messages
func getSuggestion(message string) string {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "authentication failed"), strings.Contains(lower, "incorrect username or password"):
		return "Check the target credentials or run 'martflow auth set <target>'"
	case strings.Contains(lower, "connection refused"):
		return "Verify the target host and network connectivity"
	case strings.Contains(lower, "permission denied"):
		return "Ensure the target role can create tables in the schema"
	case strings.Contains(lower, "no such file"):
		return "Check sources.path in martflow.yaml"
	default:
		return ""
	}
}

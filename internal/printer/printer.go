// Package printer formats CLI output: coloured status lines, framed errors
// and tables.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

func init() {
	// Colour stays on without a TTY; NO_COLOR disables it.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Output destinations, swapped by tests and by commands writing to cobra's streams.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Success prints a green message prefixed with a checkmark.
func Success(format string, a ...any) {
	green.Fprint(Stdout, withPrefix("✓ ", fmt.Sprintf(format, a...)))
}

// Info prints an uncoloured message.
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Warning prints a yellow message prefixed with a warning sign.
func Warning(format string, a ...any) {
	yellow.Fprint(Stderr, withPrefix("⚠️  ", fmt.Sprintf(format, a...)))
}

// Step prints a progress line of a multi-step operation.
func Step(format string, a ...any) {
	cyan.Fprintf(Stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a framed error to Stderr and returns an error carrying only the
// title, so cobra does not print the details twice.
func Error(title, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details printed between the
// explanation and the suggestions. Keys print in the order given.
func ErrorWithContext(title, explanation string, details [][2]string, suggestions []string) error {
	red.Fprintf(Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Stderr, "%s\n", explanation)
	}

	if len(details) > 0 {
		fmt.Fprintln(Stderr)
		for _, kv := range details {
			fmt.Fprintf(Stderr, "  %s: %s\n", kv[0], kv[1])
		}
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(Stderr, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(Stderr, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(Stderr, "  %d. %s\n", i+1, s)
		}
	}

	return fmt.Errorf("%s", title)
}

// Table renders rows under header to Stdout.
func Table(header []string, rows [][]string) error {
	table := tablewriter.NewWriter(Stdout)
	table.Header(header)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}
	}
	return table.Render()
}

func withPrefix(prefix, msg string) string {
	if strings.HasPrefix(msg, strings.TrimSpace(prefix)) {
		return msg
	}
	return prefix + msg
}

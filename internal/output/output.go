// Package output provides formatted output for deployment runs.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Output handles formatted output.
type Output struct {
	w        io.Writer
	useColor bool
	debug    bool
}

// New creates a new output handler.
func New(w io.Writer) *Output {
	return &Output{
		w:        w,
		useColor: true,
	}
}

// SetColor enables or disables color output.
func (o *Output) SetColor(enabled bool) {
	o.useColor = enabled
}

// SetDebug enables or disables debug output.
func (o *Output) SetDebug(enabled bool) {
	o.debug = enabled
}

// color returns the string wrapped in color codes if enabled.
func (o *Output) color(c, s string) string {
	if !o.useColor {
		return s
	}
	return c + s + colorReset
}

// RunStart prints the deployment run banner.
func (o *Output) RunStart(environment, revision string) {
	o.printf("\n%s %s @ %s\n", o.color(colorBold, "DEPLOY"), environment, revision)
	if o.debug {
		o.printf("%s\n", strings.Repeat("-", 60))
	}
}

// RunEnd prints the run recap line.
func (o *Output) RunEnd(status string, d time.Duration) {
	statusColor := colorGreen
	if status != "success" {
		statusColor = colorRed
	}
	o.printf("\n%s %s %s\n",
		o.color(colorBold, "RESULT"),
		o.color(statusColor, status),
		o.color(colorGray, fmt.Sprintf("(%.2fs)", d.Seconds())))
}

// StepResult prints a step outcome in a single line.
// Format: [indicator] step name (message)
func (o *Output) StepResult(name, status, message string) {
	var indicator string
	var statusColor string

	switch {
	case strings.HasPrefix(status, "ok"):
		indicator = "✓"
		statusColor = colorGreen
	case strings.HasPrefix(status, "skipped"):
		indicator = "○"
		statusColor = colorCyan
	case strings.HasPrefix(status, "failed"):
		indicator = "✗"
		statusColor = colorRed
	default:
		indicator = "?"
		statusColor = colorGray
	}

	line := fmt.Sprintf("%s %s", o.color(statusColor, indicator), name)
	if message != "" {
		line += o.color(colorGray, fmt.Sprintf(" (%s)", message))
	}
	o.printf("%s\n", line)
}

// Section prints a section header.
func (o *Output) Section(name string) {
	o.printf("\n%s\n", o.color(colorBold, name))
}

// Info prints an informational message.
func (o *Output) Info(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorBlue, "INFO"), fmt.Sprintf(format, args...))
}

// Warn prints a warning message.
func (o *Output) Warn(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorYellow, "WARN"), fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (o *Output) Error(format string, args ...any) {
	o.printf("%s %s\n", o.color(colorRed, "ERROR"), fmt.Sprintf(format, args...))
}

// Debug prints a debug message (only in debug mode).
func (o *Output) Debug(format string, args ...any) {
	if o.debug {
		o.printf("%s %s\n", o.color(colorGray, "DEBUG"), fmt.Sprintf(format, args...))
	}
}

func (o *Output) printf(format string, args ...any) {
	fmt.Fprintf(o.w, format, args...)
}

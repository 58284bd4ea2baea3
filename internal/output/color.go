package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Backland-Labs/runclient/internal/schema"
)

// ANSI color codes
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

// Printer handles colored output
type Printer struct {
	out      io.Writer
	err      io.Writer
	useColor bool
}

// NewPrinter creates a new printer with color support
func NewPrinter() *Printer {
	return &Printer{
		out:      os.Stdout,
		err:      os.Stderr,
		useColor: isTerminal(),
	}
}

// NewPrinterWithWriters creates a printer with custom writers (for testing)
func NewPrinterWithWriters(out, err io.Writer, useColor bool) *Printer {
	return &Printer{
		out:      out,
		err:      err,
		useColor: useColor,
	}
}

func (p *Printer) line(w io.Writer, color, symbol, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if p.useColor {
		_, _ = fmt.Fprintf(w, "%s%s%s %s%s\n", colorBold, color, symbol, message, colorReset)
	} else {
		_, _ = fmt.Fprintf(w, "%s %s\n", symbol, message)
	}
}

// Success prints a success message in green
func (p *Printer) Success(format string, args ...interface{}) {
	p.line(p.err, colorGreen, "✓", format, args...)
}

// Error prints an error message in red
func (p *Printer) Error(format string, args ...interface{}) {
	p.line(p.err, colorRed, "✗", format, args...)
}

// Warning prints a warning message in yellow
func (p *Printer) Warning(format string, args ...interface{}) {
	p.line(p.err, colorYellow, "⚠", format, args...)
}

// Info prints an info message in cyan
func (p *Printer) Info(format string, args ...interface{}) {
	p.line(p.err, colorCyan, "→", format, args...)
}

// Detail prints a detail message in gray
func (p *Printer) Detail(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if p.useColor {
		_, _ = fmt.Fprintf(p.err, "%s  %s%s\n", colorGray, message, colorReset)
	} else {
		_, _ = fmt.Fprintf(p.err, "  %s\n", message)
	}
}

// JSON writes v to stdout as indented JSON
func (p *Printer) JSON(v interface{}) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Status prints one poll result, colored by run status
func (p *Printer) Status(attempt int, out *schema.RunOutput) {
	color := colorBlue
	switch out.Status {
	case schema.StatusSuccess:
		color = colorGreen
	case schema.StatusFailed, schema.StatusTimeout:
		color = colorRed
	case schema.StatusQueued, schema.StatusNotStarted:
		color = colorGray
	}

	msg := fmt.Sprintf("[%d] %s %s", attempt, out.Status, progressBar(out.Progress, 20))
	if out.LiveStatus != nil && *out.LiveStatus != "" {
		msg += " " + *out.LiveStatus
	}

	if p.useColor {
		_, _ = fmt.Fprintf(p.err, "%s%s%s\n", color, msg, colorReset)
	} else {
		_, _ = fmt.Fprintln(p.err, msg)
	}
}

// progressBar renders a fraction in [0,1] as a fixed-width bar with a percentage
func progressBar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))

	bar := make([]rune, width)
	for i := range bar {
		if i < filled {
			bar[i] = '█'
		} else {
			bar[i] = '░'
		}
	}
	return fmt.Sprintf("%s %3.0f%%", string(bar), fraction*100)
}

// isTerminal checks if stdout is a terminal
func isTerminal() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}

	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

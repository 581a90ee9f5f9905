// Package output formats CLI output, with lipgloss colors on terminals and
// plain text everywhere else.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer for out. Colors are used only when out is a
// terminal, NO_COLOR is unset and no CI system is detected.
func New(out io.Writer) *Writer {
	return NewWithColor(out, IsTTY(out) && !DetectNoColor() && !DetectCI())
}

// NewWithColor creates a Writer with colors forced on or off.
func NewWithColor(out io.Writer, color bool) *Writer {
	return &Writer{out: out, styles: GetStyles(!color)}
}

// Styles returns the writer's styles.
func (w *Writer) Styles() Styles {
	return w.styles
}

// Status prints a message with a leading icon, or indented when icon is "".
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// fieldWidth is the column at which Field values start.
const fieldWidth = 16

// Field prints an aligned "label: value" line.
func (w *Writer) Field(label, value string) {
	label += ":"
	pad := max(fieldWidth-len(label), 0) + 1
	_, _ = fmt.Fprintf(w.out, "  %s%s%s\n",
		w.styles.Label.Render(label), strings.Repeat(" ", pad), w.styles.Value.Render(value))
}

// Header prints a bold section header.
func (w *Writer) Header(title string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(title))
}

// Code prints content indented by two spaces between blank lines.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Raw writes s followed by a newline, unstyled.
func (w *Writer) Raw(s string) {
	_, _ = fmt.Fprintln(w.out, s)
}

// Stderr is a Writer for os.Stderr.
func Stderr() *Writer {
	return New(os.Stderr)
}

package output

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_StatusLines(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"success", func(w *Writer) { w.Successf("warmed %d texts", 3) }, "✓ warmed 3 texts\n"},
		{"warning", func(w *Writer) { w.Warning("daemon not running") }, "! daemon not running\n"},
		{"error", func(w *Writer) { w.Errorf("failed: %s", "boom") }, "✗ failed: boom\n"},
		{"no icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"raw", func(w *Writer) { w.Raw("plain") }, "plain\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a writer without colors
			buf := &bytes.Buffer{}
			w := NewWithColor(buf, false)

			// When: writing
			tt.write(w)

			// Then: the output is exactly the plain line
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_Code(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)

	w.Code("a\nb")

	assert.Equal(t, "\n  a\n  b\n\n", buf.String())
}

func TestWriter_Match(t *testing.T) {
	// Given: a result with only a value neighbour
	buf := &bytes.Buffer{}
	w := NewWithColor(buf, false)
	value := "c"

	// When: printing it
	w.Match(Match{Text: "ab", Fingerprint: 3, NearestByValue: &value, Source: "local"})

	// Then: the missing neighbour is shown as (none)
	want := "ab\n" +
		"  fingerprint:     3\n" +
		"  nearest value:   c\n" +
		"  nearest lexical: (none)\n" +
		"  served by:       local\n"
	assert.Equal(t, want, buf.String())
}

func TestNew_NonTTYIsPlain(t *testing.T) {
	// A bytes.Buffer is never a terminal, so New must not emit escapes.
	buf := &bytes.Buffer{}
	New(buf).Success("done")

	assert.Equal(t, "✓ done\n", buf.String())
	assert.False(t, IsTTY(buf))
	assert.False(t, IsTTY(nil))
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())

	os.Unsetenv("NO_COLOR")
	assert.False(t, DetectNoColor())
}

func TestGetStyles_NoColorRendersPlain(t *testing.T) {
	s := GetStyles(true)

	assert.Equal(t, "x", s.Header.Render("x"))
	assert.Equal(t, "x", s.Null.Render("x"))
}

package console

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	seqEraseLine   = "\r\x1b[2K"
	seqClearScreen = "\x1b[2J\x1b[3J\x1b[H"
)

// renderer keeps the visible input line consistent with buffer and cursor
// state. Content changes always rewrite the whole line; pure cursor motion
// emits only a relative move sequence.
type renderer struct {
	out    io.Writer
	prompt string
}

func newRenderer(out io.Writer, prompt string) *renderer {
	if prompt == "" {
		prompt = "> "
	}
	return &renderer{out: out, prompt: prompt}
}

// Prompt writes a fresh prompt at the current position.
func (r *renderer) Prompt() {
	_, _ = io.WriteString(r.out, r.prompt)
}

// Newline moves output to the start of the next line.
func (r *renderer) Newline() {
	_, _ = io.WriteString(r.out, "\r\n")
}

// RedrawLine erases the input line and rewrites prompt plus buffer, leaving
// the terminal cursor at the buffer cursor position.
func (r *renderer) RedrawLine(buffer string, cursor int) {
	var b strings.Builder
	b.WriteString(seqEraseLine)
	b.WriteString(r.prompt)
	b.WriteString(buffer)
	if back := utf8.RuneCountInString(buffer) - cursor; back > 0 {
		fmt.Fprintf(&b, "\x1b[%dD", back)
	}
	_, _ = io.WriteString(r.out, b.String())
}

// MoveCursor emits a relative cursor move without rewriting the line.
func (r *renderer) MoveCursor(delta int) {
	switch {
	case delta < 0:
		_, _ = fmt.Fprintf(r.out, "\x1b[%dD", -delta)
	case delta > 0:
		_, _ = fmt.Fprintf(r.out, "\x1b[%dC", delta)
	}
}

// ClearScreen clears the viewport and scrollback, then redraws the
// in-progress line at the top.
func (r *renderer) ClearScreen(buffer string, cursor int) {
	_, _ = io.WriteString(r.out, seqClearScreen)
	r.RedrawLine(buffer, cursor)
}

// CancelLine marks the abandoned input with ^C and starts a fresh prompt.
func (r *renderer) CancelLine() {
	_, _ = io.WriteString(r.out, "^C\r\n")
	r.Prompt()
}

// WriteBlock writes command output followed by a line break. The leading
// erase discards anything typed ahead on the pending line.
func (r *renderer) WriteBlock(text string) {
	var b strings.Builder
	b.WriteString(seqEraseLine)
	b.WriteString(strings.ReplaceAll(text, "\n", "\r\n"))
	b.WriteString("\r\n")
	_, _ = io.WriteString(r.out, b.String())
}

// WriteError writes a single error line with the console error marker.
func (r *renderer) WriteError(err error) {
	r.WriteBlock(fmt.Sprintf("(error) %v", err))
}

package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/kvterm/kvterm/schema"
)

type fakeExec struct {
	mu    sync.Mutex
	calls []string
	res   schema.Result
	err   error
	block chan struct{}
}

func (f *fakeExec) Execute(ctx context.Context, command string) (schema.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.res, f.err
}

func (f *fakeExec) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func typeText(s *Session, ctx context.Context, text string) {
	for _, r := range text {
		s.handleAction(ctx, Decode([]byte(string(r))))
	}
}

// drainExec waits for the asynchronous transport call to complete and applies
// its outcome, the way Run's select loop would.
func drainExec(s *Session) {
	s.finishExec(<-s.results)
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{res: schema.Result{Columns: []string{"v"}, Rows: [][]any{{"42"}}}}
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, exec, Config{Prompt: "> "})

	typeText(s, ctx, "get k")
	if s.editor.String() != "get k" || s.editor.Cursor() != 5 {
		t.Fatalf("buffer %q cursor %d", s.editor.String(), s.editor.Cursor())
	}
	s.handleAction(ctx, Decode([]byte("\x01")))
	if s.editor.Cursor() != 0 {
		t.Fatalf("cursor %d after ctrl-a", s.editor.Cursor())
	}
	s.handleAction(ctx, Decode([]byte("\x05")))
	if s.editor.Cursor() != 5 {
		t.Fatalf("cursor %d after ctrl-e", s.editor.Cursor())
	}
	s.handleAction(ctx, Decode([]byte("\r")))
	drainExec(s)

	if s.editor.String() != "" {
		t.Fatalf("buffer not reset: %q", s.editor.String())
	}
	if got := s.History(); len(got) != 1 || got[0] != "get k" {
		t.Fatalf("history %v", got)
	}
	if exec.callCount() != 1 || exec.calls[0] != "get k" {
		t.Fatalf("executor calls %v", exec.calls)
	}
	if !strings.Contains(out.String(), "42") {
		t.Fatalf("output %q does not contain result", out.String())
	}
	if !strings.HasSuffix(out.String(), "> ") {
		t.Fatalf("output %q does not end with a fresh prompt", out.String())
	}
}

func TestSubmitTrimsCommandButRecordsAsTyped(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{res: schema.Result{}}
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, exec, Config{})

	typeText(s, ctx, "  get k  ")
	s.handleAction(ctx, Action{Kind: ActionSubmit})
	drainExec(s)

	if exec.calls[0] != "get k" {
		t.Fatalf("executor got %q, want trimmed command", exec.calls[0])
	}
	if got := s.History(); got[0] != "  get k  " {
		t.Fatalf("history recorded %q, want line as typed", got[0])
	}
}

func TestWhitespaceSubmitIsSilent(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, exec, Config{})

	typeText(s, ctx, "   ")
	out.Reset()
	s.handleAction(ctx, Action{Kind: ActionSubmit})

	if exec.callCount() != 0 {
		t.Fatalf("executor was called for whitespace-only submit")
	}
	if len(s.History()) != 0 {
		t.Fatalf("history %v, want empty", s.History())
	}
	if out.Len() != 0 {
		t.Fatalf("output %q, want nothing written", out.String())
	}
}

func TestClearPseudoCommandSkipsTransport(t *testing.T) {
	ctx := context.Background()
	for _, cmd := range []string{"clear", "CLEAR", "Clear", "  clear  "} {
		exec := &fakeExec{}
		var out bytes.Buffer
		s := NewSession(strings.NewReader(""), &out, exec, Config{})
		typeText(s, ctx, cmd)
		s.handleAction(ctx, Action{Kind: ActionSubmit})
		if exec.callCount() != 0 {
			t.Fatalf("%q reached the transport", cmd)
		}
		if !strings.Contains(out.String(), seqClearScreen) {
			t.Fatalf("%q did not clear the screen", cmd)
		}
		if len(s.History()) != 1 {
			t.Fatalf("%q was not recorded in history", cmd)
		}
	}
}

func TestSubmitWhileInFlightIsDropped(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{block: make(chan struct{})}
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, exec, Config{})

	typeText(s, ctx, "slow")
	s.handleAction(ctx, Action{Kind: ActionSubmit})

	typeText(s, ctx, "next")
	s.handleAction(ctx, Action{Kind: ActionSubmit})
	if got := len(s.History()); got != 1 {
		t.Fatalf("second submit was recorded, history len %d", got)
	}

	close(exec.block)
	drainExec(s)
	if exec.callCount() != 1 {
		t.Fatalf("executor called %d times, want 1", exec.callCount())
	}
	if s.editor.String() != "" {
		t.Fatalf("buffer %q after completion, want reset", s.editor.String())
	}
}

func TestTransportErrorRearmsSession(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{err: schema.ErrCommandBlocked}
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, exec, Config{Prompt: "> "})

	typeText(s, ctx, "subscribe ch")
	s.handleAction(ctx, Action{Kind: ActionSubmit})
	drainExec(s)

	if !strings.Contains(out.String(), "(error) ") {
		t.Fatalf("output %q missing error marker", out.String())
	}
	if s.inFlight {
		t.Fatalf("in-flight flag still set after error")
	}
	if s.editor.String() != "" {
		t.Fatalf("failed command line was preserved: %q", s.editor.String())
	}

	// The session accepts the next command.
	typeText(s, ctx, "get k")
	s.handleAction(ctx, Action{Kind: ActionSubmit})
	drainExec(s)
	if exec.callCount() != 2 {
		t.Fatalf("executor called %d times, want 2", exec.callCount())
	}
}

func TestNoBackendReportsInline(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, nil, Config{})

	typeText(s, ctx, "get k")
	s.handleAction(ctx, Action{Kind: ActionSubmit})

	if !strings.Contains(out.String(), "(error) no backend available") {
		t.Fatalf("output %q", out.String())
	}
	if s.inFlight {
		t.Fatalf("in-flight flag set without a transport")
	}
}

func TestCancelLineClearsInputOnly(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{}
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, exec, Config{})

	s.history.Record("old")
	if _, ok := s.history.Prev(); !ok {
		t.Fatalf("prev should load entry")
	}
	typeText(s, ctx, "typed")
	s.handleAction(ctx, Decode([]byte("\x03")))

	if s.editor.String() != "" || s.editor.Cursor() != 0 {
		t.Fatalf("buffer %q cursor %d after ctrl-c", s.editor.String(), s.editor.Cursor())
	}
	if s.history.browse != -1 {
		t.Fatalf("ctrl-c did not reset history browsing")
	}
	if !strings.Contains(out.String(), "^C") {
		t.Fatalf("output %q missing ^C marker", out.String())
	}
	if exec.callCount() != 0 {
		t.Fatalf("ctrl-c triggered a submission")
	}
}

func TestClearLineKeepsHistoryBrowse(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, nil, Config{})

	s.history.Record("old")
	if _, ok := s.history.Prev(); !ok {
		t.Fatalf("prev should load entry")
	}
	s.handleAction(ctx, Decode([]byte("\x15")))
	if s.editor.String() != "" {
		t.Fatalf("ctrl-u left buffer %q", s.editor.String())
	}
	if s.history.browse != 0 {
		t.Fatalf("ctrl-u touched history browse index: %d", s.history.browse)
	}
}

func TestHistoryBrowsingThroughActions(t *testing.T) {
	ctx := context.Background()
	exec := &fakeExec{res: schema.Result{Columns: []string{"v"}, Rows: [][]any{{"ok"}}}}
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, exec, Config{})

	for _, cmd := range []string{"GET x", "SET y 1"} {
		typeText(s, ctx, cmd)
		s.handleAction(ctx, Action{Kind: ActionSubmit})
		drainExec(s)
	}

	s.handleAction(ctx, Decode([]byte("\x1b[A")))
	s.handleAction(ctx, Decode([]byte("\x1b[A")))
	if s.editor.String() != "GET x" {
		t.Fatalf("buffer %q after two prevs", s.editor.String())
	}
	s.handleAction(ctx, Decode([]byte("\x1b[B")))
	if s.editor.String() != "SET y 1" {
		t.Fatalf("buffer %q after next", s.editor.String())
	}
	s.handleAction(ctx, Decode([]byte("\x1b[B")))
	if s.editor.String() != "" || s.history.browse != -1 {
		t.Fatalf("buffer %q browse %d after stepping past end", s.editor.String(), s.history.browse)
	}
}

func TestEditingDetachesFromHistory(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer
	s := NewSession(strings.NewReader(""), &out, nil, Config{})

	s.history.Record("GET x")
	s.handleAction(ctx, Decode([]byte("\x1b[A")))
	typeText(s, ctx, "!")
	if s.editor.String() != "GET x!" {
		t.Fatalf("buffer %q", s.editor.String())
	}
	// The stored entry is immutable; only the live buffer changed.
	if s.history.entries[0] != "GET x" {
		t.Fatalf("history entry mutated: %q", s.history.entries[0])
	}
	// InsertText never resets the browse index on its own.
	if s.history.browse != 0 {
		t.Fatalf("browse index %d after editing", s.history.browse)
	}
}

func TestRunExitsOnInputClose(t *testing.T) {
	var out bytes.Buffer
	s := NewSession(strings.NewReader("abc"), &out, nil, Config{})
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "abc") {
		t.Fatalf("output %q missing echoed input", out.String())
	}
}

func TestRunExitsOnCtrlDEmptyLine(t *testing.T) {
	var out bytes.Buffer
	in, w := newBlockingReader()
	s := NewSession(in, &out, nil, Config{})
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	w <- []byte("\x04")
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

// newBlockingReader returns a reader fed by a channel, so tests control chunk
// boundaries exactly.
func newBlockingReader() (*chanReader, chan []byte) {
	ch := make(chan []byte, 4)
	return &chanReader{ch: ch}, ch
}

type chanReader struct {
	ch  chan []byte
	rem []byte
}

func (r *chanReader) Read(p []byte) (int, error) {
	if len(r.rem) == 0 {
		chunk, ok := <-r.ch
		if !ok {
			return 0, io.EOF
		}
		r.rem = chunk
	}
	n := copy(p, r.rem)
	r.rem = r.rem[n:]
	return n, nil
}

package console

import (
	"context"
	"io"
	"strings"

	"pkt.systems/pslog"

	"github.com/kvterm/kvterm/schema"
)

// Executor runs one finalized command line against the backend and returns
// its tabular result. The console treats the call as opaque and suspends the
// submit path until it resolves.
type Executor interface {
	Execute(ctx context.Context, command string) (schema.Result, error)
}

// Config carries per-session console settings.
type Config struct {
	Prompt string
	Logger pslog.Logger
}

type outcome struct {
	res schema.Result
	err error
}

// Session is one open console: line buffer, cursor, history, and the
// in-flight submission guard. All state is owned by the session goroutine;
// the execution transport call is the only asynchronous boundary.
type Session struct {
	in   io.Reader
	exec Executor
	log  pslog.Logger

	editor  lineEditor
	history *history
	render  *renderer

	inFlight bool
	results  chan outcome
}

// NewSession builds a console over the given terminal reader and writer.
// exec may be nil, in which case every submission reports that no backend is
// available.
func NewSession(in io.Reader, out io.Writer, exec Executor, cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Session{
		in:      in,
		exec:    exec,
		log:     log,
		history: newHistory(),
		render:  newRenderer(out, cfg.Prompt),
		results: make(chan outcome, 1),
	}
}

// Run drives the console until the input stream closes, Ctrl-D is pressed on
// an empty line, or the context is canceled. Input chunks are decoded and
// applied synchronously; a pending command completion is picked up between
// chunks.
func (s *Session) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	chunks := make(chan []byte, 16)
	go readChunks(s.in, chunks)

	s.render.Prompt()
	s.log.Debug("console session start")
	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-chunks:
			if !ok {
				s.log.Debug("console input closed")
				return nil
			}
			if s.handleAction(ctx, Decode(chunk)) {
				s.log.Info("console exit", "reason", "ctrl-d")
				return nil
			}
		case out := <-s.results:
			s.finishExec(out)
		}
	}
}

// handleAction applies one decoded action. It returns true when the session
// should end.
func (s *Session) handleAction(ctx context.Context, act Action) bool {
	switch act.Kind {
	case ActionInsertText:
		if act.Text == "" {
			return false
		}
		s.editor.InsertString(act.Text)
		s.redraw()
	case ActionDeleteBackward:
		if s.editor.Backspace() {
			s.redraw()
		}
	case ActionMoveLeft:
		if s.editor.MoveLeft() {
			s.render.MoveCursor(-1)
		}
	case ActionMoveRight:
		if s.editor.MoveRight() {
			s.render.MoveCursor(1)
		}
	case ActionMoveHome:
		prev := s.editor.Cursor()
		s.editor.MoveStart()
		s.render.MoveCursor(-prev)
	case ActionMoveEnd:
		prev := s.editor.Cursor()
		s.editor.MoveEnd()
		s.render.MoveCursor(s.editor.Cursor() - prev)
	case ActionHistoryPrev:
		if line, ok := s.history.Prev(); ok {
			s.editor.SetString(line)
			s.redraw()
		}
	case ActionHistoryNext:
		if line, ok := s.history.Next(); ok {
			s.editor.SetString(line)
			s.redraw()
		}
	case ActionClearLine:
		s.editor.Clear()
		s.redraw()
	case ActionClearScreen:
		s.render.ClearScreen(s.editor.String(), s.editor.Cursor())
	case ActionCancelLine:
		s.editor.Clear()
		s.history.ResetBrowse()
		s.render.CancelLine()
	case ActionSubmit:
		s.submit(ctx)
	case ActionEOF:
		if s.editor.Len() == 0 && !s.inFlight {
			return true
		}
	}
	return false
}

func (s *Session) redraw() {
	s.render.RedrawLine(s.editor.String(), s.editor.Cursor())
}

func (s *Session) submit(ctx context.Context) {
	if s.inFlight {
		s.log.Debug("console submit rejected", "err", schema.ErrExecBusy)
		return
	}
	raw := s.editor.String()
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return
	}
	s.history.Record(raw)
	s.editor.Clear()

	if strings.EqualFold(trimmed, "clear") {
		s.render.ClearScreen("", 0)
		return
	}

	s.render.Newline()
	if s.exec == nil {
		s.render.WriteError(schema.ErrNoBackend)
		s.render.Prompt()
		return
	}

	s.inFlight = true
	s.log.Debug("console submit", "len", len(trimmed))
	go func() {
		res, err := s.exec.Execute(ctx, trimmed)
		s.results <- outcome{res: res, err: err}
	}()
}

// finishExec re-arms the session after a command completes. The buffer reset
// happens on success and failure alike; a failed command does not keep the
// line around for correction.
func (s *Session) finishExec(out outcome) {
	if out.err != nil {
		s.log.Warn("console command failed", "err", out.err)
		s.render.WriteError(out.err)
	} else {
		s.render.WriteBlock(Format(out.res))
	}
	s.editor.Clear()
	s.inFlight = false
	s.render.Prompt()
}

// History returns the commands recorded so far, oldest first.
func (s *Session) History() []string {
	return s.history.Entries()
}

func readChunks(r io.Reader, out chan<- []byte) {
	defer close(out)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			return
		}
	}
}

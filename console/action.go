package console

import "strings"

// ActionKind enumerates the logical edit operations the decoder can emit.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionInsertText
	ActionSubmit
	ActionDeleteBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveHome
	ActionMoveEnd
	ActionHistoryPrev
	ActionHistoryNext
	ActionClearLine
	ActionClearScreen
	ActionCancelLine
	ActionEOF
)

// Action is one decoded edit operation. Text is set for ActionInsertText.
type Action struct {
	Kind ActionKind
	Text string
}

// Decode classifies one raw input chunk as exactly one Action. A chunk may
// be a single keystroke, a multi-byte escape sequence, or a pasted string.
// Unrecognized control bytes and unknown escape sequences decode to
// ActionNone.
func Decode(chunk []byte) Action {
	if len(chunk) == 0 {
		return Action{Kind: ActionNone}
	}
	switch chunk[0] {
	case '\r':
		return Action{Kind: ActionSubmit}
	case 0x7f, '\b':
		return Action{Kind: ActionDeleteBackward}
	case 0x01:
		return Action{Kind: ActionMoveHome}
	case 0x05:
		return Action{Kind: ActionMoveEnd}
	case 0x15:
		return Action{Kind: ActionClearLine}
	case 0x0c:
		return Action{Kind: ActionClearScreen}
	case 0x03:
		return Action{Kind: ActionCancelLine}
	case 0x04:
		return Action{Kind: ActionEOF}
	case 0x1b:
		return decodeEscape(chunk)
	}
	if chunk[0] < 0x20 {
		return Action{Kind: ActionNone}
	}
	text := printable(string(chunk))
	if text == "" {
		return Action{Kind: ActionNone}
	}
	return Action{Kind: ActionInsertText, Text: text}
}

func decodeEscape(chunk []byte) Action {
	if len(chunk) < 3 || chunk[1] != '[' {
		return Action{Kind: ActionNone}
	}
	switch chunk[2] {
	case 'A':
		return Action{Kind: ActionHistoryPrev}
	case 'B':
		return Action{Kind: ActionHistoryNext}
	case 'C':
		return Action{Kind: ActionMoveRight}
	case 'D':
		return Action{Kind: ActionMoveLeft}
	case 'H':
		return Action{Kind: ActionMoveHome}
	case 'F':
		return Action{Kind: ActionMoveEnd}
	}
	return Action{Kind: ActionNone}
}

// printable drops control characters from pasted text so a multi-line paste
// cannot splice cursor-breaking bytes into the buffer.
func printable(s string) string {
	if !strings.ContainsFunc(s, isControl) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}

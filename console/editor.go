package console

type lineEditor struct {
	buf    []rune
	cursor int
}

func (e *lineEditor) String() string {
	return string(e.buf)
}

func (e *lineEditor) Len() int {
	return len(e.buf)
}

func (e *lineEditor) Cursor() int {
	return e.cursor
}

func (e *lineEditor) Clear() {
	e.buf = nil
	e.cursor = 0
}

func (e *lineEditor) SetString(value string) {
	if value == "" {
		e.Clear()
		return
	}
	e.buf = []rune(value)
	e.cursor = len(e.buf)
}

func (e *lineEditor) InsertString(value string) {
	if value == "" {
		return
	}
	if e.cursor < 0 {
		e.cursor = 0
	}
	if e.cursor > len(e.buf) {
		e.cursor = len(e.buf)
	}
	runes := []rune(value)
	e.buf = append(e.buf[:e.cursor], append(runes, e.buf[e.cursor:]...)...)
	e.cursor += len(runes)
}

func (e *lineEditor) Backspace() bool {
	if e.cursor <= 0 {
		return false
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
	return true
}

func (e *lineEditor) MoveLeft() bool {
	if e.cursor <= 0 {
		return false
	}
	e.cursor--
	return true
}

func (e *lineEditor) MoveRight() bool {
	if e.cursor >= len(e.buf) {
		return false
	}
	e.cursor++
	return true
}

func (e *lineEditor) MoveStart() {
	e.cursor = 0
}

func (e *lineEditor) MoveEnd() {
	e.cursor = len(e.buf)
}

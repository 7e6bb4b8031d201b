package console

import "testing"

func TestEditorInsertAndDelete(t *testing.T) {
	var e lineEditor
	e.InsertString("get")
	e.InsertString(" key")
	if e.String() != "get key" || e.Cursor() != 7 {
		t.Fatalf("got %q cursor %d", e.String(), e.Cursor())
	}
	if !e.Backspace() {
		t.Fatalf("backspace should delete")
	}
	if e.String() != "get ke" || e.Cursor() != 6 {
		t.Fatalf("got %q cursor %d", e.String(), e.Cursor())
	}
}

func TestEditorInsertAtCursor(t *testing.T) {
	var e lineEditor
	e.SetString("ab")
	e.MoveLeft()
	e.InsertString("X")
	if e.String() != "aXb" || e.Cursor() != 2 {
		t.Fatalf("got %q cursor %d", e.String(), e.Cursor())
	}
}

func TestEditorBoundsAreClamped(t *testing.T) {
	var e lineEditor
	if e.Backspace() {
		t.Fatalf("backspace at start should be a no-op")
	}
	if e.MoveLeft() {
		t.Fatalf("move left at start should be a no-op")
	}
	e.SetString("x")
	if e.MoveRight() {
		t.Fatalf("move right at end should be a no-op")
	}
	for i := 0; i < 5; i++ {
		e.MoveLeft()
	}
	if e.Cursor() != 0 {
		t.Fatalf("cursor %d after repeated left, want 0", e.Cursor())
	}
	for i := 0; i < 5; i++ {
		e.MoveRight()
	}
	if e.Cursor() != e.Len() {
		t.Fatalf("cursor %d after repeated right, want %d", e.Cursor(), e.Len())
	}
}

func TestEditorHomeEndClear(t *testing.T) {
	var e lineEditor
	e.SetString("hello")
	e.MoveStart()
	if e.Cursor() != 0 {
		t.Fatalf("cursor %d after home", e.Cursor())
	}
	e.MoveEnd()
	if e.Cursor() != 5 {
		t.Fatalf("cursor %d after end", e.Cursor())
	}
	e.Clear()
	if e.String() != "" || e.Cursor() != 0 {
		t.Fatalf("clear left %q cursor %d", e.String(), e.Cursor())
	}
}

func TestEditorUnicodeCursor(t *testing.T) {
	var e lineEditor
	e.InsertString("héllo")
	if e.Cursor() != 5 {
		t.Fatalf("cursor %d, want rune count 5", e.Cursor())
	}
	e.Backspace()
	e.Backspace()
	if e.String() != "hél" {
		t.Fatalf("got %q", e.String())
	}
}

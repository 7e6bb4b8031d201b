package console

import "testing"

func TestHistoryRoundTrip(t *testing.T) {
	h := newHistory()
	h.Record("GET x")
	h.Record("SET y 1")

	line, ok := h.Prev()
	if !ok || line != "SET y 1" {
		t.Fatalf("first prev: %q ok=%v", line, ok)
	}
	line, ok = h.Prev()
	if !ok || line != "GET x" {
		t.Fatalf("second prev: %q ok=%v", line, ok)
	}
	line, ok = h.Next()
	if !ok || line != "SET y 1" {
		t.Fatalf("next: %q ok=%v", line, ok)
	}
	line, ok = h.Next()
	if !ok || line != "" {
		t.Fatalf("next past end: %q ok=%v", line, ok)
	}
	if h.browse != -1 {
		t.Fatalf("browse index %d after stepping past end, want -1", h.browse)
	}
}

func TestHistoryPrevStopsAtOldest(t *testing.T) {
	h := newHistory()
	h.Record("one")
	for i := 0; i < 4; i++ {
		if line, ok := h.Prev(); !ok || line != "one" {
			t.Fatalf("prev %d: %q ok=%v", i, line, ok)
		}
	}
	if h.browse != 0 {
		t.Fatalf("browse index %d, want 0", h.browse)
	}
}

func TestHistoryEmpty(t *testing.T) {
	h := newHistory()
	if _, ok := h.Prev(); ok {
		t.Fatalf("prev on empty history should be a no-op")
	}
	if _, ok := h.Next(); ok {
		t.Fatalf("next without browsing should be a no-op")
	}
}

func TestHistoryRecordSkipsBlankButResetsBrowse(t *testing.T) {
	h := newHistory()
	h.Record("cmd")
	if _, ok := h.Prev(); !ok {
		t.Fatalf("prev should load entry")
	}
	h.Record("   ")
	if h.Len() != 1 {
		t.Fatalf("blank line was recorded, len=%d", h.Len())
	}
	if h.browse != -1 {
		t.Fatalf("record did not reset browse index: %d", h.browse)
	}
}

func TestHistoryKeepsLineAsTyped(t *testing.T) {
	h := newHistory()
	h.Record("  get k  ")
	if line, _ := h.Prev(); line != "  get k  " {
		t.Fatalf("entry was trimmed: %q", line)
	}
}

func TestHistoryNoDedup(t *testing.T) {
	h := newHistory()
	h.Record("same")
	h.Record("same")
	if h.Len() != 2 {
		t.Fatalf("len=%d, want duplicate entries kept", h.Len())
	}
}

func TestHistoryInvariant(t *testing.T) {
	h := newHistory()
	ops := []func(){
		func() { h.Record("a") },
		func() { h.Prev() },
		func() { h.Prev() },
		func() { h.Record("b") },
		func() { h.Next() },
		func() { h.Prev() },
		func() { h.Next() },
		func() { h.Next() },
	}
	for i, op := range ops {
		op()
		if h.browse != -1 && (h.browse < 0 || h.browse >= h.Len()) {
			t.Fatalf("op %d: browse index %d out of range (len %d)", i, h.browse, h.Len())
		}
	}
}

package console

import "strings"

// history is the per-session command log plus a browse index. browse is -1
// when the buffer holds live input; any other value means the buffer mirrors
// entries[browse]. Entries are immutable once recorded; editing a recalled
// entry only changes the live buffer.
type history struct {
	entries []string
	browse  int
}

func newHistory() *history {
	return &history{browse: -1}
}

// Record appends the line as typed when it is non-empty after trimming, and
// always leaves the browse index reset.
func (h *history) Record(line string) {
	if strings.TrimSpace(line) != "" {
		h.entries = append(h.entries, line)
	}
	h.browse = -1
}

// ResetBrowse detaches from history browsing without recording anything.
func (h *history) ResetBrowse() {
	h.browse = -1
}

// Prev steps backward through history. The returned string is the new buffer
// content; ok is false when nothing should change.
func (h *history) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.browse == -1 {
		h.browse = len(h.entries) - 1
	} else if h.browse > 0 {
		h.browse--
	}
	return h.entries[h.browse], true
}

// Next steps forward through history. Stepping past the newest entry leaves
// browsing and yields an empty live buffer.
func (h *history) Next() (string, bool) {
	if h.browse == -1 {
		return "", false
	}
	if h.browse < len(h.entries)-1 {
		h.browse++
		return h.entries[h.browse], true
	}
	h.browse = -1
	return "", true
}

func (h *history) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the recorded lines, oldest first.
func (h *history) Entries() []string {
	return append([]string(nil), h.entries...)
}

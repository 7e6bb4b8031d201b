package backend

import (
	"fmt"
	"sort"

	"github.com/kvterm/kvterm/schema"
)

// shapeReply converts a normalized backend reply into the console result
// shape: arrays become an index/value table, maps a key/value table, and
// anything else a single result cell.
func shapeReply(v any) schema.Result {
	switch val := v.(type) {
	case []any:
		rows := make([][]any, 0, len(val))
		for i, item := range val {
			rows = append(rows, []any{i, item})
		}
		return schema.Result{Columns: []string{"index", "value"}, Rows: rows}
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]any, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []any{k, val[k]})
		}
		return schema.Result{Columns: []string{"key", "value"}, Rows: rows}
	default:
		return schema.Result{Columns: []string{"result"}, Rows: [][]any{{v}}}
	}
}

// normalizeReply rewrites driver container types into plain string-keyed
// maps and []any slices so downstream serialization is total.
func normalizeReply(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeReply(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprintf("%v", k)] = normalizeReply(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeReply(item)
		}
		return out
	default:
		return v
	}
}

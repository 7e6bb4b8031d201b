package console

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kvterm/kvterm/schema"
)

type resultShape int

const (
	shapeEmpty resultShape = iota
	shapeScalar
	shapeList
	shapeTable
)

func classify(res schema.Result) resultShape {
	switch {
	case len(res.Rows) == 0:
		return shapeEmpty
	case len(res.Columns) > 1:
		return shapeTable
	case len(res.Rows) == 1:
		return shapeScalar
	default:
		return shapeList
	}
}

// Format renders a tabular result as console text. The rules depend only on
// result shape: no rows yields the empty marker, a single cell renders bare,
// a single column renders as a numbered list, and multiple columns render as
// pipe-separated rows without a header.
func Format(res schema.Result) string {
	switch classify(res) {
	case shapeEmpty:
		return "(empty list or set)"
	case shapeScalar:
		return formatCell(cellAt(res, 0, 0))
	case shapeList:
		lines := make([]string, 0, len(res.Rows))
		for i, row := range res.Rows {
			lines = append(lines, fmt.Sprintf("%d) %s", i+1, formatCell(cellAt2(row, 0))))
		}
		return strings.Join(lines, "\n")
	default:
		lines := make([]string, 0, len(res.Rows))
		for _, row := range res.Rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				cells = append(cells, formatCell(cell))
			}
			lines = append(lines, strings.Join(cells, " | "))
		}
		return strings.Join(lines, "\n")
	}
}

func cellAt(res schema.Result, row, col int) any {
	if row >= len(res.Rows) {
		return nil
	}
	return cellAt2(res.Rows[row], col)
}

func cellAt2(row []any, col int) any {
	if col >= len(row) {
		return nil
	}
	return row[col]
}

// formatCell is total over the cell value domain: nil becomes the nil
// marker, scalars use their natural string form, and structured values get a
// deterministic JSON serialization.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "(nil)"
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case json.Number:
		return val.String()
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}

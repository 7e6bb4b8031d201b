package schema

// Result is the tabular outcome of one executed backend command. Columns may
// be empty; every row has one cell per column. A cell holds nil, a scalar
// (string, number, bool), or a structured value that the formatter
// serializes.
type Result struct {
	Columns []string
	Rows    [][]any
}

package dataset

import "strings"

// missingTokens are the cell values read as "no answer", matching the usual
// spreadsheet/CSV conventions for empty cells.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"null": {},
	"NULL": {},
	"None": {},
	"#N/A": {},
	"<NA>": {},
}

// IsMissing reports whether a raw cell counts as a missing answer.
func IsMissing(v string) bool {
	_, ok := missingTokens[strings.TrimSpace(v)]
	return ok
}

// Cell is one raw answer.
type Cell struct {
	Value   string
	Missing bool
}

// RawTable is a per-respondent table: one column per question ID.
type RawTable struct {
	*Table
}

func NewRawTable(t *Table) *RawTable { return &RawTable{Table: t} }

// Column returns the answers of one question column; ok is false when the
// column does not exist.
func (r *RawTable) Column(name string) ([]Cell, bool) {
	idx := r.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	out := make([]Cell, len(r.Rows))
	for i, row := range r.Rows {
		v := strings.TrimSpace(row[idx])
		out[i] = Cell{Value: v, Missing: IsMissing(v)}
	}
	return out, true
}

package analysis

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
)

// Columns names the two result columns and the untestable mark.
type Columns struct {
	PValue     string
	Mark       string
	Untestable string
}

// DefaultColumns are the column names of the exported tables.
func DefaultColumns() Columns {
	return Columns{PValue: "p値", Mark: "有意水準", Untestable: DefaultUntestableMark}
}

func (c Columns) withDefaults() Columns {
	d := DefaultColumns()
	if c.PValue == "" {
		c.PValue = d.PValue
	}
	if c.Mark == "" {
		c.Mark = d.Mark
	}
	if c.Untestable == "" {
		c.Untestable = d.Untestable
	}
	return c
}

// FormatPValue renders p for the flat table (shortest exact form).
func FormatPValue(r Result) string {
	if !r.HasPValue() {
		return ""
	}
	return strconv.FormatFloat(r.PValue, 'g', -1, 64)
}

// FormatPValue4 renders p with four decimals for summary/detail tables.
func FormatPValue4(r Result) string {
	if !r.HasPValue() {
		return ""
	}
	return fmt.Sprintf("%.4f", r.PValue)
}

// Flat copies the survey table and gives every row of a question that
// question's p-value and mark.
func Flat(s *dataset.SurveyTable, results map[string]Result, cols Columns) *dataset.Table {
	cols = cols.withDefaults()
	out, pi, mi := withResultColumns(s.Table, cols)
	for i := range s.Rows {
		r := results[s.QID(i)]
		out.Rows[i][pi] = FormatPValue(r)
		out.Rows[i][mi] = r.Mark(cols.Untestable)
	}
	return out
}

// Sparse returns a summary with one row per question and a detail table in
// which only one row per question carries the result: its total row when
// present, otherwise its first row.
func Sparse(s *dataset.SurveyTable, results map[string]Result, cols Columns) (summary, detail *dataset.Table) {
	cols = cols.withDefaults()
	summary = &dataset.Table{
		Name:   "summary",
		Header: []string{dataset.ColQID, dataset.ColQuestion, cols.PValue, cols.Mark},
	}
	detail, pi, mi := withResultColumns(s.Table, cols)
	for _, qid := range s.QIDs() {
		r := results[qid]
		p, mark := FormatPValue4(r), r.Mark(cols.Untestable)
		summary.Rows = append(summary.Rows, []string{qid, s.Title(qid), p, mark})

		anchor := AnchorRow(s, qid)
		if anchor < 0 {
			continue
		}
		detail.Rows[anchor][pi] = p
		detail.Rows[anchor][mi] = mark
	}
	return summary, detail
}

// AnchorRow is the row that carries a question's result in sparse output:
// the first total row, else the question's first row. It is -1 for an
// unknown question.
func AnchorRow(s *dataset.SurveyTable, qid string) int {
	rows := s.RowIndexes(qid)
	for _, i := range rows {
		if s.IsTotal(i) {
			return i
		}
	}
	if len(rows) == 0 {
		return -1
	}
	return rows[0]
}

// withResultColumns deep-copies t with blank p-value and mark columns. An
// existing column of the same name is reused (overwritten) instead of
// duplicated.
func withResultColumns(t *dataset.Table, cols Columns) (*dataset.Table, int, int) {
	out := &dataset.Table{Name: t.Name, Encoding: t.Encoding, Header: append([]string(nil), t.Header...)}
	pi := out.ColumnIndex(cols.PValue)
	if pi < 0 {
		out.Header = append(out.Header, cols.PValue)
		pi = len(out.Header) - 1
	}
	mi := out.ColumnIndex(cols.Mark)
	if mi < 0 {
		out.Header = append(out.Header, cols.Mark)
		mi = len(out.Header) - 1
	}
	out.Rows = make([][]string, len(t.Rows))
	for i, rec := range t.Rows {
		row := make([]string, len(out.Header))
		copy(row, rec)
		row[pi], row[mi] = "", ""
		out.Rows[i] = row
	}
	return out, pi, mi
}

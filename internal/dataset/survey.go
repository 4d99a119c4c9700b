package dataset

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
)

// Reserved columns of the aggregated response table. Every other column is
// an attribute group.
const (
	ColQID      = "QID"
	ColQuestion = "questions"
	ColChoice   = "choices"
	ColTotal    = "total"
)

// ReservedColumns lists the non-attribute columns in header order.
var ReservedColumns = []string{ColQID, ColQuestion, ColChoice, ColTotal}

// DefaultTotalLabels are the choice values that mark a question's aggregate row.
var DefaultTotalLabels = []string{"全体", "Total"}

// ErrMissingColumn reports a reserved column absent from the response table.
var ErrMissingColumn = fmt.Errorf("%w: missing required column", core.ErrConfig)

// SurveyTable is an aggregated response table: one row per (question, choice)
// with one count column per attribute group. Rows keep their original
// records so annotated output can reproduce every input column.
type SurveyTable struct {
	*Table

	qidIdx      int
	questionIdx int
	choiceIdx   int
	attrCols    []string
	attrIdx     []int
	totals      map[string]struct{}

	order  []string
	groups map[string][]int
}

// NewSurveyTable indexes t by question ID. QID and choices are required;
// questions and total are optional.
func NewSurveyTable(t *Table, totalLabels []string) (*SurveyTable, error) {
	s := &SurveyTable{
		Table:       t,
		qidIdx:      t.ColumnIndex(ColQID),
		questionIdx: t.ColumnIndex(ColQuestion),
		choiceIdx:   t.ColumnIndex(ColChoice),
		totals:      map[string]struct{}{},
		groups:      map[string][]int{},
	}
	if s.qidIdx < 0 {
		return nil, fmt.Errorf("%w %q in %s", ErrMissingColumn, ColQID, t.Name)
	}
	if s.choiceIdx < 0 {
		return nil, fmt.Errorf("%w %q in %s", ErrMissingColumn, ColChoice, t.Name)
	}
	if len(totalLabels) == 0 {
		totalLabels = DefaultTotalLabels
	}
	for _, l := range totalLabels {
		s.totals[strings.TrimSpace(l)] = struct{}{}
	}
	for i, h := range t.Header {
		if isReserved(h) {
			continue
		}
		s.attrCols = append(s.attrCols, h)
		s.attrIdx = append(s.attrIdx, i)
	}
	for i := range t.Rows {
		q := s.QID(i)
		if _, ok := s.groups[q]; !ok {
			s.order = append(s.order, q)
		}
		s.groups[q] = append(s.groups[q], i)
	}
	return s, nil
}

func isReserved(col string) bool {
	for _, r := range ReservedColumns {
		if col == r {
			return true
		}
	}
	return false
}

// AttributeColumns returns the attribute-group column names in header order.
func (s *SurveyTable) AttributeColumns() []string { return s.attrCols }

// QIDs returns the distinct question IDs in first-appearance order.
func (s *SurveyTable) QIDs() []string { return s.order }

// RowIndexes returns the row positions belonging to qid, in table order.
func (s *SurveyTable) RowIndexes(qid string) []int { return s.groups[qid] }

func (s *SurveyTable) QID(row int) string    { return strings.TrimSpace(s.Rows[row][s.qidIdx]) }
func (s *SurveyTable) Choice(row int) string { return strings.TrimSpace(s.Rows[row][s.choiceIdx]) }

// Question returns the question text of a row; blank when the table has no
// questions column.
func (s *SurveyTable) Question(row int) string {
	if s.questionIdx < 0 {
		return ""
	}
	return strings.TrimSpace(s.Rows[row][s.questionIdx])
}

// IsTotal reports whether row carries the aggregate sentinel choice.
func (s *SurveyTable) IsTotal(row int) bool {
	_, ok := s.totals[s.Choice(row)]
	return ok
}

// AttributeValues returns the raw attribute-group cells of a row.
func (s *SurveyTable) AttributeValues(row int) []string {
	out := make([]string, len(s.attrIdx))
	for j, idx := range s.attrIdx {
		out[j] = s.Rows[row][idx]
	}
	return out
}

// Title returns the question text of the first row of qid.
func (s *SurveyTable) Title(qid string) string {
	rows := s.groups[qid]
	if len(rows) == 0 {
		return ""
	}
	return s.Question(rows[0])
}

// Validate checks the per-question invariants (one question text, at most
// one total row) and returns a warning per violation. Violations do not stop
// processing.
func (s *SurveyTable) Validate() []string {
	var warnings []string
	for _, q := range s.order {
		texts := map[string]struct{}{}
		totals := 0
		for _, i := range s.groups[q] {
			texts[s.Question(i)] = struct{}{}
			if s.IsTotal(i) {
				totals++
			}
		}
		if len(texts) > 1 {
			warnings = append(warnings, fmt.Sprintf("question %s has %d different question texts", q, len(texts)))
		}
		if totals > 1 {
			warnings = append(warnings, fmt.Sprintf("question %s has %d total rows; the first is used", q, totals))
		}
	}
	return warnings
}

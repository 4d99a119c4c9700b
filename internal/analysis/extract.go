package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
)

// ErrNoAttributeColumns aborts a run whose response table has no attribute
// columns to compare against.
var ErrNoAttributeColumns = fmt.Errorf("%w: no attribute columns found (every column is one of QID, questions, choices, total)", core.ErrConfig)

// Matrix is a contingency table: rows are choices, columns attribute groups.
type Matrix [][]float64

// Size returns the number of cells.
func (m Matrix) Size() int {
	n := 0
	for _, r := range m {
		n += len(r)
	}
	return n
}

// Flatten returns the cells in row-major order.
func (m Matrix) Flatten() []float64 {
	out := make([]float64, 0, m.Size())
	for _, r := range m {
		out = append(out, r...)
	}
	return out
}

// ExtractGroup returns the attribute-group counts of qid, one row per choice,
// leaving out the total row(s). Blank cells count as zero; a cell that is
// not a number is an error.
func ExtractGroup(s *dataset.SurveyTable, qid string) (Matrix, error) {
	if len(s.AttributeColumns()) == 0 {
		return nil, ErrNoAttributeColumns
	}
	var m Matrix
	for _, i := range s.RowIndexes(qid) {
		if s.IsTotal(i) {
			continue
		}
		vals := s.AttributeValues(i)
		row := make([]float64, len(vals))
		for j, v := range vals {
			x, err := parseCount(v)
			if err != nil {
				return nil, fmt.Errorf("question %s, choice %q, column %q: %w", qid, s.Choice(i), s.AttributeColumns()[j], err)
			}
			row[j] = x
		}
		m = append(m, row)
	}
	return m, nil
}

func parseCount(v string) (float64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" {
		return 0, nil
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("not a count: %q", v)
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, fmt.Errorf("not a count: %q", v)
	}
	return x, nil
}

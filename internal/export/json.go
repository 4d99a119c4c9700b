package export

import (
	"github.com/KaramelBytes/crosstab-cli/internal/analysis"
	"github.com/KaramelBytes/crosstab-cli/internal/crosstab"
	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
)

// TableJSON is the JSON form of a tabular output.
type TableJSON struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// QuestionJSON is one question's test result.
type QuestionJSON struct {
	QID       string   `json:"qid"`
	Title     string   `json:"title,omitempty"`
	Outcome   string   `json:"outcome"`
	PValue    *float64 `json:"p_value,omitempty"`
	Statistic float64  `json:"statistic,omitempty"`
	DoF       int      `json:"dof"`
	Mark      string   `json:"mark"`
	Reason    string   `json:"reason,omitempty"`
}

// ChiSquareJSON is the JSON document of a contingency-test run.
type ChiSquareJSON struct {
	RunID      string         `json:"run_id,omitempty"`
	Mode       string         `json:"mode"`
	Attributes []string       `json:"attributes"`
	Questions  []QuestionJSON `json:"questions"`
	Summary    *TableJSON     `json:"summary,omitempty"`
	Detail     TableJSON      `json:"detail"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// CrosstabJSON is the JSON document of a crosstab run.
type CrosstabJSON struct {
	RunID    string   `json:"run_id,omitempty"`
	RowQID   string   `json:"row_qid"`
	ColQID   string   `json:"col_qid"`
	RowTitle string   `json:"row_title"`
	ColTitle string   `json:"col_title"`
	N        int      `json:"n"`
	Counts   GridJSON `json:"counts"`
	Percent  GridJSON `json:"percent"`
}

// GridJSON is the JSON form of a labelled grid.
type GridJSON struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Index   []string `json:"index"`
	Cells   [][]any  `json:"cells"`
}

// NewTableJSON converts t.
func NewTableJSON(t *dataset.Table) TableJSON {
	rows := t.Rows
	if rows == nil {
		rows = [][]string{}
	}
	return TableJSON{Header: t.Header, Rows: rows}
}

// NewQuestionJSON converts one question result; untestable is its mark.
func NewQuestionJSON(q analysis.QuestionResult, untestable string) QuestionJSON {
	out := QuestionJSON{
		QID:       q.QID,
		Title:     q.Title,
		Outcome:   q.Result.Outcome.String(),
		Statistic: q.Result.Statistic,
		DoF:       q.Result.DoF,
		Mark:      q.Result.Mark(untestable),
		Reason:    q.Result.Reason,
	}
	if q.Result.HasPValue() {
		p := q.Result.PValue
		out.PValue = &p
	}
	return out
}

// NewCrosstabJSON converts t.
func NewCrosstabJSON(t *crosstab.Table, runID string) CrosstabJSON {
	return CrosstabJSON{
		RunID:    runID,
		RowQID:   t.RowQID,
		ColQID:   t.ColQID,
		RowTitle: t.RowTitle,
		ColTitle: t.ColTitle,
		N:        t.N,
		Counts:   newGridJSON(t.CountGrid()),
		Percent:  newGridJSON(t.PercentGrid()),
	}
}

func newGridJSON(g crosstab.Grid) GridJSON {
	return GridJSON{Name: g.Name, Columns: g.Columns, Index: g.Index, Cells: g.Cells}
}

// NewChiSquareJSON converts a contingency-test run. summary may be nil
// (flat mode); detail is the annotated table.
func NewChiSquareJSON(runID, mode string, rep *analysis.Report, summary, detail *dataset.Table, untestable string) ChiSquareJSON {
	out := ChiSquareJSON{
		RunID:      runID,
		Mode:       mode,
		Attributes: rep.Attributes,
		Questions:  make([]QuestionJSON, 0, len(rep.Questions)),
		Detail:     NewTableJSON(detail),
		Warnings:   rep.Warnings,
	}
	for _, q := range rep.Questions {
		out.Questions = append(out.Questions, NewQuestionJSON(q, untestable))
	}
	if summary != nil {
		s := NewTableJSON(summary)
		out.Summary = &s
	}
	return out
}

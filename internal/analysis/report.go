package analysis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
	"go.uber.org/zap"
)

// QuestionResult is the test result of one question.
type QuestionResult struct {
	QID     string
	Title   string
	Choices int
	Result  Result
}

// Report is the outcome of testing every question of a response table.
type Report struct {
	Name       string
	Attributes []string
	Questions  []QuestionResult
	Warnings   []string
}

// Results indexes the per-question results by QID.
func (r *Report) Results() map[string]Result {
	m := make(map[string]Result, len(r.Questions))
	for _, q := range r.Questions {
		m[q.QID] = q.Result
	}
	return m
}

// Count returns how many questions ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, q := range r.Questions {
		if q.Result.Outcome == o {
			n++
		}
	}
	return n
}

// Analyze tests every question of s independently. Only a missing set of
// attribute columns fails the run; degenerate questions come back as
// Untestable or NoResult.
func Analyze(s *dataset.SurveyTable, logger *zap.Logger) (*Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(s.AttributeColumns()) == 0 {
		return nil, ErrNoAttributeColumns
	}
	rep := &Report{Name: s.Name, Attributes: s.AttributeColumns(), Warnings: s.Validate()}
	for _, w := range rep.Warnings {
		logger.Warn("response table", zap.String("warning", w))
	}
	for _, qid := range s.QIDs() {
		qr := QuestionResult{QID: qid, Title: s.Title(qid)}
		m, err := ExtractGroup(s, qid)
		switch {
		case errors.Is(err, ErrNoAttributeColumns):
			return nil, err
		case err != nil:
			qr.Result = untestable(err.Error())
		default:
			qr.Choices = len(m)
			qr.Result = ChiSquare(m)
		}
		if qr.Result.Outcome == Untestable {
			logger.Warn("question untestable", zap.String("qid", qid), zap.String("reason", qr.Result.Reason))
		} else {
			logger.Debug("question tested",
				zap.String("qid", qid),
				zap.Stringer("outcome", qr.Result.Outcome),
				zap.Float64("p", qr.Result.PValue),
				zap.Int("dof", qr.Result.DoF))
		}
		rep.Questions = append(rep.Questions, qr)
	}
	return rep, nil
}

// Markdown renders a compact summary of the report.
func (r *Report) Markdown(cols Columns) string {
	cols = cols.withDefaults()
	var b strings.Builder
	b.WriteString("[CHI-SQUARE SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("比較属性: %s\n", strings.Join(r.Attributes, ", ")))
	b.WriteString(fmt.Sprintf("Questions: %d (tested %d, untestable %d, no result %d)\n\n",
		len(r.Questions), r.Count(Tested), r.Count(Untestable), r.Count(NoResult)))

	b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", dataset.ColQID, dataset.ColQuestion, cols.PValue, cols.Mark))
	b.WriteString("| --- | --- | --- | --- |\n")
	for _, q := range r.Questions {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			cell(q.QID), cell(q.Title), FormatPValue4(q.Result), cell(q.Result.Mark(cols.Untestable))))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s p ≤ %.2f, %s p ≤ %.2f, %s p ≤ %.2f\n", Mark1, Level1, Mark5, Level5, Mark10, Level10))
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func cell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}

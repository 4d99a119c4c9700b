package analysis

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Outcome is the kind of result a question's test produced.
type Outcome int

const (
	// NoResult: the matrix is empty or all zero; there is nothing to test.
	NoResult Outcome = iota
	// Tested: a p-value was computed.
	Tested
	// Untestable: the matrix is degenerate (zero row/column total, negative
	// or non-numeric counts).
	Untestable
)

func (o Outcome) String() string {
	switch o {
	case Tested:
		return "tested"
	case Untestable:
		return "untestable"
	default:
		return "no_result"
	}
}

// Significance thresholds, checked tightest first.
const (
	Level1  = 0.01
	Level5  = 0.05
	Level10 = 0.10
)

// Significance marks.
const (
	Mark1  = "***"
	Mark5  = "**"
	Mark10 = "*"
)

// DefaultUntestableMark is shown for questions whose matrix cannot be tested.
const DefaultUntestableMark = "検定不可"

// Result is the chi-square outcome of one question.
type Result struct {
	Outcome   Outcome
	PValue    float64
	Statistic float64
	DoF       int
	Reason    string
}

// HasPValue reports whether PValue is defined.
func (r Result) HasPValue() bool { return r.Outcome == Tested }

// Mark maps the result to its significance mark. untestable is the mark for
// the Untestable outcome.
func (r Result) Mark(untestable string) string {
	switch r.Outcome {
	case Tested:
		return MarkFor(r.PValue)
	case Untestable:
		return untestable
	default:
		return ""
	}
}

// MarkFor maps a p-value to "***", "**", "*" or "".
func MarkFor(p float64) string {
	switch {
	case math.IsNaN(p):
		return ""
	case p <= Level1:
		return Mark1
	case p <= Level5:
		return Mark5
	case p <= Level10:
		return Mark10
	default:
		return ""
	}
}

func untestable(reason string) Result {
	return Result{Outcome: Untestable, Reason: reason}
}

// ChiSquare runs Pearson's chi-square test of independence on m. Tables
// with one degree of freedom get Yates' continuity correction; tables with
// a single row or column have p = 1.
func ChiSquare(m Matrix) Result {
	if m.Size() == 0 {
		return Result{Outcome: NoResult}
	}
	cells := m.Flatten()
	for _, x := range cells {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return untestable("non-finite count")
		}
		if x < 0 {
			return untestable("negative count")
		}
	}
	total, err := stats.Sum(cells)
	if err != nil || total == 0 {
		return Result{Outcome: NoResult}
	}

	rows := len(m)
	cols := len(m[0])
	for _, r := range m {
		if len(r) != cols {
			return untestable("ragged matrix")
		}
	}
	rowSums := make([]float64, rows)
	colSums := make([]float64, cols)
	for i, r := range m {
		rowSums[i], _ = stats.Sum(r)
		for j, x := range r {
			colSums[j] += x
		}
	}
	for _, s := range rowSums {
		if s == 0 {
			return untestable("a choice has no responses")
		}
	}
	for _, s := range colSums {
		if s == 0 {
			return untestable("an attribute group has no responses")
		}
	}

	dof := (rows - 1) * (cols - 1)
	if dof == 0 {
		return Result{Outcome: Tested, PValue: 1, DoF: 0}
	}

	var chi2 float64
	for i := range m {
		for j := range m[i] {
			expected := rowSums[i] * colSums[j] / total
			observed := m[i][j]
			if dof == 1 {
				diff := expected - observed
				observed += math.Copysign(math.Min(0.5, math.Abs(diff)), diff)
			}
			d := observed - expected
			chi2 += d * d / expected
		}
	}
	p := distuv.ChiSquared{K: float64(dof)}.Survival(chi2)
	if math.IsNaN(p) || math.IsNaN(chi2) {
		return untestable("numerical failure")
	}
	return Result{Outcome: Tested, PValue: math.Min(1, math.Max(0, p)), Statistic: chi2, DoF: dof}
}

package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const responses = "QID,questions,choices,total,Male,Female\n" +
	"Q1,好きな色,A,15,10,5\n" +
	"Q1,好きな色,B,20,8,12\n" +
	"Q1,好きな色,全体,35,18,17\n" +
	"Q2,年齢,X,60,50,10\n" +
	"Q2,年齢,Y,60,10,50\n" +
	"Q3,地域,N,15,10,5\n" +
	"Q3,地域,S,0,0,0\n"

func survey(t *testing.T, csv string) *dataset.SurveyTable {
	t.Helper()
	tbl, err := dataset.ParseCSV("responses.csv", []byte(csv))
	require.NoError(t, err)
	s, err := dataset.NewSurveyTable(tbl, nil)
	require.NoError(t, err)
	return s
}

func TestChiSquare_YatesCorrected2x2(t *testing.T) {
	r := ChiSquare(Matrix{{10, 20}, {30, 40}})
	require.Equal(t, Tested, r.Outcome)
	assert.Equal(t, 1, r.DoF)
	assert.InDelta(t, 0.4464, r.Statistic, 1e-4)
	assert.InDelta(t, 0.5040, r.PValue, 1e-4)
	assert.Equal(t, "", r.Mark(DefaultUntestableMark))
}

func TestChiSquare_3x2(t *testing.T) {
	r := ChiSquare(Matrix{{10, 20}, {20, 10}, {15, 15}})
	require.Equal(t, Tested, r.Outcome)
	assert.Equal(t, 2, r.DoF)
	assert.InDelta(t, 6.6667, r.Statistic, 1e-4)
	assert.InDelta(t, math.Exp(-10.0/3), r.PValue, 1e-6)
	assert.Equal(t, Mark5, r.Mark(DefaultUntestableMark))
}

func TestChiSquare_StrongAssociation(t *testing.T) {
	r := ChiSquare(Matrix{{50, 10}, {10, 50}})
	require.Equal(t, Tested, r.Outcome)
	assert.Equal(t, Mark1, r.Mark(DefaultUntestableMark))
}

func TestChiSquare_Degenerate(t *testing.T) {
	cases := map[string]Matrix{
		"zero row":    {{10, 5}, {0, 0}},
		"zero column": {{10, 0}, {8, 0}},
		"negative":    {{10, -1}, {8, 3}},
		"ragged":      {{10, 5}, {8}},
		"nan":         {{10, math.NaN()}, {8, 3}},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			r := ChiSquare(m)
			assert.Equal(t, Untestable, r.Outcome)
			assert.False(t, r.HasPValue())
			assert.Equal(t, "検定不可", r.Mark(DefaultUntestableMark))
			assert.NotEmpty(t, r.Reason)
		})
	}
}

func TestChiSquare_NoResult(t *testing.T) {
	for _, m := range []Matrix{nil, {}, {{0, 0}, {0, 0}}} {
		r := ChiSquare(m)
		assert.Equal(t, NoResult, r.Outcome)
		assert.Equal(t, "", r.Mark(DefaultUntestableMark))
	}
}

func TestChiSquare_SingleRowHasPOne(t *testing.T) {
	r := ChiSquare(Matrix{{3, 4}})
	require.Equal(t, Tested, r.Outcome)
	assert.Equal(t, 0, r.DoF)
	assert.Equal(t, 1.0, r.PValue)
}

func TestMarkFor_Boundaries(t *testing.T) {
	assert.Equal(t, "***", MarkFor(0.01))
	assert.Equal(t, "**", MarkFor(0.010001))
	assert.Equal(t, "**", MarkFor(0.05))
	assert.Equal(t, "*", MarkFor(0.05001))
	assert.Equal(t, "*", MarkFor(0.10))
	assert.Equal(t, "", MarkFor(0.1001))
	assert.Equal(t, "", MarkFor(math.NaN()))
}

func TestChiSquare_GeneratedTablesStayInRange(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	wantMark := func(p float64) string {
		switch {
		case p <= 0.01:
			return "***"
		case p <= 0.05:
			return "**"
		case p <= 0.10:
			return "*"
		}
		return ""
	}
	for i := 0; i < 300; i++ {
		rows, cols := 1+rng.Intn(5), 1+rng.Intn(5)
		m := make(Matrix, rows)
		for r := range m {
			m[r] = make([]float64, cols)
			scale := 1 + rng.Intn(20)
			for c := range m[r] {
				m[r][c] = float64(1 + rng.Intn(50*scale))
			}
		}
		name := fmt.Sprintf("%d:%v", i, m)
		res := ChiSquare(m)
		require.Equal(t, Tested, res.Outcome, name)
		assert.Equal(t, (rows-1)*(cols-1), res.DoF, name)
		assert.GreaterOrEqual(t, res.PValue, 0.0, name)
		assert.LessOrEqual(t, res.PValue, 1.0, name)
		assert.GreaterOrEqual(t, res.Statistic, 0.0, name)
		assert.Equal(t, wantMark(res.PValue), res.Mark(DefaultUntestableMark), name)
	}
}

func TestExtractGroup_SkipsTotalRow(t *testing.T) {
	s := survey(t, responses)
	m, err := ExtractGroup(s, "Q1")
	require.NoError(t, err)
	assert.Equal(t, Matrix{{10, 5}, {8, 12}}, m)

	r := ChiSquare(m)
	require.Equal(t, Tested, r.Outcome)
	assert.InDelta(t, 0.2222, r.PValue, 1e-3)
	assert.Equal(t, "", r.Mark(DefaultUntestableMark))
}

func TestExtractGroup_BlankAndInvalidCells(t *testing.T) {
	s := survey(t, "QID,choices,G1,G2\nQ1,A,\"1,200\",\nQ2,A,x,1\n")
	m, err := ExtractGroup(s, "Q1")
	require.NoError(t, err)
	assert.Equal(t, Matrix{{1200, 0}}, m)

	_, err = ExtractGroup(s, "Q2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Q2")
}

func TestAnalyze_NoAttributeColumns(t *testing.T) {
	s := survey(t, "QID,questions,choices,total\nQ1,a,A,1\n")
	_, err := Analyze(s, nil)
	require.ErrorIs(t, err, ErrNoAttributeColumns)
	assert.True(t, core.IsConfigError(err))
}

func TestAnalyze_PerQuestionOutcomes(t *testing.T) {
	s := survey(t, responses+"Q4,不正,A,1,x,1\nQ4,不正,B,1,1,1\n")
	rep, err := Analyze(s, nil)
	require.NoError(t, err)
	require.Len(t, rep.Questions, 4)
	assert.Equal(t, []string{"Male", "Female"}, rep.Attributes)

	res := rep.Results()
	assert.Equal(t, Tested, res["Q1"].Outcome)
	assert.Equal(t, Mark1, res["Q2"].Mark(""))
	assert.Equal(t, Untestable, res["Q3"].Outcome)
	assert.Equal(t, Untestable, res["Q4"].Outcome)
	assert.Equal(t, 2, rep.Count(Untestable))
	assert.Equal(t, "好きな色", rep.Questions[0].Title)

	md := rep.Markdown(Columns{})
	assert.Contains(t, md, "比較属性: Male, Female")
	assert.Contains(t, md, "| Q3 | 地域 |  | 検定不可 |")
}

func TestFlat_EveryRowCarriesResult(t *testing.T) {
	s := survey(t, responses)
	rep, err := Analyze(s, nil)
	require.NoError(t, err)

	out := Flat(s, rep.Results(), DefaultColumns())
	require.Len(t, out.Rows, len(s.Rows))
	assert.Equal(t, append(append([]string(nil), s.Header...), "p値", "有意水準"), out.Header)
	pi, mi := out.ColumnIndex("p値"), out.ColumnIndex("有意水準")
	for i, row := range out.Rows {
		assert.Equal(t, s.Rows[i], row[:len(s.Header)], "row %d preserved", i)
	}
	assert.Equal(t, out.Rows[0][pi], out.Rows[2][pi])
	assert.NotEmpty(t, out.Rows[0][pi])
	assert.Equal(t, "***", out.Rows[3][mi])
	assert.Equal(t, "", out.Rows[5][pi])
	assert.Equal(t, "検定不可", out.Rows[6][mi])
}

func TestFlat_OverwritesExistingColumns(t *testing.T) {
	s := survey(t, "QID,choices,G1,G2,有意水準\nQ1,A,10,5,old\nQ1,B,8,12,old\n")
	res := map[string]Result{"Q1": {Outcome: Tested, PValue: 0.5}}
	out := Flat(s, res, Columns{Untestable: "n/a"})
	assert.Equal(t, []string{"QID", "choices", "G1", "G2", "有意水準", "p値"}, out.Header)
	assert.Equal(t, "", out.Rows[0][4])
	assert.Equal(t, "0.5", out.Rows[1][5])
	assert.Equal(t, "old", s.Rows[0][4], "input untouched")
}

func TestSparse_SummaryAndAnchors(t *testing.T) {
	s := survey(t, responses)
	rep, err := Analyze(s, nil)
	require.NoError(t, err)

	summary, detail := Sparse(s, rep.Results(), DefaultColumns())
	require.Len(t, summary.Rows, 3)
	assert.Equal(t, []string{"QID", "questions", "p値", "有意水準"}, summary.Header)
	assert.Equal(t, "Q1", summary.Rows[0][0])
	assert.Equal(t, "0.2222", summary.Rows[0][2])
	assert.Equal(t, []string{"Q3", "地域", "", "検定不可"}, summary.Rows[2])

	pi := detail.ColumnIndex("p値")
	filled := 0
	for _, row := range detail.Rows {
		if row[pi] != "" {
			filled++
		}
	}
	// Q1 anchors on its total row, Q2 on its first row; Q3 has no p-value.
	assert.Equal(t, 2, filled)
	assert.Equal(t, "0.2222", detail.Rows[2][pi])
	assert.Equal(t, "", detail.Rows[0][pi])
	assert.NotEmpty(t, detail.Rows[3][pi])
	assert.Equal(t, "検定不可", detail.Rows[5][detail.ColumnIndex("有意水準")])
	assert.Equal(t, -1, AnchorRow(s, "Q9"))
}

func TestFormatPValue(t *testing.T) {
	r := Result{Outcome: Tested, PValue: 0.035674}
	assert.Equal(t, "0.035674", FormatPValue(r))
	assert.Equal(t, "0.0357", FormatPValue4(r))
	assert.Equal(t, "", FormatPValue(Result{Outcome: Untestable}))
	assert.True(t, strings.HasPrefix(Outcome(Untestable).String(), "untest"))
}

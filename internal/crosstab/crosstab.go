package crosstab

import (
	"fmt"
	"sort"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
	"github.com/KaramelBytes/crosstab-cli/internal/parser"
	"github.com/montanaflynn/stats"
)

// Sheet names of the workbook export.
const (
	SheetCounts  = "度数表"
	SheetPercent = "構成比"
)

// DefaultMargin labels the marginal total row and column.
const DefaultMargin = "Total"

// ErrQuestionNotFound reports a selected question that is not a column of
// the response data.
var ErrQuestionNotFound = fmt.Errorf("%w: question not found in response data", core.ErrConfig)

// Order selects how row and column labels are sorted.
type Order string

const (
	// OrderLexical sorts labels by string value.
	OrderLexical Order = "lexical"
	// OrderAppearance keeps the order labels are first seen in the data.
	OrderAppearance Order = "appearance"
	// OrderDefinition follows the choice order of the definition document,
	// then any remaining labels lexically.
	OrderDefinition Order = "definition"
)

// ParseOrder validates an order name; empty means lexical.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "", OrderLexical:
		return OrderLexical, nil
	case OrderAppearance, OrderDefinition:
		return Order(s), nil
	}
	return "", core.NewConfigError("invalid order: %s (use lexical|appearance|definition)", s)
}

// Options controls tabulation.
type Options struct {
	NoAnswer string
	Margin   string
	Order    Order
}

func (o Options) withDefaults() Options {
	if o.NoAnswer == "" {
		o.NoAnswer = DefaultNoAnswer
	}
	if o.Margin == "" {
		o.Margin = DefaultMargin
	}
	if o.Order == "" {
		o.Order = OrderLexical
	}
	return o
}

// Table is a two-way frequency table between a row question and a column
// question.
type Table struct {
	RowQID   string
	ColQID   string
	RowTitle string
	ColTitle string
	Margin   string

	RowLabels []string
	ColLabels []string
	Counts    [][]int
	RowTotals []int
	ColTotals []int
	N         int
}

// Tabulate resolves both questions in raw, maps their answers to labels via
// defs, and builds the frequency table. Questions missing from defs are
// tabulated on their cleaned raw codes.
func Tabulate(raw *dataset.RawTable, defs *parser.Definitions, rowQID, colQID string, opt Options) (*Table, error) {
	opt = opt.withDefaults()
	rowCells, ok := raw.Column(rowQID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, rowQID)
	}
	colCells, ok := raw.Column(colQID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, colQID)
	}
	rq, _ := defs.Get(rowQID)
	cq, _ := defs.Get(colQID)

	c := NewCleaner(opt.NoAnswer)
	t, err := Build(c.Labels(rowCells, rq), c.Labels(colCells, cq), opt, rq, cq)
	if err != nil {
		return nil, err
	}
	t.RowQID, t.ColQID = rowQID, colQID
	t.RowTitle, t.ColTitle = rowQID, colQID
	if rq != nil {
		t.RowTitle = rq.Title
	}
	if cq != nil {
		t.ColTitle = cq.Title
	}
	return t, nil
}

// Build counts (row, column) label pairs. rowDef and colDef are only used
// for OrderDefinition and may be nil.
func Build(rows, cols []string, opt Options, rowDef, colDef *parser.Question) (*Table, error) {
	if len(rows) != len(cols) {
		return nil, fmt.Errorf("crosstab: row and column lengths differ (%d vs %d)", len(rows), len(cols))
	}
	opt = opt.withDefaults()
	t := &Table{
		Margin:    opt.Margin,
		RowLabels: orderLabels(rows, opt.Order, rowDef),
		ColLabels: orderLabels(cols, opt.Order, colDef),
	}
	ri := indexOf(t.RowLabels)
	ci := indexOf(t.ColLabels)
	t.Counts = make([][]int, len(t.RowLabels))
	for i := range t.Counts {
		t.Counts[i] = make([]int, len(t.ColLabels))
	}
	t.RowTotals = make([]int, len(t.RowLabels))
	t.ColTotals = make([]int, len(t.ColLabels))
	for k := range rows {
		i, j := ri[rows[k]], ci[cols[k]]
		t.Counts[i][j]++
		t.RowTotals[i]++
		t.ColTotals[j]++
		t.N++
	}
	return t, nil
}

// Share returns the row-normalised share of cell (i, j) in percent, rounded
// to one decimal place.
func (t *Table) Share(i, j int) float64 {
	if t.RowTotals[i] == 0 {
		return 0
	}
	p, _ := stats.Round(100*float64(t.Counts[i][j])/float64(t.RowTotals[i]), 1)
	return p
}

// ShareLabel formats Share as a percentage string such as "33.3%".
func (t *Table) ShareLabel(i, j int) string {
	return fmt.Sprintf("%.1f%%", t.Share(i, j))
}

// Grid is a labelled table ready for rendering or export.
type Grid struct {
	Name    string
	Corner  string
	Columns []string
	Index   []string
	Cells   [][]any
}

// CountGrid returns the frequency table with a marginal total row and column.
func (t *Table) CountGrid() Grid {
	g := Grid{
		Name:    SheetCounts,
		Corner:  t.RowQID,
		Columns: append(append([]string(nil), t.ColLabels...), t.Margin),
		Index:   append(append([]string(nil), t.RowLabels...), t.Margin),
	}
	for i := range t.RowLabels {
		row := make([]any, 0, len(t.ColLabels)+1)
		for j := range t.ColLabels {
			row = append(row, t.Counts[i][j])
		}
		g.Cells = append(g.Cells, append(row, t.RowTotals[i]))
	}
	last := make([]any, 0, len(t.ColLabels)+1)
	for j := range t.ColLabels {
		last = append(last, t.ColTotals[j])
	}
	g.Cells = append(g.Cells, append(last, t.N))
	return g
}

// PercentGrid returns the row-percentage table; it has no margins.
func (t *Table) PercentGrid() Grid {
	g := Grid{
		Name:    SheetPercent,
		Corner:  t.RowQID,
		Columns: append([]string(nil), t.ColLabels...),
		Index:   append([]string(nil), t.RowLabels...),
	}
	for i := range t.RowLabels {
		row := make([]any, len(t.ColLabels))
		for j := range t.ColLabels {
			row[j] = t.ShareLabel(i, j)
		}
		g.Cells = append(g.Cells, row)
	}
	return g
}

func orderLabels(values []string, order Order, def *parser.Question) []string {
	seen := map[string]struct{}{}
	var uniq []string
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		uniq = append(uniq, v)
	}
	switch order {
	case OrderAppearance:
		return uniq
	case OrderDefinition:
		var out []string
		placed := map[string]struct{}{}
		if def != nil {
			for _, code := range def.Codes() {
				l := def.Label(code)
				if _, ok := seen[l]; !ok {
					continue
				}
				if _, dup := placed[l]; dup {
					continue
				}
				placed[l] = struct{}{}
				out = append(out, l)
			}
		}
		var rest []string
		for _, v := range uniq {
			if _, ok := placed[v]; !ok {
				rest = append(rest, v)
			}
		}
		sort.Strings(rest)
		return append(out, rest...)
	default:
		sort.Strings(uniq)
		return uniq
	}
}

func indexOf(labels []string) map[string]int {
	m := make(map[string]int, len(labels))
	for i, l := range labels {
		m[l] = i
	}
	return m
}

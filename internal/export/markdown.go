package export

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/crosstab-cli/internal/crosstab"
	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
)

// TableMarkdown renders t as a pipe table.
func TableMarkdown(t *dataset.Table) string {
	var b strings.Builder
	writeRow(&b, t.Header)
	writeRule(&b, len(t.Header))
	for _, r := range t.Rows {
		writeRow(&b, r)
	}
	return b.String()
}

// GridMarkdown renders g as a pipe table under a level-3 heading.
func GridMarkdown(g crosstab.Grid) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("### %s\n\n", g.Name))
	writeRow(&b, append([]string{g.Corner}, g.Columns...))
	writeRule(&b, len(g.Columns)+1)
	for i, label := range g.Index {
		row := make([]string, 0, len(g.Columns)+1)
		row = append(row, label)
		for _, v := range g.Cells[i] {
			row = append(row, fmt.Sprint(v))
		}
		writeRow(&b, row)
	}
	return b.String()
}

// CrosstabMarkdown renders both crosstab views titled by the column question.
func CrosstabMarkdown(t *crosstab.Table) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## 分析結果: %s\n\n", t.ColTitle))
	b.WriteString(fmt.Sprintf("Rows: %s (%s) / Columns: %s (%s) / N = %d\n\n", t.RowQID, t.RowTitle, t.ColQID, t.ColTitle, t.N))
	b.WriteString(GridMarkdown(t.CountGrid()))
	b.WriteString("\n")
	b.WriteString(GridMarkdown(t.PercentGrid()))
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func writeRule(b *strings.Builder, n int) {
	b.WriteString("|")
	for i := 0; i < n; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

package parser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/crosstab-cli/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitionDoc = "# 住民アンケート\n\n" +
	"## Q1 お住まいの地区を教えてください\n\n" +
	"```yaml {#q1 .single}\n" +
	"qid: Q1\n" +
	"type: single\n" +
	"choices:\n" +
	"  1: \"北地区\"\n" +
	"  \"2\": 南地区\n" +
	"  3: '東地区' # comment\n" +
	"  this line is not a choice\n" +
	"required: true\n" +
	"  9: \"ignored, choices already closed\"\n" +
	"```\n\n" +
	"## Q2 満足度\n\n" +
	"```yaml\n" +
	"qid: Q2\n" +
	"```\n\n" +
	"```yaml\n" +
	"type: note\n" +
	"choices:\n" +
	"  1: orphan\n" +
	"```\n\n" +
	"```yaml {#q3}\n" +
	"qid: Q3\n" +
	"choices:\n" +
	"  a-1: Yes\n" +
	"  b: \n" +
	"\n" +
	"  c: \"No: never\"\n" +
	"```\n\n" +
	"```python\n" +
	"## Q4 not a heading inside code\n" +
	"```\n"

func TestParse_Document(t *testing.T) {
	defs := parser.Parse(definitionDoc, nil)
	require.Equal(t, []string{"Q1", "Q2", "Q3"}, defs.IDs())

	q1, ok := defs.Get("Q1")
	require.True(t, ok)
	assert.Equal(t, "お住まいの地区を教えてください", q1.Title)
	assert.Equal(t, map[string]string{"1": "北地区", "2": "南地区", "3": "東地区"}, q1.Choices())
	assert.Equal(t, []string{"1", "2", "3"}, q1.Codes())

	q2, ok := defs.Get("Q2")
	require.True(t, ok)
	assert.Equal(t, "満足度", q2.Title)
	assert.False(t, q2.HasChoices())
	assert.Equal(t, "5", q2.Label("5"))

	q3, ok := defs.Get("Q3")
	require.True(t, ok)
	assert.Equal(t, "Q3", q3.Title, "title falls back to the QID")
	assert.Equal(t, map[string]string{"a-1": "Yes", "c": "No: never"}, q3.Choices())

	_, ok = defs.Get("Q4")
	assert.False(t, ok)
}

func TestParse_Idempotent(t *testing.T) {
	a := parser.Parse(definitionDoc, nil)
	b := parser.Parse(definitionDoc, nil)
	require.Equal(t, a.IDs(), b.IDs())
	for _, id := range a.IDs() {
		qa, _ := a.Get(id)
		qb, _ := b.Get(id)
		assert.Equal(t, qa, qb)
	}
}

func TestParse_CRLFAndUnclosedBlock(t *testing.T) {
	doc := "## A1 Title A\r\n```yml\r\nqid: A1\r\nchoices:\r\n  1: one\r\n```\r\n```yaml\r\nqid: A2\r\n"
	defs := parser.Parse(doc, nil)
	assert.Equal(t, []string{"A1"}, defs.IDs())
	q, _ := defs.Get("A1")
	assert.Equal(t, "Title A", q.Title)
	assert.Equal(t, "one", q.Label("1"))
}

func TestParse_RepeatedQIDKeepsPosition(t *testing.T) {
	doc := "```yaml\nqid: B\n```\n```yaml\nqid: C\n```\n```yaml\nqid: B\nchoices:\n  1: late\n```\n"
	defs := parser.Parse(doc, nil)
	assert.Equal(t, []string{"B", "C"}, defs.IDs())
	q, _ := defs.Get("B")
	assert.Equal(t, "late", q.Label("1"))
}

func TestParse_MalformedQIDSkipsBlock(t *testing.T) {
	defs := parser.Parse("```yaml\nqid: \"two words\"\n```\n", nil)
	assert.Equal(t, 0, defs.Len())
}

func TestDefinitions_Selectable(t *testing.T) {
	defs := parser.Parse(definitionDoc, nil)
	assert.Equal(t, []string{"Q1", "Q3"}, defs.Selectable([]string{"Q3", "Q1", "ID"}))
	assert.Empty(t, defs.Selectable(nil))
}

func TestParseFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "defs.md")
	require.NoError(t, os.WriteFile(p, []byte(definitionDoc), 0o644))
	defs, err := parser.ParseFile(p, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, defs.Len())

	_, err = parser.ParseFile(filepath.Join(t.TempDir(), "missing.md"), nil)
	assert.Error(t, err)
}

func TestParse_FullWidthSpaces(t *testing.T) {
	doc := "## Q1　性別\n```yaml\nqid: Q1\nchoices:\n　　1: 男性\n　　2　:　女性\n```\n" +
		"##　Q2　年齢　\n```yaml\nqid　: Q2\n```\n"
	defs := parser.Parse(doc, nil)
	require.Equal(t, []string{"Q1", "Q2"}, defs.IDs())

	q1, ok := defs.Get("Q1")
	require.True(t, ok)
	assert.Equal(t, "性別", q1.Title)
	assert.Equal(t, map[string]string{"1": "男性", "2": "女性"}, q1.Choices())
	assert.Equal(t, []string{"1", "2"}, q1.Codes())

	q2, ok := defs.Get("Q2")
	require.True(t, ok)
	assert.Equal(t, "年齢", q2.Title)
}

package crosstab

import (
	"regexp"

	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
	"github.com/KaramelBytes/crosstab-cli/internal/parser"
)

// DefaultNoAnswer is the label given to missing answers.
const DefaultNoAnswer = "No Answer"

// floatCodeRe matches integer codes stored in numeric columns ("3.0", "12.").
var floatCodeRe = regexp.MustCompile(`^([+-]?\d+)\.0*$`)

// CleanCode strips the decimal tail from a float-encoded integer code.
// Any other value is returned as is.
func CleanCode(v string) string {
	if m := floatCodeRe.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

// Cleaner turns raw answer cells into display labels.
type Cleaner struct {
	NoAnswer string
}

func NewCleaner(noAnswer string) Cleaner {
	if noAnswer == "" {
		noAnswer = DefaultNoAnswer
	}
	return Cleaner{NoAnswer: noAnswer}
}

// Label cleans one cell and maps it through q's choices. Missing cells get
// the no-answer label; codes without a choice entry pass through.
func (c Cleaner) Label(cell dataset.Cell, q *parser.Question) string {
	if cell.Missing {
		return c.NoAnswer
	}
	return q.Label(CleanCode(cell.Value))
}

// Labels applies Label to a whole column.
func (c Cleaner) Labels(cells []dataset.Cell, q *parser.Question) []string {
	out := make([]string, len(cells))
	for i, cell := range cells {
		out[i] = c.Label(cell, q)
	}
	return out
}

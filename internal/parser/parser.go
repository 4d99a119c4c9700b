package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// blockState is the position of the block walker inside one structured block.
type blockState int

const (
	stateBody blockState = iota
	stateChoices
)

var (
	keyRe    = regexp.MustCompile(`^([A-Za-z_][\w\-]*)[\s\p{Zs}]*:[\s\p{Zs}]*(.*)$`)
	choiceRe = regexp.MustCompile(`^[\s\p{Zs}]+["']?([\p{L}\p{N}_\-]+)["']?[\s\p{Zs}]*:[\s\p{Zs}]*(.*)$`)
	qidRe    = regexp.MustCompile(`^[\p{L}\p{N}_\-]+$`)
)

// ParseFile reads and parses a definition document from disk.
func ParseFile(path string, logger *zap.Logger) (*Definitions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	defs, err := ParseBytes(b, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return defs, nil
}

// ParseBytes decodes an uploaded definition document (UTF-8 or cp932) and
// parses it.
func ParseBytes(b []byte, logger *zap.Logger) (*Definitions, error) {
	text, _, err := dataset.Decode(b)
	if err != nil {
		return nil, err
	}
	return Parse(text, logger), nil
}

// Parse builds the question dictionary of a definition document.
//
// Headings "## <QID> <title>" supply titles; each ```yaml block with a qid
// key yields one question, titled by its heading or, failing that, by the
// QID itself. Malformed lines and blocks without a qid are skipped. Parsing
// never fails.
func Parse(doc string, logger *zap.Logger) *Definitions {
	if logger == nil {
		logger = zap.NewNop()
	}
	titles := map[string]string{}
	var blocks [][]token
	var cur []token
	for _, tk := range lex(doc) {
		switch tk.kind {
		case tokHeading:
			if tk.title != "" {
				titles[tk.qid] = tk.title
			}
		case tokBlockOpen:
			cur = []token{}
		case tokBlockLine:
			cur = append(cur, tk)
		case tokBlockClose:
			blocks = append(blocks, cur)
			cur = nil
		}
	}

	defs := newDefinitions()
	for _, b := range blocks {
		q := parseBlock(b, logger)
		if q == nil {
			continue
		}
		q.Title = q.ID
		if t, ok := titles[q.ID]; ok {
			q.Title = t
		}
		defs.put(q)
	}
	return defs
}

// parseBlock walks the lines of one structured block. It returns nil when
// the block has no usable qid.
func parseBlock(lines []token, logger *zap.Logger) *Question {
	q := &Question{choices: map[string]string{}}
	state := stateBody
	for _, tk := range lines {
		line := strings.TrimRightFunc(tk.text, unicode.IsSpace)
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		first, _ := utf8.DecodeRuneInString(line)
		indented := unicode.IsSpace(first)

		if !indented {
			m := keyRe.FindStringSubmatch(line)
			if m == nil {
				logger.Debug("skip definition line", zap.Int("line", tk.line), zap.String("text", line))
				continue
			}
			switch m[1] {
			case "qid":
				id := scalar(m[2])
				if qidRe.MatchString(id) {
					q.ID = id
				} else {
					logger.Debug("skip malformed qid", zap.Int("line", tk.line), zap.String("value", m[2]))
				}
				state = stateBody
			case "choices":
				state = stateChoices
			default:
				state = stateBody
			}
			continue
		}

		if state != stateChoices {
			continue
		}
		m := choiceRe.FindStringSubmatch(line)
		if m == nil {
			logger.Debug("skip choice line", zap.Int("line", tk.line), zap.String("text", line))
			continue
		}
		label := scalar(m[2])
		if label == "" {
			logger.Debug("skip choice without label", zap.Int("line", tk.line), zap.String("code", m[1]))
			continue
		}
		if _, seen := q.choices[m[1]]; !seen {
			q.codes = append(q.codes, m[1])
		}
		q.choices[m[1]] = label
	}
	if q.ID == "" {
		logger.Debug("skip block without qid", zap.Int("line", firstLine(lines)))
		return nil
	}
	return q
}

// scalar reads a YAML scalar value: quotes are removed, escapes resolved and
// trailing comments dropped. Values YAML cannot read as a scalar fall back
// to the trimmed text with surrounding quotes stripped.
func scalar(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	var n yaml.Node
	if err := yaml.Unmarshal([]byte(v), &n); err == nil && len(n.Content) == 1 && n.Content[0].Kind == yaml.ScalarNode {
		return n.Content[0].Value
	}
	return strings.Trim(v, `"'`)
}

func firstLine(lines []token) int {
	if len(lines) == 0 {
		return 0
	}
	return lines[0].line
}

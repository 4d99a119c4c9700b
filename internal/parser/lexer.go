package parser

import (
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokText tokenKind = iota
	tokHeading
	tokBlockOpen
	tokBlockLine
	tokBlockClose
)

func (k tokenKind) String() string {
	switch k {
	case tokHeading:
		return "heading"
	case tokBlockOpen:
		return "block-open"
	case tokBlockLine:
		return "block-line"
	case tokBlockClose:
		return "block-close"
	default:
		return "text"
	}
}

// token is one classified line of a definition document.
type token struct {
	kind tokenKind
	line int // 1-based
	text string

	// heading only
	qid   string
	title string
}

const fence = "```"

// Separators include the full-width space (U+3000) common in Japanese documents.
var headingRe = regexp.MustCompile(`^##[\s\p{Zs}]+([\p{L}\p{N}_\-]+)(?:[\s\p{Zs}]+(.*?))?[\s\p{Zs}]*$`)

// lex splits a document into tokens. Only fences whose info string starts
// with yaml/yml produce block tokens; lines inside any other fence are text,
// so headings quoted in code samples are not picked up. A structured block
// left open at end of input is dropped.
func lex(doc string) []token {
	lines := strings.Split(normalizeNewlines(doc), "\n")
	var (
		out        []token
		inFence    bool
		structured bool
		pending    []token
	)
	for i, raw := range lines {
		n := i + 1
		trimmed := strings.TrimSpace(raw)
		if inFence {
			if strings.HasPrefix(trimmed, fence) && strings.TrimSpace(strings.TrimLeft(trimmed, "`")) == "" {
				if structured {
					out = append(out, pending...)
					out = append(out, token{kind: tokBlockClose, line: n, text: raw})
					pending = nil
				}
				inFence, structured = false, false
				continue
			}
			if structured {
				pending = append(pending, token{kind: tokBlockLine, line: n, text: raw})
			} else {
				out = append(out, token{kind: tokText, line: n, text: raw})
			}
			continue
		}
		if strings.HasPrefix(trimmed, fence) {
			inFence = true
			structured = isStructuredInfo(strings.TrimLeft(trimmed, "`"))
			if structured {
				pending = []token{{kind: tokBlockOpen, line: n, text: raw}}
			} else {
				out = append(out, token{kind: tokText, line: n, text: raw})
			}
			continue
		}
		if m := headingRe.FindStringSubmatch(raw); m != nil {
			out = append(out, token{kind: tokHeading, line: n, text: raw, qid: m[1], title: strings.TrimSpace(m[2])})
			continue
		}
		out = append(out, token{kind: tokText, line: n, text: raw})
	}
	return out
}

// isStructuredInfo accepts "yaml", "yml", and either followed by attributes
// such as "yaml {#q1 .single}".
func isStructuredInfo(info string) bool {
	info = strings.TrimSpace(info)
	word := info
	if i := strings.IndexAny(info, " \t{"); i >= 0 {
		word = info[:i]
	}
	switch strings.ToLower(word) {
	case "yaml", "yml":
		return true
	}
	return false
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

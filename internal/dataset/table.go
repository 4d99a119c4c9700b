package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/xuri/excelize/v2"
)

// Table is a header row plus string records. Every record is padded or
// truncated to the header width.
type Table struct {
	Name     string
	Encoding string
	Header   []string
	Rows     [][]string
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Load reads a CSV/TSV or .xlsx file from disk.
func Load(path string) (*Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return Parse(filepath.Base(path), b)
}

// Parse picks a reader by file extension; anything that is not .xlsx is
// treated as delimited text.
func Parse(name string, data []byte) (*Table, error) {
	if strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		return ParseXLSX(name, data)
	}
	return ParseCSV(name, data)
}

// ParseCSV decodes data (utf-8, then cp932) and reads it as a headed CSV.
// A .tsv name switches the delimiter to tab.
func ParseCSV(name string, data []byte) (*Table, error) {
	text, enc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		r.Comma = '\t'
	}

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, core.NewInputError("%s: empty file (header row required)", name)
		}
		return nil, core.NewInputError("%s: read header: %v", name, err)
	}
	t := &Table{Name: name, Encoding: enc, Header: cleanHeader(header)}
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, core.NewInputError("%s: read row %d: %v", name, len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, fit(rec, len(t.Header)))
	}
	return t, nil
}

// ParseXLSX reads the first sheet of a workbook; its first row is the header.
func ParseXLSX(name string, data []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, core.NewInputError("%s: open xlsx: %v", name, err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewInputError("%s: workbook has no sheets", name)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, core.NewInputError("%s: read sheet %q: %v", name, sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, core.NewInputError("%s: empty sheet %q (header row required)", name, sheets[0])
	}
	t := &Table{Name: name, Encoding: EncodingXLSX, Header: cleanHeader(rows[0])}
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, fit(row, len(t.Header)))
	}
	return t, nil
}

func cleanHeader(h []string) []string {
	out := make([]string, len(h))
	for i, name := range h {
		out[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}
	return out
}

func fit(rec []string, n int) []string {
	out := make([]string, n)
	copy(out, rec)
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

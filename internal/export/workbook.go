package export

import (
	"bytes"
	"fmt"

	"github.com/KaramelBytes/crosstab-cli/internal/crosstab"
	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// Workbook builds the two-sheet crosstab workbook: counts with margins on
// "度数表" and row percentages on "構成比". The caller closes the file.
func Workbook(t *crosstab.Table) (*excelize.File, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("workbook style: %w", err)
	}
	for i, g := range []crosstab.Grid{t.CountGrid(), t.PercentGrid()} {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, g.Name); err != nil {
				_ = f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(g.Name); err != nil {
			_ = f.Close()
			return nil, err
		}
		if err := writeGrid(f, g, bold); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %s: %w", g.Name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WorkbookBytes renders the crosstab workbook in memory.
func WorkbookBytes(t *crosstab.Table) ([]byte, error) {
	f, err := Workbook(t)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeGrid(f *excelize.File, g crosstab.Grid, bold int) error {
	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(g.Name, cell, v)
	}
	if err := set(1, 1, g.Corner); err != nil {
		return err
	}
	for j, c := range g.Columns {
		if err := set(j+2, 1, c); err != nil {
			return err
		}
	}
	for i, label := range g.Index {
		if err := set(1, i+2, label); err != nil {
			return err
		}
		for j, v := range g.Cells[i] {
			if err := set(j+2, i+2, v); err != nil {
				return err
			}
		}
	}
	last, err := excelize.CoordinatesToCellName(len(g.Columns)+1, 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(g.Name, "A1", last, bold); err != nil {
		return err
	}
	if len(g.Index) > 0 {
		end, _ := excelize.CoordinatesToCellName(1, len(g.Index)+1)
		return f.SetCellStyle(g.Name, "A2", end, bold)
	}
	return nil
}

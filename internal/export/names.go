package export

import (
	"fmt"
	"regexp"
	"time"
)

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}_\-]+`)

// ResultsFileName is the default name of the annotated CSV for a run on day.
func ResultsFileName(day time.Time) string {
	return fmt.Sprintf("cross_tab_results_%s.csv", day.Format("20060102"))
}

// SummaryFileName is the default name of the sparse-mode summary CSV.
func SummaryFileName(day time.Time) string {
	return fmt.Sprintf("cross_tab_summary_%s.csv", day.Format("20060102"))
}

// WorkbookFileName is the default name of the crosstab workbook.
func WorkbookFileName(rowQID, colQID string) string {
	return fmt.Sprintf("crosstab_%s_%s.xlsx", sanitize(rowQID), sanitize(colQID))
}

func sanitize(s string) string {
	s = unsafeName.ReplaceAllString(s, "_")
	if s == "" {
		return "_"
	}
	return s
}

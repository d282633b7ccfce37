package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ColumnType classifies the dominant value kind of a spreadsheet column.
type ColumnType string

const (
	ColumnNumeric ColumnType = "numeric"
	ColumnDate    ColumnType = "date"
	ColumnText    ColumnType = "text"
	ColumnEmpty   ColumnType = "empty"
)

// classifyThreshold is the share of non-empty cells that must parse as a
// type before the column is classified as that type.
const classifyThreshold = 0.8

// ColumnStats carries the classification and basic statistics of one column.
// Min/Max/Avg are present only for numeric columns and are computed over
// the cells that actually parse as numbers.
type ColumnStats struct {
	Type     ColumnType `json:"type"`
	Count    int        `json:"count"`
	Distinct int        `json:"distinct"`
	Min      *float64   `json:"min,omitempty"`
	Max      *float64   `json:"max,omitempty"`
	Avg      *float64   `json:"avg,omitempty"`
}

// Sheet is the extracted form of one worksheet.
type Sheet struct {
	Name        string                 `json:"name"`
	Headers     []string               `json:"headers"`
	Rows        [][]string             `json:"rows"`
	RowCount    int                    `json:"row_count"`
	ColumnCount int                    `json:"column_count"`
	Columns     map[string]ColumnStats `json:"columns,omitempty"`
}

type spreadsheetPayload struct {
	Kind       string  `json:"kind"`
	SheetCount int     `json:"sheet_count"`
	Sheets     []Sheet `json:"sheets"`
}

func extractWorkbook(data []byte) Result {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return failure(fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return failure(fmt.Errorf("read sheet %q: %w", name, err))
		}
		sheets = append(sheets, buildSheet(name, rows))
	}
	return spreadsheetResult(sheets, len(data))
}

func extractCSV(data []byte) Result {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return failure(fmt.Errorf("parse csv: %w", err))
	}
	return spreadsheetResult([]Sheet{buildSheet("Sheet1", rows)}, len(data))
}

func spreadsheetResult(sheets []Sheet, fileSize int) Result {
	payload := spreadsheetPayload{Kind: "spreadsheet", SheetCount: len(sheets), Sheets: sheets}
	raw, err := json.Marshal(payload)
	if err != nil {
		return failure(fmt.Errorf("encode spreadsheet payload: %w", err))
	}

	var b strings.Builder
	names := make([]string, 0, len(sheets))
	for _, s := range sheets {
		names = append(names, s.Name)
		fmt.Fprintf(&b, "--- Sheet: %s ---\n", s.Name)
		if len(s.Headers) > 0 {
			b.WriteString(strings.Join(s.Headers, ",") + "\n")
		}
		for _, row := range s.Rows {
			b.WriteString(strings.Join(row, ",") + "\n")
		}
	}

	return Result{
		Success: true,
		Content: strings.TrimSpace(b.String()),
		Metadata: map[string]any{
			"file_size":   fileSize,
			"sheet_count": len(sheets),
			"sheet_names": names,
		},
		Data: raw,
	}
}

// buildSheet splits the first row off as headers and computes per-column
// classification and statistics over the remaining rows.
func buildSheet(name string, rows [][]string) Sheet {
	s := Sheet{Name: name, Rows: [][]string{}}
	if len(rows) == 0 {
		return s
	}
	s.Headers = rows[0]
	s.Rows = rows[1:]
	s.RowCount = len(s.Rows)
	s.ColumnCount = len(s.Headers)

	s.Columns = make(map[string]ColumnStats, len(s.Headers))
	for i, header := range s.Headers {
		s.Columns[header] = columnStats(columnValues(s.Rows, i))
	}
	return s
}

// columnValues collects the non-empty cells of column i. Short rows are
// treated as if the missing cells were empty.
func columnValues(rows [][]string, i int) []string {
	var out []string
	for _, row := range rows {
		if i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// classifyColumn applies the 80% dominance rule over non-empty cells:
// numeric wins first, then date, otherwise text. A column with no values
// at all is empty. The classification is a pure function of the values,
// so re-running it always yields the same answer.
func classifyColumn(values []string) ColumnType {
	if len(values) == 0 {
		return ColumnEmpty
	}
	numeric, date := 0, 0
	for _, v := range values {
		if _, ok := parseNumber(v); ok {
			numeric++
		}
		if parseDate(v) {
			date++
		}
	}
	total := float64(len(values))
	switch {
	case float64(numeric)/total >= classifyThreshold:
		return ColumnNumeric
	case float64(date)/total >= classifyThreshold:
		return ColumnDate
	default:
		return ColumnText
	}
}

func columnStats(values []string) ColumnStats {
	stats := ColumnStats{
		Type:     classifyColumn(values),
		Count:    len(values),
		Distinct: distinct(values),
	}
	if stats.Type != ColumnNumeric {
		return stats
	}

	var nums []float64
	for _, v := range values {
		if n, ok := parseNumber(v); ok {
			nums = append(nums, n)
		}
	}
	if len(nums) == 0 {
		return stats
	}
	min, max, sum := nums[0], nums[0], 0.0
	for _, n := range nums {
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
		sum += n
	}
	avg := sum / float64(len(nums))
	stats.Min, stats.Max, stats.Avg = &min, &max, &avg
	return stats
}

func distinct(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

// parseNumber accepts finite numbers only; "NaN" and "Inf" are text.
func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

func parseDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

package testutil

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReportTitle is one data row of a generated TR_J1 report.
type ReportTitle struct {
	Title  string
	Metric string
	Counts []float64
}

// HeaderRows is the number of metadata rows above the column header of a
// TR_J1 export.
const HeaderRows = 13

// TRJ1Rows lays out a complete TR_J1 sheet: the 13 metadata rows, the column
// header and one row per title with a "Mon-2006" column for every month
// starting at start.
func TRJ1Rows(start time.Time, months int, titles []ReportTitle) [][]string {
	end := start.AddDate(0, months-1, 0)
	rows := [][]string{
		{"Report_Name", "Journal Requests (Excluding OA_Gold)"},
		{"Report_ID", "TR_J1"},
		{"Release", "5"},
		{"Institution_Name", "Test University"},
		{"Institution_ID", "ISNI:0000000000000000"},
		{"Metric_Types", "Total_Item_Requests; Unique_Item_Requests"},
		{"Report_Filters", "Data_Type=Journal; Access_Type=Controlled"},
		{"Report_Attributes", ""},
		{"Exceptions", ""},
		{"Reporting_Period", "Begin_Date=" + start.Format("2006-01-02") + "; End_Date=" + end.Format("2006-01") + "-28"},
		{"Created", "2023-01-15T10:00:00Z"},
		{"Created_By", "Test Platform"},
		{""},
	}

	header := []string{
		"Title", "Publisher", "Publisher_ID", "Platform", "DOI", "Proprietary_ID",
		"Print_ISSN", "Online_ISSN", "URI", "Metric_Type", "Reporting_Period_Total",
	}
	for k := 0; k < months; k++ {
		header = append(header, start.AddDate(0, k, 0).Format("Jan-2006"))
	}
	rows = append(rows, header)

	for _, rt := range titles {
		var total float64
		counts := make([]string, months)
		for k := 0; k < months; k++ {
			if k < len(rt.Counts) {
				total += rt.Counts[k]
				counts[k] = strconv.FormatFloat(rt.Counts[k], 'f', -1, 64)
			}
		}
		row := []string{
			rt.Title, "Test Publisher", "", "Test Platform", "", "",
			"1234-5678", "8765-4321", "", rt.Metric, strconv.FormatFloat(total, 'f', -1, 64),
		}
		rows = append(rows, append(row, counts...))
	}
	return rows
}

// CSVBytes encodes rows as CSV, or TSV when comma is '\t'.
func CSVBytes(t *testing.T, rows [][]string, comma rune) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = comma
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("encode csv: %v", err)
	}
	return buf.Bytes()
}

// XLSXBytes writes rows to the first sheet of a workbook. Cells that parse
// as numbers are stored as numbers.
func XLSXBytes(t *testing.T, rows [][]string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			var value interface{} = v
			if n, err := strconv.ParseFloat(v, 64); err == nil && r > HeaderRows {
				value = n
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatalf("set cell %s: %v", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf.Bytes()
}

// WriteFile stores data under dir and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Uniform returns n copies of v.
func Uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

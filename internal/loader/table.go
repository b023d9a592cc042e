package loader

import (
	"fmt"
	"strconv"
	"strings"

	"counterviz/pkg/contracts/domain"
)

// headerScanLimit bounds the search for a header row outside the expected position.
const headerScanLimit = 50

const utf8BOM = "\ufeff"

// findHeader returns the index of the column header row.
func findHeader(rows [][]string, headerRows int) (int, error) {
	if len(rows) == 0 {
		return 0, fmt.Errorf("report is empty")
	}
	if headerRows < len(rows) && looksLikeHeader(rows[headerRows]) {
		return headerRows, nil
	}
	for i := 0; i < len(rows) && i < headerScanLimit; i++ {
		if looksLikeHeader(rows[i]) {
			return i, nil
		}
	}
	if headerRows >= len(rows) {
		return 0, fmt.Errorf("report has %d rows, expected a header after %d metadata rows", len(rows), headerRows)
	}
	return headerRows, nil
}

func looksLikeHeader(row []string) bool {
	var title, metric bool
	for _, c := range row {
		switch cleanName(c) {
		case "Title":
			title = true
		case "Metric_Type":
			metric = true
		}
	}
	return title && metric
}

func cleanName(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(s, utf8BOM))
}

// columnNames turns a header row into unique column names. Blank headers
// become "Unnamed: i" and repeats get a ".n" suffix.
func columnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		name := cleanName(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		names[i] = name
	}
	return names
}

// cellFunc converts one raw string to a Cell.
type cellFunc func(raw string) domain.Cell

// textCell keeps delimited text as strings; the normalizer parses counts.
func textCell(raw string) domain.Cell {
	if strings.TrimSpace(raw) == "" {
		return domain.Missing()
	}
	return domain.Text(raw)
}

// rawValueCell turns raw spreadsheet values into numbers where they are numbers.
func rawValueCell(raw string) domain.Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Missing()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return domain.Number(v)
	}
	return domain.Text(raw)
}

// buildRecord assembles a TabularRecord from raw rows.
func buildRecord(name string, rows [][]string, headerRows int, cell cellFunc) (domain.TabularRecord, error) {
	idx, err := findHeader(rows, headerRows)
	if err != nil {
		return domain.TabularRecord{}, err
	}

	header := rows[idx]
	names := columnNames(header)
	rec := domain.TabularRecord{
		Name:    name,
		Columns: make([]domain.Column, len(names)),
		Rows:    make([]map[string]domain.Cell, 0, len(rows)-idx-1),
	}
	for i, n := range names {
		rec.Columns[i] = domain.Column{Name: n}
		if label := cleanName(header[i]); label != n {
			rec.Columns[i].Label = label
		}
	}

	for _, raw := range rows[idx+1:] {
		row := make(map[string]domain.Cell, len(names))
		for i, n := range names {
			if i < len(raw) {
				row[n] = cell(raw[i])
			} else {
				row[n] = domain.Missing()
			}
		}
		rec.Rows = append(rec.Rows, row)
	}

	return rec, nil
}

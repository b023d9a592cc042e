package loader

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counterviz/internal/shared/testutil"
	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

var fy21 = time.Date(2020, time.July, 1, 0, 0, 0, 0, time.UTC)

func sampleRows() [][]string {
	return testutil.TRJ1Rows(fy21, 12, []testutil.ReportTitle{
		{Title: "Journal A", Metric: "Total_Item_Requests", Counts: testutil.Uniform(12, 10)},
		{Title: "Journal A", Metric: "Unique_Item_Requests", Counts: testutil.Uniform(12, 4)},
	})
}

func newTestLoader(t *testing.T) *Loader {
	logger, _ := testutil.NewTestLogger(t)
	return NewLoader(Options{HeaderRows: testutil.HeaderRows}, logger)
}

func TestLoader_Parse(t *testing.T) {
	rows := sampleRows()

	tests := []struct {
		name     string
		file     string
		data     []byte
		wantKind domain.CellKind
	}{
		{"csv", "fy21.csv", testutil.CSVBytes(t, rows, ','), domain.CellString},
		{"tsv", "fy21.tsv", testutil.CSVBytes(t, rows, '\t'), domain.CellString},
		{"xlsx", "fy21.xlsx", testutil.XLSXBytes(t, rows), domain.CellNumber},
	}

	l := newTestLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := l.Parse(tt.file, bytes.NewReader(tt.data))
			require.NoError(t, err)

			assert.Equal(t, tt.file, rec.Name)
			assert.Len(t, rec.Columns, 11+12)
			assert.Equal(t, "Title", rec.Columns[0].Name)
			assert.Equal(t, "Metric_Type", rec.Columns[9].Name)
			require.Len(t, rec.Rows, 2)

			assert.Equal(t, "Journal A", rec.Rows[0]["Title"].String())
			assert.Equal(t, "Unique_Item_Requests", rec.Rows[1]["Metric_Type"].String())
			total := rec.Rows[0]["Reporting_Period_Total"]
			assert.Equal(t, tt.wantKind, total.Kind)
			assert.Equal(t, "120", total.String())
			assert.True(t, rec.Rows[0]["DOI"].IsMissing())
		})
	}
}

func TestLoader_ParseFindsShiftedHeader(t *testing.T) {
	rows := sampleRows()[10:]
	rec, err := newTestLoader(t).Parse("short.csv", bytes.NewReader(testutil.CSVBytes(t, rows, ',')))
	require.NoError(t, err)
	assert.Equal(t, "Title", rec.Columns[0].Name)
	assert.Len(t, rec.Rows, 2)
}

func TestLoader_ParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		wantKind string
	}{
		{"unsupported extension", "report.pdf", []byte("%PDF"), "unsupported_format"},
		{"empty csv", "empty.csv", nil, "parsing"},
		{"not a workbook", "fake.xlsx", []byte("plain text"), "parsing"},
	}

	l := newTestLoader(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Parse(tt.file, bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, Rejection(tt.file, err).Kind)
		})
	}
}

func TestColumnNames(t *testing.T) {
	got := columnNames([]string{"\ufeffTitle", " ", "Jan-2021", "Jan-2021", "Jan-2021"})
	assert.Equal(t, []string{"Title", "Unnamed: 1", "Jan-2021", "Jan-2021.1", "Jan-2021.2"}, got)
}

func TestBuildRecord_KeepsRepeatedHeaderLabels(t *testing.T) {
	rows := [][]string{{"Title", "Feb-2021", "Feb-2021"}}
	rec, err := buildRecord("dup.csv", rows, 0, textCell)
	require.NoError(t, err)
	assert.Equal(t, "Feb-2021.1", rec.Columns[2].Name)
	assert.Equal(t, "Feb-2021", rec.Columns[2].Header())
	assert.Empty(t, rec.Columns[1].Label)
}

func TestLoader_DuplicateMonthColumnIsMalformed(t *testing.T) {
	rows := [][]string{
		{"Title", "Metric_Type", "Reporting_Period_Total", "Jan-2021", "Feb-2021", "Feb-2021", "Mar-2021"},
		{"Journal A", "Total_Item_Requests", "40", "10", "10", "10", "10"},
	}

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"csv", "dup.csv", testutil.CSVBytes(t, rows, ',')},
		{"xlsx", "dup.xlsx", testutil.XLSXBytes(t, rows)},
	}

	l := NewLoader(Options{HeaderRows: 0}, nil)
	normalizer := usage.NewNormalizer(usage.DefaultNormalizerConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := l.Parse(tt.file, bytes.NewReader(tt.data))
			require.NoError(t, err)

			_, _, err = normalizer.Normalize(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, usage.ErrMalformedPeriod)
		})
	}
}

func TestBuildRecord_PadsShortRows(t *testing.T) {
	rows := [][]string{
		{"Title", "Metric_Type", "Jan-2021"},
		{"Journal A"},
	}
	rec, err := buildRecord("short.csv", rows, 0, textCell)
	require.NoError(t, err)
	require.Len(t, rec.Rows, 1)
	assert.True(t, rec.Rows[0]["Metric_Type"].IsMissing())
	assert.True(t, rec.Rows[0]["Jan-2021"].IsMissing())
}

func TestLoader_ParseAll(t *testing.T) {
	rows := sampleRows()
	inputs := []Input{
		{Name: "b.csv", Data: testutil.CSVBytes(t, rows, ',')},
		{Name: "notes.txt", Data: []byte("hello")},
		{Name: "a.xlsx", Data: testutil.XLSXBytes(t, rows)},
	}

	records, rejected, err := NewLoader(Options{HeaderRows: 13, Concurrency: 2}, nil).
		ParseAll(context.Background(), inputs)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "b.csv", records[0].Name)
	assert.Equal(t, "a.xlsx", records[1].Name)

	require.Len(t, rejected, 1)
	assert.Equal(t, "notes.txt", rejected[0].Name)
	assert.Equal(t, "unsupported_format", rejected[0].Kind)
}

func TestLoader_LoadFiles(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteFile(t, dir, "fy21.csv", testutil.CSVBytes(t, sampleRows(), ','))
	missing := filepath.Join(dir, "gone.csv")

	records, rejected, err := newTestLoader(t).LoadFiles(context.Background(), []string{good, missing})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fy21.csv", records[0].Name)
	require.Len(t, rejected, 1)
	assert.Equal(t, "gone.csv", rejected[0].Name)
	assert.Equal(t, "storage", rejected[0].Kind)
}

func TestLoader_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newTestLoader(t).ParseAll(ctx, []Input{{Name: "a.csv", Data: []byte("x")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "fy22.csv", testutil.CSVBytes(t, sampleRows(), ','))
	testutil.WriteFile(t, dir, "fy21.xlsx", testutil.XLSXBytes(t, sampleRows()))
	testutil.WriteFile(t, dir, "readme.md", []byte("# reports"))
	testutil.WriteFile(t, dir, "~$fy21.xlsx", []byte("lock"))

	src := NewDirSource(dir)
	refs, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "fy21.xlsx", refs[0].Name)
	assert.Equal(t, "fy22.csv", refs[1].Name)

	records, rejected, err := newTestLoader(t).LoadAll(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, records, 2)
	assert.Equal(t, "fy21.xlsx", records[0].Name)
}

func TestDirSource_MissingDir(t *testing.T) {
	_, _, err := newTestLoader(t).LoadAll(context.Background(), NewDirSource(filepath.Join(t.TempDir(), "nope")))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "STORAGE"))
}

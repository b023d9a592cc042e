package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"counterviz/internal/files"
	"counterviz/internal/shared/testutil"
	"counterviz/pkg/contracts/domain"
)

func sampleReport() domain.AnalysisReport {
	cost := decimal.NewFromInt(2400)
	cpu := decimal.NewFromInt(2)
	projectedCPU := decimal.RequireFromString("1.5")
	projected := int64(1600)

	return domain.AnalysisReport{
		Metric: domain.MetricTotalItemRequests,
		Files: []domain.FileDetail{
			{Name: "FY21.xlsx", DateRange: "07/2020 - 06/2021", MonthCount: 12, NumJournals: 2},
			{Name: "FY22.csv", DateRange: "07/2021 - 12/2021", MonthCount: 6, NumJournals: 2},
		},
		Rejected: []domain.RejectedFile{{Name: "notes.txt", Kind: "unsupported_format", Reason: "unsupported"}},
		Periods: []domain.PeriodAnalysis{
			{
				Identifier: "FY21.xlsx", DateRange: "07/2020 - 06/2021", IsFullYear: true, SpanDays: 364,
				ReportingTotal: 1200, Cost: &cost, CostPerUse: &cpu, CostBasis: domain.CostBasisActual,
				Distribution: []domain.UsageBucket{
					{UsageCount: 720, NumTitles: 1, Titles: []string{"Journal A"}},
					{UsageCount: 480, NumTitles: 1, Titles: []string{"Journal B"}},
				},
			},
			{
				Identifier: "FY22.csv", DateRange: "07/2021 - 12/2021", SpanDays: 183,
				ReportingTotal: 800, ProjectedUsage: &projected, ProjectedCostPerUse: &projectedCPU,
				CostBasis: domain.CostBasisProjected,
				Distribution: []domain.UsageBucket{
					{UsageCount: 400, NumTitles: 2, Titles: []string{"Journal A", "Journal B"}},
				},
			},
		},
		Trend: []domain.TrendRow{
			{Title: "Journal A", Period: "FY21.xlsx", PeriodLabel: "07/2020 - 06/2021", ReportingPeriodTotal: 720},
		},
		CostSeries: []domain.CostPoint{
			{Period: "FY21.xlsx", DateRange: "07/2020 - 06/2021", CostPerUse: cpu, Basis: domain.CostBasisActual},
			{Period: "FY22.csv", DateRange: "07/2021 - 12/2021", CostPerUse: projectedCPU, Basis: domain.CostBasisProjected},
		},
		GeneratedAt: time.Date(2023, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatXLSX, false},
		{"XLSX", FormatXLSX, false},
		{" csv ", FormatCSV, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
}

func TestTables(t *testing.T) {
	tables := Tables(sampleReport())
	require.Len(t, tables, 5)

	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = tb.Name
		for _, row := range tb.Rows {
			assert.Len(t, row, len(tb.Headers), tb.Name)
		}
	}
	assert.Equal(t, []string{"Files", "Periods", "Distribution", "Trend", "Cost"}, names)

	filesTable := tables[0]
	require.Len(t, filesTable.Rows, 3)
	assert.Equal(t, "unsupported_format", filesTable.Rows[2][4])

	periods := tables[1]
	assert.Equal(t, []string{
		"FY21.xlsx", "07/2020 - 06/2021", "true", "364", "1200", "", "",
		"2400.00", "2.00", "", "actual", "",
	}, periods.Rows[0])
	assert.Equal(t, "1600", periods.Rows[1][5])
	assert.Equal(t, "1.50", periods.Rows[1][9])

	dist := tables[2]
	require.Len(t, dist.Rows, 3)
	assert.Equal(t, []string{"FY22.csv", "07/2021 - 12/2021", "400", "2", "Journal A; Journal B"}, dist.Rows[2])

	assert.Equal(t, "1.50", tables[4].Rows[1][2])
}

func TestExporter_RenderCSV(t *testing.T) {
	data, err := New(nil, nil).Render(sampleReport(), FormatCSV)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "Usage Count", records[0][2])
	assert.Equal(t, "720", records[1][2])
}

func TestExporter_RenderWorkbook(t *testing.T) {
	data, err := New(nil, nil).Render(sampleReport(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Files", "Periods", "Distribution", "Trend", "Cost"}, f.GetSheetList())

	rows, err := f.GetRows("Distribution")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Journal A", rows[1][4])

	cellType, err := f.GetCellType("Distribution", "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType)
}

func TestExporter_Save(t *testing.T) {
	dir := t.TempDir()
	logger, _ := testutil.NewTestLogger(t)
	exp := New(files.NewManager(dir, logger), logger)

	path, err := exp.Save(sampleReport(), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "usage_analysis_20230301_123000.csv"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	_, err = New(nil, nil).Save(sampleReport(), FormatCSV)
	assert.Error(t, err)

	_, err = exp.Render(sampleReport(), Format("pdf"))
	assert.Error(t, err)
}

package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counterviz/pkg/contracts/domain"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig(), nil)
	rec := buildRecord("fy21.xlsx", month(2021, time.January), 12, []titleUsage{
		{"Journal A", "Total_Item_Requests", uniform(12, 10)},
		{"Journal A", "Unique_Item_Requests", uniform(12, 4)},
		{"Journal B", "Total_Item_Requests", uniform(12, 2)},
	})

	period, warnings, err := n.Normalize(rec)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "fy21.xlsx", period.Identifier)
	assert.Equal(t, month(2021, time.January), period.StartMonth)
	assert.Equal(t, month(2021, time.December), period.EndMonth)
	assert.Len(t, period.Months, 12)
	assert.Equal(t, "01/2021 - 12/2021", period.DateRange())
	assert.False(t, period.MetricSelected())

	require.Len(t, period.Rows, 3)
	assert.Equal(t, "Journal A", period.Rows[0].Title)
	assert.Equal(t, domain.MetricTotalItemRequests, period.Rows[0].MetricType)
	assert.Equal(t, domain.MetricUniqueItemRequests, period.Rows[1].MetricType)
	assert.Equal(t, 120.0, period.Rows[0].ReportingPeriodTotal)
	assert.Len(t, period.Rows[0].MonthlyCounts, 12)
	assert.Equal(t, month(2021, time.March), period.Rows[0].MonthlyCounts[2].Month)
}

func TestNormalizer_Idempotent(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig(), nil)
	rec := buildRecord("fy22.csv", month(2021, time.July), 6, []titleUsage{
		{"Journal A", "Total_Item_Requests", []float64{1, 2, 3, 4, 5, 6}},
	})

	first, firstWarnings, err := n.Normalize(rec)
	require.NoError(t, err)
	second, secondWarnings, err := n.Normalize(rec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, firstWarnings, secondWarnings)
}

func TestNormalizer_MissingValues(t *testing.T) {
	tests := []struct {
		name         string
		missingValue float64
		wantCount    float64
	}{
		{"default placeholder", DefaultMissingValue, 1},
		{"zero placeholder", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultNormalizerConfig()
			cfg.MissingValue = tt.missingValue
			n := NewNormalizer(cfg, nil)

			rec := buildRecord("fy21.csv", month(2021, time.January), 12, []titleUsage{
				{"Journal A", "Total_Item_Requests", uniform(12, 5)},
			})
			rec.Rows[0]["Feb-2021"] = domain.Missing()
			rec.Rows[0]["Mar-2021"] = domain.Text("")

			period, warnings, err := n.Normalize(rec)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCount, period.Rows[0].MonthlyCounts[1].Count)
			assert.Equal(t, tt.wantCount, period.Rows[0].MonthlyCounts[2].Count)

			codes := warningCodes(warnings)
			assert.Contains(t, codes, domain.WarningMissingValuesFilled)
			assert.Contains(t, codes, domain.WarningTotalMismatch)
		})
	}
}

func TestNormalizer_Warnings(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig(), nil)
	rec := buildRecord("fy23.tsv", month(2022, time.July), 6, []titleUsage{
		{"Journal A", "Total_Item_Requests", uniform(6, 3)},
	})

	period, warnings, err := n.Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, 6, period.MonthsElapsed())

	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarningShortPeriod, warnings[0].Code)
	assert.Equal(t, "fy23.tsv", warnings[0].Period)
}

func TestNormalizer_Malformed(t *testing.T) {
	base := func() domain.TabularRecord {
		return buildRecord("bad.csv", month(2021, time.January), 3, []titleUsage{
			{"Journal A", "Total_Item_Requests", []float64{1, 2, 3}},
		})
	}

	tests := []struct {
		name        string
		mutate      func(r *domain.TabularRecord)
		errContains string
	}{
		{
			name:        "missing title column",
			mutate:      func(r *domain.TabularRecord) { r.Columns = r.Columns[1:] },
			errContains: `missing required column "Title"`,
		},
		{
			name: "missing total column",
			mutate: func(r *domain.TabularRecord) {
				r.Columns = append(r.Columns[:5:5], r.Columns[6:]...)
			},
			errContains: `"Reporting_Period_Total"`,
		},
		{
			name: "no month columns",
			mutate: func(r *domain.TabularRecord) {
				r.Columns = r.Columns[:6]
			},
			errContains: "no month columns",
		},
		{
			name: "out of order months",
			mutate: func(r *domain.TabularRecord) {
				r.Columns[6], r.Columns[7] = r.Columns[7], r.Columns[6]
			},
			errContains: "is not after",
		},
		{
			name: "duplicated month",
			mutate: func(r *domain.TabularRecord) {
				r.Columns[7] = domain.Column{Name: "2021-01"}
			},
			errContains: "is not after",
		},
		{
			name: "repeated month header renamed by the loader",
			mutate: func(r *domain.TabularRecord) {
				r.Columns[7] = domain.Column{Name: "Jan-2021.1", Label: "Jan-2021"}
			},
			errContains: `month column "Jan-2021.1" (01/2021) is not after`,
		},
		{
			name: "non numeric count",
			mutate: func(r *domain.TabularRecord) {
				r.Rows[0]["Feb-2021"] = domain.Text("lots")
			},
			errContains: `row 1 column "Feb-2021"`,
		},
		{
			name:        "no name",
			mutate:      func(r *domain.TabularRecord) { r.Name = " " },
			errContains: "no name",
		},
	}

	n := NewNormalizer(DefaultNormalizerConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := base()
			tt.mutate(&rec)

			_, _, err := n.Normalize(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedPeriod)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestNormalizer_TextCellsAndBlankRows(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig(), nil)
	rec := buildRecord("fy21.csv", month(2021, time.January), 2, []titleUsage{
		{"Journal A", "Total_Item_Requests", []float64{1000, 234}},
	})
	rec.Rows[0]["Jan-2021"] = domain.Text("1,000")
	rec.Rows[0]["Reporting_Period_Total"] = domain.Text(" 1,234 ")
	rec.Rows = append(rec.Rows, map[string]domain.Cell{
		"Title":       domain.Text(""),
		"Metric_Type": domain.Missing(),
	})
	rec.Rows = append(rec.Rows, map[string]domain.Cell{
		"Title":       domain.Text("Journal B"),
		"Metric_Type": domain.Text("Searches_Platform"),
		"Jan-2021":    domain.Number(1),
		"Feb-2021":    domain.Number(1),
	})

	period, _, err := n.Normalize(rec)
	require.NoError(t, err)
	require.Len(t, period.Rows, 2)
	assert.Equal(t, 1000.0, period.Rows[0].MonthlyCounts[0].Count)
	assert.Equal(t, 1234.0, period.Rows[0].ReportingPeriodTotal)
	assert.Equal(t, domain.MetricUnrecognized, period.Rows[1].MetricType)
}

func TestSelectMetric(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig(), nil)
	period, _, err := n.Normalize(buildRecord("fy21.csv", month(2021, time.January), 12, []titleUsage{
		{"Journal A", "Total_Item_Requests", uniform(12, 10)},
		{"Journal A", "Unique_Item_Requests", uniform(12, 4)},
		{"Journal B", "Total_Item_Requests", uniform(12, 1)},
	}))
	require.NoError(t, err)

	total, err := SelectMetric(period, domain.MetricTotalItemRequests)
	require.NoError(t, err)
	assert.Len(t, total.Rows, 2)
	assert.Equal(t, 132.0, total.ReportingTotal)
	assert.Equal(t, domain.MetricTotalItemRequests, total.Metric)

	unique, err := SelectMetric(period, domain.MetricUniqueItemRequests)
	require.NoError(t, err)
	assert.Len(t, unique.Rows, 1)
	assert.Equal(t, 48.0, unique.ReportingTotal)

	// The source period is not modified by selection.
	assert.Len(t, period.Rows, 3)
	assert.Zero(t, period.ReportingTotal)

	_, err = SelectMetric(period, domain.MetricUnrecognized)
	assert.ErrorIs(t, err, ErrUnknownMetricType)
}

func TestSelectMetric_Absent(t *testing.T) {
	n := NewNormalizer(DefaultNormalizerConfig(), nil)
	period, _, err := n.Normalize(buildRecord("fy21.csv", month(2021, time.January), 12, []titleUsage{
		{"Journal A", "Total_Item_Requests", uniform(12, 10)},
	}))
	require.NoError(t, err)

	_, err = SelectMetric(period, domain.MetricUniqueItemRequests)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownMetricType)
	assert.Equal(t, KindUnknownMetricType, KindOf(err))
}

func TestAvailableMetrics(t *testing.T) {
	both := domain.FiscalPeriod{Rows: []domain.UsageRow{
		{MetricType: domain.MetricUniqueItemRequests},
		{MetricType: domain.MetricTotalItemRequests},
	}}
	totalOnly := domain.FiscalPeriod{Rows: []domain.UsageRow{
		{MetricType: domain.MetricTotalItemRequests},
	}}
	neither := domain.FiscalPeriod{Rows: []domain.UsageRow{
		{MetricType: domain.MetricUnrecognized},
	}}

	assert.Equal(t, domain.SupportedMetrics, AvailableMetrics([]domain.FiscalPeriod{both}))
	assert.Equal(t, []domain.MetricType{domain.MetricTotalItemRequests}, AvailableMetrics([]domain.FiscalPeriod{both, totalOnly}))
	assert.Empty(t, AvailableMetrics([]domain.FiscalPeriod{both, neither}))
	assert.Nil(t, AvailableMetrics(nil))
}

func warningCodes(warnings []domain.Warning) []domain.WarningCode {
	codes := make([]domain.WarningCode, len(warnings))
	for i, w := range warnings {
		codes[i] = w.Code
	}
	return codes
}

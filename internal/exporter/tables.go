package exporter

import (
	"strconv"
	"strings"

	"counterviz/pkg/contracts/domain"
)

// Table is one flat view of a report.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
	// Numeric lists the column indexes written as numbers in a workbook.
	Numeric []int
}

func (t Table) isNumeric(col int) bool {
	for _, c := range t.Numeric {
		if c == col {
			return true
		}
	}
	return false
}

// Tables flattens report into the tables written by the workbook exporter,
// in sheet order.
func Tables(report domain.AnalysisReport) []Table {
	return []Table{
		FilesTable(report),
		PeriodsTable(report),
		DistributionTable(report),
		TrendTable(report),
		CostTable(report),
	}
}

// FilesTable lists accepted and rejected reports.
func FilesTable(report domain.AnalysisReport) Table {
	t := Table{
		Name:    "Files",
		Headers: []string{"File Name", "Date Range", "Months", "Number of Journals", "Status", "Reason"},
		Numeric: []int{2, 3},
	}
	for _, f := range report.Files {
		t.Rows = append(t.Rows, []string{
			f.Name, f.DateRange, strconv.Itoa(f.MonthCount), strconv.Itoa(f.NumJournals), "accepted", "",
		})
	}
	for _, r := range report.Rejected {
		t.Rows = append(t.Rows, []string{r.Name, "", "", "", r.Kind, r.Reason})
	}
	return t
}

// PeriodsTable has one row per period with its classification, projection
// and cost figures.
func PeriodsTable(report domain.AnalysisReport) Table {
	t := Table{
		Name: "Periods",
		Headers: []string{
			"Period", "Date Range", "Full Year", "Span Days", "Reporting Total",
			"Projected Usage", "Projection Error", "Cost", "Cost Per Use",
			"Projected Cost Per Use", "Cost Basis", "Cost Error",
		},
		Numeric: []int{3, 4, 5, 7, 8, 9},
	}
	for _, p := range report.Periods {
		projected := ""
		if p.ProjectedUsage != nil {
			projected = strconv.FormatInt(*p.ProjectedUsage, 10)
		}
		t.Rows = append(t.Rows, []string{
			p.Identifier, p.DateRange, formatBool(p.IsFullYear), strconv.Itoa(p.SpanDays),
			formatCount(p.ReportingTotal), projected, p.ProjectionError,
			formatMoney(p.Cost), formatMoney(p.CostPerUse), formatMoney(p.ProjectedCostPerUse),
			string(p.CostBasis), p.CostError,
		})
	}
	return t
}

// DistributionTable is the long-form histogram of every period: one row per
// (period, usage count) bucket.
func DistributionTable(report domain.AnalysisReport) Table {
	t := Table{
		Name:    "Distribution",
		Headers: []string{"Period", "Date Range", "Usage Count", "Number of Titles", "Titles"},
		Numeric: []int{2, 3},
	}
	for _, p := range report.Periods {
		for _, b := range p.Distribution {
			t.Rows = append(t.Rows, []string{
				p.Identifier, p.DateRange, formatCount(b.UsageCount), strconv.Itoa(b.NumTitles),
				strings.Join(b.Titles, "; "),
			})
		}
	}
	return t
}

// TrendTable is the long-form trend of the selected titles.
func TrendTable(report domain.AnalysisReport) Table {
	t := Table{
		Name:    "Trend",
		Headers: []string{"Title", "Period", "Date Range", "Reporting_Period_Total"},
		Numeric: []int{3},
	}
	for _, r := range report.Trend {
		t.Rows = append(t.Rows, []string{r.Title, r.Period, r.PeriodLabel, formatCount(r.ReportingPeriodTotal)})
	}
	return t
}

// CostTable is the cost-per-use series.
func CostTable(report domain.AnalysisReport) Table {
	t := Table{
		Name:    "Cost",
		Headers: []string{"Period", "Date Range", "Cost Per Use", "Basis"},
		Numeric: []int{2},
	}
	for _, c := range report.CostSeries {
		cpu := c.CostPerUse
		t.Rows = append(t.Rows, []string{c.Period, c.DateRange, formatMoney(&cpu), string(c.Basis)})
	}
	return t
}

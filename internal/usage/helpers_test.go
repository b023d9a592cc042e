package usage

import (
	"time"

	"counterviz/pkg/contracts/domain"
)

type titleUsage struct {
	title  string
	metric string
	counts []float64
}

func month(year int, m time.Month) domain.CalendarMonth {
	return domain.CalendarMonth{Year: year, Month: m}
}

// buildRecord lays out a TR_J1 table the way the loader hands it over:
// Title, administrative columns, Metric_Type, Reporting_Period_Total and
// one "Jan-2006" labelled column per month.
func buildRecord(name string, start domain.CalendarMonth, months int, titles []titleUsage) domain.TabularRecord {
	cols := []domain.Column{
		{Name: "Title"},
		{Name: "Publisher"},
		{Name: "Platform"},
		{Name: "Print_ISSN"},
		{Name: "Metric_Type"},
		{Name: "Reporting_Period_Total"},
	}
	for k := 0; k < months; k++ {
		cols = append(cols, domain.Column{Name: start.AddMonths(k).StartDate().Format("Jan-2006")})
	}

	rec := domain.TabularRecord{Name: name, Columns: cols}
	for _, tu := range titles {
		row := map[string]domain.Cell{
			"Title":       domain.Text(tu.title),
			"Publisher":   domain.Text("Elsevier"),
			"Platform":    domain.Text("ScienceDirect"),
			"Print_ISSN":  domain.Text("1234-5678"),
			"Metric_Type": domain.Text(tu.metric),
		}
		var total float64
		for k := 0; k < months; k++ {
			var v float64
			if k < len(tu.counts) {
				v = tu.counts[k]
			}
			row[cols[6+k].Name] = domain.Number(v)
			total += v
		}
		row["Reporting_Period_Total"] = domain.Number(total)
		rec.Rows = append(rec.Rows, row)
	}
	return rec
}

// uniform returns n copies of v.
func uniform(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// selectedPeriod builds a one-title period with the Total metric selected.
func selectedPeriod(id string, start domain.CalendarMonth, counts []float64) domain.FiscalPeriod {
	p := domain.FiscalPeriod{
		Identifier: id,
		StartMonth: start,
		EndMonth:   start.AddMonths(len(counts) - 1),
		Metric:     domain.MetricTotalItemRequests,
	}
	row := domain.UsageRow{Title: "Journal of " + id, MetricType: domain.MetricTotalItemRequests}
	for k, c := range counts {
		m := start.AddMonths(k)
		p.Months = append(p.Months, m)
		row.MonthlyCounts = append(row.MonthlyCounts, domain.MonthlyCount{Month: m, Count: c})
		row.ReportingPeriodTotal += c
	}
	p.Rows = []domain.UsageRow{row}
	p.ReportingTotal = row.ReportingPeriodTotal
	return p
}

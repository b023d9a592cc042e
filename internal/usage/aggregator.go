package usage

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"counterviz/pkg/contracts/domain"
)

// UsageDistribution groups a period's titles by identical reporting period
// total. Buckets follow the order in which each total first appears; titles
// keep row order. Every row lands in exactly one bucket.
func UsageDistribution(period domain.FiscalPeriod) []domain.UsageBucket {
	index := make(map[float64]int)
	buckets := make([]domain.UsageBucket, 0)
	for _, row := range period.Rows {
		i, ok := index[row.ReportingPeriodTotal]
		if !ok {
			i = len(buckets)
			index[row.ReportingPeriodTotal] = i
			buckets = append(buckets, domain.UsageBucket{UsageCount: row.ReportingPeriodTotal})
		}
		buckets[i].NumTitles++
		buckets[i].Titles = append(buckets[i].Titles, row.Title)
	}
	return buckets
}

// DistributionStats returns the largest usage count and the largest bucket.
func DistributionStats(buckets []domain.UsageBucket) domain.DistributionStats {
	if len(buckets) == 0 {
		return domain.DistributionStats{}
	}
	return domain.DistributionStats{
		MaxUsage:  lo.Max(lo.Map(buckets, func(b domain.UsageBucket, _ int) float64 { return b.UsageCount })),
		MaxTitles: lo.Max(lo.Map(buckets, func(b domain.UsageBucket, _ int) int { return b.NumTitles })),
	}
}

// FilterByUsage keeps the rows whose reporting period total lies in
// [min, max] and recomputes ReportingTotal over them.
func FilterByUsage(period domain.FiscalPeriod, min, max float64) domain.FiscalPeriod {
	filtered := period
	filtered.Rows = lo.Filter(period.Rows, func(r domain.UsageRow, _ int) bool {
		return r.ReportingPeriodTotal >= min && r.ReportingPeriodTotal <= max
	})
	filtered.ReportingTotal = lo.SumBy(filtered.Rows, func(r domain.UsageRow) float64 {
		return r.ReportingPeriodTotal
	})
	return filtered
}

// MergeForTrend builds the long-form (title, period, total) table for the
// selected titles. A title missing from a period yields no row for it.
func MergeForTrend(periods []domain.FiscalPeriod, selectedTitles []string) []domain.TrendRow {
	selected := lo.Associate(selectedTitles, func(t string) (string, struct{}) {
		return t, struct{}{}
	})
	rows := make([]domain.TrendRow, 0)
	for _, p := range periods {
		label := p.DateRange()
		for _, r := range p.Rows {
			if _, ok := selected[r.Title]; !ok {
				continue
			}
			rows = append(rows, domain.TrendRow{
				Title:                r.Title,
				Period:               p.Identifier,
				PeriodLabel:          label,
				ReportingPeriodTotal: r.ReportingPeriodTotal,
			})
		}
	}
	return rows
}

// Titles returns the sorted union of non-empty titles across periods.
func Titles(periods []domain.FiscalPeriod) []string {
	all := lo.FlatMap(periods, func(p domain.FiscalPeriod, _ int) []string {
		return lo.Map(p.Rows, func(r domain.UsageRow, _ int) string { return r.Title })
	})
	titles := lo.Uniq(lo.Compact(all))
	sort.Strings(titles)
	return titles
}

// SortByStart returns the periods ordered by start month. Ties keep input order.
func SortByStart(periods []domain.FiscalPeriod) []domain.FiscalPeriod {
	sorted := make([]domain.FiscalPeriod, len(periods))
	copy(sorted, periods)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartMonth.Before(sorted[j].StartMonth)
	})
	return sorted
}

// DetectOverlaps reports every pair of periods sharing calendar months.
// Overlap never blocks analysis.
func DetectOverlaps(periods []domain.FiscalPeriod) []domain.Warning {
	var warnings []domain.Warning
	for i := 0; i < len(periods); i++ {
		for j := i + 1; j < len(periods); j++ {
			shared := lo.Intersect(periods[i].Months, periods[j].Months)
			if len(shared) == 0 {
				continue
			}
			sort.Slice(shared, func(a, b int) bool { return shared[a].Before(shared[b]) })
			warnings = append(warnings, domain.Warning{
				Code: domain.WarningOverlappingMonths,
				Message: fmt.Sprintf("%s and %s both contain data for %d month(s)",
					periods[i].Identifier, periods[j].Identifier, len(shared)),
				Months:  shared,
				Periods: []string{periods[i].Identifier, periods[j].Identifier},
			})
		}
	}
	return warnings
}

// FileDetail summarises an unfiltered period: name, date range and the
// number of journals, counted from its Unique_Item_Requests rows.
func FileDetail(period domain.FiscalPeriod) domain.FileDetail {
	return domain.FileDetail{
		Name:       period.Identifier,
		DateRange:  period.DateRange(),
		StartMonth: period.StartMonth,
		EndMonth:   period.EndMonth,
		MonthCount: len(period.Months),
		NumJournals: lo.CountBy(period.Rows, func(r domain.UsageRow) bool {
			return r.MetricType == domain.MetricUniqueItemRequests
		}),
	}
}

// CostSeries lists the available headline cost-per-use figures in period order.
func CostSeries(analyses []domain.PeriodAnalysis) []domain.CostPoint {
	return lo.FilterMap(analyses, func(a domain.PeriodAnalysis, _ int) (domain.CostPoint, bool) {
		cpu, ok := a.SelectedCostPerUse()
		if !ok {
			return domain.CostPoint{}, false
		}
		return domain.CostPoint{
			Period:     a.Identifier,
			DateRange:  a.DateRange,
			CostPerUse: cpu,
			Basis:      a.CostBasis,
		}, true
	})
}

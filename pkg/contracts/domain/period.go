package domain

import (
	"fmt"
	"strings"
)

// MetricType is the COUNTER metric a usage row counts.
type MetricType string

const (
	MetricUniqueItemRequests MetricType = "Unique_Item_Requests"
	MetricTotalItemRequests  MetricType = "Total_Item_Requests"
	// MetricUnrecognized marks rows whose Metric_Type is neither supported value.
	// Such rows are kept but never selected.
	MetricUnrecognized MetricType = ""
)

// SupportedMetrics lists the metric types an analysis can select, in display order.
var SupportedMetrics = []MetricType{MetricUniqueItemRequests, MetricTotalItemRequests}

// ParseMetricType accepts the report spelling ("Unique_Item_Requests"), the
// display spelling ("Unique Item Requests") and the short forms "unique" and "total".
func ParseMetricType(s string) (MetricType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	switch key {
	case "unique_item_requests", "unique":
		return MetricUniqueItemRequests, nil
	case "total_item_requests", "total":
		return MetricTotalItemRequests, nil
	}
	return MetricUnrecognized, fmt.Errorf("unknown metric type %q", s)
}

// Valid reports whether m is one of the supported metric types.
func (m MetricType) Valid() bool {
	return m == MetricUniqueItemRequests || m == MetricTotalItemRequests
}

// Label returns the human readable metric name.
func (m MetricType) Label() string {
	return strings.ReplaceAll(string(m), "_", " ")
}

// MonthlyCount is the usage of one title in one month.
type MonthlyCount struct {
	Month CalendarMonth `json:"month"`
	Count float64       `json:"count"`
}

// UsageRow is one title/metric line of a report.
type UsageRow struct {
	Title                string         `json:"title"`
	MetricType           MetricType     `json:"metric_type"`
	MonthlyCounts        []MonthlyCount `json:"monthly_counts"`
	ReportingPeriodTotal float64        `json:"reporting_period_total"`
}

// CountFor returns the row's count for month m and whether the month is present.
func (r UsageRow) CountFor(m CalendarMonth) (float64, bool) {
	for _, mc := range r.MonthlyCounts {
		if mc.Month.Equal(m) {
			return mc.Count, true
		}
	}
	return 0, false
}

// MonthlySum adds up the row's monthly counts.
func (r UsageRow) MonthlySum() float64 {
	var sum float64
	for _, mc := range r.MonthlyCounts {
		sum += mc.Count
	}
	return sum
}

// FiscalPeriod is the normalized form of one report. Values are built once by
// the normalizer and never modified; selecting a metric produces a new value.
type FiscalPeriod struct {
	Identifier string          `json:"identifier"`
	Rows       []UsageRow      `json:"rows"`
	StartMonth CalendarMonth   `json:"start_month"`
	EndMonth   CalendarMonth   `json:"end_month"`
	Months     []CalendarMonth `json:"months"`

	// Metric and ReportingTotal are set once a metric has been selected.
	Metric         MetricType `json:"metric,omitempty"`
	ReportingTotal float64    `json:"reporting_total"`
}

// DateRange renders the period span as "MM/YYYY - MM/YYYY".
func (p FiscalPeriod) DateRange() string {
	return DateRange(p.StartMonth, p.EndMonth)
}

// MonthsElapsed counts the months from StartMonth to EndMonth inclusive.
func (p FiscalPeriod) MonthsElapsed() int {
	return p.StartMonth.MonthsUntil(p.EndMonth)
}

// MetricSelected reports whether a metric filter has been applied.
func (p FiscalPeriod) MetricSelected() bool {
	return p.Metric.Valid()
}

// HasMonth reports whether the period carries a column for m.
func (p FiscalPeriod) HasMonth(m CalendarMonth) bool {
	for _, pm := range p.Months {
		if pm.Equal(m) {
			return true
		}
	}
	return false
}

// MonthTotal sums every row's count for month m.
func (p FiscalPeriod) MonthTotal(m CalendarMonth) float64 {
	var sum float64
	for _, row := range p.Rows {
		if c, ok := row.CountFor(m); ok {
			sum += c
		}
	}
	return sum
}

// WarningCode classifies a non-fatal finding.
type WarningCode string

const (
	WarningShortPeriod           WarningCode = "short_period"
	WarningTotalMismatch         WarningCode = "total_mismatch"
	WarningMissingValuesFilled   WarningCode = "missing_values_filled"
	WarningOverlappingMonths     WarningCode = "overlapping_months"
	WarningProjectionUnavailable WarningCode = "projection_unavailable"
	WarningCostUnavailable       WarningCode = "cost_unavailable"
)

// Warning is a non-fatal finding returned as data; callers decide how to show it.
type Warning struct {
	Code    WarningCode     `json:"code"`
	Period  string          `json:"period,omitempty"`
	Message string          `json:"message"`
	Months  []CalendarMonth `json:"months,omitempty"`
	Periods []string        `json:"periods,omitempty"`
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostBasis tells which usage figure a cost-per-use was divided by.
type CostBasis string

const (
	CostBasisActual    CostBasis = "actual"
	CostBasisProjected CostBasis = "projected"
)

// CostPolicy is the caller's rule for picking a CostBasis per period.
type CostPolicy string

const (
	// CostPolicyAuto uses the projected basis for partial periods and the
	// actual basis for full years.
	CostPolicyAuto CostPolicy = "auto"
	// CostPolicyActual always divides by the observed reporting total.
	CostPolicyActual CostPolicy = "actual"
)

// ReferenceFraction records how much of a complete period's usage had accrued
// within the months elapsed in the projected period.
type ReferenceFraction struct {
	Period         string  `json:"period"`
	UsageToDate    float64 `json:"usage_to_date"`
	ReportingTotal float64 `json:"reporting_total"`
	Fraction       float64 `json:"fraction"`
}

// Projection is the full-year usage estimate for one partial period.
type Projection struct {
	Period          string              `json:"period"`
	MonthsElapsed   int                 `json:"months_elapsed"`
	Alignment       string              `json:"alignment"`
	References      []ReferenceFraction `json:"references"`
	AverageFraction float64             `json:"average_fraction"`
	ObservedTotal   float64             `json:"observed_total"`
	ProjectedTotal  int64               `json:"projected_total"`
	RemainingMonths []CalendarMonth     `json:"remaining_months,omitempty"`
}

// UsageBucket groups the titles sharing one reporting period total.
type UsageBucket struct {
	UsageCount float64  `json:"usage_count"`
	NumTitles  int      `json:"num_titles"`
	Titles     []string `json:"titles"`
}

// DistributionStats carries the extents used to scale a usage histogram.
type DistributionStats struct {
	MaxUsage  float64 `json:"max_usage"`
	MaxTitles int     `json:"max_titles"`
}

// TrendRow is one (title, period) observation of the long-form trend table.
type TrendRow struct {
	Title                string  `json:"title"`
	Period               string  `json:"period"`
	PeriodLabel          string  `json:"period_label"`
	ReportingPeriodTotal float64 `json:"reporting_period_total"`
}

// CostPoint is one point of the cost-per-use series.
type CostPoint struct {
	Period     string          `json:"period"`
	DateRange  string          `json:"date_range"`
	CostPerUse decimal.Decimal `json:"cost_per_use"`
	Basis      CostBasis       `json:"basis"`
}

// FileDetail summarises one accepted report.
type FileDetail struct {
	Name        string        `json:"name"`
	DateRange   string        `json:"date_range"`
	StartMonth  CalendarMonth `json:"start_month"`
	EndMonth    CalendarMonth `json:"end_month"`
	MonthCount  int           `json:"month_count"`
	NumJournals int           `json:"num_journals"`
}

// RejectedFile is a report that could not be turned into a period.
type RejectedFile struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// PeriodAnalysis is the derived overlay for one period. It references the
// period by identifier and never changes the period's rows.
type PeriodAnalysis struct {
	Identifier     string            `json:"identifier"`
	DateRange      string            `json:"date_range"`
	IsFullYear     bool              `json:"is_full_year"`
	SpanDays       int               `json:"span_days"`
	ReportingTotal float64           `json:"reporting_total"`
	Distribution   []UsageBucket     `json:"distribution"`
	Stats          DistributionStats `json:"distribution_stats"`

	Projection      *Projection `json:"projection,omitempty"`
	ProjectedUsage  *int64      `json:"projected_usage,omitempty"`
	ProjectionError string      `json:"projection_error,omitempty"`

	Cost                *decimal.Decimal `json:"cost,omitempty"`
	CostPerUse          *decimal.Decimal `json:"cost_per_use,omitempty"`
	ProjectedCostPerUse *decimal.Decimal `json:"projected_cost_per_use,omitempty"`
	CostBasis           CostBasis        `json:"cost_basis,omitempty"`
	CostError           string           `json:"cost_error,omitempty"`
}

// SelectedCostPerUse returns the cost-per-use matching CostBasis, if available.
func (a PeriodAnalysis) SelectedCostPerUse() (decimal.Decimal, bool) {
	switch a.CostBasis {
	case CostBasisProjected:
		if a.ProjectedCostPerUse != nil {
			return *a.ProjectedCostPerUse, true
		}
	case CostBasisActual:
		if a.CostPerUse != nil {
			return *a.CostPerUse, true
		}
	}
	return decimal.Zero, false
}

// AnalysisReport is everything one analysis run derives from a batch of reports.
type AnalysisReport struct {
	Metric           MetricType       `json:"metric"`
	AvailableMetrics []MetricType     `json:"available_metrics"`
	MetricError      string           `json:"metric_error,omitempty"`
	Files            []FileDetail     `json:"files"`
	Rejected         []RejectedFile   `json:"rejected,omitempty"`
	Warnings         []Warning        `json:"warnings,omitempty"`
	Periods          []PeriodAnalysis `json:"periods"`
	Titles           []string         `json:"titles"`
	Trend            []TrendRow       `json:"trend"`
	CostSeries       []CostPoint      `json:"cost_series"`
	GeneratedAt      time.Time        `json:"generated_at"`
}

// Period returns the analysis overlay for the given identifier.
func (r AnalysisReport) Period(identifier string) (PeriodAnalysis, bool) {
	for _, p := range r.Periods {
		if p.Identifier == identifier {
			return p, true
		}
	}
	return PeriodAnalysis{}, false
}

package usage

import (
	"counterviz/pkg/contracts/domain"
)

// DefaultFullYearDays is the minimum span, in days, of a full fiscal year.
// It tolerates short calendar months while rejecting anything materially
// shorter than twelve months.
const DefaultFullYearDays = 335

// Classifier labels periods as full-year or partial.
type Classifier struct {
	fullYearDays int
}

// NewClassifier creates a classifier; a non-positive threshold uses DefaultFullYearDays.
func NewClassifier(fullYearDays int) *Classifier {
	if fullYearDays <= 0 {
		fullYearDays = DefaultFullYearDays
	}
	return &Classifier{fullYearDays: fullYearDays}
}

// SpanDays is the number of days from the first day of start to the last
// day of end.
func SpanDays(start, end domain.CalendarMonth) int {
	return int(end.EndDate().Sub(start.StartDate()).Hours() / 24)
}

// IsFullYear reports whether the period spans at least the full-year threshold.
func (c *Classifier) IsFullYear(period domain.FiscalPeriod) bool {
	return SpanDays(period.StartMonth, period.EndMonth) >= c.fullYearDays
}

// Partition splits periods into complete and incomplete groups, keeping input
// order inside each group. Every period lands in exactly one group.
func (c *Classifier) Partition(periods []domain.FiscalPeriod) (complete, incomplete []domain.FiscalPeriod) {
	complete = make([]domain.FiscalPeriod, 0, len(periods))
	incomplete = make([]domain.FiscalPeriod, 0)
	for _, p := range periods {
		if c.IsFullYear(p) {
			complete = append(complete, p)
		} else {
			incomplete = append(incomplete, p)
		}
	}
	return complete, incomplete
}

package usage

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"counterviz/pkg/contracts/domain"
)

// Alignment selects how a reference period's months are matched to the
// months elapsed in the period being projected.
type Alignment string

const (
	// AlignCalendar sums the reference months by their calendar labels,
	// counting from the reference's fiscal-year start.
	AlignCalendar Alignment = "calendar"
	// AlignPosition sums the first N month columns of the reference.
	AlignPosition Alignment = "position"
)

// ParseAlignment validates an alignment name; empty selects AlignCalendar.
func ParseAlignment(s string) (Alignment, error) {
	switch Alignment(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlignCalendar:
		return AlignCalendar, nil
	case AlignPosition:
		return AlignPosition, nil
	}
	return "", fmt.Errorf("unknown alignment %q: want %q or %q", s, AlignCalendar, AlignPosition)
}

// Projector estimates full-year usage of partial periods from the seasonal
// shape of complete ones.
type Projector struct {
	alignment Alignment
	logger    *slog.Logger
}

// NewProjector creates a projector.
func NewProjector(alignment Alignment, logger *slog.Logger) *Projector {
	if alignment == "" {
		alignment = AlignCalendar
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Projector{alignment: alignment, logger: logger}
}

// ProjectionResult pairs a partial period with its projection or the reason
// it could not be projected.
type ProjectionResult struct {
	Period     string
	Projection *domain.Projection
	Err        error
}

// Project estimates the full-year usage total of incomplete:
//
//	fraction(c)     = usage of c over the elapsed months / c.ReportingTotal
//	projected_total = round(incomplete.ReportingTotal / mean(fraction))
//
// All periods must have the same metric selected.
func (p *Projector) Project(complete []domain.FiscalPeriod, incomplete domain.FiscalPeriod) (domain.Projection, error) {
	id := incomplete.Identifier
	if len(complete) == 0 {
		return domain.Projection{}, newError(KindNoReferenceData, id, "no complete fiscal years to project from")
	}
	if !incomplete.MetricSelected() {
		return domain.Projection{}, newError(KindUnknownMetricType, id, "no metric type selected")
	}

	elapsed := incomplete.MonthsElapsed()
	if elapsed < 1 {
		return domain.Projection{}, malformed(id, "end month %s is before start month %s",
			incomplete.EndMonth, incomplete.StartMonth)
	}

	refs := make([]domain.ReferenceFraction, 0, len(complete))
	var sum float64
	for _, c := range complete {
		if c.Metric != incomplete.Metric {
			return domain.Projection{}, newError(KindUnknownMetricType, id,
				"reference %s uses metric %q, expected %q", c.Identifier, string(c.Metric), string(incomplete.Metric))
		}
		if c.StartMonth.Month != incomplete.StartMonth.Month {
			return domain.Projection{}, newError(KindFiscalYearMismatch, id,
				"fiscal year starts in %s but reference %s starts in %s",
				incomplete.StartMonth.Month, c.Identifier, c.StartMonth.Month).
				WithContext("reference", c.Identifier)
		}
		if c.ReportingTotal == 0 {
			return domain.Projection{}, newError(KindNoReferenceData, id,
				"reference %s has a reporting total of zero", c.Identifier).
				WithContext("reference", c.Identifier)
		}

		toDate, err := p.usageToDate(c, elapsed)
		if err != nil {
			err.Period = id
			return domain.Projection{}, err
		}

		fraction := toDate / c.ReportingTotal
		refs = append(refs, domain.ReferenceFraction{
			Period:         c.Identifier,
			UsageToDate:    toDate,
			ReportingTotal: c.ReportingTotal,
			Fraction:       fraction,
		})
		sum += fraction
	}

	avg := sum / float64(len(refs))
	if !(avg > 0) || math.IsInf(avg, 0) {
		return domain.Projection{}, newError(KindDegenerateProjection, id,
			"average fraction over %d months is %v", elapsed, avg)
	}

	projected := math.RoundToEven(incomplete.ReportingTotal / avg)
	if math.IsNaN(projected) || math.Abs(projected) >= math.MaxInt64 {
		return domain.Projection{}, newError(KindDegenerateProjection, id,
			"projected total %v is out of range (average fraction %v)", projected, avg)
	}

	p.logger.Debug("usage projected",
		slog.String("period", id),
		slog.Int("months_elapsed", elapsed),
		slog.Int("references", len(refs)),
		slog.Float64("average_fraction", avg),
		slog.Float64("projected_total", projected))

	return domain.Projection{
		Period:          id,
		MonthsElapsed:   elapsed,
		Alignment:       string(p.alignment),
		References:      refs,
		AverageFraction: avg,
		ObservedTotal:   incomplete.ReportingTotal,
		ProjectedTotal:  int64(projected),
		RemainingMonths: RemainingMonths(incomplete.StartMonth, incomplete.EndMonth),
	}, nil
}

// ProjectAll projects every partial period independently against the same
// references. Results keep the order of incomplete.
func (p *Projector) ProjectAll(complete, incomplete []domain.FiscalPeriod) []ProjectionResult {
	results := make([]ProjectionResult, 0, len(incomplete))
	for _, period := range incomplete {
		proj, err := p.Project(complete, period)
		if err != nil {
			p.logger.Warn("projection unavailable",
				slog.String("period", period.Identifier),
				slog.String("error", err.Error()))
			results = append(results, ProjectionResult{Period: period.Identifier, Err: err})
			continue
		}
		results = append(results, ProjectionResult{Period: period.Identifier, Projection: &proj})
	}
	return results
}

func (p *Projector) usageToDate(c domain.FiscalPeriod, elapsed int) (float64, *Error) {
	var total float64
	switch p.alignment {
	case AlignPosition:
		if len(c.Months) < elapsed {
			return 0, newError(KindFiscalYearMismatch, "",
				"reference %s has %d month columns, need %d", c.Identifier, len(c.Months), elapsed)
		}
		for _, m := range c.Months[:elapsed] {
			total += c.MonthTotal(m)
		}
	default:
		for k := 0; k < elapsed; k++ {
			m := c.StartMonth.AddMonths(k)
			if !c.HasMonth(m) {
				return 0, newError(KindFiscalYearMismatch, "",
					"reference %s has no data for %s", c.Identifier, m).
					WithContext("reference", c.Identifier)
			}
			total += c.MonthTotal(m)
		}
	}
	return total, nil
}

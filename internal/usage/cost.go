package usage

import (
	"strings"

	"github.com/shopspring/decimal"

	"counterviz/pkg/contracts/domain"
)

// CostPerUse divides a package cost by a usage total.
func CostPerUse(totalCost, usageTotal decimal.Decimal) (decimal.Decimal, error) {
	if totalCost.IsNegative() {
		return decimal.Zero, newError(KindInvalidCost, "", "cost %s is negative", totalCost.String())
	}
	if !usageTotal.IsPositive() {
		return decimal.Zero, newError(KindUndefinedCostPerUse, "", "usage total %s is not positive", usageTotal.String())
	}
	return totalCost.Div(usageTotal), nil
}

// ParseCost reads user cost input such as "1000", "$1,250.50" or " 99.9 ".
func ParseCost(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "$")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return decimal.Zero, newError(KindInvalidCost, "", "cost is empty")
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, &Error{Kind: KindInvalidCost, Message: "cost " + strings.TrimSpace(s) + " is not a number", Cause: err}
	}
	if d.IsNegative() {
		return decimal.Zero, newError(KindInvalidCost, "", "cost %s is negative", d.String())
	}
	return d, nil
}

// FormatCost renders an amount with two decimals.
func FormatCost(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// PeriodCost holds both cost-per-use figures for one period and the basis
// the caller chose.
type PeriodCost struct {
	Actual    *decimal.Decimal
	Projected *decimal.Decimal
	Basis     domain.CostBasis
}

// CostForPeriod computes the actual cost-per-use of a period and, when a
// projection is supplied, the projected one. The policy picks the basis:
// with CostPolicyAuto a partial period is compared on its projected
// full-year usage. When the chosen basis cannot be computed the error
// explains why and the other figure, if any, is still returned.
func CostForPeriod(cost decimal.Decimal, period domain.FiscalPeriod, isFullYear bool, projection *domain.Projection, policy domain.CostPolicy) (PeriodCost, error) {
	var result PeriodCost

	actual, actualErr := CostPerUse(cost, decimal.NewFromFloat(period.ReportingTotal))
	if actualErr == nil {
		result.Actual = &actual
	}

	var projectedErr error
	if projection != nil {
		projected, err := CostPerUse(cost, decimal.NewFromInt(projection.ProjectedTotal))
		if err == nil {
			result.Projected = &projected
		}
		projectedErr = err
	}

	result.Basis = domain.CostBasisActual
	if policy != domain.CostPolicyActual && !isFullYear {
		result.Basis = domain.CostBasisProjected
	}

	switch result.Basis {
	case domain.CostBasisProjected:
		if projection == nil {
			return result, newError(KindNoReferenceData, period.Identifier, "no projected usage for partial period")
		}
		if projectedErr != nil {
			return result, withPeriod(projectedErr, period.Identifier)
		}
	default:
		if actualErr != nil {
			return result, withPeriod(actualErr, period.Identifier)
		}
	}
	return result, nil
}

func withPeriod(err error, period string) error {
	if e, ok := err.(*Error); ok && e.Period == "" {
		copied := *e
		copied.Period = period
		return &copied
	}
	return err
}

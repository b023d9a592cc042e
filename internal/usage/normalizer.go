package usage

import (
	"log/slog"
	"math"
	"strconv"
	"strings"

	"counterviz/pkg/contracts/domain"
)

// Fixed TR_J1 columns.
const (
	ColumnTitle                = "Title"
	ColumnMetricType           = "Metric_Type"
	ColumnReportingPeriodTotal = "Reporting_Period_Total"
	ColumnRowIndex             = "Row Index"
)

// DefaultMissingValue replaces absent numeric cells so a missing month does
// not zero out a title.
const DefaultMissingValue = 1.0

// FullYearMonths is the number of month columns of a complete report.
const FullYearMonths = 12

// DefaultAdministrativeColumns are identifier columns carrying no usage data.
func DefaultAdministrativeColumns() []string {
	return []string{
		"Publisher",
		"Publisher_ID",
		"Platform",
		"DOI",
		"Proprietary_ID",
		"Print_ISSN",
		"Online_ISSN",
		"URI",
	}
}

// NormalizerConfig controls how raw tables become fiscal periods.
type NormalizerConfig struct {
	MissingValue          float64
	AdministrativeColumns []string
}

// DefaultNormalizerConfig returns the standard TR_J1 settings.
func DefaultNormalizerConfig() NormalizerConfig {
	return NormalizerConfig{
		MissingValue:          DefaultMissingValue,
		AdministrativeColumns: DefaultAdministrativeColumns(),
	}
}

// Normalizer turns loaded tables into FiscalPeriods.
type Normalizer struct {
	cfg    NormalizerConfig
	admin  map[string]struct{}
	logger *slog.Logger
}

// NewNormalizer creates a normalizer. A nil logger falls back to slog.Default().
func NewNormalizer(cfg NormalizerConfig, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	admin := make(map[string]struct{}, len(cfg.AdministrativeColumns))
	for _, c := range cfg.AdministrativeColumns {
		admin[c] = struct{}{}
	}
	return &Normalizer{cfg: cfg, admin: admin, logger: logger}
}

type monthColumn struct {
	name  string
	month domain.CalendarMonth
}

// Normalize converts one table into a FiscalPeriod. Either the whole period
// is returned or a MalformedPeriod error; warnings are returned as data.
func (n *Normalizer) Normalize(record domain.TabularRecord) (domain.FiscalPeriod, []domain.Warning, error) {
	id := strings.TrimSpace(record.Name)
	if id == "" {
		return domain.FiscalPeriod{}, nil, malformed("", "report has no name")
	}

	var (
		months  []monthColumn
		present = make(map[string]bool)
		used    []string
	)
	for _, col := range record.Columns {
		if _, ok := n.admin[col.Name]; ok {
			continue
		}
		used = append(used, col.Name)
		if isFixedColumn(col.Name) {
			present[col.Name] = true
			continue
		}
		// Labels that are not dates are fixed columns outside the month set.
		// A repeated month keeps its original label so the order check sees it.
		if m, ok := ParseMonthLabel(col.Header()); ok {
			months = append(months, monthColumn{name: col.Name, month: m})
		}
	}

	for _, required := range []string{ColumnTitle, ColumnMetricType, ColumnReportingPeriodTotal} {
		if !present[required] {
			return domain.FiscalPeriod{}, nil, malformed(id, "missing required column %q", required).
				WithContext("column", required)
		}
	}
	if len(months) == 0 {
		return domain.FiscalPeriod{}, nil, malformed(id, "no month columns found")
	}
	for i := 1; i < len(months); i++ {
		if !months[i].month.After(months[i-1].month) {
			return domain.FiscalPeriod{}, nil, malformed(id,
				"month column %q (%s) is not after %q (%s)",
				months[i].name, months[i].month, months[i-1].name, months[i-1].month).
				WithContext("column", months[i].name)
		}
	}

	var (
		rows       = make([]domain.UsageRow, 0, len(record.Rows))
		filled     int
		mismatched int
	)
	for i := range record.Rows {
		if isBlankRow(record, i, used) {
			continue
		}

		counts := make([]domain.MonthlyCount, len(months))
		for j, mc := range months {
			v, wasMissing, err := n.numeric(record.Cell(i, mc.name))
			if err != nil {
				return domain.FiscalPeriod{}, nil, malformed(id, "row %d column %q: %v", i+1, mc.name, err).
					WithContext("row", i+1).WithContext("column", mc.name)
			}
			if wasMissing {
				filled++
			}
			counts[j] = domain.MonthlyCount{Month: mc.month, Count: v}
		}

		total, wasMissing, err := n.numeric(record.Cell(i, ColumnReportingPeriodTotal))
		if err != nil {
			return domain.FiscalPeriod{}, nil, malformed(id, "row %d column %q: %v", i+1, ColumnReportingPeriodTotal, err).
				WithContext("row", i+1).WithContext("column", ColumnReportingPeriodTotal)
		}
		if wasMissing {
			filled++
		}
		metric, err := domain.ParseMetricType(record.Cell(i, ColumnMetricType).String())
		if err != nil {
			metric = domain.MetricUnrecognized
		}

		row := domain.UsageRow{
			Title:                strings.TrimSpace(record.Cell(i, ColumnTitle).String()),
			MetricType:           metric,
			MonthlyCounts:        counts,
			ReportingPeriodTotal: total,
		}
		if math.Abs(total-row.MonthlySum()) > 1e-9 {
			mismatched++
		}
		rows = append(rows, row)
	}

	period := domain.FiscalPeriod{
		Identifier: id,
		Rows:       rows,
		StartMonth: months[0].month,
		EndMonth:   months[len(months)-1].month,
		Months:     make([]domain.CalendarMonth, len(months)),
	}
	for i, mc := range months {
		period.Months[i] = mc.month
	}

	var warnings []domain.Warning
	if len(months) < FullYearMonths {
		warnings = append(warnings, domain.Warning{
			Code:    domain.WarningShortPeriod,
			Period:  id,
			Message: "report contains less than 12 months of data",
			Months:  period.Months,
		})
	}
	if filled > 0 {
		warnings = append(warnings, domain.Warning{
			Code:    domain.WarningMissingValuesFilled,
			Period:  id,
			Message: strconv.Itoa(filled) + " missing values replaced with " + strconv.FormatFloat(n.cfg.MissingValue, 'f', -1, 64),
		})
	}
	if mismatched > 0 {
		warnings = append(warnings, domain.Warning{
			Code:    domain.WarningTotalMismatch,
			Period:  id,
			Message: strconv.Itoa(mismatched) + " rows have a reporting period total that differs from the sum of their months",
		})
	}

	n.logger.Debug("report normalized",
		slog.String("period", id),
		slog.String("range", period.DateRange()),
		slog.Int("rows", len(rows)),
		slog.Int("months", len(months)),
		slog.Int("warnings", len(warnings)))

	return period, warnings, nil
}

// numeric reads a count cell, substituting the missing value placeholder.
func (n *Normalizer) numeric(c domain.Cell) (value float64, wasMissing bool, err error) {
	switch c.Kind {
	case domain.CellNumber:
		return c.Number, false, nil
	case domain.CellString:
		s := strings.TrimSpace(c.Text)
		if s == "" || strings.EqualFold(s, "nan") {
			return n.cfg.MissingValue, true, nil
		}
		v, err := parseCount(s)
		return v, false, err
	default:
		return n.cfg.MissingValue, true, nil
	}
}

// parseCount parses a number that may carry thousands separators.
func parseCount(s string) (float64, error) {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &strconv.NumError{Func: "parseCount", Num: s, Err: strconv.ErrSyntax}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &strconv.NumError{Func: "parseCount", Num: s, Err: strconv.ErrRange}
	}
	return v, nil
}

func isFixedColumn(name string) bool {
	switch name {
	case ColumnTitle, ColumnMetricType, ColumnReportingPeriodTotal, ColumnRowIndex:
		return true
	}
	return false
}

func isBlankRow(record domain.TabularRecord, i int, columns []string) bool {
	for _, c := range columns {
		cell := record.Cell(i, c)
		if cell.IsMissing() {
			continue
		}
		if cell.Kind == domain.CellString && strings.TrimSpace(cell.Text) == "" {
			continue
		}
		return false
	}
	return true
}

// SelectMetric keeps the rows of one metric type and sets ReportingTotal.
// The input period is left untouched.
func SelectMetric(period domain.FiscalPeriod, metric domain.MetricType) (domain.FiscalPeriod, error) {
	if !metric.Valid() {
		return domain.FiscalPeriod{}, newError(KindUnknownMetricType, period.Identifier,
			"metric type %q is not supported", string(metric))
	}

	rows := make([]domain.UsageRow, 0, len(period.Rows))
	var total float64
	for _, row := range period.Rows {
		if row.MetricType != metric {
			continue
		}
		rows = append(rows, row)
		total += row.ReportingPeriodTotal
	}
	if len(rows) == 0 {
		return domain.FiscalPeriod{}, newError(KindUnknownMetricType, period.Identifier,
			"no %s rows in report", string(metric)).WithContext("metric", string(metric))
	}

	selected := period
	selected.Rows = rows
	selected.Metric = metric
	selected.ReportingTotal = total
	return selected, nil
}

// HasMetric reports whether any row of the period counts the given metric.
func HasMetric(period domain.FiscalPeriod, metric domain.MetricType) bool {
	for _, row := range period.Rows {
		if row.MetricType == metric {
			return true
		}
	}
	return false
}

// AvailableMetrics returns the supported metrics present in every period.
func AvailableMetrics(periods []domain.FiscalPeriod) []domain.MetricType {
	if len(periods) == 0 {
		return nil
	}
	var available []domain.MetricType
	for _, m := range domain.SupportedMetrics {
		inAll := true
		for _, p := range periods {
			if !HasMetric(p, m) {
				inAll = false
				break
			}
		}
		if inAll {
			available = append(available, m)
		}
	}
	return available
}

package usage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"counterviz/pkg/contracts/domain"
)

// Config gathers the engine settings.
type Config struct {
	Normalizer    NormalizerConfig
	FullYearDays  int
	Alignment     Alignment
	DefaultMetric domain.MetricType
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		Normalizer:    DefaultNormalizerConfig(),
		FullYearDays:  DefaultFullYearDays,
		Alignment:     AlignCalendar,
		DefaultMetric: domain.MetricTotalItemRequests,
	}
}

// UsageRange bounds the reporting period totals shown in a distribution.
type UsageRange struct {
	Min float64 `json:"min" validate:"gte=0"`
	Max float64 `json:"max" validate:"gtefield=Min"`
}

// Request carries the user input of one analysis run.
type Request struct {
	// Metric selects Unique or Total rows in every period. Empty uses the
	// configured default when available, else the first available metric.
	Metric domain.MetricType `json:"metric"`
	// Costs maps period identifiers to the package cost of that period.
	Costs      map[string]decimal.Decimal `json:"costs,omitempty"`
	CostPolicy domain.CostPolicy          `json:"cost_policy,omitempty"`
	// Titles selects the titles of the trend view.
	Titles     []string    `json:"titles,omitempty"`
	UsageRange *UsageRange `json:"usage_range,omitempty"`
}

// Normalized is the result of normalizing a batch of tables.
type Normalized struct {
	Periods  []domain.FiscalPeriod
	Warnings []domain.Warning
	Rejected []domain.RejectedFile
}

// Analyzer runs a complete analysis over a batch of tables. It holds no
// state between runs; every call derives everything from its input.
type Analyzer struct {
	cfg        Config
	normalizer *Normalizer
	classifier *Classifier
	projector  *Projector
	logger     *slog.Logger
	now        func() time.Time
}

// NewAnalyzer wires the engine components from cfg.
func NewAnalyzer(cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.Normalizer, logger),
		classifier: NewClassifier(cfg.FullYearDays),
		projector:  NewProjector(cfg.Alignment, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// Classifier exposes the analyzer's classifier.
func (a *Analyzer) Classifier() *Classifier { return a.classifier }

// NormalizeAll normalizes every table. A table that fails is rejected on its
// own and the rest of the batch continues. Periods come back sorted by start month.
func (a *Analyzer) NormalizeAll(ctx context.Context, records []domain.TabularRecord) Normalized {
	var out Normalized
	seen := make(map[string]bool, len(records))

	for _, rec := range records {
		period, warnings, err := a.normalizer.Normalize(rec)
		if err == nil && seen[period.Identifier] {
			err = malformed(period.Identifier, "duplicate report name")
		}
		if err != nil {
			a.logger.WarnContext(ctx, "report rejected",
				slog.String("report", rec.Name),
				slog.String("error", err.Error()))
			out.Rejected = append(out.Rejected, domain.RejectedFile{
				Name:   rec.Name,
				Kind:   string(KindOf(err)),
				Reason: err.Error(),
			})
			continue
		}
		seen[period.Identifier] = true
		out.Periods = append(out.Periods, period)
		out.Warnings = append(out.Warnings, warnings...)
	}

	out.Periods = SortByStart(out.Periods)
	out.Warnings = append(out.Warnings, DetectOverlaps(out.Periods)...)
	return out
}

// Analyze normalizes records and derives every view of the report.
// Failures are local: a bad file is rejected, a failed projection or cost
// leaves that field unavailable, and the rest of the report is still built.
func (a *Analyzer) Analyze(ctx context.Context, records []domain.TabularRecord, req Request) domain.AnalysisReport {
	start := a.now()
	norm := a.NormalizeAll(ctx, records)

	report := domain.AnalysisReport{
		Files:            lo.Map(norm.Periods, func(p domain.FiscalPeriod, _ int) domain.FileDetail { return FileDetail(p) }),
		Rejected:         norm.Rejected,
		Warnings:         norm.Warnings,
		AvailableMetrics: AvailableMetrics(norm.Periods),
		Periods:          []domain.PeriodAnalysis{},
		Titles:           []string{},
		Trend:            []domain.TrendRow{},
		CostSeries:       []domain.CostPoint{},
		GeneratedAt:      start.UTC(),
	}
	if len(norm.Periods) == 0 {
		return report
	}

	metric := a.chooseMetric(req.Metric, report.AvailableMetrics)
	report.Metric = metric

	selected := make([]domain.FiscalPeriod, 0, len(norm.Periods))
	for _, p := range norm.Periods {
		s, err := SelectMetric(p, metric)
		if err != nil {
			report.MetricError = err.Error()
			a.logger.WarnContext(ctx, "metric analysis unavailable",
				slog.String("metric", string(metric)),
				slog.String("error", err.Error()))
			return report
		}
		selected = append(selected, s)
	}

	complete, incomplete := a.classifier.Partition(selected)
	projections := make(map[string]ProjectionResult, len(incomplete))
	for _, r := range a.projector.ProjectAll(complete, incomplete) {
		projections[r.Period] = r
	}

	policy := req.CostPolicy
	if policy == "" {
		policy = domain.CostPolicyAuto
	}

	for _, p := range selected {
		pa := a.analyzePeriod(p, projections, req, policy)
		if pa.ProjectionError != "" {
			report.Warnings = append(report.Warnings, domain.Warning{
				Code:    domain.WarningProjectionUnavailable,
				Period:  p.Identifier,
				Message: pa.ProjectionError,
			})
		}
		if pa.CostError != "" {
			report.Warnings = append(report.Warnings, domain.Warning{
				Code:    domain.WarningCostUnavailable,
				Period:  p.Identifier,
				Message: pa.CostError,
			})
		}
		report.Periods = append(report.Periods, pa)
	}

	report.Titles = Titles(selected)
	report.Trend = MergeForTrend(selected, req.Titles)
	report.CostSeries = CostSeries(report.Periods)

	a.logger.InfoContext(ctx, "analysis completed",
		slog.Int("periods", len(selected)),
		slog.Int("complete", len(complete)),
		slog.Int("incomplete", len(incomplete)),
		slog.Int("rejected", len(report.Rejected)),
		slog.String("metric", string(metric)),
		slog.Duration("duration", a.now().Sub(start)))

	return report
}

func (a *Analyzer) analyzePeriod(p domain.FiscalPeriod, projections map[string]ProjectionResult, req Request, policy domain.CostPolicy) domain.PeriodAnalysis {
	full := a.classifier.IsFullYear(p)
	view := p
	if req.UsageRange != nil {
		view = FilterByUsage(p, req.UsageRange.Min, req.UsageRange.Max)
	}
	buckets := UsageDistribution(view)

	pa := domain.PeriodAnalysis{
		Identifier:     p.Identifier,
		DateRange:      p.DateRange(),
		IsFullYear:     full,
		SpanDays:       SpanDays(p.StartMonth, p.EndMonth),
		ReportingTotal: p.ReportingTotal,
		Distribution:   buckets,
		Stats:          DistributionStats(buckets),
	}

	var projection *domain.Projection
	if r, ok := projections[p.Identifier]; ok {
		if r.Err != nil {
			pa.ProjectionError = r.Err.Error()
			level := slog.LevelWarn
			if IsUnavailable(r.Err) {
				level = slog.LevelInfo
			}
			a.logger.Log(context.Background(), level, "projection unavailable",
				slog.String("period", p.Identifier),
				slog.String("kind", string(KindOf(r.Err))),
				slog.String("error", r.Err.Error()))
		} else {
			projection = r.Projection
			total := r.Projection.ProjectedTotal
			pa.Projection = r.Projection
			pa.ProjectedUsage = &total
		}
	}

	cost, ok := req.Costs[p.Identifier]
	if !ok {
		return pa
	}
	pa.Cost = &cost
	pc, err := CostForPeriod(cost, p, full, projection, policy)
	pa.CostPerUse = pc.Actual
	pa.ProjectedCostPerUse = pc.Projected
	pa.CostBasis = pc.Basis
	if err != nil {
		pa.CostError = err.Error()
	}
	return pa
}

func (a *Analyzer) chooseMetric(requested domain.MetricType, available []domain.MetricType) domain.MetricType {
	if requested != "" {
		return requested
	}
	if lo.Contains(available, a.cfg.DefaultMetric) {
		return a.cfg.DefaultMetric
	}
	if len(available) > 0 {
		return available[0]
	}
	return a.cfg.DefaultMetric
}

// IsUnavailable reports whether err only marks a derived field unavailable
// rather than a bad input.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrNoReferenceData) ||
		errors.Is(err, ErrDegenerateProjection) ||
		errors.Is(err, ErrFiscalYearMismatch)
}

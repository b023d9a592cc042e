package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"counterviz/internal/exporter"
	"counterviz/internal/infrastructure"
	"counterviz/internal/loader"
	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

// Analysis sources recorded in metrics.
const (
	SourceUpload  = "upload"
	SourceFiles   = "files"
	SourceLibrary = "library"
)

// AnalysisService loads reports and runs the usage engine over them.
type AnalysisService struct {
	loader   *loader.Loader
	analyzer *usage.Analyzer
	exporter *exporter.Exporter
	metrics  *infrastructure.AnalysisMetrics
	logger   *slog.Logger
}

// NewAnalysisService wires the service. metrics may be nil.
func NewAnalysisService(l *loader.Loader, a *usage.Analyzer, exp *exporter.Exporter, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		loader:   l,
		analyzer: a,
		exporter: exp,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "analysis_service"),
	}
}

// AnalyzeUploads parses uploaded report bodies and analyzes them.
func (s *AnalysisService) AnalyzeUploads(ctx context.Context, inputs []loader.Input, req usage.Request) (domain.AnalysisReport, error) {
	if len(inputs) == 0 {
		return domain.AnalysisReport{}, ErrNoReports
	}
	return s.run(ctx, SourceUpload, req, func(ctx context.Context) ([]domain.TabularRecord, []domain.RejectedFile, error) {
		return s.loader.ParseAll(ctx, inputs)
	})
}

// AnalyzeFiles loads reports from local paths and analyzes them.
func (s *AnalysisService) AnalyzeFiles(ctx context.Context, paths []string, req usage.Request) (domain.AnalysisReport, error) {
	if len(paths) == 0 {
		return domain.AnalysisReport{}, ErrNoReports
	}
	return s.run(ctx, SourceFiles, req, func(ctx context.Context) ([]domain.TabularRecord, []domain.RejectedFile, error) {
		return s.loader.LoadFiles(ctx, paths)
	})
}

// AnalyzeSource loads every report of src and analyzes them.
func (s *AnalysisService) AnalyzeSource(ctx context.Context, src loader.Source, req usage.Request) (domain.AnalysisReport, error) {
	return s.run(ctx, SourceLibrary, req, func(ctx context.Context) ([]domain.TabularRecord, []domain.RejectedFile, error) {
		return s.loader.LoadAll(ctx, src)
	})
}

type loadFunc func(ctx context.Context) ([]domain.TabularRecord, []domain.RejectedFile, error)

func (s *AnalysisService) run(ctx context.Context, source string, req usage.Request, load loadFunc) (domain.AnalysisReport, error) {
	ctx, span := infrastructure.StartSpan(ctx, "analysis.run", attribute.String("source", source))
	defer span.End()
	start := time.Now()

	records, rejected, err := load(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "loading reports failed",
			slog.String("source", source),
			slog.String("error", err.Error()))
		return domain.AnalysisReport{}, err
	}

	report := s.analyzer.Analyze(ctx, records, req)
	// Files the loader could not read come first, then normalization failures.
	report.Rejected = append(rejected, report.Rejected...)

	duration := time.Since(start)
	s.metrics.RecordAnalysis(ctx, source, report, duration)
	span.SetAttributes(
		attribute.Int("periods", len(report.Periods)),
		attribute.Int("rejected", len(report.Rejected)),
		attribute.String("metric", string(report.Metric)),
	)

	s.logger.InfoContext(ctx, "analysis finished",
		slog.String("source", source),
		slog.Int("reports", len(records)+len(rejected)),
		slog.Int("periods", len(report.Periods)),
		slog.Int("rejected", len(report.Rejected)),
		slog.Int("warnings", len(report.Warnings)),
		slog.Duration("duration", duration))

	return report, nil
}

// Export renders report in format.
func (s *AnalysisService) Export(ctx context.Context, report domain.AnalysisReport, format exporter.Format) ([]byte, error) {
	data, err := s.exporter.Render(report, format)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordExport(ctx, string(format))
	return data, nil
}

// SaveExport renders report in format and stores it in the export directory.
func (s *AnalysisService) SaveExport(ctx context.Context, report domain.AnalysisReport, format exporter.Format) (string, error) {
	path, err := s.exporter.Save(report, format)
	if err != nil {
		return "", err
	}
	s.metrics.RecordExport(ctx, string(format))
	return path, nil
}

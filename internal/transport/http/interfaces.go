package http

import (
	"context"

	"counterviz/internal/exporter"
	"counterviz/internal/loader"
	"counterviz/internal/services"
	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

// AnalysisService is the part of services.AnalysisService the handlers use.
type AnalysisService interface {
	AnalyzeUploads(ctx context.Context, inputs []loader.Input, req usage.Request) (domain.AnalysisReport, error)
	Export(ctx context.Context, report domain.AnalysisReport, format exporter.Format) ([]byte, error)
}

// LibraryService exposes the scheduled analysis of the report library.
type LibraryService interface {
	Latest() (domain.AnalysisReport, error)
	Status() services.LibraryStatus
	Refresh(ctx context.Context) error
}

// HealthService reports process health.
type HealthService interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

var (
	_ AnalysisService = (*services.AnalysisService)(nil)
	_ LibraryService  = (*services.LibraryService)(nil)
	_ HealthService   = (*services.HealthService)(nil)
)

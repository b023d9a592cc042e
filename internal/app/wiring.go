package app

import (
	"context"
	"log/slog"

	"counterviz/internal/config"
	"counterviz/internal/exporter"
	"counterviz/internal/files"
	"counterviz/internal/infrastructure"
	"counterviz/internal/loader"
	"counterviz/internal/services"
	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

// NewAnalysisService builds the loader, engine and exporter described by cfg.
// metrics may be nil.
func NewAnalysisService(cfg *config.Config, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *services.AnalysisService {
	l := loader.NewLoader(loader.Options{HeaderRows: cfg.Analysis.HeaderRows}, logger)
	analyzer := usage.NewAnalyzer(cfg.EngineConfig(), logger)

	var manager *files.Manager
	if cfg.Storage.ExportDir != "" {
		manager = files.NewManager(cfg.Storage.ExportDir, logger)
	}
	exp := exporter.New(manager, logger)

	return services.NewAnalysisService(l, analyzer, exp, metrics, logger)
}

// NewLibrarySource returns the S3 prefix when a bucket is configured, else
// the reports directory.
func NewLibrarySource(ctx context.Context, cfg *config.Config) (loader.Source, error) {
	if cfg.Storage.S3.Enabled() {
		client, err := loader.NewS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		return loader.NewS3Source(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix), nil
	}
	return loader.NewDirSource(cfg.Storage.ReportsDir), nil
}

// LibraryRequest is the analysis request of every library scan.
func LibraryRequest(cfg *config.Config) usage.Request {
	return usage.Request{CostPolicy: domain.CostPolicy(cfg.Analysis.CostPolicy)}
}

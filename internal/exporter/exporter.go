package exporter

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	apierrors "counterviz/internal/errors"
	"counterviz/internal/files"
	"counterviz/pkg/contracts/domain"
)

// Exporter renders reports and stores them through a files.Manager.
type Exporter struct {
	files  *files.Manager
	logger *slog.Logger
	now    func() time.Time
}

// New creates an exporter. A nil manager is allowed when only Render is used.
func New(manager *files.Manager, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		files:  manager,
		logger: logger.With(slog.String("component", "exporter")),
		now:    time.Now,
	}
}

// Render encodes report in the given format.
func (e *Exporter) Render(report domain.AnalysisReport, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		if err := WriteCSV(&buf, DistributionTable(report), CSVOptions{BOMPrefix: true}); err != nil {
			return nil, err
		}
	case FormatXLSX:
		if err := WriteWorkbook(&buf, Tables(report)); err != nil {
			return nil, err
		}
	default:
		return nil, apierrors.NewUnsupportedFormatError(string(format))
	}
	return buf.Bytes(), nil
}

// FileName returns the download name for a report generated at t.
func FileName(format Format, t time.Time) string {
	return fmt.Sprintf("usage_analysis_%s%s", t.UTC().Format("20060102_150405"), format.Extension())
}

// Save renders report and writes it below the manager's base directory,
// returning the written path.
func (e *Exporter) Save(report domain.AnalysisReport, format Format) (string, error) {
	if e.files == nil {
		return "", apierrors.NewConfigError("no export directory configured", nil)
	}
	data, err := e.Render(report, format)
	if err != nil {
		return "", err
	}

	generated := report.GeneratedAt
	if generated.IsZero() {
		generated = e.now()
	}
	path, err := e.files.WriteFile(FileName(format, generated), data)
	if err != nil {
		return "", apierrors.NewStorageError("cannot write export", err).
			WithContext("format", string(format))
	}

	e.logger.Info("analysis exported",
		slog.String("format", string(format)),
		slog.String("path", path),
		slog.Int("periods", len(report.Periods)))
	return path, nil
}

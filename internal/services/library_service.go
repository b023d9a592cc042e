package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"counterviz/internal/infrastructure"
	"counterviz/internal/loader"
	"counterviz/internal/usage"
	"counterviz/pkg/contracts/domain"
)

// LibraryStatus describes the last scan of the report library.
type LibraryStatus struct {
	Source      string    `json:"source"`
	Loaded      bool      `json:"loaded"`
	Refreshing  bool      `json:"refreshing"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	Reports     int       `json:"reports"`
}

// LibraryService keeps the latest analysis of a configured report library,
// the dataset shown when nothing has been uploaded.
type LibraryService struct {
	source   loader.Source
	analysis *AnalysisService
	request  usage.Request
	metrics  *infrastructure.AnalysisMetrics
	logger   *slog.Logger

	// refreshMu serialises scans; mu guards the fields below.
	refreshMu  sync.Mutex
	mu         sync.RWMutex
	latest     *domain.AnalysisReport
	refreshing bool
	lastRun    time.Time
	lastErr    error
}

// NewLibraryService creates a library over src. req is the analysis request
// used for every scan; the library has no per-period costs.
func NewLibraryService(src loader.Source, analysis *AnalysisService, req usage.Request, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		source:   src,
		analysis: analysis,
		request:  req,
		metrics:  metrics,
		logger:   infrastructure.WithComponent(logger, "library_service"),
	}
}

// Refresh rescans the library. A failed scan keeps the previous report.
// Scheduled runs get their own trace id.
func (s *LibraryService) Refresh(ctx context.Context) error {
	ctx = infrastructure.EnsureTraceID(ctx)

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	s.setRefreshing(true)
	defer s.setRefreshing(false)

	report, err := s.analysis.AnalyzeSource(ctx, s.source, s.request)
	s.metrics.RecordLibraryRefresh(ctx, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = time.Now().UTC()
	s.lastErr = err
	if err != nil {
		infrastructure.WithError(s.logger, err).ErrorContext(ctx, "library refresh failed",
			slog.String("source", s.source.Name()))
		return err
	}
	s.latest = &report

	s.logger.InfoContext(ctx, "library refreshed",
		slog.String("source", s.source.Name()),
		slog.Int("periods", len(report.Periods)),
		slog.Int("rejected", len(report.Rejected)))
	return nil
}

// Latest returns the most recent library report, or ErrLibraryNotLoaded
// before the first successful scan.
func (s *LibraryService) Latest() (domain.AnalysisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return domain.AnalysisReport{}, ErrLibraryNotLoaded
	}
	return *s.latest, nil
}

// Status reports the state of the last scan.
func (s *LibraryService) Status() LibraryStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := LibraryStatus{
		Source:      s.source.Name(),
		Loaded:      s.latest != nil,
		Refreshing:  s.refreshing,
		LastRefresh: s.lastRun,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if s.latest != nil {
		st.Reports = len(s.latest.Files) + len(s.latest.Rejected)
	}
	return st
}

func (s *LibraryService) setRefreshing(v bool) {
	s.mu.Lock()
	s.refreshing = v
	s.mu.Unlock()
}

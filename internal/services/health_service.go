package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"counterviz/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version    string
	buildTime  string
	reportsDir string
	library    *LibraryService
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a health service. reportsDir is checked for
// readiness when set; library may be nil when the library is disabled.
func NewHealthService(version, buildTime, reportsDir string, library *LibraryService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("reports_dir", reportsDir),
		slog.Bool("library", library != nil))

	return &HealthService{
		version:    version,
		buildTime:  buildTime,
		reportsDir: reportsDir,
		library:    library,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.Debug("HealthCheck: performing health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"engine": ServiceHealth{
				Status: "ready",
				Uptime: time.Since(hs.startTime).String(),
			},
			"storage": hs.checkStorageHealth(),
			"library": hs.checkLibraryHealth(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status == "not_ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":         hs.version,
		"api_version":     contracts.APIVersion,
		"counter_release": contracts.CounterRelease,
		"git_commit":      contracts.GitCommit,
		"go_version":      runtime.Version(),
		"os":              runtime.GOOS,
		"arch":            runtime.GOARCH,
		"uptime":          time.Since(hs.startTime).Seconds(),
		"start_time":      hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) checkStorageHealth() ServiceHealth {
	if hs.reportsDir == "" {
		return ServiceHealth{Status: "ready", Message: "no reports directory configured"}
	}
	info, err := os.Stat(hs.reportsDir)
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("reports directory not accessible: %v", err),
		}
	}
	if !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("%s is not a directory", hs.reportsDir),
		}
	}
	return ServiceHealth{Status: "ready"}
}

// checkLibraryHealth never blocks readiness: an unloaded library only
// degrades the default dataset.
func (hs *HealthService) checkLibraryHealth() ServiceHealth {
	if hs.library == nil {
		return ServiceHealth{Status: "disabled"}
	}
	st := hs.library.Status()
	switch {
	case st.Loaded:
		return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d reports from %s", st.Reports, st.Source)}
	case st.LastError != "":
		return ServiceHealth{Status: "degraded", Message: st.LastError}
	default:
		return ServiceHealth{Status: "degraded", Message: "library not scanned yet"}
	}
}

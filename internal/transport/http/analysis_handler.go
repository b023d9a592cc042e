package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "counterviz/internal/errors"
	"counterviz/internal/exporter"
	"counterviz/internal/middleware"
)

// AnalysisHandler serves ad-hoc analyses of uploaded reports.
type AnalysisHandler struct {
	service      AnalysisService
	validator    *middleware.Validator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	now          func() time.Time
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service AnalysisService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *AnalysisHandler {
	return &AnalysisHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		logger:       logger.With(slog.String("handler", "analysis")),
		errorHandler: errorHandler,
		now:          time.Now,
	}
}

// Routes returns the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))

	r.Post("/", h.Analyze)
	r.Post("/export", h.Export)

	return r
}

// Analyze handles POST /api/v1/analysis
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	inputs, req, err := parseAnalysisRequest(r, h.validator)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	report, err := h.service.AnalyzeUploads(r.Context(), inputs, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data":   report,
	})
}

// Export handles POST /api/v1/analysis/export?format=csv|xlsx
func (h *AnalysisHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := exporter.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	inputs, req, err := parseAnalysisRequest(r, h.validator)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ctx := r.Context()
	report, err := h.service.AnalyzeUploads(ctx, inputs, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data, err := h.service.Export(ctx, report, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	name := exporter.FileName(format, h.now())
	h.logger.InfoContext(ctx, "export generated",
		slog.String("format", string(format)),
		slog.String("file", name),
		slog.Int("bytes", len(data)))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(ctx, "writing export failed", slog.String("error", err.Error()))
	}
}

package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "counterviz/internal/errors"
	"counterviz/internal/services"
	"counterviz/pkg/contracts/domain"
)

// LibraryHandler serves the default dataset built from the report library.
// A nil service means the library is disabled.
type LibraryHandler struct {
	service      LibraryService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// libraryResponse pairs the latest library report with the scan status.
type libraryResponse struct {
	Library services.LibraryStatus `json:"library"`
	Report  domain.AnalysisReport  `json:"report"`
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(service LibraryService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *LibraryHandler {
	return &LibraryHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "library")),
		errorHandler: errorHandler,
	}
}

// Routes returns the library routes
func (h *LibraryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.requireLibrary)

	r.Get("/", h.Latest)
	r.Post("/refresh", h.Refresh)

	return r
}

// Latest handles GET /api/v1/library
func (h *LibraryHandler) Latest(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r)
}

// Refresh handles POST /api/v1/library/refresh
func (h *LibraryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Refresh(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "library refresh failed",
			slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}
	h.respond(w, r)
}

func (h *LibraryHandler) requireLibrary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.service == nil {
			h.errorHandler.HandleError(w, r, services.ErrLibraryDisabled)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *LibraryHandler) respond(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Latest()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]interface{}{
		"status": "success",
		"data": libraryResponse{
			Library: h.service.Status(),
			Report:  report,
		},
	})
}

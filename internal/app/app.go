package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"counterviz/internal/config"
	apierrors "counterviz/internal/errors"
	"counterviz/internal/infrastructure"
	"counterviz/internal/jobs"
	customMiddleware "counterviz/internal/middleware"
	"counterviz/internal/services"
	handlers "counterviz/internal/transport/http"
	"counterviz/pkg/contracts"
)

// compressLevel is the gzip level of JSON responses.
const compressLevel = 5

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.AnalysisMetrics
	Services      *ServiceContainer
	Scheduler     *jobs.Scheduler

	errorHandler *apierrors.ErrorHandler
	listener     net.Listener
	serveErr     chan error
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Analysis *services.AnalysisService
	// Library is nil when the report library is disabled.
	Library *services.LibraryService
	Health  *services.HealthService
}

// New wires an application from cfg. Nothing is started until Start.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewAnalysisMetrics(otelProviders.MeterOrNoop())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, false),
		serveErr:      make(chan error, 1),
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	analysis := NewAnalysisService(a.Config, a.Metrics, a.Logger)

	var library *services.LibraryService
	a.Scheduler = jobs.NewScheduler(a.Logger)
	if a.Config.Library.Enabled {
		src, err := NewLibrarySource(ctx, a.Config)
		if err != nil {
			return fmt.Errorf("failed to create library source: %w", err)
		}
		library = services.NewLibraryService(src, analysis, LibraryRequest(a.Config), a.Metrics, a.Logger)
		if err := jobs.RegisterLibraryRefresh(a.Scheduler, a.Config.Library.Schedule, library); err != nil {
			return fmt.Errorf("failed to schedule library refresh: %w", err)
		}
	}

	reportsDir := a.Config.Storage.ReportsDir
	if a.Config.Storage.S3.Enabled() {
		reportsDir = ""
	}
	health := services.NewHealthService(config.AppVersion, contracts.BuildTime, reportsDir, library, a.Logger)

	a.Services = &ServiceContainer{
		Analysis: analysis,
		Library:  library,
		Health:   health,
	}
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.Metrics, a.Logger).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.errorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: a.Config.Security.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", customMiddleware.RequestIDHeader},
			ExposedHeaders: []string{"Content-Disposition", customMiddleware.RequestIDHeader},
			MaxAge:         300,
		}))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.setupAPIRoutes(r)
	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		handlers.NewHealthHandler(a.Services.Health, a.Logger).RegisterRoutes(r)

		r.Route("/v1", func(r chi.Router) {
			analysisHandler := handlers.NewAnalysisHandler(a.Services.Analysis, a.Logger, a.errorHandler)
			r.With(customMiddleware.MaxBodySize(a.Config.Server.MaxUploadBytes)).
				Mount("/analysis", analysisHandler.Routes())

			var library handlers.LibraryService
			if a.Services.Library != nil {
				library = a.Services.Library
			}
			libraryHandler := handlers.NewLibraryHandler(library, a.Logger, a.errorHandler)
			r.With(customMiddleware.Compress(compressLevel)).
				Mount("/library", libraryHandler.Routes())
		})
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Address(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Addr returns the bound address once Start has succeeded.
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Start binds the listener, starts the scheduler and serves in the background.
// The first library scan runs immediately.
func (a *Application) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln

	a.Scheduler.Start()
	if a.Services.Library != nil {
		if err := a.Scheduler.RunNow(jobs.LibraryRefreshJob); err != nil {
			a.Logger.WarnContext(ctx, "initial library scan not started", slog.String("error", err.Error()))
		}
	}

	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "server error", slog.String("error", err.Error()))
			a.serveErr <- err
		}
	}()

	a.Logger.InfoContext(ctx, "application started",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("address", ln.Addr().String()),
		slog.Bool("library", a.Services.Library != nil),
		slog.String("level", a.Config.Logging.Level))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if err := a.Scheduler.Stop(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler stop error: %w", err))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until ctx is cancelled, an interrupt arrives or
// the server fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	var serveErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("received shutdown signal")
	case serveErr = <-a.serveErr:
	}

	// The parent context is already done here.
	stopCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout+time.Second)
	defer cancel()
	return errors.Join(serveErr, a.Stop(stopCtx))
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"finops/internal/config"
	apierrors "finops/internal/errors"
	"finops/internal/infrastructure"
	customMiddleware "finops/internal/middleware"
	"finops/internal/operations"
	"finops/internal/services"
	httpHandlers "finops/internal/transport/http"
	"finops/internal/validation"
	"finops/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	DataService      *services.DataService
	OperationService *services.OperationService
	HealthService    *services.HealthService
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	ErrorHandler     *apierrors.ErrorHandler
}

// NewApplication loads configuration from the environment, the config file
// and flags, and builds the application around it.
func NewApplication(flags *CommonFlags, configure func(*config.Config) error) (*Application, error) {
	cfg, err := LoadConfig(flags, configure)
	if err != nil {
		return nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, logger)
}

// New wires services, handlers and the HTTP server for cfg
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", infrastructure.ServiceName),
		slog.String("version", config.AppVersion))

	paths := config.NewPaths(cfg.Paths.BaseDir)
	logger.Info("Ensuring required directories exist")
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Level == "debug"),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	tracer, err := operations.NewOperationTracer(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	a.DataService = services.NewDataService(a.Paths, a.Logger)
	a.OperationService = services.NewOperationService(a.Config, a.Paths, a.DataService, tracer, a.Logger)
	a.HealthService = services.NewHealthService(config.AppVersion, contracts.BuildTime, a.Paths, a.DataService, a.OperationService, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes.
// Middleware order: RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit → Timeout
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		return fmt.Errorf("failed to create OpenTelemetry middleware: %w", err)
	}
	r.Use(otelMiddleware.Handler)

	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.ErrorHandler))
	r.Use(customMiddleware.SecurityHeaders)
	r.Use(customMiddleware.CORS(a.getCORSConfig()))

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(a.Config.Server.WriteTimeout))
		a.setupAPIRoutes(r)
	})

	// Scraped outside the timeout group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	health := httpHandlers.NewHealthHandler(a.HealthService, a.Logger)
	dashboard := httpHandlers.NewDashboardHandler(a.DataService, a.Logger, a.ErrorHandler)
	ops := httpHandlers.NewOperationsHandler(a.OperationService, a.Logger, a.ErrorHandler)
	files := httpHandlers.NewFilesHandler(a.Paths, a.Logger, a.ErrorHandler)
	clientLogs := httpHandlers.NewClientLogHandler(a.Logger, a.ErrorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/health", health.Routes())
		r.Get("/version", health.Version)
		r.Mount("/dashboard", dashboard.Routes())
		r.Mount("/operations", ops.Routes())
		r.Mount("/files", files.Routes())
		r.Post("/logs", clientLogs.Handle)
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			customMiddleware.RequestIDHeader,
			"Location",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Serve runs the HTTP server until ctx is done, then shuts everything down
func (a *Application) Serve(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", infrastructure.ServiceName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.InfoContext(ctx, "Application started successfully",
			slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.WithoutCancel(ctx))
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	// A detached generate run keeps writing files until it finishes
	if err := a.OperationService.Wait(shutdownCtx); err != nil {
		a.Logger.ErrorContext(ctx, "Pipeline run still in flight at shutdown", slog.String("error", err.Error()))
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}

// performStartupHealthCheck verifies the output directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := []struct{ name, dir string }{
		{"Raw", a.Paths.RawDir},
		{"Processed", a.Paths.ProcessedDir},
		{"Reports", a.Paths.ReportsDir},
		{"Images", a.Paths.ImagesDir},
		{"Logs", a.Paths.LogsDir},
	}

	files := validation.NewFileValidator(a.Logger)
	for _, d := range directories {
		if err := files.ValidateOutputDirectory(d.dir); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", d.name, d.dir))
		}
	}

	if !config.FileExists(a.Paths.FinancialsAnalyticalCSV) {
		a.Logger.InfoContext(ctx, "Analytical tables not generated yet",
			slog.String("path", a.Paths.FinancialsAnalyticalCSV),
			slog.String("action", "POST /api/operations/generate"))
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}

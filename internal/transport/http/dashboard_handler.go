package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"finops/internal/charts"
	apierrors "finops/internal/errors"
	appmw "finops/internal/middleware"
	"finops/pkg/contracts/domain"
)

// DashboardHandler serves the read-only dashboard views
type DashboardHandler struct {
	service      DashboardServiceInterface
	query        *appmw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// FinanceView is the finance half of a dashboard
type FinanceView struct {
	Filter       domain.DashboardFilter     `json:"filter"`
	KPIs         domain.FinanceKPIs         `json:"kpis"`
	Monthly      []domain.MonthlyFinance    `json:"monthly"`
	ByDepartment []domain.RevenueShare      `json:"by_department"`
	ByRegion     []domain.RevenueShare      `json:"by_region"`
	Quarterly    []domain.QuarterlyVariance `json:"quarterly"`
}

// OperationsView is the operations half of a dashboard
type OperationsView struct {
	Filter  domain.DashboardFilter     `json:"filter"`
	KPIs    domain.OperationsKPIs      `json:"kpis"`
	Monthly []domain.MonthlyOperations `json:"monthly"`
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		query:        appmw.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("component", "dashboard_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/", h.GetDashboard)
		r.Get("/finance", h.GetFinance)
		r.Get("/operations", h.GetOperations)
		r.Get("/options", h.GetOptions)
		r.Get("/status", h.GetStatus)
		r.Post("/reload", h.Reload)
		r.Get("/charts", h.ListCharts)
	})
	r.Get("/charts/{name}", h.GetChart)

	return r
}

// parseFilter reads start, end, department and region. It writes the error
// response itself and reports false when a parameter is malformed.
func (h *DashboardHandler) parseFilter(w http.ResponseWriter, r *http.Request) (domain.DashboardFilter, bool) {
	start, ok := h.query.ValidateDate(w, r, "start")
	if !ok {
		return domain.DashboardFilter{}, false
	}
	end, ok := h.query.ValidateDate(w, r, "end")
	if !ok {
		return domain.DashboardFilter{}, false
	}

	filter := domain.DashboardFilter{
		Start:      start,
		End:        end,
		Department: r.URL.Query().Get("department"),
		Region:     r.URL.Query().Get("region"),
	}
	if filter.Department == "" {
		filter.Department = domain.AllValues
	}
	if filter.Region == "" {
		filter.Region = domain.AllValues
	}
	return filter, true
}

// dashboard builds the view for the request filter inside a span
func (h *DashboardHandler) dashboard(w http.ResponseWriter, r *http.Request, spanName string) (domain.Dashboard, bool) {
	ctx, span := otel.Tracer("dashboard-handler").Start(r.Context(), spanName,
		trace.WithAttributes(
			attribute.String("http.route", r.URL.Path),
			attribute.String("request_id", middleware.GetReqID(r.Context())),
		),
	)
	defer span.End()

	filter, ok := h.parseFilter(w, r)
	if !ok {
		span.SetStatus(codes.Error, "invalid filter")
		return domain.Dashboard{}, false
	}
	span.SetAttributes(
		attribute.String("filter.department", filter.Department),
		attribute.String("filter.region", filter.Region),
	)

	view, err := h.service.Dashboard(ctx, filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dashboard build failed")
		h.handleServiceError(w, r, err)
		return domain.Dashboard{}, false
	}

	h.logger.DebugContext(ctx, "dashboard built",
		slog.String("request_id", middleware.GetReqID(ctx)),
		slog.String("department", filter.Department),
		slog.String("region", filter.Region),
		slog.Int("months", len(view.Monthly)))
	return view, true
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	view, ok := h.dashboard(w, r, "dashboard_handler.get_dashboard")
	if !ok {
		return
	}
	render.JSON(w, r, view)
}

// GetFinance handles GET /api/dashboard/finance
func (h *DashboardHandler) GetFinance(w http.ResponseWriter, r *http.Request) {
	view, ok := h.dashboard(w, r, "dashboard_handler.get_finance")
	if !ok {
		return
	}
	render.JSON(w, r, FinanceView{
		Filter:       view.Filter,
		KPIs:         view.Finance,
		Monthly:      view.Monthly,
		ByDepartment: view.ByDepartment,
		ByRegion:     view.ByRegion,
		Quarterly:    view.Quarterly,
	})
}

// GetOperations handles GET /api/dashboard/operations
func (h *DashboardHandler) GetOperations(w http.ResponseWriter, r *http.Request) {
	view, ok := h.dashboard(w, r, "dashboard_handler.get_operations")
	if !ok {
		return
	}
	render.JSON(w, r, OperationsView{
		Filter:  view.Filter,
		KPIs:    view.Operations,
		Monthly: view.OperationsMonthly,
	})
}

// GetOptions handles GET /api/dashboard/options
func (h *DashboardHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.service.Options(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.JSON(w, r, opts)
}

// GetStatus handles GET /api/dashboard/status
func (h *DashboardHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status())
}

// Reload handles POST /api/dashboard/reload
func (h *DashboardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reload(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "dashboard cache reloaded",
		slog.String("request_id", middleware.GetReqID(r.Context())))
	render.JSON(w, r, h.service.Status())
}

// ListCharts handles GET /api/dashboard/charts
func (h *DashboardHandler) ListCharts(w http.ResponseWriter, r *http.Request) {
	view, ok := h.dashboard(w, r, "dashboard_handler.list_charts")
	if !ok {
		return
	}
	built, err := charts.Dashboard(view)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	names := make([]string, len(built))
	for i, c := range built {
		names[i] = c.Name
	}
	render.JSON(w, r, map[string]any{"charts": names})
}

// GetChart handles GET /api/dashboard/charts/{name} and streams a PNG
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(chi.URLParam(r, "name"), ".png")

	view, ok := h.dashboard(w, r, "dashboard_handler.get_chart")
	if !ok {
		return
	}
	built, err := charts.Dashboard(view)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	for _, c := range built {
		if c.Name != name {
			continue
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := charts.WritePNG(w, c); err != nil {
			h.logger.ErrorContext(r.Context(), "failed to write chart",
				slog.String("chart", name),
				slog.String("error", err.Error()))
		}
		return
	}

	h.errorHandler.HandleError(w, r, apierrors.NotFoundError("chart "+name))
}

// handleServiceError maps a missing dataset to DATASET_NOT_LOADED and passes
// everything else through
func (h *DashboardHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if apierrors.IsType(err, apierrors.ErrTypeNotFound) {
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			apierrors.ErrDatasetNotLoaded.StatusCode,
			apierrors.ErrDatasetNotLoaded.ErrorCode,
			apierrors.ErrDatasetNotLoaded.Message,
			err.Error(),
		))
		return
	}
	h.errorHandler.HandleError(w, r, err)
}

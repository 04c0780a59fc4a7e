package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apierrors "finops/internal/errors"
	"finops/internal/infrastructure"
	appmw "finops/internal/middleware"
	"finops/internal/operations"
	"finops/internal/services"
)

var operationStatuses = []string{
	string(operations.OperationStatusPending),
	string(operations.OperationStatusRunning),
	string(operations.OperationStatusCompleted),
	string(operations.OperationStatusFailed),
	string(operations.OperationStatusCancelled),
}

// OperationsHandler starts and tracks generator pipeline runs
type OperationsHandler struct {
	service      OperationServiceInterface
	validator    *appmw.ValidationMiddleware
	query        *appmw.QueryParamValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewOperationsHandler creates a new operations handler
func NewOperationsHandler(service OperationServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *OperationsHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &OperationsHandler{
		service:      service,
		validator:    appmw.NewValidationMiddleware(logger, errorHandler),
		query:        appmw.NewQueryParamValidator(logger, errorHandler),
		logger:       logger.With(slog.String("handler", "operations")),
		errorHandler: errorHandler,
	}
}

// GenerateRequest is the body of POST /api/operations/generate. Every field is
// optional and overrides the configured generator setting.
type GenerateRequest struct {
	services.GenerateRequest
}

// Bind implements render.Binder
func (g *GenerateRequest) Bind(r *http.Request) error {
	return nil
}

// GenerateResponse acknowledges a started run
type GenerateResponse struct {
	ID        string `json:"id"`
	Pipeline  string `json:"pipeline"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

// Routes returns a chi router for operations endpoints
func (h *OperationsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))
	r.Use(h.validator.ValidateRequest)

	r.Post("/generate", h.Generate)
	r.Get("/", h.ListOperations)
	r.Get("/{id}", h.GetOperation)
	r.Post("/{id}/cancel", h.CancelOperation)

	return r
}

// Generate handles POST /api/operations/generate
func (h *OperationsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	ctx, span := otel.Tracer("operations-handler").Start(r.Context(), "operations_handler.generate",
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", "/api/operations/generate"),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	data := &GenerateRequest{}
	if r.ContentLength != 0 {
		if err := render.Bind(r, data); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "request_decode"))
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
	}
	if err := h.validator.ValidateStruct(data.GenerateRequest); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.type", "request_validation"))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	id, err := h.service.StartGenerate(ctx, data.GenerateRequest)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed to start")
		h.logger.ErrorContext(ctx, "failed to start generate operation",
			slog.String("error", err.Error()),
			slog.String("request_id", reqID))
		h.handleError(w, r, err)
		return
	}

	span.SetAttributes(attribute.String("operation.id", id))
	h.logger.InfoContext(ctx, "generate operation accepted",
		slog.String("operation_id", id),
		slog.String("request_id", reqID),
		slog.String("trace_id", infrastructure.TraceIDFromContext(ctx)))

	w.Header().Set("Location", "/api/operations/"+id)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, GenerateResponse{
		ID:        id,
		Pipeline:  operations.PipelineFinance,
		Status:    string(operations.OperationStatusPending),
		StatusURL: "/api/operations/" + id,
	})
}

// ListOperations handles GET /api/operations?status=&limit=
func (h *OperationsHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("operations-handler").Start(r.Context(), "operations_handler.list_operations",
		trace.WithAttributes(
			attribute.String("http.route", "/api/operations"),
			attribute.String("request_id", middleware.GetReqID(r.Context())),
		),
	)
	defer span.End()

	status, ok := h.query.ValidateEnum(w, r, "status", operationStatuses, "")
	if !ok {
		return
	}
	limit, ok := h.query.ValidateInt(w, r, "limit", 1, 100, 20)
	if !ok {
		return
	}

	list := h.service.ListOperations(ctx)
	out := make([]*operations.OperationResponse, 0, len(list))
	for _, op := range list {
		if status != "" && string(op.Status) != status {
			continue
		}
		out = append(out, op)
		if len(out) == limit {
			break
		}
	}

	span.SetAttributes(attribute.Int("operations.count", len(out)))
	render.JSON(w, r, out)
}

// GetOperation handles GET /api/operations/{id}
func (h *OperationsHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	operationID := chi.URLParam(r, "id")
	ctx, span := otel.Tracer("operations-handler").Start(r.Context(), "operations_handler.get_operation",
		trace.WithAttributes(
			attribute.String("http.route", "/api/operations/{id}"),
			attribute.String("operation.id", operationID),
		),
	)
	defer span.End()

	resp, err := h.service.GetOperation(ctx, operationID)
	if err != nil {
		span.RecordError(err)
		h.handleError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("operation.status", string(resp.Status)),
		attribute.Int("operation.steps_count", len(resp.Steps)),
	)
	render.JSON(w, r, resp)
}

// CancelOperation handles POST /api/operations/{id}/cancel
func (h *OperationsHandler) CancelOperation(w http.ResponseWriter, r *http.Request) {
	operationID := chi.URLParam(r, "id")
	reqID := middleware.GetReqID(r.Context())
	ctx, span := otel.Tracer("operations-handler").Start(r.Context(), "operations_handler.cancel_operation",
		trace.WithAttributes(
			attribute.String("http.route", "/api/operations/{id}/cancel"),
			attribute.String("operation.id", operationID),
			attribute.String("request_id", reqID),
		),
	)
	defer span.End()

	if err := h.service.CancelOperation(ctx, operationID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation cancellation failed")
		h.handleError(w, r, err)
		return
	}

	h.logger.InfoContext(ctx, "operation cancel requested",
		slog.String("operation_id", operationID),
		slog.String("request_id", reqID))

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{
		"id":      operationID,
		"message": "cancellation requested",
	})
}

// handleError maps service sentinels to API errors
func (h *OperationsHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrOperationRunning):
		h.errorHandler.HandleError(w, r, apierrors.ErrPipelineRunning)
	case errors.Is(err, services.ErrOperationNotFound):
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("operation "+chi.URLParam(r, "id")))
	case errors.Is(err, services.ErrOperationNotRunning):
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusConflict,
			"CONFLICT",
			"Operation has already finished and cannot be cancelled",
			map[string]string{"id": chi.URLParam(r, "id")},
		))
	case apierrors.IsType(err, apierrors.ErrTypeConfig):
		// Overrides that produce an unusable generator configuration
		h.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
			http.StatusBadRequest,
			"INVALID_REQUEST",
			"Invalid generator options",
			err.Error(),
		))
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}

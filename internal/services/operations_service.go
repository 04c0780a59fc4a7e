package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"finops/internal/config"
	apperrors "finops/internal/errors"
	"finops/internal/operations"
)

// OperationService runs the finance pipeline on request and refreshes the
// dashboard cache when a run succeeds. One run may be in flight at a time.
type OperationService struct {
	cfg    *config.Config
	env    operations.Environment
	opCfg  *operations.Config
	data   *DataService
	tracer *operations.OperationTracer
	logger *slog.Logger

	mu        sync.Mutex
	current   *operations.Manager
	currentID string
	history   []*operations.OperationResponse
	wg        sync.WaitGroup
}

// GenerateRequest overrides the generator configuration for one run
type GenerateRequest struct {
	Seed      *uint64 `json:"seed,omitempty"`
	StartDate string  `json:"start_date,omitempty" validate:"omitempty,isodate"`
	EndDate   string  `json:"end_date,omitempty" validate:"omitempty,isodate"`
	Workbook  *bool   `json:"workbook,omitempty"`
	Charts    *bool   `json:"charts,omitempty"`
}

// NewOperationService creates the service. tracer may be nil.
func NewOperationService(cfg *config.Config, paths *config.Paths, data *DataService, tracer *operations.OperationTracer, logger *slog.Logger) *OperationService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("OperationService initialized with paths",
		slog.String("data_dir", paths.DataDir),
		slog.String("images_dir", paths.ImagesDir))

	return &OperationService{
		cfg:    cfg,
		env:    operations.NewEnvironment(paths, logger),
		opCfg:  operations.ConfigFrom(cfg),
		data:   data,
		tracer: tracer,
		logger: logger.With(slog.String("component", "operation_service")),
	}
}

// financeOptions applies req on top of the configured generator section
func (ps *OperationService) financeOptions(req GenerateRequest) (operations.FinanceOptions, error) {
	opts, err := operations.FinanceOptionsFromConfig(ps.cfg)
	if err != nil {
		return opts, err
	}
	if req.Seed != nil {
		opts.Generator.Seed = *req.Seed
	}
	if req.StartDate != "" {
		if opts.Generator.Start, err = time.Parse(config.DateLayout, req.StartDate); err != nil {
			return opts, apperrors.NewAppValidationError(fmt.Sprintf("invalid start_date %q", req.StartDate))
		}
	}
	if req.EndDate != "" {
		if opts.Generator.End, err = time.Parse(config.DateLayout, req.EndDate); err != nil {
			return opts, apperrors.NewAppValidationError(fmt.Sprintf("invalid end_date %q", req.EndDate))
		}
	}
	if req.Workbook != nil {
		opts.Workbook = *req.Workbook
	}
	if req.Charts != nil {
		opts.Charts = *req.Charts
	}
	return opts, nil
}

func (req GenerateRequest) parameters() map[string]any {
	params := map[string]any{}
	if req.Seed != nil {
		params["seed"] = *req.Seed
	}
	if req.StartDate != "" {
		params["start_date"] = req.StartDate
	}
	if req.EndDate != "" {
		params["end_date"] = req.EndDate
	}
	if req.Workbook != nil {
		params["workbook"] = *req.Workbook
	}
	if req.Charts != nil {
		params["charts"] = *req.Charts
	}
	return params
}

// prepare builds the pipeline for req and reserves the run slot
func (ps *OperationService) prepare(req GenerateRequest) (*operations.Manager, string, error) {
	opts, err := ps.financeOptions(req)
	if err != nil {
		return nil, "", err
	}
	steps, err := operations.FinancePipeline(ps.env, opts)
	if err != nil {
		return nil, "", err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.current != nil {
		return nil, "", ErrOperationRunning
	}

	manager, err := operations.NewPipelineManager(operations.PipelineFinance, steps, ps.opCfg, ps.logger)
	if err != nil {
		return nil, "", err
	}
	manager.SetTracer(ps.tracer)

	ps.current = manager
	ps.currentID = uuid.NewString()
	return manager, ps.currentID, nil
}

func (ps *OperationService) run(ctx context.Context, manager *operations.Manager, id string, req GenerateRequest) (*operations.OperationResponse, error) {
	resp, err := manager.Execute(ctx, operations.OperationRequest{ID: id, Parameters: req.parameters()})
	if err == nil && ps.data != nil {
		if reloadErr := ps.data.Reload(ctx); reloadErr != nil {
			err = fmt.Errorf("pipeline completed but dashboard reload failed: %w", reloadErr)
		}
	}

	ps.mu.Lock()
	ps.current = nil
	ps.currentID = ""
	ps.history = append(ps.history, resp)
	if limit := ps.opCfg.HistorySize; limit > 0 && len(ps.history) > limit {
		ps.history = append([]*operations.OperationResponse(nil), ps.history[len(ps.history)-limit:]...)
	}
	ps.mu.Unlock()

	if err != nil {
		ps.logger.ErrorContext(ctx, "generate operation failed",
			slog.String("id", id),
			slog.String("status", string(resp.Status)),
			slog.String("error", err.Error()))
		return resp, err
	}
	ps.logger.InfoContext(ctx, "generate operation completed",
		slog.String("id", id),
		slog.Int("rows", resp.Rows),
		slog.Duration("duration", resp.Duration))
	return resp, nil
}

// Generate runs the finance pipeline and waits for it to finish
func (ps *OperationService) Generate(ctx context.Context, req GenerateRequest) (*operations.OperationResponse, error) {
	manager, id, err := ps.prepare(req)
	if err != nil {
		return nil, err
	}
	return ps.run(ctx, manager, id, req)
}

// StartGenerate starts the finance pipeline in the background and returns the
// run ID. The run outlives the caller's context but keeps its values.
func (ps *OperationService) StartGenerate(ctx context.Context, req GenerateRequest) (string, error) {
	manager, id, err := ps.prepare(req)
	if err != nil {
		return "", err
	}

	ps.logger.InfoContext(ctx, "generate operation started",
		slog.String("id", id),
		slog.Any("parameters", req.parameters()))

	runCtx := context.WithoutCancel(ctx)
	ps.wg.Add(1)
	go func() {
		defer ps.wg.Done()
		_, _ = ps.run(runCtx, manager, id, req)
	}()
	return id, nil
}

// GetOperation returns the state of the current run or a finished one
func (ps *OperationService) GetOperation(ctx context.Context, id string) (*operations.OperationResponse, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.current != nil && ps.currentID == id {
		state, err := ps.current.GetOperation(id)
		if err != nil {
			// Reserved but not yet started
			return &operations.OperationResponse{ID: id, Pipeline: operations.PipelineFinance, Status: operations.OperationStatusPending}, nil
		}
		return operations.NewOperationResponse(state), nil
	}
	for i := len(ps.history) - 1; i >= 0; i-- {
		if ps.history[i].ID == id {
			return ps.history[i], nil
		}
	}
	return nil, ErrOperationNotFound
}

// ListOperations returns the current run, if any, then finished runs newest first
func (ps *OperationService) ListOperations(ctx context.Context) []*operations.OperationResponse {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	out := make([]*operations.OperationResponse, 0, len(ps.history)+1)
	if ps.current != nil {
		if state, err := ps.current.GetOperation(ps.currentID); err == nil {
			out = append(out, operations.NewOperationResponse(state))
		}
	}
	for i := len(ps.history) - 1; i >= 0; i-- {
		out = append(out, ps.history[i])
	}
	return out
}

// CancelOperation cancels the current run
func (ps *OperationService) CancelOperation(ctx context.Context, id string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.current != nil && ps.currentID == id {
		if err := ps.current.CancelOperation(id); err != nil {
			return ErrOperationNotRunning
		}
		ps.logger.InfoContext(ctx, "generate operation cancel requested", slog.String("id", id))
		return nil
	}
	for _, resp := range ps.history {
		if resp.ID == id {
			return ErrOperationNotRunning
		}
	}
	return ErrOperationNotFound
}

// Running reports whether a run is in flight
func (ps *OperationService) Running() bool {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.current != nil
}

// Wait blocks until background runs finish or ctx is done
func (ps *OperationService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		ps.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

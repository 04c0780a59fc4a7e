package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager runs one pipeline: the steps of its registry in dependency order,
// one at a time, each under its own timeout.
type Manager struct {
	pipeline string
	registry *Registry
	config   *Config
	logger   *slog.Logger
	tracer   *OperationTracer

	mu         sync.RWMutex
	operations map[string]*activeRun
	history    []*OperationState
}

type activeRun struct {
	state  *OperationState
	cancel context.CancelFunc
}

// NewManager creates a manager for the named pipeline
func NewManager(pipeline string, registry *Registry, config *Config, logger *slog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	if config == nil {
		config = NewConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	tracer, _ := NewOperationTracer(nil)

	return &Manager{
		pipeline:   pipeline,
		registry:   registry,
		config:     config,
		logger:     logger.With(slog.String("component", "operations"), slog.String("pipeline", pipeline)),
		tracer:     tracer,
		operations: make(map[string]*activeRun),
	}
}

// SetTracer replaces the default tracer, typically with one bound to the
// application's OpenTelemetry providers.
func (m *Manager) SetTracer(tracer *OperationTracer) {
	if tracer != nil {
		m.tracer = tracer
	}
}

// RegisterStage registers a step with the pipeline
func (m *Manager) RegisterStage(step Step) error {
	return m.registry.Register(step)
}

// Pipeline returns the pipeline name
func (m *Manager) Pipeline() string {
	return m.pipeline
}

// GetRegistry returns the step registry
func (m *Manager) GetRegistry() *Registry {
	return m.registry
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// Execute runs the pipeline and summarizes the run
func (m *Manager) Execute(ctx context.Context, req OperationRequest) (*OperationResponse, error) {
	state, err := m.Run(ctx, req)
	return NewOperationResponse(state), err
}

// Run executes the pipeline and returns the final state, including the values
// steps stored in its context. The state is returned even when err is non-nil.
func (m *Manager) Run(ctx context.Context, req OperationRequest) (*OperationState, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	state := NewOperationState(req.ID, m.pipeline)
	for k, v := range req.Parameters {
		state.SetConfig(k, v)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.storeOperation(state, cancel)
	defer m.archiveOperation(state)

	steps, err := m.registry.GetDependencyOrder()
	if err != nil {
		m.logOperationError(ctx, state.ID, err)
		state.Fail(err)
		return state, err
	}
	for _, step := range steps {
		state.SetStage(step.ID(), NewStepState(step.ID(), step.Name()))
	}

	runCtx, span := m.tracer.TraceOperationExecution(runCtx, state.ID, m.pipeline)
	state.Start()
	m.logOperationStart(runCtx, state.ID, len(steps), req.Parameters)

	err = m.executeSequential(runCtx, state, steps)
	switch {
	case err == nil:
		state.Complete()
	case GetErrorType(err) == ErrorTypeCancellation:
		state.Cancel(err)
	default:
		state.Fail(err)
	}

	m.tracer.RecordOperationCompletion(runCtx, span, m.pipeline, state.Duration(), state.TotalRows(), err)
	if err != nil {
		m.logOperationError(runCtx, state.ID, err)
	}
	m.logOperationComplete(runCtx, state)
	return state, err
}

// executeSequential runs steps in order. On failure the remaining steps are
// skipped, or with ContinueOnError only the failed step's dependents are. The
// first failure is returned.
func (m *Manager) executeSequential(ctx context.Context, state *OperationState, steps []Step) error {
	progress := NewProgressTracker(m.pipeline, len(steps))
	var firstErr error

	for i, step := range steps {
		if ctx.Err() != nil {
			m.skipRemaining(state, steps[i:], "operation cancelled")
			cancelErr := NewCancellationError(step.ID())
			cancelErr.Cause = ctx.Err()
			return cancelErr
		}

		stepState := state.GetStage(step.ID())
		if stepState.GetStatus() == StepStatusSkipped {
			progress.Increment()
			continue
		}

		if err := m.executeStage(ctx, state, step); err != nil {
			m.logStageError(ctx, state.ID, step.ID(), err)
			if firstErr == nil {
				firstErr = err
			}
			if !m.config.ContinueOnError || GetErrorType(err) == ErrorTypeCancellation {
				m.skipRemaining(state, steps[i+1:], fmt.Sprintf("step %s failed", step.ID()))
				return err
			}
			m.skipDependentStages(state, step.ID())
		}

		progress.Increment()
		m.logStageProgress(ctx, state.ID, step.ID(), progress)
	}
	return firstErr
}

// executeStage executes a single step with retry logic
func (m *Manager) executeStage(ctx context.Context, state *OperationState, step Step) error {
	stepState := state.GetStage(step.ID())
	if stepState == nil {
		return NewFatalError(fmt.Sprintf("no state for step %s", step.ID()), nil)
	}

	if err := m.checkDependencies(state, step); err != nil {
		stepState.Skip(err.Error())
		return err
	}

	if err := step.Validate(state); err != nil {
		stepState.Fail(err)
		return WrapError(NewValidationError(step.ID(), err.Error()), step.ID(), "")
	}

	timeout := m.config.GetStageTimeout(step.ID())
	retry := m.config.RetryConfig
	attempts := max(retry.MaxAttempts, 1)

	for attempt := 1; ; attempt++ {
		stepState.Start()
		m.logStageStart(ctx, state.ID, step.ID(), attempt)

		err := m.attempt(ctx, state, step, attempt, timeout)
		if err == nil {
			stepState.Complete(fmt.Sprintf("completed in %s", stepState.Duration().Round(time.Millisecond)))
			m.logStageComplete(ctx, state.ID, step.ID(), stepState.Duration(), stepState.GetRows())
			return nil
		}

		if !IsRetryable(err) || attempt >= attempts {
			stepState.Fail(err)
			return WrapError(err, step.ID(), "step execution failed")
		}

		delay := m.calculateRetryDelay(attempt, retry)
		m.logger.WarnContext(ctx, "step retry",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			cancelErr := NewCancellationError(step.ID())
			cancelErr.Cause = ctx.Err()
			stepState.Fail(cancelErr)
			return cancelErr
		}
	}
}

// attempt runs step once under timeout and classifies the failure
func (m *Manager) attempt(ctx context.Context, state *OperationState, step Step, attempt int, timeout time.Duration) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	spanCtx, span := m.tracer.TraceStageExecution(stepCtx, state.ID, step.ID(), attempt)
	started := time.Now()
	err := step.Execute(spanCtx, state)
	duration := time.Since(started)

	if err != nil {
		switch {
		case ctx.Err() != nil:
			cancelErr := NewCancellationError(step.ID())
			cancelErr.Cause = err
			err = cancelErr
		case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
			timeoutErr := NewTimeoutError(step.ID(), timeout.String())
			timeoutErr.Cause = err
			err = timeoutErr
		}
	}

	rows := 0
	if s := state.GetStage(step.ID()); s != nil {
		rows = s.GetRows()
	}
	m.tracer.RecordStageCompletion(spanCtx, span, m.pipeline, step.ID(), duration, rows, err)
	return err
}

// skipDependentStages skips every pending step that depends, directly or
// transitively, on failedID
func (m *Manager) skipDependentStages(state *OperationState, failedID string) {
	for _, id := range m.registry.GetDependents(failedID) {
		s := state.GetStage(id)
		if s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(fmt.Sprintf("dependency %s failed", failedID))
			m.skipDependentStages(state, id)
		}
	}
}

func (m *Manager) skipRemaining(state *OperationState, steps []Step, reason string) {
	for _, step := range steps {
		if s := state.GetStage(step.ID()); s != nil && s.GetStatus() == StepStatusPending {
			s.Skip(reason)
		}
	}
}

// checkDependencies verifies that all dependencies completed
func (m *Manager) checkDependencies(state *OperationState, step Step) error {
	for _, dep := range step.GetDependencies() {
		depState := state.GetStage(dep)
		if depState == nil {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not found", dep))
		}
		if status := depState.GetStatus(); status != StepStatusCompleted {
			return NewDependencyError(step.ID(), dep, fmt.Sprintf("dependency %s not completed (status: %s)", dep, status))
		}
	}
	return nil
}

// calculateRetryDelay grows the delay geometrically from InitialDelay
func (m *Manager) calculateRetryDelay(attempt int, config RetryConfig) time.Duration {
	factor := math.Pow(math.Max(config.Multiplier, 1), float64(attempt-1))
	delay := time.Duration(float64(config.InitialDelay) * factor)
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}

// GetOperation returns a snapshot of an active or recently finished run
func (m *Manager) GetOperation(id string) (*OperationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if run, exists := m.operations[id]; exists {
		return run.state.Clone(), nil
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		if m.history[i].ID == id {
			return m.history[i].Clone(), nil
		}
	}
	return nil, ErrOperationNotFound
}

// ListOperations returns snapshots of active runs followed by finished runs,
// newest first
func (m *Manager) ListOperations() []*OperationState {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*OperationState, 0, len(m.operations)+len(m.history))
	for _, run := range m.operations {
		out = append(out, run.state.Clone())
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		out = append(out, m.history[i].Clone())
	}
	return out
}

// CancelOperation cancels a running pipeline. The run stops before its next
// step, or sooner if the current step honours its context.
func (m *Manager) CancelOperation(id string) error {
	m.mu.RLock()
	run, exists := m.operations[id]
	m.mu.RUnlock()

	if !exists {
		return ErrOperationNotFound
	}
	run.cancel()
	return nil
}

func (m *Manager) storeOperation(state *OperationState, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.operations[state.ID] = &activeRun{state: state, cancel: cancel}
}

func (m *Manager) archiveOperation(state *OperationState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.operations, state.ID)

	m.history = append(m.history, state)
	if limit := m.config.HistorySize; limit > 0 && len(m.history) > limit {
		m.history = append([]*OperationState(nil), m.history[len(m.history)-limit:]...)
	}
}

package operations

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"finops/internal/infrastructure"
	"finops/internal/shared/testutil"
)

type recorder struct {
	mu  sync.Mutex
	ran []string
}

func (r *recorder) step(id string, err error, deps ...string) Step {
	return NewFuncStep(id, "step "+id, func(ctx context.Context, state *OperationState) error {
		r.mu.Lock()
		r.ran = append(r.ran, id)
		r.mu.Unlock()
		state.GetStage(id).AddRows(1)
		return err
	}, deps...)
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ran...)
}

func newTestManager(t *testing.T, cfg *Config, steps ...Step) (*Manager, *testutil.BufferedSlogHandler) {
	t.Helper()
	logger, handler := testutil.NewTestLogger(t)
	m, err := NewPipelineManager("test", steps, cfg, logger)
	require.NoError(t, err)
	return m, handler
}

func fastRetry(attempts int) *Config {
	cfg := NewConfig()
	cfg.RetryConfig = RetryConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	return cfg
}

func TestManager_RunsInDependencyOrder(t *testing.T) {
	rec := &recorder{}
	m, logs := newTestManager(t, nil,
		rec.step("save", nil, "features"),
		rec.step("load", nil),
		rec.step("features", nil, "load"),
	)

	resp, err := m.Execute(context.Background(), OperationRequest{ID: "run-1", Parameters: map[string]any{"input": "x.csv"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"load", "features", "save"}, rec.order())
	assert.Equal(t, "run-1", resp.ID)
	assert.Equal(t, "test", resp.Pipeline)
	assert.Equal(t, OperationStatusCompleted, resp.Status)
	assert.Equal(t, 3, resp.Rows)
	require.Len(t, resp.Steps, 3)
	for i, id := range []string{"load", "features", "save"} {
		assert.Equal(t, id, resp.Steps[i].ID)
		assert.Equal(t, StepStatusCompleted, resp.Steps[i].Status)
		assert.Equal(t, 1, resp.Steps[i].Attempts)
	}

	assert.True(t, logs.ContainsMessage("pipeline started"))
	rec2, ok := logs.FindMessage("pipeline finished")
	require.True(t, ok)
	assert.Equal(t, "completed", rec2.Attrs["status"])
	assert.Equal(t, 3, logs.CountMessage("step completed"))
}

func TestManager_GeneratesRunID(t *testing.T) {
	m, _ := newTestManager(t, nil, NewFuncStep("only", "Only", noop))
	state, err := m.Run(context.Background(), OperationRequest{})
	require.NoError(t, err)
	assert.Len(t, state.ID, 36)
}

func TestManager_FailureSkipsRemaining(t *testing.T) {
	rec := &recorder{}
	boom := fmt.Errorf("disk full")
	m, _ := newTestManager(t, nil,
		rec.step("a", nil),
		rec.step("b", boom, "a"),
		rec.step("c", nil),
		rec.step("d", nil, "b"),
	)

	state, err := m.Run(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, ErrorTypeExecution, GetErrorType(err))

	assert.Equal(t, []string{"a", "b"}, rec.order())
	assert.Equal(t, OperationStatusFailed, state.Status)
	assert.Contains(t, state.Error, "disk full")
	assert.Equal(t, StepStatusCompleted, state.GetStage("a").Status)
	assert.Equal(t, StepStatusFailed, state.GetStage("b").Status)
	assert.Equal(t, StepStatusSkipped, state.GetStage("c").Status)
	assert.Equal(t, StepStatusSkipped, state.GetStage("d").Status)
	assert.Equal(t, "step b failed", state.GetStage("c").Message)
}

func TestManager_ContinueOnError(t *testing.T) {
	rec := &recorder{}
	cfg := NewConfig()
	cfg.ContinueOnError = true
	m, _ := newTestManager(t, cfg,
		rec.step("a", nil),
		rec.step("b", fmt.Errorf("bad input"), "a"),
		rec.step("c", nil, "b"),
		rec.step("d", nil, "c"),
		rec.step("e", nil, "a"),
	)

	state, err := m.Run(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad input")

	assert.Equal(t, []string{"a", "b", "e"}, rec.order())
	assert.Equal(t, StepStatusSkipped, state.GetStage("c").Status)
	assert.Equal(t, "dependency b failed", state.GetStage("c").Message)
	assert.Equal(t, StepStatusSkipped, state.GetStage("d").Status)
	assert.Equal(t, StepStatusCompleted, state.GetStage("e").Status)
	assert.Equal(t, OperationStatusFailed, state.Status)
}

func TestManager_RetriesRetryableErrors(t *testing.T) {
	calls := 0
	flaky := NewFuncStep("flaky", "Flaky", func(ctx context.Context, state *OperationState) error {
		calls++
		if calls == 1 {
			return NewExecutionError("flaky", fmt.Errorf("file locked"), true)
		}
		return nil
	})
	m, logs := newTestManager(t, fastRetry(3), flaky)

	state, err := m.Run(context.Background(), OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, state.GetStage("flaky").Attempts)
	assert.True(t, logs.ContainsMessage("step retry"))
}

func TestManager_DoesNotRetryPlainErrors(t *testing.T) {
	calls := 0
	step := NewFuncStep("once", "Once", func(ctx context.Context, state *OperationState) error {
		calls++
		return fmt.Errorf("parse failure")
	})
	m, _ := newTestManager(t, fastRetry(3), step)

	_, err := m.Run(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestManager_RetriesExhausted(t *testing.T) {
	calls := 0
	step := NewFuncStep("flaky", "Flaky", func(ctx context.Context, state *OperationState) error {
		calls++
		return NewExecutionError("flaky", fmt.Errorf("still locked"), true)
	})
	m, _ := newTestManager(t, fastRetry(2), step)

	state, err := m.Run(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, StepStatusFailed, state.GetStage("flaky").Status)
}

func TestManager_StepTimeout(t *testing.T) {
	slow := NewFuncStep("slow", "Slow", func(ctx context.Context, state *OperationState) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cfg := NewConfig()
	cfg.SetStageTimeout("slow", 10*time.Millisecond)
	m, _ := newTestManager(t, cfg, slow)

	state, err := m.Run(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, OperationStatusFailed, state.Status)
	assert.Equal(t, StepStatusFailed, state.GetStage("slow").Status)
}

func TestManager_CancelledContext(t *testing.T) {
	rec := &recorder{}
	m, _ := newTestManager(t, nil, rec.step("a", nil), rec.step("b", nil, "a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	state, err := m.Run(ctx, OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.order())
	assert.Equal(t, OperationStatusCancelled, state.Status)
	assert.Equal(t, StepStatusSkipped, state.GetStage("a").Status)
	assert.Equal(t, StepStatusSkipped, state.GetStage("b").Status)
}

func TestManager_CancelOperation(t *testing.T) {
	started := make(chan struct{})
	block := NewFuncStep("block", "Block", func(ctx context.Context, state *OperationState) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	rec := &recorder{}
	m, _ := newTestManager(t, nil, block, rec.step("after", nil, "block"))

	done := make(chan error, 1)
	go func() {
		_, err := m.Run(context.Background(), OperationRequest{ID: "long"})
		done <- err
	}()

	<-started
	active, err := m.GetOperation("long")
	require.NoError(t, err)
	assert.Equal(t, OperationStatusRunning, active.Status)
	require.NoError(t, m.CancelOperation("long"))

	select {
	case err := <-done:
		assert.Equal(t, ErrorTypeCancellation, GetErrorType(err))
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop after cancel")
	}

	finished, err := m.GetOperation("long")
	require.NoError(t, err)
	assert.Equal(t, OperationStatusCancelled, finished.Status)
	assert.Equal(t, StepStatusSkipped, finished.Steps["after"].Status)
	assert.Empty(t, rec.order())

	assert.ErrorIs(t, m.CancelOperation("long"), ErrOperationNotFound)
}

func TestManager_ValidationFailure(t *testing.T) {
	step := NewFuncStep("needs", "Needs input", noop).Requiring("dataset")
	m, _ := newTestManager(t, nil, step)

	state, err := m.Run(context.Background(), OperationRequest{})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
	assert.Contains(t, err.Error(), "missing dataset")
	assert.Equal(t, StepStatusFailed, state.GetStage("needs").Status)
}

func TestManager_ValuesFlowBetweenSteps(t *testing.T) {
	produce := NewFuncStep("produce", "Produce", func(ctx context.Context, state *OperationState) error {
		state.SetContext("numbers", []int{1, 2, 3})
		return nil
	})
	var sum int
	consume := NewFuncStep("consume", "Consume", func(ctx context.Context, state *OperationState) error {
		nums, err := Value[[]int](state, "numbers")
		if err != nil {
			return err
		}
		for _, n := range nums {
			sum += n
		}
		_, err = Value[string](state, "numbers")
		assert.Error(t, err)
		return nil
	}, "produce").Requiring("numbers")

	m, _ := newTestManager(t, nil, produce, consume)
	_, err := m.Run(context.Background(), OperationRequest{})
	require.NoError(t, err)
	assert.Equal(t, 6, sum)
}

func TestManager_History(t *testing.T) {
	cfg := NewConfig()
	cfg.HistorySize = 2
	m, _ := newTestManager(t, cfg, NewFuncStep("only", "Only", noop))

	for i := 1; i <= 3; i++ {
		_, err := m.Run(context.Background(), OperationRequest{ID: fmt.Sprintf("run-%d", i)})
		require.NoError(t, err)
	}

	runs := m.ListOperations()
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-2", runs[1].ID)

	_, err := m.GetOperation("run-1")
	assert.ErrorIs(t, err, ErrOperationNotFound)
}

func TestManager_CalculateRetryDelay(t *testing.T) {
	m := NewManager("test", nil, nil, nil)
	cfg := RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, m.calculateRetryDelay(1, cfg))
	assert.Equal(t, 400*time.Millisecond, m.calculateRetryDelay(3, cfg))
	assert.Equal(t, time.Second, m.calculateRetryDelay(6, cfg))
}

func TestManager_RecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tracer, err := NewOperationTracer(&infrastructure.OTelProviders{Meter: provider.Meter("test")})
	require.NoError(t, err)

	rec := &recorder{}
	m, _ := newTestManager(t, nil, rec.step("a", nil), rec.step("b", stderrors.New("boom"), "a"))
	m.SetTracer(tracer)
	_, _ = m.Run(context.Background(), OperationRequest{})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = true
		}
	}
	for _, want := range []string{
		"pipeline_steps_total", "pipeline_step_duration_seconds", "pipeline_step_errors_total",
		"pipeline_rows_produced_total", "pipeline_runs_total",
	} {
		assert.True(t, names[want], "metric %s recorded", want)
	}
}

func TestOperationError(t *testing.T) {
	cause := fmt.Errorf("no such file")
	err := WrapError(cause, "load", "step execution failed")
	assert.Equal(t, "[execution] load: step execution failed: no such file", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsRetryable(err))

	v := NewValidationError("", "missing x")
	wrapped := WrapError(v, "save", "ignored")
	assert.Same(t, v, wrapped)
	assert.Equal(t, "save", wrapped.Step)

	assert.True(t, IsRetryable(fmt.Errorf("outer: %w", NewExecutionError("x", cause, true))))
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(cause))
	assert.Nil(t, WrapError(nil, "x", "y"))
}

func TestProgressTracker(t *testing.T) {
	p := NewProgressTracker("test", 4)
	assert.Equal(t, "calculating...", p.GetETA())

	start := p.StartTime
	p.now = func() time.Time { return start.Add(15 * time.Second) }
	p.Increment()
	assert.Equal(t, 25.0, p.Percentage())
	assert.Equal(t, "45 seconds", p.GetETA())

	p.Increment()
	p.now = func() time.Time { return start.Add(20 * time.Minute) }
	assert.Equal(t, "20.0 minutes", p.GetETA())

	p.Increment()
	p.Increment()
	assert.True(t, p.IsComplete())
	assert.Equal(t, "done", p.GetETA())
}

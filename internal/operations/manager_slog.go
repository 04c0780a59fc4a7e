package operations

import (
	"context"
	"log/slog"
	"time"
)

func (m *Manager) logOperationStart(ctx context.Context, operationID string, steps int, params map[string]any) {
	m.logger.InfoContext(ctx, "pipeline started",
		slog.String("operation_id", operationID),
		slog.Int("steps", steps),
		slog.Any("parameters", params))
}

func (m *Manager) logOperationComplete(ctx context.Context, state *OperationState) {
	level := slog.LevelInfo
	if state.GetStatus() != OperationStatusCompleted {
		level = slog.LevelWarn
	}
	m.logger.Log(ctx, level, "pipeline finished",
		slog.String("operation_id", state.ID),
		slog.String("status", string(state.GetStatus())),
		slog.Int("completed_steps", state.CountStages(StepStatusCompleted)),
		slog.Int("skipped_steps", state.CountStages(StepStatusSkipped)),
		slog.Int("rows", state.TotalRows()),
		slog.Duration("duration", state.Duration()))
}

func (m *Manager) logOperationError(ctx context.Context, operationID string, err error) {
	m.logger.ErrorContext(ctx, "pipeline failed",
		slog.String("operation_id", operationID),
		slog.String("error_type", string(GetErrorType(err))),
		slog.String("error", err.Error()))
}

func (m *Manager) logStageStart(ctx context.Context, operationID, stepID string, attempt int) {
	m.logger.InfoContext(ctx, "step started",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Int("attempt", attempt))
}

func (m *Manager) logStageComplete(ctx context.Context, operationID, stepID string, duration time.Duration, rows int) {
	m.logger.InfoContext(ctx, "step completed",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Int("rows", rows),
		slog.Duration("duration", duration))
}

func (m *Manager) logStageError(ctx context.Context, operationID, stepID string, err error) {
	m.logger.ErrorContext(ctx, "step failed",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.String("error_type", string(GetErrorType(err))),
		slog.String("error", err.Error()))
}

func (m *Manager) logStageProgress(ctx context.Context, operationID, stepID string, progress *ProgressTracker) {
	m.logger.DebugContext(ctx, "pipeline progress",
		slog.String("operation_id", operationID),
		slog.String("step", stepID),
		slog.Float64("percent", progress.Percentage()),
		slog.String("eta", progress.GetETA()))
}

package services

import (
	"context"
	"log/slog"

	"finops/internal/infrastructure"
)

// logDataError logs a data service failure with the request's trace ID
func logDataError(ctx context.Context, action, message string, attrs ...slog.Attr) {
	logger := infrastructure.LoggerWithContext(ctx)

	allAttrs := []slog.Attr{
		slog.String("component", "data_service"),
		slog.String("action", action),
	}
	allAttrs = append(allAttrs, attrs...)

	logger.LogAttrs(ctx, slog.LevelError, message, allAttrs...)
}

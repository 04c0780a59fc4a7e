package sales

import (
	"context"
	"log/slog"

	"finops/internal/config"
	"finops/internal/dataprocessing"
	"finops/internal/errors"
	"finops/pkg/contracts/domain"
)

// LoadForAnalysis reads the processed sales file, falling back to the raw
// file when the processed one does not exist. It returns the path that was
// actually read.
func LoadForAnalysis(ctx context.Context, processedPath, rawPath string, logger *slog.Logger) ([]domain.SaleRecord, string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	records, err := dataprocessing.LoadSalesCSV(processedPath)
	if err == nil {
		logger.InfoContext(ctx, "processed sales data loaded",
			slog.String("path", processedPath), slog.Int("rows", len(records)))
		return records, processedPath, nil
	}
	if !errors.IsType(err, errors.ErrTypeNotFound) {
		return nil, "", err
	}

	logger.WarnContext(ctx, "processed sales data not found, loading raw data",
		slog.String("processed_path", processedPath), slog.String("raw_path", rawPath))
	records, err = dataprocessing.LoadSalesCSV(rawPath)
	if err != nil {
		return nil, "", err
	}
	return records, rawPath, nil
}

// LoadFromPaths is LoadForAnalysis over the well-known sales locations.
func LoadFromPaths(ctx context.Context, paths *config.Paths, logger *slog.Logger) ([]domain.SaleRecord, string, error) {
	return LoadForAnalysis(ctx, paths.SalesProcessedCSV, paths.SalesRawCSV, logger)
}

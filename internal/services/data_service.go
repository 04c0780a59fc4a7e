package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"finops/internal/config"
	"finops/internal/dashboard"
	"finops/internal/dataprocessing"
	"finops/internal/errors"
	"finops/pkg/contracts/domain"
)

// DataService serves the dashboard from the processed analytical CSVs. The
// tables are loaded on first use and kept until Reload.
type DataService struct {
	paths  *config.Paths
	logger *slog.Logger

	mu   sync.RWMutex
	data *dashboard.Data
}

// DataStatus describes the cached dataset
type DataStatus struct {
	Loaded         bool      `json:"loaded"`
	LoadedAt       time.Time `json:"loaded_at,omitempty"`
	FinancialRows  int       `json:"financial_rows"`
	OperationsRows int       `json:"operations_rows"`
}

// NewDataService creates a data service reading from paths
func NewDataService(paths *config.Paths, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("DataService initialized with paths",
		slog.String("financials", paths.FinancialsAnalyticalCSV),
		slog.String("operations", paths.OperationsAnalyticalCSV))

	return &DataService{
		paths:  paths,
		logger: logger.With(slog.String("component", "data_service")),
	}
}

// Reload reads both analytical tables and replaces the cache. On error the
// previous cache is kept.
func (ds *DataService) Reload(ctx context.Context) error {
	var (
		financials []domain.FinancialAnalytical
		ops        []domain.OperationsAnalytical
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		financials, err = dataprocessing.LoadFinancialsAnalytical(ds.paths.FinancialsAnalyticalCSV)
		return err
	})
	g.Go(func() error {
		var err error
		ops, err = dataprocessing.LoadOperationsAnalytical(ds.paths.OperationsAnalyticalCSV)
		return err
	})
	if err := g.Wait(); err != nil {
		logDataError(ctx, "reload", "failed to load analytical tables", slog.String("error", err.Error()))
		return err
	}

	ds.mu.Lock()
	ds.data = &dashboard.Data{Financials: financials, Operations: ops, LoadedAt: time.Now()}
	ds.mu.Unlock()

	ds.logger.InfoContext(ctx, "dashboard data loaded",
		slog.Int("financial_rows", len(financials)),
		slog.Int("operations_rows", len(ops)))
	return nil
}

func (ds *DataService) current(ctx context.Context) (*dashboard.Data, error) {
	ds.mu.RLock()
	data := ds.data
	ds.mu.RUnlock()
	if data != nil {
		return data, nil
	}

	if err := ds.Reload(ctx); err != nil {
		return nil, err
	}
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	return ds.data, nil
}

// Dashboard returns every KPI and series for the filter
func (ds *DataService) Dashboard(ctx context.Context, filter domain.DashboardFilter) (domain.Dashboard, error) {
	data, err := ds.current(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		return domain.Dashboard{}, errors.NewAppValidationError("end date is before start date")
	}
	return data.Build(filter), nil
}

// Options returns the values the dashboard can be filtered by
func (ds *DataService) Options(ctx context.Context) (domain.FilterOptions, error) {
	data, err := ds.current(ctx)
	if err != nil {
		return domain.FilterOptions{}, err
	}
	return data.Options(), nil
}

// Status reports what is cached without loading anything
func (ds *DataService) Status() DataStatus {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.data == nil {
		return DataStatus{}
	}
	return DataStatus{
		Loaded:         true,
		LoadedAt:       ds.data.LoadedAt,
		FinancialRows:  len(ds.data.Financials),
		OperationsRows: len(ds.data.Operations),
	}
}

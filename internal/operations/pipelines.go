package operations

import (
	"context"
	"log/slog"

	"finops/internal/charts"
	"finops/internal/cleaning"
	"finops/internal/config"
	"finops/internal/dashboard"
	"finops/internal/dataprocessing"
	"finops/internal/errors"
	"finops/internal/exporter"
	"finops/internal/forecasting"
	"finops/internal/generator"
	"finops/pkg/contracts/domain"
)

// Environment is what every pipeline step needs from its host.
type Environment struct {
	Paths  *config.Paths
	Writer *exporter.CSVWriter
	Logger *slog.Logger
}

// NewEnvironment builds an environment writing under paths.
func NewEnvironment(paths *config.Paths, logger *slog.Logger) Environment {
	if logger == nil {
		logger = slog.Default()
	}
	return Environment{
		Paths:  paths,
		Writer: exporter.NewCSVWriter(paths, logger),
		Logger: logger,
	}
}

// NewPipelineManager registers steps in order and checks the dependency graph.
func NewPipelineManager(pipeline string, steps []Step, cfg *Config, logger *slog.Logger) (*Manager, error) {
	m := NewManager(pipeline, NewRegistry(), cfg, logger)
	for _, s := range steps {
		if err := m.RegisterStage(s); err != nil {
			return nil, err
		}
	}
	if err := m.registry.ValidateDependencies(); err != nil {
		return nil, err
	}
	return m, nil
}

// recordOutput counts rows against stepID and remembers the written path.
func recordOutput(state *OperationState, stepID string, rows int, path string) {
	s := state.GetStage(stepID)
	if s == nil {
		return
	}
	s.AddRows(rows)
	if path != "" {
		s.SetMetadata(MetadataKeyPath, path)
	}
}

func writeTable[T any](env Environment, state *OperationState, stepID, path string, t exporter.Table[T], rows []T) error {
	if err := exporter.WriteTable(env.Writer, path, t, rows); err != nil {
		return errors.NewStorageError("failed to write "+path, err)
	}
	recordOutput(state, stepID, len(rows), "")
	if s := state.GetStage(stepID); s != nil {
		s.AddPath(path)
	}
	return nil
}

// FinanceOptions controls the finance pipeline.
type FinanceOptions struct {
	Generator generator.Options
	Workbook  bool
	Charts    bool
}

// FinanceOptionsFromConfig maps the generator config section.
func FinanceOptionsFromConfig(cfg *config.Config) (FinanceOptions, error) {
	gen, err := generator.OptionsFromConfig(cfg)
	if err != nil {
		return FinanceOptions{}, err
	}
	return FinanceOptions{
		Generator: gen,
		Workbook:  cfg.Generator.Workbook,
		Charts:    cfg.Generator.Charts,
	}, nil
}

// FinancePipeline generates the star schema, writes the raw and analytical
// tables and optionally the workbook and chart images.
func FinancePipeline(env Environment, opts FinanceOptions) ([]Step, error) {
	gen, err := generator.New(opts.Generator, env.Logger)
	if err != nil {
		return nil, err
	}

	steps := []Step{
		NewFuncStep(StepIDGenerate, "Generate synthetic facts", func(ctx context.Context, state *OperationState) error {
			ds, err := gen.Generate(ctx)
			if err != nil {
				return err
			}
			state.SetContext(ContextKeyDataset, ds)
			recordOutput(state, StepIDGenerate, len(ds.Financials)+len(ds.Operations), "")
			return nil
		}),

		NewFuncStep(StepIDWriteRaw, "Write raw star schema", func(ctx context.Context, state *OperationState) error {
			ds, err := Value[*domain.FinanceDataset](state, ContextKeyDataset)
			if err != nil {
				return err
			}
			if err := env.Paths.EnsureDirectories(); err != nil {
				return errors.NewStorageError("failed to create output directories", err)
			}
			p := env.Paths
			if err := writeTable(env, state, StepIDWriteRaw, p.DimDateCSV, exporter.DateDimensionTable, ds.Dates); err != nil {
				return err
			}
			if err := writeTable(env, state, StepIDWriteRaw, p.DimDepartmentCSV, exporter.DepartmentTable, ds.Departments); err != nil {
				return err
			}
			if err := writeTable(env, state, StepIDWriteRaw, p.DimRegionCSV, exporter.RegionTable, ds.Regions); err != nil {
				return err
			}
			if err := writeTable(env, state, StepIDWriteRaw, p.FactFinancialsCSV, exporter.FinancialFactTable, ds.Financials); err != nil {
				return err
			}
			return writeTable(env, state, StepIDWriteRaw, p.FactOperationsCSV, exporter.OperationsFactTable, ds.Operations)
		}, StepIDGenerate).Requiring(ContextKeyDataset),

		NewFuncStep(StepIDAnalytical, "Build analytical tables", func(ctx context.Context, state *OperationState) error {
			ds, err := Value[*domain.FinanceDataset](state, ContextKeyDataset)
			if err != nil {
				return err
			}
			tables := dataprocessing.BuildAnalyticalTables(ds)
			state.SetContext(ContextKeyAnalytical, tables)

			p := env.Paths
			if err := writeTable(env, state, StepIDAnalytical, p.FinancialsAnalyticalCSV, exporter.FinancialsAnalyticalTable, tables.Financials); err != nil {
				return err
			}
			if err := writeTable(env, state, StepIDAnalytical, p.OperationsAnalyticalCSV, exporter.OperationsAnalyticalTable, tables.Operations); err != nil {
				return err
			}
			return writeTable(env, state, StepIDAnalytical, p.CombinedMonthlyCSV, exporter.CombinedMonthlyTable, tables.Combined)
		}, StepIDGenerate).Requiring(ContextKeyDataset),
	}

	if opts.Workbook {
		steps = append(steps, NewFuncStep(StepIDWorkbook, "Write analytical workbook", func(ctx context.Context, state *OperationState) error {
			tables, err := Value[dataprocessing.AnalyticalTables](state, ContextKeyAnalytical)
			if err != nil {
				return err
			}
			sheets := exporter.FinanceWorkbookSheets(tables.Financials, tables.Operations, tables.Combined)
			if err := env.Writer.WriteWorkbook(env.Paths.FinanceWorkbook, sheets...); err != nil {
				return errors.NewStorageError("failed to write workbook", err)
			}
			recordOutput(state, StepIDWorkbook, len(tables.Financials)+len(tables.Operations)+len(tables.Combined), env.Paths.FinanceWorkbook)
			return nil
		}, StepIDAnalytical).Requiring(ContextKeyAnalytical))
	}

	if opts.Charts {
		steps = append(steps, NewFuncStep(StepIDCharts, "Render dashboard charts", func(ctx context.Context, state *OperationState) error {
			tables, err := Value[dataprocessing.AnalyticalTables](state, ContextKeyAnalytical)
			if err != nil {
				return err
			}
			data := &dashboard.Data{Financials: tables.Financials, Operations: tables.Operations}
			cs, err := charts.Dashboard(data.Build(domain.DashboardFilter{}))
			if err != nil {
				return err
			}
			files, err := charts.Save(cs, env.Paths.ImagesDir, env.Logger)
			if err != nil {
				return errors.NewStorageError("failed to save charts", err)
			}
			state.SetContext(ContextKeyCharts, files)
			if s := state.GetStage(StepIDCharts); s != nil {
				for _, f := range files {
					s.AddPath(f)
				}
			}
			return nil
		}, StepIDAnalytical).Requiring(ContextKeyAnalytical))
	}

	return steps, nil
}

// SalesOptions names the input and output of the sales pipeline.
type SalesOptions struct {
	Input  string
	Output string
}

// SalesPipeline loads raw sales, cleans them, derives features and saves the
// processed file.
func SalesPipeline(env Environment, opts SalesOptions) []Step {
	cleaner := cleaning.NewCleaner(env.Logger)

	return []Step{
		NewFuncStep(StepIDLoadSales, "Load sales data", func(ctx context.Context, state *OperationState) error {
			records, err := dataprocessing.LoadSalesCSV(opts.Input)
			if err != nil {
				return err
			}
			state.SetContext(ContextKeySales, records)
			recordOutput(state, StepIDLoadSales, len(records), opts.Input)
			return nil
		}),

		NewFuncStep(StepIDCleanSales, "Clean sales data", func(ctx context.Context, state *OperationState) error {
			records, err := Value[[]domain.SaleRecord](state, ContextKeySales)
			if err != nil {
				return err
			}
			clean, rep := cleaner.Clean(ctx, records)
			state.SetContext(ContextKeyCleanSales, clean)
			state.SetContext(ContextKeySalesClean, rep)
			recordOutput(state, StepIDCleanSales, len(clean), "")
			return nil
		}, StepIDLoadSales).Requiring(ContextKeySales),

		NewFuncStep(StepIDSalesFeatures, "Derive sales features", func(ctx context.Context, state *OperationState) error {
			clean, err := Value[[]domain.SaleRecord](state, ContextKeyCleanSales)
			if err != nil {
				return err
			}
			processed := cleaning.AddFeatures(clean)
			state.SetContext(ContextKeySalesRows, processed)
			recordOutput(state, StepIDSalesFeatures, len(processed), "")
			return nil
		}, StepIDCleanSales).Requiring(ContextKeyCleanSales),

		NewFuncStep(StepIDSaveSales, "Save processed sales", func(ctx context.Context, state *OperationState) error {
			processed, err := Value[[]domain.ProcessedSale](state, ContextKeySalesRows)
			if err != nil {
				return err
			}
			return writeTable(env, state, StepIDSaveSales, opts.Output, exporter.ProcessedSaleTable, processed)
		}, StepIDSalesFeatures).Requiring(ContextKeySalesRows),
	}
}

// FinancialOptions names the input and the processed output of the
// financial preprocessing steps.
type FinancialOptions struct {
	Input  string
	Output string
}

func financialPrepSteps(env Environment, opts FinancialOptions) []Step {
	pre := forecasting.NewPreprocessor(env.Logger)

	return []Step{
		NewFuncStep(StepIDLoadFinancials, "Load financial data", func(ctx context.Context, state *OperationState) error {
			rows, _, err := dataprocessing.LoadProcessedFinancials(opts.Input)
			if err != nil {
				return err
			}
			records := make([]domain.FinancialRecord, len(rows))
			for i, r := range rows {
				records[i] = r.FinancialRecord
			}
			state.SetContext(ContextKeyFinancials, records)
			recordOutput(state, StepIDLoadFinancials, len(records), opts.Input)
			return nil
		}),

		NewFuncStep(StepIDCleanFinancials, "Clean financial data", func(ctx context.Context, state *OperationState) error {
			records, err := Value[[]domain.FinancialRecord](state, ContextKeyFinancials)
			if err != nil {
				return err
			}
			clean, rep := pre.Clean(ctx, records)
			state.SetContext(ContextKeyFinClean, rep)
			if len(clean) == 0 {
				return errors.NewDataError("no financial rows remaining after cleaning")
			}
			state.SetContext(ContextKeyCleanFin, clean)
			recordOutput(state, StepIDCleanFinancials, len(clean), "")
			return nil
		}, StepIDLoadFinancials).Requiring(ContextKeyFinancials),

		NewFuncStep(StepIDFinancialFeature, "Derive financial features", func(ctx context.Context, state *OperationState) error {
			clean, err := Value[[]domain.FinancialRecord](state, ContextKeyCleanFin)
			if err != nil {
				return err
			}
			processed := forecasting.AddFeatures(clean)
			state.SetContext(ContextKeyProcessed, processed)
			recordOutput(state, StepIDFinancialFeature, len(processed), "")
			return nil
		}, StepIDCleanFinancials).Requiring(ContextKeyCleanFin),
	}
}

// FinancialPrepPipeline cleans the forecasting input and saves it with its
// features.
func FinancialPrepPipeline(env Environment, opts FinancialOptions) []Step {
	return append(financialPrepSteps(env, opts),
		NewFuncStep(StepIDSaveFinancials, "Save processed financial data", func(ctx context.Context, state *OperationState) error {
			processed, err := Value[[]domain.ProcessedFinancial](state, ContextKeyProcessed)
			if err != nil {
				return err
			}
			return writeTable(env, state, StepIDSaveFinancials, opts.Output, exporter.ProcessedFinancialTable, processed)
		}, StepIDFinancialFeature).Requiring(ContextKeyProcessed))
}

// ForecastOptions controls the forecast pipeline.
type ForecastOptions struct {
	Input    string
	Results  string
	Forecast forecasting.Options
}

type trainedModel struct {
	model   *forecasting.LinearModel
	set     forecasting.TrainingSet
	metrics domain.ModelMetrics
}

// ForecastPipeline prepares the input, fits the regression model and saves
// the projected periods.
func ForecastPipeline(env Environment, opts ForecastOptions) ([]Step, error) {
	f, err := forecasting.NewForecaster(opts.Forecast, env.Logger)
	if err != nil {
		return nil, err
	}

	steps := financialPrepSteps(env, FinancialOptions{Input: opts.Input})
	return append(steps,
		NewFuncStep(StepIDTrain, "Train forecasting model", func(ctx context.Context, state *OperationState) error {
			rows, err := Value[[]domain.ProcessedFinancial](state, ContextKeyProcessed)
			if err != nil {
				return err
			}
			model, set, metrics, err := f.Train(ctx, rows)
			if err != nil {
				return err
			}
			state.SetContext(ContextKeyModel, trainedModel{model: model, set: set, metrics: metrics})
			recordOutput(state, StepIDTrain, len(set.Rows), "")
			return nil
		}, StepIDFinancialFeature).Requiring(ContextKeyProcessed),

		NewFuncStep(StepIDForecast, "Generate forecasts", func(ctx context.Context, state *OperationState) error {
			rows, err := Value[[]domain.ProcessedFinancial](state, ContextKeyProcessed)
			if err != nil {
				return err
			}
			tm, err := Value[trainedModel](state, ContextKeyModel)
			if err != nil {
				return err
			}
			result := f.Project(ctx, rows, tm.model, tm.set, tm.metrics)
			state.SetContext(ContextKeyForecast, result)
			recordOutput(state, StepIDForecast, len(result.Forecasts), "")
			return nil
		}, StepIDTrain).Requiring(ContextKeyModel),

		NewFuncStep(StepIDSaveForecast, "Save forecast results", func(ctx context.Context, state *OperationState) error {
			result, err := Value[*domain.ForecastResult](state, ContextKeyForecast)
			if err != nil {
				return err
			}
			return writeTable(env, state, StepIDSaveForecast, opts.Results, exporter.ForecastTable, result.Forecasts)
		}, StepIDForecast).Requiring(ContextKeyForecast),
	), nil
}

package forecasting

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"finops/internal/config"
	"finops/internal/errors"
	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// SalesCategory is the category whose target is actual sales; every other
// category is modelled on actual expenses.
const SalesCategory = "Sales"

// Options controls a forecasting run.
type Options struct {
	Category          string
	Scenario          string
	Periods           int
	OptimisticFactor  float64
	PessimisticFactor float64
}

// OptionsFromConfig maps the forecast config section onto Options.
func OptionsFromConfig(cfg config.ForecastConfig) Options {
	return Options{
		Category:          cfg.Category,
		Scenario:          cfg.Scenario,
		Periods:           cfg.Periods,
		OptimisticFactor:  cfg.OptimisticFactor,
		PessimisticFactor: cfg.PessimisticFactor,
	}
}

// Validate checks the run options.
func (o Options) Validate() error {
	if o.Category == "" || o.Scenario == "" {
		return errors.NewAppValidationError("category and scenario are required")
	}
	if o.Periods < 1 {
		return errors.NewAppValidationError(fmt.Sprintf("periods must be at least 1, got %d", o.Periods))
	}
	if o.OptimisticFactor <= 0 || o.PessimisticFactor <= 0 {
		return errors.NewAppValidationError("scenario factors must be positive")
	}
	return nil
}

// TrainingSet is the filtered, date-ordered series a model is fitted on.
type TrainingSet struct {
	Rows     []domain.ProcessedFinancial
	Features [][]float64 // time_index, month, quarter
	Target   []float64
}

// PrepareTrainingData selects the rows of one category and scenario in date
// order.
func PrepareTrainingData(rows []domain.ProcessedFinancial, category, scenario string) TrainingSet {
	var ts TrainingSet
	for _, r := range rows {
		if r.Category == category && r.Scenario == scenario {
			ts.Rows = append(ts.Rows, r)
		}
	}
	sort.SliceStable(ts.Rows, func(i, j int) bool { return ts.Rows[i].Date.Before(ts.Rows[j].Date) })

	for _, r := range ts.Rows {
		ts.Features = append(ts.Features, []float64{float64(r.TimeIndex), float64(r.Month), float64(r.Quarter)})
		if category == SalesCategory {
			ts.Target = append(ts.Target, r.ActualSales)
		} else {
			ts.Target = append(ts.Target, r.ActualExpenses)
		}
	}
	return ts
}

// LastObservation returns the latest date and the largest time index of the
// training rows.
func (ts TrainingSet) LastObservation() (time.Time, int) {
	var last time.Time
	maxIndex := 0
	for _, r := range ts.Rows {
		if r.Date.After(last) {
			last = r.Date
		}
		maxIndex = max(maxIndex, r.TimeIndex)
	}
	return last, maxIndex
}

// AddMonthsClipped adds months to t, clipping the day to the end of the
// target month.
func AddMonthsClipped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, months, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	return target.AddDate(0, 0, min(t.Day(), lastDay)-1)
}

// NextMonthStart returns t if it is midnight on the first of a month, and the
// following first of the month otherwise.
func NextMonthStart(t time.Time) time.Time {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	if start.Equal(t) {
		return start
	}
	return start.AddDate(0, 1, 0)
}

// FutureDates lists n month starts beginning at the first month start on or
// after lastDate plus one month.
func FutureDates(lastDate time.Time, n int) []time.Time {
	first := NextMonthStart(AddMonthsClipped(lastDate, 1))
	out := make([]time.Time, n)
	for i := range out {
		out[i] = first.AddDate(0, i, 0)
	}
	return out
}

// GenerateForecasts projects n periods after the training window.
func GenerateForecasts(model *LinearModel, lastDate time.Time, lastTimeIndex int, opts Options) []domain.ForecastPoint {
	dates := FutureDates(lastDate, opts.Periods)
	out := make([]domain.ForecastPoint, len(dates))
	for i, d := range dates {
		pt := domain.ForecastPoint{
			Date:      d,
			TimeIndex: lastTimeIndex + i + 1,
			Month:     int(d.Month()),
			Quarter:   (int(d.Month())-1)/3 + 1,
		}
		pt.BaselineForecast = model.Predict([]float64{float64(pt.TimeIndex), float64(pt.Month), float64(pt.Quarter)})
		pt.OptimisticForecast = pt.BaselineForecast * opts.OptimisticFactor
		pt.PessimisticForecast = pt.BaselineForecast * opts.PessimisticFactor
		out[i] = pt
	}
	return out
}

// HistoricalAccuracy scores the recorded sales forecasts of a category
// against actual sales. Rows missing either value are ignored; nil means no
// row had both.
func HistoricalAccuracy(rows []domain.ProcessedFinancial, category string) *domain.HistoricalAccuracy {
	var actual, forecast []float64
	for _, r := range rows {
		if r.Category != category || shared.IsMissing(r.ActualSales) || shared.IsMissing(r.ForecastSales) {
			continue
		}
		actual = append(actual, r.ActualSales)
		forecast = append(forecast, r.ForecastSales)
	}
	if len(actual) == 0 {
		return nil
	}
	return &domain.HistoricalAccuracy{
		MAPE:         MAPE(actual, forecast),
		RMSE:         RMSE(actual, forecast),
		ActualMean:   shared.Mean(actual),
		ForecastMean: shared.Mean(forecast),
	}
}

// CompareImprovement reports how far the model MAPE is below the historical
// MAPE, in points and relative to the historical value.
func CompareImprovement(historical *domain.HistoricalAccuracy, model domain.ModelMetrics) *domain.Improvement {
	if historical == nil {
		return nil
	}
	points := historical.MAPE - model.MAPE
	return &domain.Improvement{
		Points:      points,
		RelativePct: shared.Percent(points, historical.MAPE),
	}
}

// Forecaster trains and projects one category/scenario series.
type Forecaster struct {
	opts   Options
	logger *slog.Logger
}

// NewForecaster validates opts and creates a forecaster.
func NewForecaster(opts Options, logger *slog.Logger) (*Forecaster, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{opts: opts, logger: logger.With(slog.String("component", "forecaster"))}, nil
}

// Options returns the run options.
func (f *Forecaster) Options() Options { return f.opts }

// Train fits the model on the configured series.
func (f *Forecaster) Train(ctx context.Context, rows []domain.ProcessedFinancial) (*LinearModel, TrainingSet, domain.ModelMetrics, error) {
	ts := PrepareTrainingData(rows, f.opts.Category, f.opts.Scenario)
	if len(ts.Rows) == 0 {
		return nil, ts, domain.ModelMetrics{}, errors.NewDataError(fmt.Sprintf(
			"no training data for category %q and scenario %q", f.opts.Category, f.opts.Scenario))
	}

	model, err := FitOLS(ts.Features, ts.Target)
	if err != nil {
		return nil, ts, domain.ModelMetrics{}, err
	}
	metrics := Evaluate(ts.Target, model.PredictAll(ts.Features))

	f.logger.InfoContext(ctx, "forecasting model trained",
		slog.String("category", f.opts.Category),
		slog.String("scenario", f.opts.Scenario),
		slog.Int("observations", len(ts.Rows)),
		slog.Float64("mape", metrics.MAPE),
		slog.Float64("rmse", metrics.RMSE),
		slog.Float64("r2", metrics.R2))
	return model, ts, metrics, nil
}

// Run trains the model, scores the historical forecasts and projects the
// configured number of periods.
func (f *Forecaster) Run(ctx context.Context, rows []domain.ProcessedFinancial) (*domain.ForecastResult, error) {
	model, ts, metrics, err := f.Train(ctx, rows)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Project(ctx, rows, model, ts, metrics), nil
}

// Project builds the result of a trained model: future periods, historical
// accuracy of rows and the improvement over it.
func (f *Forecaster) Project(ctx context.Context, rows []domain.ProcessedFinancial, model *LinearModel, ts TrainingSet, metrics domain.ModelMetrics) *domain.ForecastResult {
	lastDate, lastIndex := ts.LastObservation()
	result := &domain.ForecastResult{
		Category:     f.opts.Category,
		Scenario:     f.opts.Scenario,
		Observations: len(ts.Rows),
		LastDate:     lastDate,
		Coefficients: model.Params(),
		Metrics:      metrics,
		Historical:   HistoricalAccuracy(rows, f.opts.Category),
		Forecasts:    GenerateForecasts(model, lastDate, lastIndex, f.opts),
	}
	if len(ts.Rows) > 0 {
		result.FirstDate = ts.Rows[0].Date
	}
	result.Improvement = CompareImprovement(result.Historical, metrics)

	attrs := []any{slog.Int("periods", len(result.Forecasts))}
	if result.Improvement != nil {
		attrs = append(attrs,
			slog.Float64("historical_mape", result.Historical.MAPE),
			slog.Float64("improvement_points", result.Improvement.Points))
	}
	f.logger.InfoContext(ctx, "forecasts generated", attrs...)
	return result
}

// Prepare turns raw input into model-ready rows.
func Prepare(ctx context.Context, records []domain.FinancialRecord, logger *slog.Logger) ([]domain.ProcessedFinancial, CleanReport, error) {
	clean, rep := NewPreprocessor(logger).Clean(ctx, records)
	if len(clean) == 0 {
		return nil, rep, errors.NewDataError("no data remaining after cleaning")
	}
	return AddFeatures(clean), rep, nil
}

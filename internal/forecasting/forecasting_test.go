package forecasting

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops/internal/config"
	"finops/internal/errors"
	"finops/internal/shared/testutil"
	"finops/pkg/contracts/domain"
)

var nan = math.NaN()

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func TestFitOLS_ExactLinear(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 1; i <= 24; i++ {
		m := (i-1)%12 + 1
		q := (m-1)/3 + 1
		x = append(x, []float64{float64(i), float64(m), float64(q)})
		y = append(y, 500+20*float64(i)+3*float64(m)-7*float64(q))
	}

	model, err := FitOLS(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 500, model.Intercept, 1e-6)
	assert.InDelta(t, 20, model.Coefficients[0], 1e-6)
	assert.InDelta(t, 3, model.Coefficients[1], 1e-6)
	assert.InDelta(t, -7, model.Coefficients[2], 1e-6)
	assert.Len(t, model.Params(), 4)

	metrics := Evaluate(y, model.PredictAll(x))
	assert.InDelta(t, 0, metrics.MAPE, 1e-6)
	assert.InDelta(t, 0, metrics.RMSE, 1e-6)
	assert.InDelta(t, 1, metrics.R2, 1e-9)
}

func TestFitOLS_RankDeficient(t *testing.T) {
	model, err := FitOLS([][]float64{{1, 1, 1}}, []float64{42})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, model.Coefficients)
	assert.Equal(t, 42.0, model.Predict([]float64{9, 9, 9}))

	// duplicated feature column: minimum-norm solution splits the weight
	model, err = FitOLS([][]float64{{1, 1}, {2, 2}, {3, 3}}, []float64{2, 4, 6})
	require.NoError(t, err)
	assert.InDelta(t, 1, model.Coefficients[0], 1e-9)
	assert.InDelta(t, 1, model.Coefficients[1], 1e-9)
	assert.InDelta(t, 0, model.Intercept, 1e-9)
}

func TestFitOLS_Errors(t *testing.T) {
	_, err := FitOLS(nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeData))

	_, err = FitOLS([][]float64{{1}, {2, 3}}, []float64{1, 2})
	assert.True(t, errors.IsType(err, errors.ErrTypeData))

	_, err = FitOLS([][]float64{{1}, {2}}, []float64{1, nan})
	assert.True(t, errors.IsType(err, errors.ErrTypeData))
}

func TestMetrics(t *testing.T) {
	actual := []float64{100, 200, 400}
	predicted := []float64{110, 180, 400}

	assert.InDelta(t, (10.0+10.0+0)/3, MAPE(actual, predicted), 1e-9)
	assert.InDelta(t, math.Sqrt((100.0+400.0)/3), RMSE(actual, predicted), 1e-9)
	assert.InDelta(t, 1-500.0/46666.666666666664, R2(actual, predicted), 1e-9)

	assert.Equal(t, 1.0, R2([]float64{5, 5}, []float64{5, 5}))
	assert.Equal(t, 0.0, R2([]float64{5, 5}, []float64{4, 6}))
	assert.Greater(t, MAPE([]float64{0}, []float64{1}), 1e15, "zero actuals are floored at epsilon")
	assert.Zero(t, MAPE(nil, nil))
}

func TestFutureDates(t *testing.T) {
	tests := []struct {
		name string
		last time.Time
		want time.Time
	}{
		{"month start", month(2024, time.June), month(2024, time.July)},
		{"end of january clips into february", time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC), month(2024, time.March)},
		{"mid month", time.Date(2024, time.November, 15, 0, 0, 0, 0, time.UTC), month(2025, time.January)},
		{"december rolls the year", month(2024, time.December), month(2025, time.January)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dates := FutureDates(tt.last, 3)
			require.Len(t, dates, 3)
			assert.Equal(t, tt.want, dates[0])
			assert.Equal(t, tt.want.AddDate(0, 2, 0), dates[2])
		})
	}

	assert.Equal(t, time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC),
		AddMonthsClipped(time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC), 1))
}

func TestPreprocessorClean(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: month(2023, time.March), Category: " sales", Scenario: "BASELINE", ActualSales: 300, ForecastSales: 290, ActualExpenses: 100, ForecastExpenses: nan},
		{Date: month(2023, time.January), Category: "Sales", Scenario: "Baseline", ActualSales: nan, ForecastSales: 100, ActualExpenses: 80, ForecastExpenses: 75},
		{Date: time.Time{}, Category: "Sales", Scenario: "Baseline", ActualSales: 1, ForecastSales: 1, ActualExpenses: 1, ForecastExpenses: 1},
		{Date: month(2023, time.February), Category: "sales", Scenario: "baseline", ActualSales: -5, ForecastSales: 200, ActualExpenses: 90, ForecastExpenses: 85},
	}

	logger, handler := testutil.NewTestLogger(t)
	out, rep := NewPreprocessor(logger).Clean(context.Background(), records)

	require.Len(t, out, 2)
	assert.Equal(t, month(2023, time.January), out[0].Date)
	assert.Equal(t, 300.0, out[0].ActualSales, "forward filled in input order before sorting")
	assert.Equal(t, "Sales", out[1].Category)
	assert.Equal(t, "Baseline", out[1].Scenario)
	assert.Equal(t, 75.0, out[1].ForecastExpenses, "leading gap takes the column median")

	assert.Equal(t, 1, rep.InvalidDates)
	assert.Equal(t, 1, rep.NegativeRows)
	assert.Equal(t, 1, rep.Filled["actual_sales"].ForwardFilled)
	assert.Equal(t, 1, rep.Filled["forecast_expenses"].MedianFilled)
	assert.True(t, handler.ContainsMessage("financial data cleaned"))
}

func TestPreprocessorClean_AbsentColumnKept(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: month(2023, time.January), Category: "Sales", Scenario: "Baseline", ActualSales: 10, ForecastSales: nan, ActualExpenses: nan, ForecastExpenses: nan},
	}
	out, _ := NewPreprocessor(nil).Clean(context.Background(), records)
	require.Len(t, out, 1)
	assert.True(t, math.IsNaN(out[0].ActualExpenses))
}

func TestAddFeatures(t *testing.T) {
	records := []domain.FinancialRecord{
		{Date: month(2023, time.May), ActualSales: 150, ForecastSales: 0, ActualExpenses: 50, ForecastExpenses: 40},
		{Date: month(2023, time.January), ActualSales: 100, ForecastSales: 80},
		{Date: month(2023, time.February), ActualSales: 110, ForecastSales: 100},
		{Date: month(2023, time.March), ActualSales: 120, ForecastSales: nan},
	}
	out := AddFeatures(records)
	require.Len(t, out, 4)

	assert.Equal(t, month(2023, time.January), out[0].Date)
	assert.Equal(t, 1, out[0].TimeIndex)
	assert.Equal(t, 4, out[3].TimeIndex)
	assert.Equal(t, 2, out[3].Quarter)
	assert.Equal(t, "2023-05", out[3].YearMonth)

	assert.Equal(t, 20.0, out[0].SalesVariance)
	assert.Equal(t, 25.0, out[0].SalesVariancePct)
	assert.Equal(t, 15000.0, out[3].SalesVariancePct, "zero forecast counts as one")
	assert.Equal(t, 0.0, out[2].SalesVariancePct, "missing forecast gives zero")
	assert.Equal(t, 25.0, out[3].ExpensesVariancePct)

	assert.True(t, math.IsNaN(out[0].SalesLag1))
	assert.Equal(t, 100.0, out[1].SalesLag1)
	assert.True(t, math.IsNaN(out[2].SalesLag3))
	assert.Equal(t, 100.0, out[3].SalesLag3)
}

func seriesFixture() []domain.ProcessedFinancial {
	var records []domain.FinancialRecord
	for i := 0; i < 24; i++ {
		d := month(2022, time.January).AddDate(0, i, 0)
		sales := 1000 + 10*float64(i+1)
		records = append(records,
			domain.FinancialRecord{Date: d, Category: "Sales", Scenario: "Baseline",
				ActualSales: sales, ForecastSales: sales * 1.1, ActualExpenses: 400, ForecastExpenses: 410},
			domain.FinancialRecord{Date: d, Category: "Sales", Scenario: "Optimistic",
				ActualSales: sales * 2, ForecastSales: sales * 2, ActualExpenses: 1, ForecastExpenses: 1},
		)
	}
	return AddFeatures(records)
}

func defaultOptions() Options {
	return OptionsFromConfig(config.Default().Forecast)
}

func TestForecaster_Run(t *testing.T) {
	rows := seriesFixture()
	logger, handler := testutil.NewTestLogger(t)
	f, err := NewForecaster(defaultOptions(), logger)
	require.NoError(t, err)

	result, err := f.Run(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 24, result.Observations)
	assert.Equal(t, month(2022, time.January), result.FirstDate)
	assert.Equal(t, month(2023, time.December), result.LastDate)
	require.Len(t, result.Forecasts, 6)

	// time_index counts both scenarios, so the baseline series uses odd indices
	first := result.Forecasts[0]
	assert.Equal(t, month(2024, time.January), first.Date)
	assert.Equal(t, 48, first.TimeIndex)
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, 1, first.Quarter)
	// sales = 1000 + 10*(k+1) with time_index = 2k+1, so sales = 1005 + 5*time_index
	assert.InDelta(t, 1005+5*48, first.BaselineForecast, 1e-6)
	assert.InDelta(t, first.BaselineForecast*1.05, first.OptimisticForecast, 1e-9)
	assert.InDelta(t, first.BaselineForecast*0.95, first.PessimisticForecast, 1e-9)
	assert.InDelta(t, 1, result.Metrics.R2, 1e-9)

	require.NotNil(t, result.Historical)
	assert.Greater(t, result.Historical.MAPE, 0.0)
	require.NotNil(t, result.Improvement)
	assert.InDelta(t, result.Historical.MAPE-result.Metrics.MAPE, result.Improvement.Points, 1e-9)
	assert.InDelta(t, 100, result.Improvement.RelativePct, 1e-6)
	assert.True(t, handler.ContainsMessage("forecasts generated"))
}

func TestForecaster_ExpensesTarget(t *testing.T) {
	rows := seriesFixture()
	for i := range rows {
		rows[i].Category = "Operations"
	}
	opts := defaultOptions()
	opts.Category = "Operations"
	f, err := NewForecaster(opts, nil)
	require.NoError(t, err)

	_, ts, _, err := f.Train(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 400.0, ts.Target[0])
}

func TestForecaster_NoTrainingData(t *testing.T) {
	opts := defaultOptions()
	opts.Scenario = "Stress"
	f, err := NewForecaster(opts, nil)
	require.NoError(t, err)

	_, err = f.Run(context.Background(), seriesFixture())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeData))
}

func TestOptionsValidate(t *testing.T) {
	opts := defaultOptions()
	opts.Periods = 0
	_, err := NewForecaster(opts, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	opts = defaultOptions()
	opts.Category = ""
	assert.Error(t, opts.Validate())
}

func TestHistoricalAccuracy(t *testing.T) {
	rows := []domain.ProcessedFinancial{
		{FinancialRecord: domain.FinancialRecord{Category: "Sales", ActualSales: 100, ForecastSales: 90}},
		{FinancialRecord: domain.FinancialRecord{Category: "Sales", ActualSales: 200, ForecastSales: nan}},
		{FinancialRecord: domain.FinancialRecord{Category: "Marketing", ActualSales: 1, ForecastSales: 1000}},
	}
	h := HistoricalAccuracy(rows, "Sales")
	require.NotNil(t, h)
	assert.InDelta(t, 10, h.MAPE, 1e-9)
	assert.InDelta(t, 10, h.RMSE, 1e-9)
	assert.Equal(t, 100.0, h.ActualMean)
	assert.Equal(t, 90.0, h.ForecastMean)

	assert.Nil(t, HistoricalAccuracy(rows, "Finance"))
	assert.Nil(t, CompareImprovement(nil, domain.ModelMetrics{}))
}

func TestPrepare(t *testing.T) {
	_, _, err := Prepare(context.Background(), []domain.FinancialRecord{{Date: time.Time{}}}, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeData))

	rows, rep, err := Prepare(context.Background(), []domain.FinancialRecord{
		{Date: month(2024, time.February), Category: "sales", Scenario: "baseline", ActualSales: 5},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.OutputRows)
	assert.Equal(t, 1, rows[0].TimeIndex)
	assert.Equal(t, "Sales", rows[0].Category)
}

func TestWriteText(t *testing.T) {
	result := &domain.ForecastResult{
		Category:     "Sales",
		Scenario:     "Baseline",
		Observations: 24,
		FirstDate:    month(2022, time.January),
		LastDate:     month(2023, time.December),
		Metrics:      domain.ModelMetrics{MAPE: 4.25, RMSE: 1234.5, R2: 0.91},
		Historical:   &domain.HistoricalAccuracy{MAPE: 8.5},
		Improvement:  &domain.Improvement{Points: 4.25, RelativePct: 50},
		Forecasts: []domain.ForecastPoint{
			{Date: month(2024, time.January), BaselineForecast: 10000, OptimisticForecast: 10500, PessimisticForecast: 9500},
			{Date: month(2024, time.February), BaselineForecast: 11000, OptimisticForecast: 11550, PessimisticForecast: 10450},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, result))
	out := buf.String()

	assert.Contains(t, out, "Training data: 24 observations")
	assert.Contains(t, out, "Date range: 2022-01-01 to 2023-12-01")
	assert.Contains(t, out, "Training RMSE: $1,234.50")
	assert.Contains(t, out, "Improvement: 4.25 percentage points (50.0% relative)")
	assert.Contains(t, out, "=== 2-MONTH FORECAST ===")
	assert.Contains(t, out, "10,500.00")
	assert.Contains(t, out, "2024-02-01")

	buf.Reset()
	result.Historical, result.Improvement = nil, nil
	require.NoError(t, WriteText(&buf, result))
	assert.NotContains(t, buf.String(), "Historical Forecast MAPE")
}

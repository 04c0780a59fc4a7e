package operations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops/internal/cleaning"
	"finops/internal/config"
	"finops/internal/dataprocessing"
	"finops/internal/errors"
	"finops/internal/forecasting"
	"finops/internal/generator"
	"finops/internal/shared/testutil"
	"finops/pkg/contracts/domain"
)

func testEnv(t *testing.T) Environment {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewEnvironment(config.NewPaths(t.TempDir()), logger)
}

func runPipeline(t *testing.T, env Environment, name string, steps []Step) (*OperationState, error) {
	t.Helper()
	m, err := NewPipelineManager(name, steps, nil, env.Logger)
	require.NoError(t, err)
	return m.Run(context.Background(), OperationRequest{})
}

func lineCount(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return len(strings.Split(strings.TrimRight(string(data), "\n"), "\n"))
}

func TestFinancePipeline(t *testing.T) {
	env := testEnv(t)
	gen := generator.DefaultOptions()
	gen.Start = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	gen.End = time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)
	gen.Departments = []string{"Sales", "Finance"}
	gen.Regions = []string{"Europe"}

	steps, err := FinancePipeline(env, FinanceOptions{Generator: gen, Workbook: true, Charts: true})
	require.NoError(t, err)
	require.Len(t, steps, 5)

	state, err := runPipeline(t, env, PipelineFinance, steps)
	require.NoError(t, err)
	assert.Equal(t, OperationStatusCompleted, state.Status)
	assert.Equal(t, 12, state.GetStage(StepIDGenerate).Rows)

	p := env.Paths
	for _, path := range []string{
		p.DimDateCSV, p.DimDepartmentCSV, p.DimRegionCSV, p.FactFinancialsCSV, p.FactOperationsCSV,
		p.FinancialsAnalyticalCSV, p.OperationsAnalyticalCSV, p.CombinedMonthlyCSV, p.FinanceWorkbook,
	} {
		assert.FileExists(t, path)
	}
	assert.Equal(t, 7, lineCount(t, p.FactFinancialsCSV))
	assert.Equal(t, 90+2+1+6+6, state.GetStage(StepIDWriteRaw).Rows)

	paths, _ := state.GetStage(StepIDWriteRaw).Metadata[MetadataKeyPaths].([]string)
	assert.Len(t, paths, 5)

	images, err := Value[[]string](state, ContextKeyCharts)
	require.NoError(t, err)
	assert.NotEmpty(t, images)
	for _, img := range images {
		assert.FileExists(t, img)
		assert.Equal(t, p.ImagesDir, filepath.Dir(img))
	}

	tables, err := Value[dataprocessing.AnalyticalTables](state, ContextKeyAnalytical)
	require.NoError(t, err)
	assert.Len(t, tables.Financials, 6)
	assert.Len(t, tables.Combined, 3)
}

func TestFinancePipeline_OptionalSteps(t *testing.T) {
	env := testEnv(t)
	gen := generator.DefaultOptions()
	gen.End = time.Date(2021, time.January, 31, 0, 0, 0, 0, time.UTC)

	steps, err := FinancePipeline(env, FinanceOptions{Generator: gen})
	require.NoError(t, err)
	assert.Equal(t, []string{StepIDGenerate, StepIDWriteRaw, StepIDAnalytical}, ids(steps))
}

func TestFinancePipeline_InvalidOptions(t *testing.T) {
	env := testEnv(t)
	gen := generator.DefaultOptions()
	gen.End = gen.Start.AddDate(0, -1, 0)

	_, err := FinancePipeline(env, FinanceOptions{Generator: gen})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestSalesPipeline(t *testing.T) {
	env := testEnv(t)
	input := filepath.Join(t.TempDir(), "sales.csv")
	output := filepath.Join(t.TempDir(), "out", "processed.csv")
	content := "date,region,product_name,product_category,units_sold,unit_price,revenue,sales_target\n" +
		"2024-01-05,North,Widget,Electronics,10,5,50,60\n" +
		"2024-01-06,North,Gadget,Electronics,4,5,,60\n" +
		"2024-01-05,north,Widget,electronics,10,5,50,60\n" +
		"bad-date,South,Widget,Electronics,1,1,1,1\n"
	require.NoError(t, os.WriteFile(input, []byte(content), 0644))

	state, err := runPipeline(t, env, PipelineSales, SalesPipeline(env, SalesOptions{Input: input, Output: output}))
	require.NoError(t, err)

	rep, err := Value[cleaning.Report](state, ContextKeySalesClean)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.InputRows)
	assert.Equal(t, 1, rep.InvalidDates)
	assert.Equal(t, 1, rep.RevenueImputed)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 2, rep.OutputRows)

	processed, err := Value[[]domain.ProcessedSale](state, ContextKeySalesRows)
	require.NoError(t, err)
	require.Len(t, processed, 2)
	assert.Equal(t, 2, state.GetStage(StepIDSaveSales).Rows)
	assert.Equal(t, 3, lineCount(t, output))
	assert.Equal(t, input, state.GetStage(StepIDLoadSales).Metadata[MetadataKeyPath])
}

func TestSalesPipeline_MissingInput(t *testing.T) {
	env := testEnv(t)
	missing := filepath.Join(t.TempDir(), "absent.csv")

	state, err := runPipeline(t, env, PipelineSales, SalesPipeline(env, SalesOptions{Input: missing, Output: "unused.csv"}))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Equal(t, StepIDLoadSales, WrapError(err, "", "").Step)
	assert.Equal(t, StepStatusFailed, state.GetStage(StepIDLoadSales).Status)
	assert.Equal(t, StepStatusSkipped, state.GetStage(StepIDSaveSales).Status)
}

func writeFinancialCSV(t *testing.T, months int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,category,scenario,actual_sales,forecast_sales,actual_expenses,forecast_expenses\n")
	start := time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < months; i++ {
		sales := 1000 + 10*float64(i+1)
		fmt.Fprintf(&b, "%s,Sales,Baseline,%g,%g,400,410\n", start.AddDate(0, i, 0).Format("2006-01-02"), sales, sales*1.1)
	}
	path := filepath.Join(t.TempDir(), "financial_data.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func TestFinancialPrepPipeline(t *testing.T) {
	env := testEnv(t)
	input := writeFinancialCSV(t, 24)
	output := filepath.Join(t.TempDir(), "processed_financial_data.csv")

	_, err := runPipeline(t, env, PipelineFinancials, FinancialPrepPipeline(env, FinancialOptions{Input: input, Output: output}))
	require.NoError(t, err)

	rows, hasFeatures, err := dataprocessing.LoadProcessedFinancials(output)
	require.NoError(t, err)
	assert.True(t, hasFeatures)
	require.Len(t, rows, 24)
	assert.Equal(t, 1, rows[0].TimeIndex)
	assert.Equal(t, 2, rows[3].Quarter)
}

func TestForecastPipeline(t *testing.T) {
	env := testEnv(t)
	input := writeFinancialCSV(t, 24)
	results := filepath.Join(t.TempDir(), "forecast_results.csv")

	steps, err := ForecastPipeline(env, ForecastOptions{
		Input:    input,
		Results:  results,
		Forecast: forecasting.OptionsFromConfig(config.Default().Forecast),
	})
	require.NoError(t, err)

	state, err := runPipeline(t, env, PipelineForecast, steps)
	require.NoError(t, err)

	result, err := Value[*domain.ForecastResult](state, ContextKeyForecast)
	require.NoError(t, err)
	require.Len(t, result.Forecasts, 6)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), result.Forecasts[0].Date)
	assert.InDelta(t, 1, result.Metrics.R2, 1e-9)
	assert.Equal(t, 7, lineCount(t, results))
}

func TestForecastPipeline_InvalidOptions(t *testing.T) {
	opts := forecasting.OptionsFromConfig(config.Default().Forecast)
	opts.Periods = 0
	_, err := ForecastPipeline(testEnv(t), ForecastOptions{Forecast: opts})
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestForecastPipeline_NoRowsAfterCleaning(t *testing.T) {
	env := testEnv(t)
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,category,scenario,actual_sales\nbad,Sales,Baseline,1\n"), 0644))

	steps, err := ForecastPipeline(env, ForecastOptions{
		Input:    path,
		Results:  filepath.Join(t.TempDir(), "r.csv"),
		Forecast: forecasting.OptionsFromConfig(config.Default().Forecast),
	})
	require.NoError(t, err)

	state, err := runPipeline(t, env, PipelineForecast, steps)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeData))
	assert.Equal(t, StepStatusFailed, state.GetStage(StepIDCleanFinancials).Status)
	assert.Equal(t, StepStatusSkipped, state.GetStage(StepIDTrain).Status)
}

package dataprocessing

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops/internal/config"
	"finops/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{" 2024-03-05 10:30:00 ", time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC), true},
		{"03/05/2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024/03/05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"not-a-date", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.True(t, tt.want.Equal(got), "ParseDate(%q) = %v", tt.in, got)
	}
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 1234.5, ParseNumber("1,234.5"))
	assert.Equal(t, -3.0, ParseNumber(" -3 "))
	assert.True(t, math.IsNaN(ParseNumber("")))
	assert.True(t, math.IsNaN(ParseNumber("n/a")))
}

func TestParseSalesCSV(t *testing.T) {
	input := "\xEF\xBB\xBFdate,Region,product_name,product_category,units_sold,unit_price,revenue,sales_target\n" +
		"2024-01-05, north ,Widget,electronics,10,5.5,55,60\n" +
		"bad-date,South,Gadget,Toys,,2,,\n" +
		",,,,,,,\n"

	records, err := ParseSalesCSV(strings.NewReader(input), "sales.csv")
	require.NoError(t, err)
	require.Len(t, records, 2, "blank rows are skipped")

	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), records[0].Date)
	assert.Equal(t, " north ", records[0].Region, "text standardization is left to cleaning")
	assert.Equal(t, 55.0, records[0].Revenue)
	assert.Equal(t, 60.0, records[0].SalesTarget)

	assert.True(t, records[1].Date.IsZero())
	assert.True(t, math.IsNaN(records[1].UnitsSold))
	assert.True(t, math.IsNaN(records[1].Revenue))
	assert.True(t, math.IsNaN(records[1].SalesTarget))
}

func TestParseSalesCSV_OptionalTarget(t *testing.T) {
	input := "date,region,product_name,product_category,units_sold,unit_price,revenue\n" +
		"2024-01-05,North,Widget,Electronics,1,2,2\n"
	records, err := ParseSalesCSV(strings.NewReader(input), "sales.csv")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, math.IsNaN(records[0].SalesTarget))
}

func TestParseSalesCSV_MissingColumns(t *testing.T) {
	_, err := ParseSalesCSV(strings.NewReader("date,region\n2024-01-01,North\n"), "sales.csv")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeParsing))
	assert.Contains(t, err.Error(), "product_name")
}

func TestParseFinancialCSV(t *testing.T) {
	input := "date,category,scenario,actual_sales,forecast_sales\n" +
		"2023-02-01,sales,baseline,100,90\n" +
		"2023-01-01,Sales,Baseline,,95\n"
	records, err := ParseFinancialCSV(strings.NewReader(input), "fin.csv")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "sales", records[0].Category)
	assert.Equal(t, 90.0, records[0].ForecastSales)
	assert.True(t, math.IsNaN(records[0].ActualExpenses))
	assert.True(t, math.IsNaN(records[1].ActualSales))
}

func TestLoadProcessedFinancials(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed.csv")
	writeFile(t, processed, "date,category,scenario,actual_sales,forecast_sales,year,month,quarter,year_month,time_index,sales_lag1\n"+
		"2023-01-01,Sales,Baseline,100,90,2023,1,1,2023-01,1,\n"+
		"2023-02-01,Sales,Baseline,110,100,2023,2,1,2023-02,2,100\n")

	rows, hasFeatures, err := LoadProcessedFinancials(processed)
	require.NoError(t, err)
	assert.True(t, hasFeatures)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[1].TimeIndex)
	assert.Equal(t, 2, rows[1].Month)
	assert.Equal(t, 100.0, rows[1].SalesLag1)
	assert.True(t, math.IsNaN(rows[0].SalesLag1))

	raw := filepath.Join(dir, "raw.csv")
	writeFile(t, raw, "date,category,scenario,actual_sales\n2023-01-01,Sales,Baseline,100\n")
	_, hasFeatures, err = LoadProcessedFinancials(raw)
	require.NoError(t, err)
	assert.False(t, hasFeatures)

	_, _, err = LoadProcessedFinancials(filepath.Join(dir, "absent.csv"))
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestLoadFinanceDataset(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	writeFile(t, paths.DimDateCSV, "date_key,date,year,quarter,month,month_name,year_month,day_of_week,is_weekend\n"+
		"20240106,2024-01-06,2024,Q1,1,January,2024-01,Saturday,True\n")
	writeFile(t, paths.DimDepartmentCSV, "department_id,department_name,cost_center,head_of_dept\n1,Sales,CC1001,Ann Lee\n")
	writeFile(t, paths.DimRegionCSV, "region_id,region_name,region_manager,timezone\n1,Europe,Bo Chan,GMT\n")
	writeFile(t, paths.FactFinancialsCSV, "date,date_key,department_id,region_id,revenue,opex,capex,headcount,profit,budget,forecast\n"+
		"2024-01-01,20240101,1,1,100.5,60,10,12,30.5,90,101\n")
	writeFile(t, paths.FactOperationsCSV, "date,date_key,department_id,region_id,tickets_resolved,sla_breaches,cycle_time,utilization,backlog\n"+
		"2024-01-01,20240101,1,1,80,4,2.5,88.1,15\n")

	ds, err := LoadFinanceDataset(paths)
	require.NoError(t, err)
	require.Len(t, ds.Dates, 1)
	assert.True(t, ds.Dates[0].IsWeekend)
	assert.Equal(t, "Ann Lee", ds.Departments[0].HeadOfDept)
	assert.Equal(t, "GMT", ds.Regions[0].Timezone)
	assert.Equal(t, 100.5, ds.Financials[0].Revenue)
	assert.Equal(t, 12, ds.Financials[0].Headcount)
	assert.Equal(t, 15, ds.Operations[0].Backlog)
}

func TestLoadFinanceDataset_Errors(t *testing.T) {
	paths := config.NewPaths(t.TempDir())
	_, err := LoadFinanceDataset(paths)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))

	writeFile(t, paths.DimDateCSV, "date_key,date,year,quarter,month,year_month\n")
	writeFile(t, paths.DimDepartmentCSV, "department_id,department_name\n1,\n")
	_, err = LoadFinanceDataset(paths)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	writeFile(t, paths.DimDepartmentCSV, "department_id,department_name\nx,Sales\n")
	_, err = LoadFinanceDataset(paths)
	assert.True(t, errors.IsType(err, errors.ErrTypeParsing))
}

func TestLoadAnalyticalTables(t *testing.T) {
	dir := t.TempDir()
	fin := filepath.Join(dir, "fin.csv")
	writeFile(t, fin, "date,date_key,department_id,region_id,revenue,opex,capex,headcount,profit,budget,forecast,"+
		"year,quarter,month,month_name,year_month,department_name,cost_center,region_name,profit_margin\n"+
		"2024-01-01,20240101,1,1,200,100,20,5,80,160,190,2024,Q1,1,January,2024-01,Sales,CC1001,Europe,40\n")

	rows, err := LoadFinancialsAnalytical(fin)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 40.0, rows[0].ProfitMargin)
	assert.Equal(t, 25.0, rows[0].RevenueVariance, "recomputed when the column is absent")
	assert.Equal(t, 95.0, rows[0].ForecastAccuracy)
	assert.Equal(t, "2024-01", rows[0].YearMonth)

	ops := filepath.Join(dir, "ops.csv")
	writeFile(t, ops, "date,date_key,department_id,region_id,tickets_resolved,sla_breaches,cycle_time,utilization,backlog,"+
		"year,quarter,month,month_name,year_month,department_name,region_name\n"+
		"2024-01-01,20240101,1,1,90,9,3,75,4,2024,Q1,1,January,2024-01,Sales,Europe\n")
	opsRows, err := LoadOperationsAnalytical(ops)
	require.NoError(t, err)
	require.Len(t, opsRows, 1)
	assert.Equal(t, 10.0, opsRows[0].SLABreachRate)
	assert.Equal(t, 3.0, opsRows[0].TicketsPerHeadcount)
}

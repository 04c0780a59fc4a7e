package dataprocessing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops/pkg/contracts/domain"
)

func TestRatios(t *testing.T) {
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"profit margin", ProfitMargin(25, 100), 25},
		{"profit margin zero revenue", ProfitMargin(25, 0), 0},
		{"revenue variance over budget", RevenueVariance(110, 100), 10},
		{"revenue variance under budget", RevenueVariance(90, 100), -10},
		{"revenue variance zero budget", RevenueVariance(90, 0), 0},
		{"forecast accuracy", ForecastAccuracy(100, 97), 97},
		{"forecast accuracy overshoot", ForecastAccuracy(100, 104), 96},
		{"forecast accuracy zero revenue", ForecastAccuracy(0, 5), 0},
		{"forecast accuracy nan revenue", ForecastAccuracy(math.NaN(), 5), 0},
		{"breach rate", SLABreachRate(3, 40), 7.5},
		{"breach rate rounding", SLABreachRate(1, 3), 33.33},
		{"breach rate no tickets", SLABreachRate(3, 0), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.got, 1e-9)
		})
	}
}

func sampleDataset() *domain.FinanceDataset {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	return &domain.FinanceDataset{
		Dates: []domain.DateDimension{
			{DateKey: "20240101", Date: jan, Year: 2024, Quarter: "Q1", Month: 1, MonthName: "January", YearMonth: "2024-01"},
			{DateKey: "20240201", Date: feb, Year: 2024, Quarter: "Q1", Month: 2, MonthName: "February", YearMonth: "2024-02"},
		},
		Departments: []domain.Department{{ID: 1, Name: "Sales", CostCenter: "CC1001"}},
		Regions:     []domain.Region{{ID: 1, Name: "Europe"}, {ID: 2, Name: "Asia Pacific"}},
		Financials: []domain.FinancialFact{
			{Date: jan, DateKey: "20240101", DepartmentID: 1, RegionID: 1, Revenue: 1000, Opex: 700, Capex: 100, Headcount: 10, Profit: 200, Budget: 800, Forecast: 950},
			{Date: jan, DateKey: "20240101", DepartmentID: 1, RegionID: 2, Revenue: 500, Opex: 300, Capex: 50, Headcount: 4, Profit: 150, Budget: 500, Forecast: 500},
			{Date: feb, DateKey: "20240201", DepartmentID: 1, RegionID: 1, Revenue: 0, Opex: 10, Capex: 0, Headcount: 9, Profit: -10, Budget: 800, Forecast: 0},
			{Date: feb, DateKey: "20240201", DepartmentID: 9, RegionID: 1, Revenue: 1, Opex: 1, Capex: 0, Headcount: 1, Profit: 0, Budget: 1, Forecast: 1},
		},
		Operations: []domain.OperationsFact{
			{Date: jan, DateKey: "20240101", DepartmentID: 1, RegionID: 1, TicketsResolved: 60, SLABreaches: 3, CycleTime: 2, Utilization: 80, Backlog: 10},
			{Date: feb, DateKey: "20240201", DepartmentID: 1, RegionID: 1, TicketsResolved: 0, SLABreaches: 0, CycleTime: 3, Utilization: 90, Backlog: 12},
		},
	}
}

func TestAnalyticsBuilder_Financials(t *testing.T) {
	ds := sampleDataset()
	rows := NewAnalyticsBuilder(ds).Financials(ds.Financials)
	require.Len(t, rows, 4)

	first := rows[0]
	assert.Equal(t, "Sales", first.DepartmentName)
	assert.Equal(t, "CC1001", first.CostCenter)
	assert.Equal(t, "Europe", first.RegionName)
	assert.Equal(t, "2024-01", first.YearMonth)
	assert.Equal(t, "Q1", first.Quarter)
	assert.Equal(t, 20.0, first.ProfitMargin)
	assert.Equal(t, 25.0, first.RevenueVariance)
	assert.Equal(t, 95.0, first.ForecastAccuracy)

	zeroRevenue := rows[2]
	assert.Equal(t, 0.0, zeroRevenue.ProfitMargin)
	assert.Equal(t, 0.0, zeroRevenue.ForecastAccuracy)
	assert.Equal(t, -100.0, zeroRevenue.RevenueVariance)

	unknownDept := rows[3]
	assert.Empty(t, unknownDept.DepartmentName)
	assert.Equal(t, "Europe", unknownDept.RegionName)
}

func TestAnalyticsBuilder_Operations(t *testing.T) {
	ds := sampleDataset()
	rows := NewAnalyticsBuilder(ds).Operations(ds.Operations)
	require.Len(t, rows, 2)

	assert.Equal(t, 5.0, rows[0].SLABreachRate)
	assert.Equal(t, 2.0, rows[0].TicketsPerHeadcount)
	assert.Equal(t, "February", rows[1].MonthName)
	assert.Equal(t, 0.0, rows[1].SLABreachRate)
}

func TestBuildCombinedMonthly(t *testing.T) {
	tables := BuildAnalyticalTables(sampleDataset())
	combined := tables.Combined

	// the fact with an unknown department has no name and is not grouped
	require.Len(t, combined, 3)

	assert.Equal(t, "2024-01", combined[0].YearMonth)
	assert.Equal(t, "Asia Pacific", combined[0].RegionName)
	assert.False(t, combined[0].HasOperations)
	assert.Equal(t, 0, combined[0].TicketsResolved)

	eu := combined[1]
	assert.Equal(t, "Europe", eu.RegionName)
	assert.Equal(t, 1000.0, eu.Revenue)
	assert.Equal(t, 10.0, eu.Headcount)
	assert.True(t, eu.HasOperations)
	assert.Equal(t, 60, eu.TicketsResolved)
	assert.Equal(t, 3, eu.SLABreaches)
	assert.Equal(t, 80.0, eu.Utilization)
	assert.Equal(t, 10.0, eu.Backlog)

	assert.Equal(t, "2024-02", combined[2].YearMonth)
	assert.Equal(t, 12.0, combined[2].Backlog)
}

func TestBuildCombinedMonthly_AveragesWithinGroup(t *testing.T) {
	fin := []domain.FinancialAnalytical{
		{Calendar: domain.Calendar{YearMonth: "2024-03"}, DepartmentName: "HR", RegionName: "Europe",
			FinancialFact: domain.FinancialFact{Revenue: 100, Headcount: 2}, ProfitMargin: 10},
		{Calendar: domain.Calendar{YearMonth: "2024-03"}, DepartmentName: "HR", RegionName: "Europe",
			FinancialFact: domain.FinancialFact{Revenue: 50, Headcount: 5}, ProfitMargin: 20},
	}
	out := BuildCombinedMonthly(fin, nil)
	require.Len(t, out, 1)
	assert.Equal(t, 150.0, out[0].Revenue)
	assert.Equal(t, 3.5, out[0].Headcount)
	assert.Equal(t, 15.0, out[0].ProfitMargin)
}

package sales

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops/internal/errors"
	"finops/internal/shared/testutil"
	"finops/pkg/contracts/domain"
)

func rec(month time.Month, region, category, product string, units, revenue, target float64) domain.SaleRecord {
	return domain.SaleRecord{
		Date:            time.Date(2024, month, 10, 0, 0, 0, 0, time.UTC),
		Region:          region,
		ProductName:     product,
		ProductCategory: category,
		UnitsSold:       units,
		UnitPrice:       revenue / units,
		Revenue:         revenue,
		SalesTarget:     target,
	}
}

func fixture() []domain.SaleRecord {
	return []domain.SaleRecord{
		rec(time.January, "North", "Electronics", "Laptop", 2, 2000, 1500),
		rec(time.January, "South", "Electronics", "Phone", 4, 1200, 1000),
		rec(time.February, "North", "Furniture", "Desk", 1, 300, 500),
		rec(time.February, "North", "Electronics", "Phone", 2, 600, math.NaN()),
		rec(time.March, "East", "Furniture", "Chair", 5, 250, 0),
	}
}

func TestOverallKPIs(t *testing.T) {
	k := OverallKPIs(fixture())
	assert.Equal(t, 4350.0, k.TotalRevenue)
	assert.Equal(t, 3000.0, k.TotalTarget)
	assert.Equal(t, 14.0, k.TotalUnits)
	assert.Equal(t, 5, k.TransactionCount)
	assert.Equal(t, 870.0, k.AvgOrderValue)
	assert.Equal(t, 1350.0, k.Variance)
	assert.Equal(t, 45.0, k.VariancePct)

	noTargets := OverallKPIs([]domain.SaleRecord{rec(time.May, "N", "C", "P", 1, 10, math.NaN())})
	assert.Zero(t, noTargets.TotalTarget)
	assert.Zero(t, noTargets.Variance)
	assert.Zero(t, noTargets.VariancePct)

	empty := OverallKPIs(nil)
	assert.Zero(t, empty.AvgOrderValue)
}

func TestRegionalPerformance(t *testing.T) {
	regions := RegionalPerformance(fixture())
	require.Len(t, regions, 3)

	north := regions[0]
	assert.Equal(t, "North", north.Region)
	assert.Equal(t, 2900.0, north.Revenue)
	assert.Equal(t, 2000.0, north.Target)
	assert.Equal(t, 3, north.TransactionCount)
	assert.Equal(t, 900.0, north.Variance)
	assert.Equal(t, 45.0, north.VariancePct)
	assert.InDelta(t, 966.67, north.AvgOrderValue, 0.01)

	assert.Equal(t, "South", regions[1].Region)
	east := regions[2]
	assert.Equal(t, "East", east.Region)
	assert.Equal(t, 0.0, east.VariancePct, "zero target gives zero variance pct")
}

func TestCategoryPerformance(t *testing.T) {
	cats := CategoryPerformance(fixture())
	require.Len(t, cats, 2)
	assert.Equal(t, "Electronics", cats[0].Category)
	assert.Equal(t, 3800.0, cats[0].Revenue)
	assert.Equal(t, 2, cats[0].UniqueProducts)
	assert.Equal(t, 1900.0, cats[0].RevenuePerProduct)
	assert.Equal(t, "Furniture", cats[1].Category)
	assert.Equal(t, 6.0, cats[1].UnitsSold)
}

func TestMonthlyTrends(t *testing.T) {
	records := fixture()
	undated := rec(time.April, "North", "X", "Y", 1, 99, 1)
	undated.Date = time.Time{}
	records = append(records, undated)

	months := MonthlyTrends(records)
	require.Len(t, months, 3)
	assert.Equal(t, domain.MonthlySales{YearMonth: "2024-01", Revenue: 3200, Target: 2500, UnitsSold: 6}, months[0])
	assert.Equal(t, "2024-02", months[1].YearMonth)
	assert.Equal(t, 500.0, months[1].Target)
	assert.Equal(t, "2024-03", months[2].YearMonth)
}

func TestTopProducts(t *testing.T) {
	top := TopProducts(fixture(), 2)
	require.Len(t, top, 2)
	assert.Equal(t, "Laptop", top[0].ProductName)
	assert.Equal(t, "Phone", top[1].ProductName)
	assert.Equal(t, 1800.0, top[1].Revenue)
	assert.Equal(t, 2, top[1].RegionsSoldIn)

	assert.Len(t, TopProducts(fixture(), 10), 4)
}

func TestAnalyze_DefaultTopN(t *testing.T) {
	var records []domain.SaleRecord
	for i := 0; i < 15; i++ {
		records = append(records, rec(time.January, "North", "C", string(rune('A'+i)), 1, float64(i+1), 1))
	}
	report := Analyze(records, 0)
	assert.Len(t, report.TopProducts, 10)
	assert.Equal(t, "O", report.TopProducts[0].ProductName)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Analyze(fixture(), 3)))
	out := buf.String()

	assert.Contains(t, out, "SALES PERFORMANCE ANALYSIS REPORT")
	assert.Contains(t, out, "Total Revenue: $4,350.00")
	assert.Contains(t, out, "Variance: $1,350.00 (45.00%)")
	assert.Contains(t, out, "Transaction Count: 5")
	assert.Contains(t, out, "=== REGIONAL PERFORMANCE ===")
	assert.Contains(t, out, "=== TOP 3 PRODUCTS BY REVENUE ===")
	assert.Contains(t, out, "2024-02")
	assert.Contains(t, out, "Laptop")
}

func writeSales(t *testing.T, path string, rows ...string) {
	t.Helper()
	content := "date,region,product_name,product_category,units_sold,unit_price,revenue,sales_target\n"
	for _, r := range rows {
		content += r + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadForAnalysis(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed.csv")
	raw := filepath.Join(dir, "raw.csv")
	writeSales(t, raw, "2024-01-01,North,A,C,1,10,10,5", "2024-01-02,North,B,C,1,10,10,5")

	logger, handler := testutil.NewTestLogger(t)
	records, source, err := LoadForAnalysis(context.Background(), processed, raw, logger)
	require.NoError(t, err)
	assert.Equal(t, raw, source)
	assert.Len(t, records, 2)
	assert.True(t, handler.ContainsMessage("processed sales data not found"))

	writeSales(t, processed, "2024-01-01,North,A,C,1,10,10,5")
	records, source, err = LoadForAnalysis(context.Background(), processed, raw, logger)
	require.NoError(t, err)
	assert.Equal(t, processed, source)
	assert.Len(t, records, 1)

	_, _, err = LoadForAnalysis(context.Background(), filepath.Join(dir, "x.csv"), filepath.Join(dir, "y.csv"), logger)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

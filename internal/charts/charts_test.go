package charts

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops/internal/shared/testutil"
	"finops/pkg/contracts/domain"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func sampleDashboard() domain.Dashboard {
	return domain.Dashboard{
		Monthly: []domain.MonthlyFinance{
			{YearMonth: "2024-01", Revenue: 5e6, Opex: 3e6, Capex: 4e5, Profit: 1.6e6},
			{YearMonth: "2024-02", Revenue: 5.5e6, Opex: 3.2e6, Capex: 5e5, Profit: 1.8e6},
		},
		ByDepartment: []domain.RevenueShare{{Name: "Sales", Revenue: 7e6}, {Name: "HR", Revenue: 3.5e6}},
		ByRegion:     []domain.RevenueShare{{Name: "Europe", Revenue: 10.5e6}},
		Quarterly: []domain.QuarterlyVariance{
			{Quarter: "2024Q1", Revenue: 10.5e6, Budget: 10e6, Forecast: 10.4e6, ActualVsBudget: 5},
		},
		OperationsMonthly: []domain.MonthlyOperations{
			{YearMonth: "2024-01", SLABreachRate: 4.5, Utilization: 82},
			{YearMonth: "2024-02", SLABreachRate: 5.5, Utilization: 88},
		},
	}
}

func TestDashboardAndSave(t *testing.T) {
	charts, err := Dashboard(sampleDashboard())
	require.NoError(t, err)

	names := make([]string, len(charts))
	for i, c := range charts {
		names[i] = c.Name
	}
	assert.Equal(t, []string{
		"revenue_expenses_trend", "profit_trend", "revenue_by_department", "revenue_by_region",
		"quarterly_comparison", "quarterly_variance", "sla_breach_rate", "utilization",
	}, names)

	dir := filepath.Join(t.TempDir(), "images")
	logger, handler := testutil.NewTestLogger(t)
	paths, err := Save(charts, dir, logger)
	require.NoError(t, err)
	require.Len(t, paths, len(charts))

	for _, p := range paths {
		content, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(content, pngMagic), p)
	}
	assert.True(t, handler.ContainsMessage("charts saved"))
}

func TestDashboard_SkipsEmptySeries(t *testing.T) {
	d := sampleDashboard()
	d.OperationsMonthly = nil
	d.Quarterly = nil

	charts, err := Dashboard(d)
	require.NoError(t, err)
	assert.Len(t, charts, 4)

	charts, err = Dashboard(domain.Dashboard{})
	require.NoError(t, err)
	assert.Empty(t, charts)
}

func TestPlotLabels(t *testing.T) {
	p, err := revenueShares("Total Revenue by Region", "Region", sampleDashboard().ByRegion)
	require.NoError(t, err)
	assert.Equal(t, "Total Revenue by Region", p.Title.Text)
	assert.Equal(t, "Revenue (Millions USD)", p.Y.Label.Text)
}

func TestWritePNG(t *testing.T) {
	charts, err := Dashboard(sampleDashboard())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, charts[0]))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

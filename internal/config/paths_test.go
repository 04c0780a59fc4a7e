package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	base := t.TempDir()
	p := NewPaths(base)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"raw dir", p.RawDir, filepath.Join(base, "data", "raw")},
		{"processed dir", p.ProcessedDir, filepath.Join(base, "data", "processed")},
		{"dim date", p.DimDateCSV, filepath.Join(base, "data", "raw", "dim_date.csv")},
		{"fact operations", p.FactOperationsCSV, filepath.Join(base, "data", "raw", "fact_operations.csv")},
		{"combined", p.CombinedMonthlyCSV, filepath.Join(base, "data", "processed", "combined_metrics_monthly.csv")},
		{"sales processed", p.SalesProcessedCSV, filepath.Join(base, "data", "processed_sales_data.csv")},
		{"forecast results", p.ForecastResultsCSV, filepath.Join(base, "data", "forecast_results.csv")},
		{"image", p.ImagePath("revenue.png"), filepath.Join(base, "images", "revenue.png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestNewPaths_EmptyBase(t *testing.T) {
	p := NewPaths("")
	assert.Equal(t, ".", p.BaseDir)
	assert.Equal(t, filepath.Join("data", "raw"), p.RawDir)
}

func TestEnsureDirectories(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirectories())

	for _, dir := range []string{p.RawDir, p.ProcessedDir, p.ReportsDir, p.ImagesDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
	assert.True(t, FileExists(p.RawDir))
	assert.False(t, FileExists(p.FactFinancialsCSV))
}

func TestLogPathResolution(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewPaths("/srv/finops").LogPathResolution(logger)
	assert.Contains(t, buf.String(), "path resolution summary")
	assert.Contains(t, buf.String(), "financials_analytical.csv")

	assert.NotPanics(t, func() { NewPaths("x").LogPathResolution(nil) })
}

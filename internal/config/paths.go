package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for every file the pipelines touch.
type Paths struct {
	BaseDir      string
	DataDir      string
	RawDir       string
	ProcessedDir string
	ReportsDir   string
	ImagesDir    string
	LogsDir      string

	// Finance & operations star schema (raw)
	DimDateCSV        string
	DimDepartmentCSV  string
	DimRegionCSV      string
	FactFinancialsCSV string
	FactOperationsCSV string

	// Analytical tables (processed)
	FinancialsAnalyticalCSV string
	OperationsAnalyticalCSV string
	CombinedMonthlyCSV      string
	FinanceWorkbook         string

	// Sales pipeline
	SalesRawCSV         string
	SalesProcessedCSV   string
	SalesReportWorkbook string

	// Forecasting pipeline
	FinancialRawCSV       string
	FinancialProcessedCSV string
	ForecastResultsCSV    string
}

// NewPaths derives every path from baseDir. An empty baseDir means the
// current working directory.
func NewPaths(baseDir string) *Paths {
	if baseDir == "" {
		baseDir = "."
	}

	dataDir := filepath.Join(baseDir, "data")
	rawDir := filepath.Join(dataDir, "raw")
	processedDir := filepath.Join(dataDir, "processed")
	reportsDir := filepath.Join(dataDir, "reports")

	return &Paths{
		BaseDir:      baseDir,
		DataDir:      dataDir,
		RawDir:       rawDir,
		ProcessedDir: processedDir,
		ReportsDir:   reportsDir,
		ImagesDir:    filepath.Join(baseDir, "images"),
		LogsDir:      filepath.Join(baseDir, "logs"),

		DimDateCSV:        filepath.Join(rawDir, "dim_date.csv"),
		DimDepartmentCSV:  filepath.Join(rawDir, "dim_department.csv"),
		DimRegionCSV:      filepath.Join(rawDir, "dim_region.csv"),
		FactFinancialsCSV: filepath.Join(rawDir, "fact_financials.csv"),
		FactOperationsCSV: filepath.Join(rawDir, "fact_operations.csv"),

		FinancialsAnalyticalCSV: filepath.Join(processedDir, "financials_analytical.csv"),
		OperationsAnalyticalCSV: filepath.Join(processedDir, "operations_analytical.csv"),
		CombinedMonthlyCSV:      filepath.Join(processedDir, "combined_metrics_monthly.csv"),
		FinanceWorkbook:         filepath.Join(processedDir, "finance_ops.xlsx"),

		SalesRawCSV:         filepath.Join(dataDir, "sample_sales_data.csv"),
		SalesProcessedCSV:   filepath.Join(dataDir, "processed_sales_data.csv"),
		SalesReportWorkbook: filepath.Join(reportsDir, "sales_report.xlsx"),

		FinancialRawCSV:       filepath.Join(dataDir, "sample_financial_data.csv"),
		FinancialProcessedCSV: filepath.Join(dataDir, "processed_financial_data.csv"),
		ForecastResultsCSV:    filepath.Join(dataDir, "forecast_results.csv"),
	}
}

// EnsureDirectories creates all output directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.ProcessedDir,
		p.ReportsDir,
		p.ImagesDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// ImagePath returns the location of a chart image.
func (p *Paths) ImagePath(filename string) string {
	return filepath.Join(p.ImagesDir, filename)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// LogPathResolution logs the resolved locations at debug level
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		return
	}

	logger.Debug("path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("raw", p.RawDir),
			slog.String("processed", p.ProcessedDir),
			slog.String("reports", p.ReportsDir),
			slog.String("images", p.ImagesDir),
		),
		slog.Group("files",
			slog.String("financials_analytical", p.FinancialsAnalyticalCSV),
			slog.String("operations_analytical", p.OperationsAnalyticalCSV),
			slog.String("sales_processed", p.SalesProcessedCSV),
			slog.String("financial_processed", p.FinancialProcessedCSV),
		))
}

package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"finops/pkg/contracts/domain"
)

// Sheet is one worksheet of a workbook.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// SheetOf lays rows out with t.
func SheetOf[T any](name string, t Table[T], rows []T) Sheet {
	s := Sheet{Name: name, Headers: t.Headers, Rows: make([][]any, len(rows))}
	for i, r := range rows {
		s.Rows[i] = t.Values(r)
	}
	return s
}

// WriteWorkbook saves sheets, in order, as an xlsx file at path.
func (w *CSVWriter) WriteWorkbook(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("workbook %s has no sheets", path)
	}
	fullPath := w.resolvePath(path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				return fmt.Errorf("failed to name sheet %s: %w", s.Name, err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", s.Name, err)
		}
		if err := writeSheet(f, s); err != nil {
			return err
		}
	}

	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	w.logger.Info("workbook written", slog.String("file_path", fullPath), slog.Int("sheets", len(sheets)))
	return nil
}

func writeSheet(f *excelize.File, s Sheet) error {
	sw, err := f.NewStreamWriter(s.Name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %s: %w", s.Name, err)
	}

	header := make([]any, len(s.Headers))
	for i, h := range s.Headers {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", s.Name, err)
	}

	for i, row := range s.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = workbookCell(v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, s.Name, err)
		}
	}
	return sw.Flush()
}

// Sheet names of the finance workbook.
const (
	FinancialsSheet = "financials_analytical"
	OperationsSheet = "operations_analytical"
	CombinedSheet   = "combined_metrics_monthly"
)

// FinanceWorkbookSheets lays out the analytical tables, one sheet each.
func FinanceWorkbookSheets(fin []domain.FinancialAnalytical, ops []domain.OperationsAnalytical, combined []domain.CombinedMonthly) []Sheet {
	return []Sheet{
		SheetOf(FinancialsSheet, FinancialsAnalyticalTable, fin),
		SheetOf(OperationsSheet, OperationsAnalyticalTable, ops),
		SheetOf(CombinedSheet, CombinedMonthlyTable, combined),
	}
}

// SalesReportSheets lays out a sales analysis report.
func SalesReportSheets(r domain.SalesReport) []Sheet {
	return []Sheet{
		SheetOf("kpis", metricTable, salesKPIMetrics(r.KPIs)),
		SheetOf("regions", RegionPerformanceTable, r.Regions),
		SheetOf("categories", CategoryPerformanceTable, r.Categories),
		SheetOf("monthly", MonthlySalesTable, r.Monthly),
		SheetOf("top_products", ProductPerformanceTable, r.TopProducts),
	}
}

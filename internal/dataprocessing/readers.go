package dataprocessing

import (
	"fmt"
	"io"

	"finops/internal/config"
	"finops/internal/errors"
	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

var salesRequiredColumns = []string{
	"date", "region", "product_name", "product_category", "units_sold", "unit_price", "revenue",
}

// ParseSalesCSV reads sales transactions. sales_target is optional and any
// feature columns are ignored. Bad cells become missing values rather than
// errors so that cleaning can decide what to keep.
func ParseSalesCSV(r io.Reader, source string) ([]domain.SaleRecord, error) {
	t, err := readCSVTable(r, source)
	if err != nil {
		return nil, err
	}
	return parseSalesTable(t)
}

// LoadSalesCSV reads a sales file from disk.
func LoadSalesCSV(path string) ([]domain.SaleRecord, error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, err
	}
	return parseSalesTable(t)
}

func parseSalesTable(t *csvTable) ([]domain.SaleRecord, error) {
	if err := t.require(salesRequiredColumns...); err != nil {
		return nil, err
	}
	var out []domain.SaleRecord
	err := t.each(func(row csvRow) error {
		out = append(out, domain.SaleRecord{
			Date:            row.date("date"),
			Region:          row.raw("region"),
			ProductName:     row.str("product_name"),
			ProductCategory: row.raw("product_category"),
			UnitsSold:       row.float("units_sold"),
			UnitPrice:       row.float("unit_price"),
			Revenue:         row.float("revenue"),
			SalesTarget:     row.float("sales_target"),
		})
		return nil
	})
	return out, err
}

var financialRequiredColumns = []string{"date", "category", "scenario", "actual_sales"}

// ParseFinancialCSV reads forecasting input rows. forecast_sales,
// actual_expenses and forecast_expenses are optional.
func ParseFinancialCSV(r io.Reader, source string) ([]domain.FinancialRecord, error) {
	t, err := readCSVTable(r, source)
	if err != nil {
		return nil, err
	}
	rows, _, err := parseFinancialTable(t)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FinancialRecord, len(rows))
	for i, r := range rows {
		out[i] = r.FinancialRecord
	}
	return out, nil
}

// LoadProcessedFinancials reads a financial file together with any feature
// columns it carries. hasFeatures is false when the file lacks time_index,
// month or quarter, i.e. when it is raw input.
func LoadProcessedFinancials(path string) (rows []domain.ProcessedFinancial, hasFeatures bool, err error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, false, err
	}
	return parseFinancialTable(t)
}

func parseFinancialTable(t *csvTable) ([]domain.ProcessedFinancial, bool, error) {
	if err := t.require(financialRequiredColumns...); err != nil {
		return nil, false, err
	}
	hasFeatures := t.has("time_index") && t.has("month") && t.has("quarter")

	var out []domain.ProcessedFinancial
	err := t.each(func(row csvRow) error {
		rec := domain.ProcessedFinancial{
			FinancialRecord: domain.FinancialRecord{
				Date:             row.date("date"),
				Category:         row.raw("category"),
				Scenario:         row.raw("scenario"),
				ActualSales:      row.float("actual_sales"),
				ForecastSales:    row.float("forecast_sales"),
				ActualExpenses:   row.float("actual_expenses"),
				ForecastExpenses: row.float("forecast_expenses"),
			},
		}
		if hasFeatures {
			ints, err := row.integers("time_index", "month", "quarter")
			if err != nil {
				return err
			}
			rec.TimeIndex, rec.Month, rec.Quarter = ints[0], ints[1], ints[2]
			rec.Year = rec.Date.Year()
			rec.YearMonth = row.str("year_month")
			rec.SalesVariance = row.float("sales_variance")
			rec.SalesVariancePct = row.float("sales_variance_pct")
			rec.ExpensesVariance = row.float("expenses_variance")
			rec.ExpensesVariancePct = row.float("expenses_variance_pct")
			rec.SalesLag1 = row.float("sales_lag1")
			rec.SalesLag3 = row.float("sales_lag3")
		}
		out = append(out, rec)
		return nil
	})
	return out, hasFeatures, err
}

// LoadFinanceDataset reads the raw star schema written by the generator.
func LoadFinanceDataset(paths *config.Paths) (*domain.FinanceDataset, error) {
	ds := &domain.FinanceDataset{}
	var err error
	if ds.Dates, err = loadDateDimension(paths.DimDateCSV); err != nil {
		return nil, err
	}
	if ds.Departments, err = loadDepartments(paths.DimDepartmentCSV); err != nil {
		return nil, err
	}
	if ds.Regions, err = loadRegions(paths.DimRegionCSV); err != nil {
		return nil, err
	}
	if ds.Financials, err = loadFinancialFacts(paths.FactFinancialsCSV); err != nil {
		return nil, err
	}
	if ds.Operations, err = loadOperationsFacts(paths.FactOperationsCSV); err != nil {
		return nil, err
	}
	return ds, nil
}

func loadDateDimension(path string) ([]domain.DateDimension, error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.require("date_key", "date", "year", "quarter", "month", "year_month"); err != nil {
		return nil, err
	}
	var out []domain.DateDimension
	err = t.each(func(row csvRow) error {
		ints, err := row.integers("year", "month")
		if err != nil {
			return err
		}
		out = append(out, domain.DateDimension{
			DateKey:   row.str("date_key"),
			Date:      row.date("date"),
			Year:      ints[0],
			Quarter:   row.str("quarter"),
			Month:     ints[1],
			MonthName: row.str("month_name"),
			YearMonth: row.str("year_month"),
			DayOfWeek: row.str("day_of_week"),
			IsWeekend: row.bool("is_weekend"),
		})
		return nil
	})
	return out, err
}

func loadDepartments(path string) ([]domain.Department, error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.require("department_id", "department_name"); err != nil {
		return nil, err
	}
	var out []domain.Department
	err = t.each(func(row csvRow) error {
		id, err := row.integer("department_id")
		if err != nil {
			return err
		}
		d := domain.Department{
			ID:         id,
			Name:       row.str("department_name"),
			CostCenter: row.str("cost_center"),
			HeadOfDept: row.str("head_of_dept"),
		}
		if err := validateRow(t.source, row.line, d); err != nil {
			return err
		}
		out = append(out, d)
		return nil
	})
	return out, err
}

func loadRegions(path string) ([]domain.Region, error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.require("region_id", "region_name"); err != nil {
		return nil, err
	}
	var out []domain.Region
	err = t.each(func(row csvRow) error {
		id, err := row.integer("region_id")
		if err != nil {
			return err
		}
		r := domain.Region{
			ID:       id,
			Name:     row.str("region_name"),
			Manager:  row.str("region_manager"),
			Timezone: row.str("timezone"),
		}
		if err := validateRow(t.source, row.line, r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

var financialFactColumns = []string{
	"date", "date_key", "department_id", "region_id", "revenue", "opex", "capex",
	"headcount", "profit", "budget", "forecast",
}

func financialFact(row csvRow) (domain.FinancialFact, error) {
	ints, err := row.integers("department_id", "region_id", "headcount")
	if err != nil {
		return domain.FinancialFact{}, err
	}
	f := domain.FinancialFact{
		Date:         row.date("date"),
		DateKey:      row.str("date_key"),
		DepartmentID: ints[0],
		RegionID:     ints[1],
		Revenue:      row.float("revenue"),
		Opex:         row.float("opex"),
		Capex:        row.float("capex"),
		Headcount:    ints[2],
		Profit:       row.float("profit"),
		Budget:       row.float("budget"),
		Forecast:     row.float("forecast"),
	}
	if f.Date.IsZero() {
		return f, errors.NewParsingError(fmt.Sprintf("%s line %d: invalid date", row.table.source, row.line), nil)
	}
	return f, nil
}

func loadFinancialFacts(path string) ([]domain.FinancialFact, error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.require(financialFactColumns...); err != nil {
		return nil, err
	}
	var out []domain.FinancialFact
	err = t.each(func(row csvRow) error {
		f, err := financialFact(row)
		if err != nil {
			return err
		}
		out = append(out, f)
		return nil
	})
	return out, err
}

var operationsFactColumns = []string{
	"date", "date_key", "department_id", "region_id", "tickets_resolved", "sla_breaches",
	"cycle_time", "utilization", "backlog",
}

func operationsFact(row csvRow) (domain.OperationsFact, error) {
	ints, err := row.integers("department_id", "region_id", "tickets_resolved", "sla_breaches", "backlog")
	if err != nil {
		return domain.OperationsFact{}, err
	}
	o := domain.OperationsFact{
		Date:            row.date("date"),
		DateKey:         row.str("date_key"),
		DepartmentID:    ints[0],
		RegionID:        ints[1],
		TicketsResolved: ints[2],
		SLABreaches:     ints[3],
		CycleTime:       row.float("cycle_time"),
		Utilization:     row.float("utilization"),
		Backlog:         ints[4],
	}
	if o.Date.IsZero() {
		return o, errors.NewParsingError(fmt.Sprintf("%s line %d: invalid date", row.table.source, row.line), nil)
	}
	return o, nil
}

func loadOperationsFacts(path string) ([]domain.OperationsFact, error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := t.require(operationsFactColumns...); err != nil {
		return nil, err
	}
	var out []domain.OperationsFact
	err = t.each(func(row csvRow) error {
		o, err := operationsFact(row)
		if err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	return out, err
}

func calendar(row csvRow) (domain.Calendar, error) {
	ints, err := row.integers("year", "month")
	if err != nil {
		return domain.Calendar{}, err
	}
	return domain.Calendar{
		Year:      ints[0],
		Quarter:   row.str("quarter"),
		Month:     ints[1],
		MonthName: row.str("month_name"),
		YearMonth: row.str("year_month"),
	}, nil
}

// LoadFinancialsAnalytical reads financials_analytical.csv.
func LoadFinancialsAnalytical(path string) ([]domain.FinancialAnalytical, error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, err
	}
	cols := append(append([]string{}, financialFactColumns...),
		"year", "quarter", "month", "year_month", "department_name", "region_name")
	if err := t.require(cols...); err != nil {
		return nil, err
	}

	var out []domain.FinancialAnalytical
	err = t.each(func(row csvRow) error {
		f, err := financialFact(row)
		if err != nil {
			return err
		}
		cal, err := calendar(row)
		if err != nil {
			return err
		}
		rec := domain.FinancialAnalytical{
			FinancialFact:  f,
			Calendar:       cal,
			DepartmentName: row.str("department_name"),
			CostCenter:     row.str("cost_center"),
			RegionName:     row.str("region_name"),
		}
		// Derived columns are recomputed when absent.
		rec.ProfitMargin = orDefault(row, "profit_margin", ProfitMargin(f.Profit, f.Revenue))
		rec.RevenueVariance = orDefault(row, "revenue_variance", RevenueVariance(f.Revenue, f.Budget))
		rec.ForecastAccuracy = orDefault(row, "forecast_accuracy", ForecastAccuracy(f.Revenue, f.Forecast))
		out = append(out, rec)
		return nil
	})
	return out, err
}

// LoadOperationsAnalytical reads operations_analytical.csv.
func LoadOperationsAnalytical(path string) ([]domain.OperationsAnalytical, error) {
	t, err := openCSVTable(path)
	if err != nil {
		return nil, err
	}
	cols := append(append([]string{}, operationsFactColumns...),
		"year", "quarter", "month", "year_month", "department_name", "region_name")
	if err := t.require(cols...); err != nil {
		return nil, err
	}

	var out []domain.OperationsAnalytical
	err = t.each(func(row csvRow) error {
		o, err := operationsFact(row)
		if err != nil {
			return err
		}
		cal, err := calendar(row)
		if err != nil {
			return err
		}
		out = append(out, domain.OperationsAnalytical{
			OperationsFact:      o,
			Calendar:            cal,
			DepartmentName:      row.str("department_name"),
			RegionName:          row.str("region_name"),
			SLABreachRate:       orDefault(row, "sla_breach_rate", SLABreachRate(o.SLABreaches, o.TicketsResolved)),
			TicketsPerHeadcount: orDefault(row, "tickets_per_headcount", shared.Round2(float64(o.TicketsResolved)/OperationsHeadcountDays)),
		})
		return nil
	})
	return out, err
}

func orDefault(row csvRow, col string, def float64) float64 {
	v := row.float(col)
	if shared.IsMissing(v) {
		return def
	}
	return v
}

package exporter

import (
	"fmt"
	"log/slog"

	"finops/pkg/contracts/domain"
)

// Table describes how rows of T are laid out as columns.
type Table[T any] struct {
	Headers []string
	Values  func(T) []any
}

// Records renders rows as CSV records.
func (t Table[T]) Records(rows []T) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		vals := t.Values(r)
		rec := make([]string, len(vals))
		for j, v := range vals {
			rec[j] = formatCell(v)
		}
		out[i] = rec
	}
	return out
}

// WriteTable streams rows to a CSV file at path.
func WriteTable[T any](w *CSVWriter, path string, t Table[T], rows []T) error {
	sw, err := w.CreateStreamWriter(path, t.Headers)
	if err != nil {
		return err
	}
	for _, rec := range t.Records(rows) {
		if err := sw.WriteRecord(rec); err != nil {
			sw.Close()
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	w.logger.Info("table written", slog.String("file_path", w.resolvePath(path)), slog.Int("rows", sw.Rows()))
	return nil
}

var DateDimensionTable = Table[domain.DateDimension]{
	Headers: []string{"date_key", "date", "year", "quarter", "month", "month_name", "year_month", "day_of_week", "is_weekend"},
	Values: func(d domain.DateDimension) []any {
		return []any{d.DateKey, d.Date, d.Year, d.Quarter, d.Month, d.MonthName, d.YearMonth, d.DayOfWeek, d.IsWeekend}
	},
}

var DepartmentTable = Table[domain.Department]{
	Headers: []string{"department_id", "department_name", "cost_center", "head_of_dept"},
	Values: func(d domain.Department) []any {
		return []any{d.ID, d.Name, d.CostCenter, d.HeadOfDept}
	},
}

var RegionTable = Table[domain.Region]{
	Headers: []string{"region_id", "region_name", "region_manager", "timezone"},
	Values: func(r domain.Region) []any {
		return []any{r.ID, r.Name, r.Manager, r.Timezone}
	},
}

var (
	financialFactHeaders = []string{
		"date", "date_key", "department_id", "region_id", "revenue", "opex", "capex",
		"headcount", "profit", "budget", "forecast",
	}
	operationsFactHeaders = []string{
		"date", "date_key", "department_id", "region_id", "tickets_resolved", "sla_breaches",
		"cycle_time", "utilization", "backlog",
	}
	calendarHeaders = []string{"year", "quarter", "month", "month_name", "year_month"}
)

func financialFactValues(f domain.FinancialFact) []any {
	return []any{f.Date, f.DateKey, f.DepartmentID, f.RegionID, f.Revenue, f.Opex, f.Capex,
		f.Headcount, f.Profit, f.Budget, f.Forecast}
}

func operationsFactValues(o domain.OperationsFact) []any {
	return []any{o.Date, o.DateKey, o.DepartmentID, o.RegionID, o.TicketsResolved, o.SLABreaches,
		o.CycleTime, o.Utilization, o.Backlog}
}

func calendarValues(c domain.Calendar) []any {
	return []any{c.Year, c.Quarter, c.Month, c.MonthName, c.YearMonth}
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var FinancialFactTable = Table[domain.FinancialFact]{
	Headers: financialFactHeaders,
	Values:  financialFactValues,
}

var OperationsFactTable = Table[domain.OperationsFact]{
	Headers: operationsFactHeaders,
	Values:  operationsFactValues,
}

var FinancialsAnalyticalTable = Table[domain.FinancialAnalytical]{
	Headers: concat(financialFactHeaders, calendarHeaders, []string{
		"department_name", "cost_center", "region_name", "profit_margin", "revenue_variance", "forecast_accuracy",
	}),
	Values: func(r domain.FinancialAnalytical) []any {
		out := append(financialFactValues(r.FinancialFact), calendarValues(r.Calendar)...)
		return append(out, r.DepartmentName, r.CostCenter, r.RegionName, r.ProfitMargin, r.RevenueVariance, r.ForecastAccuracy)
	},
}

var OperationsAnalyticalTable = Table[domain.OperationsAnalytical]{
	Headers: concat(operationsFactHeaders, calendarHeaders, []string{
		"department_name", "region_name", "sla_breach_rate", "tickets_per_headcount",
	}),
	Values: func(r domain.OperationsAnalytical) []any {
		out := append(operationsFactValues(r.OperationsFact), calendarValues(r.Calendar)...)
		return append(out, r.DepartmentName, r.RegionName, r.SLABreachRate, r.TicketsPerHeadcount)
	},
}

// CombinedMonthlyTable leaves the operations columns empty for keys without
// operations rows.
var CombinedMonthlyTable = Table[domain.CombinedMonthly]{
	Headers: []string{
		"year_month", "department_name", "region_name", "revenue", "opex", "capex", "profit",
		"headcount", "profit_margin", "revenue_variance",
		"tickets_resolved", "sla_breaches", "cycle_time", "utilization", "backlog",
	},
	Values: func(c domain.CombinedMonthly) []any {
		out := []any{c.YearMonth, c.DepartmentName, c.RegionName, c.Revenue, c.Opex, c.Capex, c.Profit,
			c.Headcount, c.ProfitMargin, c.RevenueVariance}
		if !c.HasOperations {
			return append(out, nil, nil, nil, nil, nil)
		}
		return append(out, c.TicketsResolved, c.SLABreaches, c.CycleTime, c.Utilization, c.Backlog)
	},
}

var saleHeaders = []string{
	"date", "region", "product_name", "product_category", "units_sold", "unit_price", "revenue", "sales_target",
}

func saleValues(s domain.SaleRecord) []any {
	return []any{s.Date, s.Region, s.ProductName, s.ProductCategory, s.UnitsSold, s.UnitPrice, s.Revenue, s.SalesTarget}
}

var SaleTable = Table[domain.SaleRecord]{Headers: saleHeaders, Values: saleValues}

var ProcessedSaleTable = Table[domain.ProcessedSale]{
	Headers: concat(saleHeaders, []string{
		"year", "month", "quarter", "year_month", "variance", "variance_pct", "above_target",
		"avg_order_value", "revenue_per_unit",
	}),
	Values: func(s domain.ProcessedSale) []any {
		f := s.SaleFeatures
		return append(saleValues(s.SaleRecord), f.Year, f.Month, f.Quarter, f.YearMonth, f.Variance,
			f.VariancePct, f.AboveTarget, f.AvgOrderValue, f.RevenuePerUnit)
	},
}

var financialRecordHeaders = []string{
	"date", "category", "scenario", "actual_sales", "forecast_sales", "actual_expenses", "forecast_expenses",
}

func financialRecordValues(r domain.FinancialRecord) []any {
	return []any{r.Date, r.Category, r.Scenario, r.ActualSales, r.ForecastSales, r.ActualExpenses, r.ForecastExpenses}
}

var FinancialRecordTable = Table[domain.FinancialRecord]{Headers: financialRecordHeaders, Values: financialRecordValues}

var ProcessedFinancialTable = Table[domain.ProcessedFinancial]{
	Headers: concat(financialRecordHeaders, []string{
		"year", "month", "quarter", "year_month", "time_index", "sales_variance", "sales_variance_pct",
		"expenses_variance", "expenses_variance_pct", "sales_lag1", "sales_lag3",
	}),
	Values: func(r domain.ProcessedFinancial) []any {
		f := r.FinancialFeatures
		return append(financialRecordValues(r.FinancialRecord), f.Year, f.Month, f.Quarter, f.YearMonth,
			f.TimeIndex, f.SalesVariance, f.SalesVariancePct, f.ExpensesVariance, f.ExpensesVariancePct,
			f.SalesLag1, f.SalesLag3)
	},
}

var ForecastTable = Table[domain.ForecastPoint]{
	Headers: []string{
		"date", "time_index", "month", "quarter", "baseline_forecast", "optimistic_forecast", "pessimistic_forecast",
	},
	Values: func(p domain.ForecastPoint) []any {
		return []any{p.Date, p.TimeIndex, p.Month, p.Quarter,
			Fixed2(p.BaselineForecast), Fixed2(p.OptimisticForecast), Fixed2(p.PessimisticForecast)}
	},
}

var RegionPerformanceTable = Table[domain.RegionPerformance]{
	Headers: []string{"region", "revenue", "sales_target", "units_sold", "transaction_count", "variance", "variance_pct", "avg_order_value"},
	Values: func(r domain.RegionPerformance) []any {
		return []any{r.Region, Fixed2(r.Revenue), Fixed2(r.Target), r.UnitsSold, r.TransactionCount,
			Fixed2(r.Variance), Fixed2(r.VariancePct), Fixed2(r.AvgOrderValue)}
	},
}

var CategoryPerformanceTable = Table[domain.CategoryPerformance]{
	Headers: []string{"product_category", "revenue", "units_sold", "unique_products", "revenue_per_product"},
	Values: func(c domain.CategoryPerformance) []any {
		return []any{c.Category, Fixed2(c.Revenue), c.UnitsSold, c.UniqueProducts, Fixed2(c.RevenuePerProduct)}
	},
}

var MonthlySalesTable = Table[domain.MonthlySales]{
	Headers: []string{"year_month", "revenue", "sales_target", "units_sold"},
	Values: func(m domain.MonthlySales) []any {
		return []any{m.YearMonth, Fixed2(m.Revenue), Fixed2(m.Target), m.UnitsSold}
	},
}

var ProductPerformanceTable = Table[domain.ProductPerformance]{
	Headers: []string{"product_name", "revenue", "units_sold", "regions_sold_in"},
	Values: func(p domain.ProductPerformance) []any {
		return []any{p.ProductName, Fixed2(p.Revenue), p.UnitsSold, p.RegionsSoldIn}
	},
}

// metric is one labelled KPI row of a summary sheet.
type metric struct {
	Name  string
	Value any
}

var metricTable = Table[metric]{
	Headers: []string{"metric", "value"},
	Values:  func(m metric) []any { return []any{m.Name, m.Value} },
}

func salesKPIMetrics(k domain.SalesKPIs) []metric {
	return []metric{
		{"total_revenue", Fixed2(k.TotalRevenue)},
		{"total_target", Fixed2(k.TotalTarget)},
		{"total_units", k.TotalUnits},
		{"transaction_count", k.TransactionCount},
		{"avg_order_value", Fixed2(k.AvgOrderValue)},
		{"variance", Fixed2(k.Variance)},
		{"variance_pct", Fixed2(k.VariancePct)},
	}
}

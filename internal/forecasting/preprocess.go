// Package forecasting prepares monthly financial series, fits a linear trend
// and seasonality model and projects future periods under baseline,
// optimistic and pessimistic scenarios.
package forecasting

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"finops/internal/cleaning"
	"finops/internal/dataprocessing"
	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// CleanReport counts what preprocessing changed.
type CleanReport struct {
	InputRows    int                                      `json:"input_rows"`
	Filled       map[string]dataprocessing.FillStatistics `json:"filled"`
	InvalidDates int                                      `json:"invalid_dates"`
	NegativeRows int                                      `json:"negative_rows"`
	OutputRows   int                                      `json:"output_rows"`
}

// Preprocessor cleans raw forecasting input.
type Preprocessor struct {
	filler *dataprocessing.ForwardFillProcessor
	logger *slog.Logger
}

// NewPreprocessor creates a preprocessor. A nil logger uses slog.Default().
func NewPreprocessor(logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		filler: dataprocessing.NewForwardFillProcessor(),
		logger: logger.With(slog.String("component", "forecast_preprocessor")),
	}
}

type numericColumn struct {
	name string
	get  func(*domain.FinancialRecord) *float64
}

var numericColumns = []numericColumn{
	{"actual_sales", func(r *domain.FinancialRecord) *float64 { return &r.ActualSales }},
	{"forecast_sales", func(r *domain.FinancialRecord) *float64 { return &r.ForecastSales }},
	{"actual_expenses", func(r *domain.FinancialRecord) *float64 { return &r.ActualExpenses }},
	{"forecast_expenses", func(r *domain.FinancialRecord) *float64 { return &r.ForecastExpenses }},
}

// Clean fills numeric gaps in input order (forward fill, then the column
// median), standardizes category and scenario, drops rows with invalid dates,
// sorts by date (stable) and drops negative actual sales or expenses.
// Columns that are missing on every row stay missing.
func (p *Preprocessor) Clean(ctx context.Context, records []domain.FinancialRecord) ([]domain.FinancialRecord, CleanReport) {
	rep := CleanReport{InputRows: len(records), Filled: make(map[string]dataprocessing.FillStatistics)}
	rows := append([]domain.FinancialRecord(nil), records...)

	for _, col := range numericColumns {
		values := make([]float64, len(rows))
		for i := range rows {
			values[i] = *col.get(&rows[i])
		}
		filled, stats := p.filler.FillMissingDataWithStats(values)
		for i := range rows {
			*col.get(&rows[i]) = filled[i]
		}
		rep.Filled[col.name] = stats
	}

	title := cases.Title(language.Und)
	kept := rows[:0]
	for _, r := range rows {
		r.Category = cleaning.StandardizeText(title, r.Category)
		r.Scenario = cleaning.StandardizeText(title, r.Scenario)
		if r.Date.IsZero() {
			rep.InvalidDates++
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	kept = rows[:0]
	for _, r := range rows {
		if r.ActualSales < 0 || r.ActualExpenses < 0 {
			rep.NegativeRows++
			continue
		}
		kept = append(kept, r)
	}
	rows = kept

	rep.OutputRows = len(rows)
	p.logger.InfoContext(ctx, "financial data cleaned",
		slog.Int("input_rows", rep.InputRows),
		slog.Int("invalid_dates", rep.InvalidDates),
		slog.Int("negative_rows", rep.NegativeRows),
		slog.Int("output_rows", rep.OutputRows))
	return rows, rep
}

// AddFeatures derives calendar, time index, variance and lag features. Rows
// are stably sorted by date and numbered from 1; lags follow that order.
func AddFeatures(records []domain.FinancialRecord) []domain.ProcessedFinancial {
	rows := append([]domain.FinancialRecord(nil), records...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	out := make([]domain.ProcessedFinancial, len(rows))
	for i, r := range rows {
		f := domain.FinancialFeatures{
			Year:             r.Date.Year(),
			Month:            int(r.Date.Month()),
			Quarter:          (int(r.Date.Month())-1)/3 + 1,
			YearMonth:        r.Date.Format("2006-01"),
			TimeIndex:        i + 1,
			SalesVariance:    r.ActualSales - r.ForecastSales,
			ExpensesVariance: r.ActualExpenses - r.ForecastExpenses,
			SalesLag1:        shared.Missing(),
			SalesLag3:        shared.Missing(),
		}
		f.SalesVariancePct = variancePct(f.SalesVariance, r.ForecastSales)
		f.ExpensesVariancePct = variancePct(f.ExpensesVariance, r.ForecastExpenses)
		if i >= 1 {
			f.SalesLag1 = rows[i-1].ActualSales
		}
		if i >= 3 {
			f.SalesLag3 = rows[i-3].ActualSales
		}
		out[i] = domain.ProcessedFinancial{FinancialRecord: r, FinancialFeatures: f}
	}
	return out
}

// variancePct treats a zero forecast as 1 and reports missing results as 0.
func variancePct(variance, forecast float64) float64 {
	if forecast == 0 {
		forecast = 1
	}
	pct := variance / forecast * 100
	if shared.IsMissing(pct) {
		return 0
	}
	return pct
}

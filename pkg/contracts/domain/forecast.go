package domain

import (
	"time"
)

// FinancialRecord is one row of the forecasting input: actual and previously
// forecast sales/expenses for a category under a planning scenario. Numeric
// fields use NaN for missing values; a zero Date marks an unparseable date.
type FinancialRecord struct {
	Date             time.Time `json:"date"`
	Category         string    `json:"category"`
	Scenario         string    `json:"scenario"`
	ActualSales      float64   `json:"actual_sales"`
	ForecastSales    float64   `json:"forecast_sales"`
	ActualExpenses   float64   `json:"actual_expenses"`
	ForecastExpenses float64   `json:"forecast_expenses"`
}

// FinancialFeatures are the model inputs derived from a clean record.
// SalesLag1/SalesLag3 are NaN for the first rows of the series.
type FinancialFeatures struct {
	Year                int     `json:"year"`
	Month               int     `json:"month"`
	Quarter             int     `json:"quarter"`
	YearMonth           string  `json:"year_month"`
	TimeIndex           int     `json:"time_index"`
	SalesVariance       float64 `json:"sales_variance"`
	SalesVariancePct    float64 `json:"sales_variance_pct"`
	ExpensesVariance    float64 `json:"expenses_variance"`
	ExpensesVariancePct float64 `json:"expenses_variance_pct"`
	SalesLag1           float64 `json:"sales_lag1"`
	SalesLag3           float64 `json:"sales_lag3"`
}

// ProcessedFinancial is a cleaned record with its features.
type ProcessedFinancial struct {
	FinancialRecord
	FinancialFeatures
}

// ModelMetrics are in-sample fit statistics. MAPE is a percentage.
type ModelMetrics struct {
	MAPE float64 `json:"mape"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// ForecastPoint is one future period with its scenario projections.
type ForecastPoint struct {
	Date                time.Time `json:"date"`
	TimeIndex           int       `json:"time_index"`
	Month               int       `json:"month"`
	Quarter             int       `json:"quarter"`
	BaselineForecast    float64   `json:"baseline_forecast"`
	OptimisticForecast  float64   `json:"optimistic_forecast"`
	PessimisticForecast float64   `json:"pessimistic_forecast"`
}

// HistoricalAccuracy compares recorded forecasts with actuals.
type HistoricalAccuracy struct {
	MAPE         float64 `json:"historical_mape"`
	RMSE         float64 `json:"historical_rmse"`
	ActualMean   float64 `json:"actual_mean"`
	ForecastMean float64 `json:"forecast_mean"`
}

// Improvement is the model's MAPE gain over the historical forecasts.
type Improvement struct {
	Points      float64 `json:"points"`
	RelativePct float64 `json:"relative_pct"`
}

// ForecastResult is the outcome of one forecasting run.
type ForecastResult struct {
	Category     string              `json:"category"`
	Scenario     string              `json:"scenario"`
	Observations int                 `json:"observations"`
	FirstDate    time.Time           `json:"first_date"`
	LastDate     time.Time           `json:"last_date"`
	Coefficients []float64           `json:"coefficients"` // intercept, time_index, month, quarter
	Metrics      ModelMetrics        `json:"metrics"`
	Historical   *HistoricalAccuracy `json:"historical,omitempty"`
	Improvement  *Improvement        `json:"improvement,omitempty"`
	Forecasts    []ForecastPoint     `json:"forecasts"`
}

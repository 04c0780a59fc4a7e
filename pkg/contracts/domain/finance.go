package domain

import (
	"time"
)

// DateDimension is one calendar day of the dim_date table.
type DateDimension struct {
	DateKey   string    `json:"date_key"` // YYYYMMDD
	Date      time.Time `json:"date"`
	Year      int       `json:"year"`
	Quarter   string    `json:"quarter"` // Q1..Q4
	Month     int       `json:"month"`
	MonthName string    `json:"month_name"`
	YearMonth string    `json:"year_month"` // YYYY-MM
	DayOfWeek string    `json:"day_of_week"`
	IsWeekend bool      `json:"is_weekend"`
}

// Department is a row of dim_department.
type Department struct {
	ID         int    `json:"department_id"`
	Name       string `json:"department_name" validate:"required"`
	CostCenter string `json:"cost_center"`
	HeadOfDept string `json:"head_of_dept"`
}

// Region is a row of dim_region.
type Region struct {
	ID       int    `json:"region_id"`
	Name     string `json:"region_name" validate:"required"`
	Manager  string `json:"region_manager"`
	Timezone string `json:"timezone"`
}

// FinancialFact is one month of financial results for a department in a region.
type FinancialFact struct {
	Date         time.Time `json:"date"`
	DateKey      string    `json:"date_key"`
	DepartmentID int       `json:"department_id"`
	RegionID     int       `json:"region_id"`
	Revenue      float64   `json:"revenue"`
	Opex         float64   `json:"opex"`
	Capex        float64   `json:"capex"`
	Headcount    int       `json:"headcount"`
	Profit       float64   `json:"profit"`
	Budget       float64   `json:"budget"`
	Forecast     float64   `json:"forecast"`
}

// OperationsFact is one month of service operations for a department in a region.
type OperationsFact struct {
	Date            time.Time `json:"date"`
	DateKey         string    `json:"date_key"`
	DepartmentID    int       `json:"department_id"`
	RegionID        int       `json:"region_id"`
	TicketsResolved int       `json:"tickets_resolved"`
	SLABreaches     int       `json:"sla_breaches"`
	CycleTime       float64   `json:"cycle_time"`  // days
	Utilization     float64   `json:"utilization"` // percent
	Backlog         int       `json:"backlog"`
}

// Calendar holds the date attributes carried into analytical rows.
type Calendar struct {
	Year      int    `json:"year"`
	Quarter   string `json:"quarter"`
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	YearMonth string `json:"year_month"`
}

// FinancialAnalytical is a financial fact joined with its dimensions plus
// derived ratios.
type FinancialAnalytical struct {
	FinancialFact
	Calendar
	DepartmentName   string  `json:"department_name"`
	CostCenter       string  `json:"cost_center"`
	RegionName       string  `json:"region_name"`
	ProfitMargin     float64 `json:"profit_margin"`
	RevenueVariance  float64 `json:"revenue_variance"`
	ForecastAccuracy float64 `json:"forecast_accuracy"`
}

// OperationsAnalytical is an operations fact joined with its dimensions plus
// derived ratios.
type OperationsAnalytical struct {
	OperationsFact
	Calendar
	DepartmentName      string  `json:"department_name"`
	RegionName          string  `json:"region_name"`
	SLABreachRate       float64 `json:"sla_breach_rate"`
	TicketsPerHeadcount float64 `json:"tickets_per_headcount"`
}

// CombinedMonthly aggregates financial and operations metrics per
// (year_month, department, region). HasOperations is false when no operations
// rows matched the key; the operations fields are then zero.
type CombinedMonthly struct {
	YearMonth       string  `json:"year_month"`
	DepartmentName  string  `json:"department_name"`
	RegionName      string  `json:"region_name"`
	Revenue         float64 `json:"revenue"`
	Opex            float64 `json:"opex"`
	Capex           float64 `json:"capex"`
	Profit          float64 `json:"profit"`
	Headcount       float64 `json:"headcount"`
	ProfitMargin    float64 `json:"profit_margin"`
	RevenueVariance float64 `json:"revenue_variance"`
	HasOperations   bool    `json:"-"`
	TicketsResolved int     `json:"tickets_resolved"`
	SLABreaches     int     `json:"sla_breaches"`
	CycleTime       float64 `json:"cycle_time"`
	Utilization     float64 `json:"utilization"`
	Backlog         float64 `json:"backlog"`
}

// FinanceDataset is the full output of one generator run.
type FinanceDataset struct {
	Dates       []DateDimension
	Departments []Department
	Regions     []Region
	Financials  []FinancialFact
	Operations  []OperationsFact
}

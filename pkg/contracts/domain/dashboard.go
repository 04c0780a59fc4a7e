package domain

import "time"

// AllValues selects every department or region in a DashboardFilter.
const AllValues = "All"

// DashboardFilter narrows the analytical tables. Zero dates leave that side of
// the range open; empty or "All" names apply no filter.
type DashboardFilter struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Department string    `json:"department"`
	Region     string    `json:"region"`
}

// FinanceKPIs are the headline financial figures for a filtered view.
// RevenueDelta compares the filtered revenue with 80% of the unfiltered total;
// MarginDelta is the margin's distance from the 20% target.
type FinanceKPIs struct {
	TotalRevenue       float64 `json:"total_revenue"`
	TotalProfit        float64 `json:"total_profit"`
	ProfitMargin       float64 `json:"profit_margin"`
	TotalOpex          float64 `json:"total_opex"`
	OpexShare          float64 `json:"opex_share"`
	AvgRevenueVariance float64 `json:"avg_revenue_variance"`
	RevenueDelta       float64 `json:"revenue_delta"`
	MarginDelta        float64 `json:"margin_delta"`
}

// MonthlyFinance sums the money columns of one month.
type MonthlyFinance struct {
	YearMonth string  `json:"year_month"`
	Revenue   float64 `json:"revenue"`
	Opex      float64 `json:"opex"`
	Capex     float64 `json:"capex"`
	Profit    float64 `json:"profit"`
}

// RevenueShare is total revenue for one department or region.
type RevenueShare struct {
	Name    string  `json:"name"`
	Revenue float64 `json:"revenue"`
}

// QuarterlyVariance compares actual, budgeted and forecast revenue per
// calendar quarter (label YYYYQn).
type QuarterlyVariance struct {
	Quarter        string  `json:"quarter"`
	Revenue        float64 `json:"revenue"`
	Budget         float64 `json:"budget"`
	Forecast       float64 `json:"forecast"`
	ActualVsBudget float64 `json:"actual_vs_budget"`
}

// MonthlyOperations summarizes one month of operations.
type MonthlyOperations struct {
	YearMonth       string  `json:"year_month"`
	TicketsResolved int     `json:"tickets_resolved"`
	SLABreaches     int     `json:"sla_breaches"`
	CycleTime       float64 `json:"cycle_time"`
	Utilization     float64 `json:"utilization"`
	SLABreachRate   float64 `json:"sla_breach_rate"`
}

// OperationsKPIs are the headline operations figures. SLABreachRate is the
// mean of the monthly rates.
type OperationsKPIs struct {
	TotalTickets   int     `json:"total_tickets"`
	SLABreachRate  float64 `json:"sla_breach_rate"`
	AvgCycleTime   float64 `json:"avg_cycle_time"`
	AvgUtilization float64 `json:"avg_utilization"`
}

// FilterOptions lists the values a dashboard filter can take.
type FilterOptions struct {
	Departments []string  `json:"departments"`
	Regions     []string  `json:"regions"`
	MinDate     time.Time `json:"min_date"`
	MaxDate     time.Time `json:"max_date"`
}

// Dashboard is every KPI and series for one filter.
type Dashboard struct {
	Filter            DashboardFilter     `json:"filter"`
	Finance           FinanceKPIs         `json:"finance"`
	Monthly           []MonthlyFinance    `json:"monthly"`
	ByDepartment      []RevenueShare      `json:"by_department"`
	ByRegion          []RevenueShare      `json:"by_region"`
	Quarterly         []QuarterlyVariance `json:"quarterly"`
	Operations        OperationsKPIs      `json:"operations"`
	OperationsMonthly []MonthlyOperations `json:"operations_monthly"`
}

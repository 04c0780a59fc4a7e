package config

// Application constants
const (
	AppName    = "finops"
	AppVersion = "1.0.0"

	// DateLayout is the ISO date format used in every CSV the pipelines exchange.
	DateLayout = "2006-01-02"

	DefaultSeed            = 42
	DefaultForecastPeriods = 6
	DefaultTopProducts     = 10

	// AllFilter selects every department or region in dashboard filters.
	AllFilter = "All"

	// MarginTarget is the profit margin (%) the dashboard compares against.
	MarginTarget = 20.0
	// RevenueBaselineShare is the fraction of unfiltered revenue used as the
	// revenue KPI baseline.
	RevenueBaselineShare = 0.8
)

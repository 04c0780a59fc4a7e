package generator

// DepartmentProfile holds the baseline magnitudes a department's synthetic
// facts are scaled from.
type DepartmentProfile struct {
	BaseRevenue   float64
	CapexRatio    float64
	BaseHeadcount float64
	BaseTickets   float64
	BaseCycleTime float64 // days
}

// RegionProfile holds the regional scaling factors. Revenue and headcount use
// RevenueMultiplier; ticket volume uses TicketMultiplier.
type RegionProfile struct {
	RevenueMultiplier float64
	TicketMultiplier  float64
}

// DefaultDepartments lists departments in dimension order (IDs 1..n).
var DefaultDepartments = []string{
	"Engineering", "Sales", "Marketing", "Operations",
	"Finance", "HR", "Customer Support", "Product",
}

// DefaultRegions lists regions in dimension order (IDs 1..n).
var DefaultRegions = []string{"North America", "Europe", "Asia Pacific", "Latin America"}

// Timezones is the pool region timezones are drawn from.
var Timezones = []string{"EST", "PST", "GMT", "JST", "BRT"}

var departmentProfiles = map[string]DepartmentProfile{
	"Engineering":      {BaseRevenue: 800000, CapexRatio: 0.15, BaseHeadcount: 50, BaseTickets: 150, BaseCycleTime: 5.0},
	"Sales":            {BaseRevenue: 1200000, CapexRatio: 0.05, BaseHeadcount: 30, BaseTickets: 80, BaseCycleTime: 2.0},
	"Marketing":        {BaseRevenue: 600000, CapexRatio: 0.10, BaseHeadcount: 20, BaseTickets: 60, BaseCycleTime: 3.0},
	"Operations":       {BaseRevenue: 400000, CapexRatio: 0.12, BaseHeadcount: 25, BaseTickets: 200, BaseCycleTime: 4.0},
	"Finance":          {BaseRevenue: 200000, CapexRatio: 0.03, BaseHeadcount: 15, BaseTickets: 40, BaseCycleTime: 1.5},
	"HR":               {BaseRevenue: 150000, CapexRatio: 0.02, BaseHeadcount: 10, BaseTickets: 30, BaseCycleTime: 2.5},
	"Customer Support": {BaseRevenue: 300000, CapexRatio: 0.08, BaseHeadcount: 40, BaseTickets: 500, BaseCycleTime: 1.0},
	"Product":          {BaseRevenue: 500000, CapexRatio: 0.20, BaseHeadcount: 25, BaseTickets: 100, BaseCycleTime: 6.0},
}

var regionProfiles = map[string]RegionProfile{
	"North America": {RevenueMultiplier: 1.2, TicketMultiplier: 1.3},
	"Europe":        {RevenueMultiplier: 1.0, TicketMultiplier: 1.0},
	"Asia Pacific":  {RevenueMultiplier: 0.9, TicketMultiplier: 0.8},
	"Latin America": {RevenueMultiplier: 0.7, TicketMultiplier: 0.6},
}

// LookupDepartment returns the profile for a department name.
func LookupDepartment(name string) (DepartmentProfile, bool) {
	p, ok := departmentProfiles[name]
	return p, ok
}

// LookupRegion returns the profile for a region name.
func LookupRegion(name string) (RegionProfile, bool) {
	p, ok := regionProfiles[name]
	return p, ok
}

// Growth and draw ranges of the synthetic model.
const (
	revenueTrendPerMonth = 0.01
	ticketTrendPerMonth  = 0.005
	seasonalAmplitude    = 0.1

	revenueNoiseLow, revenueNoiseHigh     = 0.85, 1.15
	opexRatioLow, opexRatioHigh           = 0.60, 0.80
	capexNoiseLow, capexNoiseHigh         = 0.8, 1.2
	headcountNoiseLow, headcountNoiseHigh = 0.9, 1.1
	budgetNoiseLow, budgetNoiseHigh       = 0.95, 1.05
	forecastNoiseLow, forecastNoiseHigh   = 0.98, 1.02

	ticketNoiseLow, ticketNoiseHigh       = 0.9, 1.1
	breachRateLow, breachRateHigh         = 0.02, 0.08
	cycleNoiseLow, cycleNoiseHigh         = 0.8, 1.3
	utilizationLow, utilizationHigh       = 70.0, 95.0
	initialBacklogLow, initialBacklogHigh = 0.1, 0.3
	arrivalsLow, arrivalsHigh             = 1.0, 1.2
)

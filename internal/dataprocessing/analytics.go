package dataprocessing

import (
	"math"
	"sort"

	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// OperationsHeadcountDays approximates a month of working days for the
// tickets-per-headcount rate.
const OperationsHeadcountDays = 30

// ProfitMargin is profit as a percentage of revenue (2 dp).
func ProfitMargin(profit, revenue float64) float64 {
	return shared.Round2(shared.Percent(profit, revenue))
}

// RevenueVariance is the percentage by which revenue exceeds budget (2 dp).
func RevenueVariance(revenue, budget float64) float64 {
	return shared.Round2(shared.Percent(revenue-budget, budget))
}

// ForecastAccuracy is 100 minus the absolute forecast error as a percentage
// of revenue (2 dp). It is 0 when revenue is zero.
func ForecastAccuracy(revenue, forecast float64) float64 {
	if revenue == 0 || math.IsNaN(revenue) || math.IsInf(revenue, 0) {
		return 0
	}
	return shared.Round2((1 - math.Abs(revenue-forecast)/revenue) * 100)
}

// SLABreachRate is breaches as a percentage of resolved tickets (2 dp).
func SLABreachRate(breaches, resolved int) float64 {
	return shared.Round2(shared.Percent(float64(breaches), float64(resolved)))
}

// AnalyticalTables are the joined, derived tables built from a dataset.
type AnalyticalTables struct {
	Financials []domain.FinancialAnalytical
	Operations []domain.OperationsAnalytical
	Combined   []domain.CombinedMonthly
}

// AnalyticsBuilder joins fact rows with their dimensions. Lookups that miss
// leave the joined columns empty, like a left join.
type AnalyticsBuilder struct {
	calendar    map[string]domain.Calendar
	departments map[int]domain.Department
	regions     map[int]domain.Region
}

// NewAnalyticsBuilder indexes the dimensions of ds.
func NewAnalyticsBuilder(ds *domain.FinanceDataset) *AnalyticsBuilder {
	b := &AnalyticsBuilder{
		calendar:    make(map[string]domain.Calendar, len(ds.Dates)),
		departments: make(map[int]domain.Department, len(ds.Departments)),
		regions:     make(map[int]domain.Region, len(ds.Regions)),
	}
	for _, d := range ds.Dates {
		b.calendar[d.DateKey] = domain.Calendar{
			Year:      d.Year,
			Quarter:   d.Quarter,
			Month:     d.Month,
			MonthName: d.MonthName,
			YearMonth: d.YearMonth,
		}
	}
	for _, d := range ds.Departments {
		b.departments[d.ID] = d
	}
	for _, r := range ds.Regions {
		b.regions[r.ID] = r
	}
	return b
}

// Financials builds financials_analytical rows in fact order.
func (b *AnalyticsBuilder) Financials(facts []domain.FinancialFact) []domain.FinancialAnalytical {
	out := make([]domain.FinancialAnalytical, len(facts))
	for i, f := range facts {
		dept := b.departments[f.DepartmentID]
		out[i] = domain.FinancialAnalytical{
			FinancialFact:    f,
			Calendar:         b.calendar[f.DateKey],
			DepartmentName:   dept.Name,
			CostCenter:       dept.CostCenter,
			RegionName:       b.regions[f.RegionID].Name,
			ProfitMargin:     ProfitMargin(f.Profit, f.Revenue),
			RevenueVariance:  RevenueVariance(f.Revenue, f.Budget),
			ForecastAccuracy: ForecastAccuracy(f.Revenue, f.Forecast),
		}
	}
	return out
}

// Operations builds operations_analytical rows in fact order.
func (b *AnalyticsBuilder) Operations(facts []domain.OperationsFact) []domain.OperationsAnalytical {
	out := make([]domain.OperationsAnalytical, len(facts))
	for i, o := range facts {
		out[i] = domain.OperationsAnalytical{
			OperationsFact:      o,
			Calendar:            b.calendar[o.DateKey],
			DepartmentName:      b.departments[o.DepartmentID].Name,
			RegionName:          b.regions[o.RegionID].Name,
			SLABreachRate:       SLABreachRate(o.SLABreaches, o.TicketsResolved),
			TicketsPerHeadcount: shared.Round2(float64(o.TicketsResolved) / OperationsHeadcountDays),
		}
	}
	return out
}

// BuildAnalyticalTables derives all three analytical tables from ds.
func BuildAnalyticalTables(ds *domain.FinanceDataset) AnalyticalTables {
	b := NewAnalyticsBuilder(ds)
	fin := b.Financials(ds.Financials)
	ops := b.Operations(ds.Operations)
	return AnalyticalTables{
		Financials: fin,
		Operations: ops,
		Combined:   BuildCombinedMonthly(fin, ops),
	}
}

type monthlyKey struct {
	yearMonth  string
	department string
	region     string
}

type financeGroup struct {
	revenue, opex, capex, profit float64
	headcount, margin, variance  []float64
}

type opsGroup struct {
	tickets, breaches           int
	cycle, utilization, backlog []float64
}

// BuildCombinedMonthly aggregates financial rows per (year_month, department,
// region) and left-joins the operations aggregates for the same key. Rows with
// an empty key part are skipped. Output is sorted by key.
func BuildCombinedMonthly(fin []domain.FinancialAnalytical, ops []domain.OperationsAnalytical) []domain.CombinedMonthly {
	groups := make(map[monthlyKey]*financeGroup)
	for _, f := range fin {
		k := monthlyKey{f.YearMonth, f.DepartmentName, f.RegionName}
		if k.yearMonth == "" || k.department == "" || k.region == "" {
			continue
		}
		g, ok := groups[k]
		if !ok {
			g = &financeGroup{}
			groups[k] = g
		}
		g.revenue += f.Revenue
		g.opex += f.Opex
		g.capex += f.Capex
		g.profit += f.Profit
		g.headcount = append(g.headcount, float64(f.Headcount))
		g.margin = append(g.margin, f.ProfitMargin)
		g.variance = append(g.variance, f.RevenueVariance)
	}

	opsGroups := make(map[monthlyKey]*opsGroup)
	for _, o := range ops {
		k := monthlyKey{o.YearMonth, o.DepartmentName, o.RegionName}
		g, ok := opsGroups[k]
		if !ok {
			g = &opsGroup{}
			opsGroups[k] = g
		}
		g.tickets += o.TicketsResolved
		g.breaches += o.SLABreaches
		g.cycle = append(g.cycle, o.CycleTime)
		g.utilization = append(g.utilization, o.Utilization)
		g.backlog = append(g.backlog, float64(o.Backlog))
	}

	keys := make([]monthlyKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].yearMonth != keys[j].yearMonth {
			return keys[i].yearMonth < keys[j].yearMonth
		}
		if keys[i].department != keys[j].department {
			return keys[i].department < keys[j].department
		}
		return keys[i].region < keys[j].region
	})

	out := make([]domain.CombinedMonthly, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		row := domain.CombinedMonthly{
			YearMonth:       k.yearMonth,
			DepartmentName:  k.department,
			RegionName:      k.region,
			Revenue:         shared.Round2(g.revenue),
			Opex:            shared.Round2(g.opex),
			Capex:           shared.Round2(g.capex),
			Profit:          shared.Round2(g.profit),
			Headcount:       shared.Mean(g.headcount),
			ProfitMargin:    shared.Mean(g.margin),
			RevenueVariance: shared.Mean(g.variance),
		}
		if og, ok := opsGroups[k]; ok {
			row.HasOperations = true
			row.TicketsResolved = og.tickets
			row.SLABreaches = og.breaches
			row.CycleTime = shared.Mean(og.cycle)
			row.Utilization = shared.Mean(og.utilization)
			row.Backlog = shared.Mean(og.backlog)
		}
		out = append(out, row)
	}
	return out
}

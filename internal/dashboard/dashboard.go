// Package dashboard computes the finance and operations command center views
// (KPIs, monthly, quarterly and per-dimension series) from the analytical
// tables. It does no rendering.
package dashboard

import (
	"sort"
	"time"

	"finops/pkg/contracts/domain"
)

// Data holds the analytical tables a dashboard is computed from.
type Data struct {
	Financials []domain.FinancialAnalytical
	Operations []domain.OperationsAnalytical
	LoadedAt   time.Time
}

func matchName(selected, name string) bool {
	return selected == "" || selected == domain.AllValues || selected == name
}

func inRange(f domain.DashboardFilter, d time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if !f.Start.IsZero() && day.Before(dayOf(f.Start)) {
		return false
	}
	if !f.End.IsZero() && day.After(dayOf(f.End)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Apply returns the rows matching f. Both bounds of the date range are
// inclusive.
func (d *Data) Apply(f domain.DashboardFilter) *Data {
	out := &Data{LoadedAt: d.LoadedAt}
	for _, r := range d.Financials {
		if inRange(f, r.Date) && matchName(f.Department, r.DepartmentName) && matchName(f.Region, r.RegionName) {
			out.Financials = append(out.Financials, r)
		}
	}
	for _, r := range d.Operations {
		if inRange(f, r.Date) && matchName(f.Department, r.DepartmentName) && matchName(f.Region, r.RegionName) {
			out.Operations = append(out.Operations, r)
		}
	}
	return out
}

// Options lists the sorted department and region names and the financial
// date span.
func (d *Data) Options() domain.FilterOptions {
	depts := make(map[string]struct{})
	regions := make(map[string]struct{})
	var opts domain.FilterOptions
	for i, r := range d.Financials {
		depts[r.DepartmentName] = struct{}{}
		regions[r.RegionName] = struct{}{}
		if i == 0 || r.Date.Before(opts.MinDate) {
			opts.MinDate = r.Date
		}
		if i == 0 || r.Date.After(opts.MaxDate) {
			opts.MaxDate = r.Date
		}
	}
	opts.Departments = sortedKeys(depts)
	opts.Regions = sortedKeys(regions)
	return opts
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build computes every view for f.
func (d *Data) Build(f domain.DashboardFilter) domain.Dashboard {
	filtered := d.Apply(f)
	monthlyOps := OperationsMonthly(filtered.Operations)
	return domain.Dashboard{
		Filter:            f,
		Finance:           FinanceKPIs(filtered.Financials, d.Financials),
		Monthly:           MonthlyFinance(filtered.Financials),
		ByDepartment:      RevenueByDepartment(filtered.Financials),
		ByRegion:          RevenueByRegion(filtered.Financials),
		Quarterly:         QuarterlyVariance(filtered.Financials),
		Operations:        OperationsKPIs(filtered.Operations, monthlyOps),
		OperationsMonthly: monthlyOps,
	}
}

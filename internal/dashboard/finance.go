package dashboard

import (
	"fmt"
	"sort"
	"time"

	"finops/internal/generator"
	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

const (
	// RevenueBaselineShare is the share of the unfiltered revenue the filtered
	// revenue is compared against.
	RevenueBaselineShare = 0.8
	// TargetProfitMargin is the margin, in percent, KPIs are measured against.
	TargetProfitMargin = 20.0
)

func financialColumn(rows []domain.FinancialAnalytical, get func(domain.FinancialAnalytical) float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = get(r)
	}
	return out
}

func revenueOf(r domain.FinancialAnalytical) float64 { return r.Revenue }

// FinanceKPIs summarizes filtered rows; all is the unfiltered table used for
// the revenue delta.
func FinanceKPIs(filtered, all []domain.FinancialAnalytical) domain.FinanceKPIs {
	k := domain.FinanceKPIs{
		TotalRevenue: shared.Sum(financialColumn(filtered, revenueOf)),
		TotalProfit:  shared.Sum(financialColumn(filtered, func(r domain.FinancialAnalytical) float64 { return r.Profit })),
		TotalOpex:    shared.Sum(financialColumn(filtered, func(r domain.FinancialAnalytical) float64 { return r.Opex })),
		AvgRevenueVariance: shared.MeanOrZero(financialColumn(filtered,
			func(r domain.FinancialAnalytical) float64 { return r.RevenueVariance })),
	}
	if k.TotalRevenue > 0 {
		k.ProfitMargin = k.TotalProfit / k.TotalRevenue * 100
	}
	k.OpexShare = shared.Percent(k.TotalOpex, k.TotalRevenue)

	baseline := shared.Sum(financialColumn(all, revenueOf)) * RevenueBaselineShare
	k.RevenueDelta = shared.Percent(k.TotalRevenue-baseline, baseline)
	k.MarginDelta = k.ProfitMargin - TargetProfitMargin
	return k
}

// MonthlyFinance sums revenue, opex, capex and profit per year_month in
// ascending order.
func MonthlyFinance(rows []domain.FinancialAnalytical) []domain.MonthlyFinance {
	index := make(map[string]int)
	var out []domain.MonthlyFinance
	for _, r := range rows {
		i, ok := index[r.YearMonth]
		if !ok {
			i = len(out)
			index[r.YearMonth] = i
			out = append(out, domain.MonthlyFinance{YearMonth: r.YearMonth})
		}
		out[i].Revenue += r.Revenue
		out[i].Opex += r.Opex
		out[i].Capex += r.Capex
		out[i].Profit += r.Profit
	}
	for i := range out {
		out[i].Revenue = shared.Round2(out[i].Revenue)
		out[i].Opex = shared.Round2(out[i].Opex)
		out[i].Capex = shared.Round2(out[i].Capex)
		out[i].Profit = shared.Round2(out[i].Profit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth < out[j].YearMonth })
	return out
}

func revenueBy(rows []domain.FinancialAnalytical, key func(domain.FinancialAnalytical) string) []domain.RevenueShare {
	totals := make(map[string]float64)
	for _, r := range rows {
		totals[key(r)] += r.Revenue
	}
	out := make([]domain.RevenueShare, 0, len(totals))
	for name, rev := range totals {
		out = append(out, domain.RevenueShare{Name: name, Revenue: shared.Round2(rev)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue != out[j].Revenue {
			return out[i].Revenue > out[j].Revenue
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// RevenueByDepartment totals revenue per department, largest first.
func RevenueByDepartment(rows []domain.FinancialAnalytical) []domain.RevenueShare {
	return revenueBy(rows, func(r domain.FinancialAnalytical) string { return r.DepartmentName })
}

// RevenueByRegion totals revenue per region, largest first.
func RevenueByRegion(rows []domain.FinancialAnalytical) []domain.RevenueShare {
	return revenueBy(rows, func(r domain.FinancialAnalytical) string { return r.RegionName })
}

// QuarterLabel formats the calendar quarter of t as YYYYQn.
func QuarterLabel(t time.Time) string {
	return fmt.Sprintf("%dQ%d", t.Year(), generator.QuarterOf(t.Month()))
}

// QuarterlyVariance sums revenue, budget and forecast per calendar quarter
// and reports actual vs budget in percent.
func QuarterlyVariance(rows []domain.FinancialAnalytical) []domain.QuarterlyVariance {
	index := make(map[string]int)
	var out []domain.QuarterlyVariance
	for _, r := range rows {
		label := QuarterLabel(r.Date)
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, domain.QuarterlyVariance{Quarter: label})
		}
		out[i].Revenue += r.Revenue
		out[i].Budget += r.Budget
		out[i].Forecast += r.Forecast
	}
	for i := range out {
		q := &out[i]
		q.ActualVsBudget = shared.Round2(shared.Percent(q.Revenue-q.Budget, q.Budget))
		q.Revenue = shared.Round2(q.Revenue)
		q.Budget = shared.Round2(q.Budget)
		q.Forecast = shared.Round2(q.Forecast)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quarter < out[j].Quarter })
	return out
}

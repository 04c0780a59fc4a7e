package dashboard

import (
	"sort"

	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// OperationsMonthly sums tickets and breaches and averages cycle time and
// utilization per year_month, ascending. The breach rate is computed from the
// monthly sums.
func OperationsMonthly(rows []domain.OperationsAnalytical) []domain.MonthlyOperations {
	type acc struct {
		tickets, breaches int
		cycle, util       []float64
	}
	groups := make(map[string]*acc)
	for _, r := range rows {
		a, ok := groups[r.YearMonth]
		if !ok {
			a = &acc{}
			groups[r.YearMonth] = a
		}
		a.tickets += r.TicketsResolved
		a.breaches += r.SLABreaches
		a.cycle = append(a.cycle, r.CycleTime)
		a.util = append(a.util, r.Utilization)
	}

	out := make([]domain.MonthlyOperations, 0, len(groups))
	for ym, a := range groups {
		out = append(out, domain.MonthlyOperations{
			YearMonth:       ym,
			TicketsResolved: a.tickets,
			SLABreaches:     a.breaches,
			CycleTime:       shared.Round2(shared.MeanOrZero(a.cycle)),
			Utilization:     shared.Round2(shared.MeanOrZero(a.util)),
			SLABreachRate:   shared.Round2(shared.Percent(float64(a.breaches), float64(a.tickets))),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].YearMonth < out[j].YearMonth })
	return out
}

// OperationsKPIs totals tickets over the filtered rows, averages the monthly
// breach rates and averages cycle time and utilization over the rows.
func OperationsKPIs(rows []domain.OperationsAnalytical, monthly []domain.MonthlyOperations) domain.OperationsKPIs {
	var k domain.OperationsKPIs
	cycle := make([]float64, len(rows))
	util := make([]float64, len(rows))
	for i, r := range rows {
		k.TotalTickets += r.TicketsResolved
		cycle[i] = r.CycleTime
		util[i] = r.Utilization
	}
	rates := make([]float64, len(monthly))
	for i, m := range monthly {
		rates[i] = m.SLABreachRate
	}
	k.SLABreachRate = shared.Round2(shared.MeanOrZero(rates))
	k.AvgCycleTime = shared.Round2(shared.MeanOrZero(cycle))
	k.AvgUtilization = shared.Round2(shared.MeanOrZero(util))
	return k
}

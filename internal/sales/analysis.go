// Package sales aggregates cleaned sales transactions into KPIs, regional,
// category, monthly and product views, and renders them as text or workbook
// sheets.
package sales

import (
	"sort"

	"finops/internal/config"
	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// Analyze builds the full report. topN limits the product ranking; values
// below 1 use config.DefaultTopProducts.
func Analyze(records []domain.SaleRecord, topN int) domain.SalesReport {
	if topN < 1 {
		topN = config.DefaultTopProducts
	}
	return domain.SalesReport{
		KPIs:        OverallKPIs(records),
		Regions:     RegionalPerformance(records),
		Categories:  CategoryPerformance(records),
		Monthly:     MonthlyTrends(records),
		TopProducts: TopProducts(records, topN),
	}
}

func column(records []domain.SaleRecord, get func(domain.SaleRecord) float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = get(r)
	}
	return out
}

func revenueOf(r domain.SaleRecord) float64 { return r.Revenue }
func unitsOf(r domain.SaleRecord) float64   { return r.UnitsSold }
func targetOf(r domain.SaleRecord) float64  { return r.SalesTarget }

// OverallKPIs summarizes the whole dataset. Variance is reported only when
// the total target is positive.
func OverallKPIs(records []domain.SaleRecord) domain.SalesKPIs {
	k := domain.SalesKPIs{
		TotalRevenue:     shared.Sum(column(records, revenueOf)),
		TotalTarget:      shared.Sum(column(records, targetOf)),
		TotalUnits:       shared.Sum(column(records, unitsOf)),
		TransactionCount: len(records),
		AvgOrderValue:    shared.MeanOrZero(column(records, revenueOf)),
	}
	if k.TotalTarget > 0 {
		k.Variance = k.TotalRevenue - k.TotalTarget
		k.VariancePct = shared.Percent(k.Variance, k.TotalTarget)
	}
	return k
}

// groupBy buckets records by key, returning keys in ascending order.
func groupBy(records []domain.SaleRecord, key func(domain.SaleRecord) string) ([]string, map[string][]domain.SaleRecord) {
	groups := make(map[string][]domain.SaleRecord)
	for _, r := range records {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

func distinct(records []domain.SaleRecord, key func(domain.SaleRecord) string) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[key(r)] = struct{}{}
	}
	return len(seen)
}

// RegionalPerformance aggregates per region, highest revenue first.
func RegionalPerformance(records []domain.SaleRecord) []domain.RegionPerformance {
	keys, groups := groupBy(records, func(r domain.SaleRecord) string { return r.Region })
	out := make([]domain.RegionPerformance, 0, len(keys))
	for _, region := range keys {
		g := groups[region]
		p := domain.RegionPerformance{
			Region:           region,
			Revenue:          shared.Sum(column(g, revenueOf)),
			Target:           shared.Sum(column(g, targetOf)),
			UnitsSold:        shared.Sum(column(g, unitsOf)),
			TransactionCount: len(g),
		}
		p.Variance = p.Revenue - p.Target
		p.VariancePct = shared.Percent(p.Variance, p.Target)
		p.AvgOrderValue = shared.SafeDivide(p.Revenue, float64(p.TransactionCount))
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return out
}

// CategoryPerformance aggregates per product category, highest revenue first.
func CategoryPerformance(records []domain.SaleRecord) []domain.CategoryPerformance {
	keys, groups := groupBy(records, func(r domain.SaleRecord) string { return r.ProductCategory })
	out := make([]domain.CategoryPerformance, 0, len(keys))
	for _, category := range keys {
		g := groups[category]
		p := domain.CategoryPerformance{
			Category:       category,
			Revenue:        shared.Sum(column(g, revenueOf)),
			UnitsSold:      shared.Sum(column(g, unitsOf)),
			UniqueProducts: distinct(g, func(r domain.SaleRecord) string { return r.ProductName }),
		}
		p.RevenuePerProduct = shared.SafeDivide(p.Revenue, float64(p.UniqueProducts))
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	return out
}

// MonthlyTrends sums revenue, target and units per calendar month in
// chronological order. Rows without a valid date are left out.
func MonthlyTrends(records []domain.SaleRecord) []domain.MonthlySales {
	dated := make([]domain.SaleRecord, 0, len(records))
	for _, r := range records {
		if !r.Date.IsZero() {
			dated = append(dated, r)
		}
	}
	keys, groups := groupBy(dated, func(r domain.SaleRecord) string { return r.Date.Format("2006-01") })
	out := make([]domain.MonthlySales, 0, len(keys))
	for _, ym := range keys {
		g := groups[ym]
		out = append(out, domain.MonthlySales{
			YearMonth: ym,
			Revenue:   shared.Sum(column(g, revenueOf)),
			Target:    shared.Sum(column(g, targetOf)),
			UnitsSold: shared.Sum(column(g, unitsOf)),
		})
	}
	return out
}

// TopProducts ranks products by revenue and returns at most n.
func TopProducts(records []domain.SaleRecord, n int) []domain.ProductPerformance {
	keys, groups := groupBy(records, func(r domain.SaleRecord) string { return r.ProductName })
	out := make([]domain.ProductPerformance, 0, len(keys))
	for _, product := range keys {
		g := groups[product]
		out = append(out, domain.ProductPerformance{
			ProductName:   product,
			Revenue:       shared.Sum(column(g, revenueOf)),
			UnitsSold:     shared.Sum(column(g, unitsOf)),
			RegionsSoldIn: distinct(g, func(r domain.SaleRecord) string { return r.Region }),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Revenue > out[j].Revenue })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

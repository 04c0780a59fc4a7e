package cleaning

import (
	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// AddFeatures derives the per-row sales features.
//
// variance is missing when the row has no target; variance_pct is 0 when the
// target is missing or zero. Zero units count as one for the per-unit ratios.
func AddFeatures(records []domain.SaleRecord) []domain.ProcessedSale {
	out := make([]domain.ProcessedSale, len(records))
	for i, r := range records {
		units := r.UnitsSold
		if units == 0 {
			units = 1
		}

		f := domain.SaleFeatures{
			Year:           r.Date.Year(),
			Month:          int(r.Date.Month()),
			Quarter:        (int(r.Date.Month())-1)/3 + 1,
			YearMonth:      r.Date.Format("2006-01"),
			Variance:       r.Revenue - r.SalesTarget,
			AvgOrderValue:  r.Revenue / units,
			RevenuePerUnit: r.Revenue / units,
		}
		f.VariancePct = shared.Percent(f.Variance, r.SalesTarget)
		f.AboveTarget = !shared.IsMissing(f.Variance) && f.Variance > 0

		out[i] = domain.ProcessedSale{SaleRecord: r, SaleFeatures: f}
	}
	return out
}

// Records strips the derived features again.
func Records(sales []domain.ProcessedSale) []domain.SaleRecord {
	out := make([]domain.SaleRecord, len(sales))
	for i, s := range sales {
		out[i] = s.SaleRecord
	}
	return out
}

// Package cleaning standardizes, imputes and filters sales transactions and
// derives the per-row features used by the sales report.
//
// Clean is idempotent: feeding its output back in changes nothing.
package cleaning

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// OutlierSigma is the width of the revenue acceptance band in sample
// standard deviations.
const OutlierSigma = 3.0

// Report counts what each cleaning step did.
type Report struct {
	InputRows      int `json:"input_rows"`
	InvalidDates   int `json:"invalid_dates"`
	RevenueImputed int `json:"revenue_imputed"`
	UnitsImputed   int `json:"units_imputed"`
	TargetsImputed int `json:"targets_imputed"`
	InvalidValues  int `json:"invalid_values"`
	Duplicates     int `json:"duplicates"`
	Outliers       int `json:"outliers"`
	OutlierPasses  int `json:"outlier_passes"`
	OutputRows     int `json:"output_rows"`
}

// Cleaner runs the sales cleaning steps.
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner. A nil logger uses slog.Default().
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger.With(slog.String("component", "sales_cleaner"))}
}

// Clean returns a cleaned copy of records. The input slice is not modified.
func (c *Cleaner) Clean(ctx context.Context, records []domain.SaleRecord) ([]domain.SaleRecord, Report) {
	rep := Report{InputRows: len(records)}

	rows := make([]domain.SaleRecord, 0, len(records))
	for _, r := range records {
		if r.Date.IsZero() {
			rep.InvalidDates++
			continue
		}
		rows = append(rows, r)
	}

	title := cases.Title(language.Und)
	for i := range rows {
		rows[i].Region = StandardizeText(title, rows[i].Region)
		rows[i].ProductCategory = StandardizeText(title, rows[i].ProductCategory)
	}

	for i := range rows {
		r := &rows[i]
		if shared.IsMissing(r.Revenue) {
			r.Revenue = r.UnitsSold * r.UnitPrice
			if !shared.IsMissing(r.Revenue) {
				rep.RevenueImputed++
			}
		}
		if shared.IsMissing(r.UnitsSold) && !shared.IsMissing(r.Revenue) && r.UnitPrice > 0 {
			r.UnitsSold = math.RoundToEven(r.Revenue / r.UnitPrice)
			rep.UnitsImputed++
		}
	}

	rep.TargetsImputed = imputeTargetsByRegion(rows)

	valid := rows[:0]
	for _, r := range rows {
		if shared.IsMissing(r.Revenue) || shared.IsMissing(r.UnitsSold) || r.Revenue < 0 || r.UnitsSold < 0 {
			rep.InvalidValues++
			continue
		}
		valid = append(valid, r)
	}
	rows = valid

	rows, rep.Duplicates = dropDuplicates(rows)
	rows, rep.Outliers, rep.OutlierPasses = dropRevenueOutliers(rows)

	rep.OutputRows = len(rows)
	c.logger.InfoContext(ctx, "sales data cleaned",
		slog.Int("input_rows", rep.InputRows),
		slog.Int("invalid_dates", rep.InvalidDates),
		slog.Int("revenue_imputed", rep.RevenueImputed),
		slog.Int("units_imputed", rep.UnitsImputed),
		slog.Int("targets_imputed", rep.TargetsImputed),
		slog.Int("invalid_values", rep.InvalidValues),
		slog.Int("duplicates", rep.Duplicates),
		slog.Int("outliers", rep.Outliers),
		slog.Int("output_rows", rep.OutputRows))
	return rows, rep
}

// StandardizeText trims s and title-cases each word.
func StandardizeText(title cases.Caser, s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return title.String(s)
}

// imputeTargetsByRegion fills missing targets with the median of the
// region's present targets. Regions without any target stay missing.
func imputeTargetsByRegion(rows []domain.SaleRecord) int {
	byRegion := make(map[string][]float64)
	for _, r := range rows {
		if !shared.IsMissing(r.SalesTarget) {
			byRegion[r.Region] = append(byRegion[r.Region], r.SalesTarget)
		}
	}
	medians := make(map[string]float64, len(byRegion))
	for region, targets := range byRegion {
		medians[region] = shared.Median(targets)
	}

	imputed := 0
	for i := range rows {
		if !shared.IsMissing(rows[i].SalesTarget) {
			continue
		}
		if m, ok := medians[rows[i].Region]; ok {
			rows[i].SalesTarget = m
			imputed++
		}
	}
	return imputed
}

type saleKey struct {
	date    time.Time
	region  string
	product string
}

func dropDuplicates(rows []domain.SaleRecord) ([]domain.SaleRecord, int) {
	seen := make(map[saleKey]struct{}, len(rows))
	out := rows[:0]
	dropped := 0
	for _, r := range rows {
		k := saleKey{date: r.Date, region: r.Region, product: r.ProductName}
		if _, dup := seen[k]; dup {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out, dropped
}

// dropRevenueOutliers removes rows outside mean ± OutlierSigma·σ and repeats
// until a pass removes nothing.
func dropRevenueOutliers(rows []domain.SaleRecord) ([]domain.SaleRecord, int, int) {
	dropped, passes := 0, 0
	for len(rows) >= 2 {
		revenue := make([]float64, len(rows))
		for i, r := range rows {
			revenue[i] = r.Revenue
		}
		mean := shared.Mean(revenue)
		std := shared.SampleStdDev(revenue)
		if shared.IsMissing(std) || std == 0 {
			break
		}
		low, high := mean-OutlierSigma*std, mean+OutlierSigma*std

		passes++
		kept := rows[:0]
		for _, r := range rows {
			if r.Revenue < low || r.Revenue > high {
				dropped++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == len(rows) {
			break
		}
		rows = kept
	}
	return rows, dropped, passes
}

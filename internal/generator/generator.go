// Package generator produces the synthetic finance and operations star schema:
// date, department and region dimensions plus monthly financial and
// operations facts for every department and region pair.
//
// Output is fully determined by Options. A single seeded random source is
// consumed in a fixed order (all financial draws, then all operations draws)
// and dimension names come from a faker seeded with the same value.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"finops/internal/config"
	"finops/internal/errors"
	"finops/internal/shared"
	"finops/pkg/contracts/domain"
)

// Options controls a generation run.
type Options struct {
	Seed        uint64
	Start       time.Time
	End         time.Time
	Departments []string
	Regions     []string
}

// DefaultOptions returns the stock configuration: seed 42, 2021 through 2024,
// every known department and region.
func DefaultOptions() Options {
	return Options{
		Seed:        config.DefaultSeed,
		Start:       time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC),
		Departments: append([]string(nil), DefaultDepartments...),
		Regions:     append([]string(nil), DefaultRegions...),
	}
}

// OptionsFromConfig maps the generator config section onto Options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	start, end, err := cfg.GeneratorRange()
	if err != nil {
		return Options{}, errors.NewConfigError("invalid generator date range", err)
	}
	opts := DefaultOptions()
	opts.Seed = cfg.Generator.Seed
	opts.Start = start
	opts.End = end
	return opts, nil
}

// Validate checks the date range and that every name has a profile.
func (o Options) Validate() error {
	if o.Start.IsZero() || o.End.IsZero() {
		return errors.NewConfigError("generator start and end dates are required", nil)
	}
	if o.End.Before(o.Start) {
		return errors.NewConfigError(fmt.Sprintf("generator end date %s is before start date %s",
			o.End.Format(config.DateLayout), o.Start.Format(config.DateLayout)), nil)
	}
	if len(o.Departments) == 0 || len(o.Regions) == 0 {
		return errors.NewConfigError("at least one department and one region are required", nil)
	}
	for _, d := range o.Departments {
		if _, ok := LookupDepartment(d); !ok {
			return errors.NewConfigError(fmt.Sprintf("unknown department %q", d), nil)
		}
	}
	for _, r := range o.Regions {
		if _, ok := LookupRegion(r); !ok {
			return errors.NewConfigError(fmt.Sprintf("unknown region %q", r), nil)
		}
	}
	return nil
}

// Generator builds a FinanceDataset. It is not safe for concurrent use; each
// call to Generate restarts the random streams from the seed.
type Generator struct {
	opts   Options
	logger *slog.Logger

	rng   *rand.Rand
	faker *gofakeit.Faker
}

// New creates a generator after validating opts.
func New(opts Options, logger *slog.Logger) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		opts:   opts,
		logger: logger.With(slog.String("component", "generator")),
	}, nil
}

func (g *Generator) reset() {
	g.rng = rand.New(rand.NewPCG(g.opts.Seed, g.opts.Seed))
	g.faker = gofakeit.New(g.opts.Seed)
}

func (g *Generator) uniform(low, high float64) float64 {
	return low + (high-low)*g.rng.Float64()
}

// Generate produces the complete dataset.
func (g *Generator) Generate(ctx context.Context) (*domain.FinanceDataset, error) {
	g.reset()
	started := time.Now()

	g.logger.InfoContext(ctx, "generating finance dataset",
		slog.Uint64("seed", g.opts.Seed),
		slog.String("start", g.opts.Start.Format(config.DateLayout)),
		slog.String("end", g.opts.End.Format(config.DateLayout)))

	ds := &domain.FinanceDataset{
		Dates:       DateDimensions(g.opts.Start, g.opts.End),
		Departments: g.departments(),
		Regions:     g.regions(),
	}

	months := MonthStarts(g.opts.Start, g.opts.End)
	if len(months) == 0 {
		return nil, errors.NewDataError(fmt.Sprintf("date range %s to %s contains no month start",
			g.opts.Start.Format(config.DateLayout), g.opts.End.Format(config.DateLayout)))
	}

	var err error
	if ds.Financials, err = g.financials(ctx, months); err != nil {
		return nil, err
	}
	if ds.Operations, err = g.operations(ctx, months); err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "finance dataset generated",
		slog.Int("dates", len(ds.Dates)),
		slog.Int("departments", len(ds.Departments)),
		slog.Int("regions", len(ds.Regions)),
		slog.Int("financial_rows", len(ds.Financials)),
		slog.Int("operations_rows", len(ds.Operations)),
		slog.Duration("duration", time.Since(started)))
	return ds, nil
}

func (g *Generator) departments() []domain.Department {
	out := make([]domain.Department, len(g.opts.Departments))
	for i, name := range g.opts.Departments {
		out[i] = domain.Department{
			ID:         i + 1,
			Name:       name,
			CostCenter: fmt.Sprintf("CC%d", 1000+i+1),
			HeadOfDept: g.faker.Name(),
		}
	}
	return out
}

func (g *Generator) regions() []domain.Region {
	out := make([]domain.Region, len(g.opts.Regions))
	for i, name := range g.opts.Regions {
		out[i] = domain.Region{
			ID:       i + 1,
			Name:     name,
			Manager:  g.faker.Name(),
			Timezone: g.faker.RandomString(Timezones),
		}
	}
	return out
}

type budgetKey struct {
	year       int
	department string
	region     string
}

type backlogKey struct {
	department string
	region     string
}

func (g *Generator) financials(ctx context.Context, months []time.Time) ([]domain.FinancialFact, error) {
	out := make([]domain.FinancialFact, 0, len(months)*len(g.opts.Departments)*len(g.opts.Regions))
	budgets := make(map[budgetKey]float64)

	for _, month := range months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m := float64(MonthsBetween(g.opts.Start, month))
		trend := 1 + revenueTrendPerMonth*m
		seasonality := 1 + seasonalAmplitude*math.Sin(2*math.Pi*float64(month.Month())/12)

		for di, dept := range g.opts.Departments {
			dp, _ := LookupDepartment(dept)
			for ri, region := range g.opts.Regions {
				rp, _ := LookupRegion(region)

				revenue := dp.BaseRevenue * rp.RevenueMultiplier * trend * seasonality *
					g.uniform(revenueNoiseLow, revenueNoiseHigh)
				opex := revenue * g.uniform(opexRatioLow, opexRatioHigh)
				capex := revenue * dp.CapexRatio * g.uniform(capexNoiseLow, capexNoiseHigh)
				headcount := int(dp.BaseHeadcount * trend * rp.RevenueMultiplier *
					g.uniform(headcountNoiseLow, headcountNoiseHigh))
				profit := revenue - opex - capex

				key := budgetKey{year: month.Year(), department: dept, region: region}
				budget, cached := budgets[key]
				if month.Month() == time.January || !cached {
					budget = revenue * g.uniform(budgetNoiseLow, budgetNoiseHigh)
					budgets[key] = budget
				}
				forecast := revenue * g.uniform(forecastNoiseLow, forecastNoiseHigh)

				out = append(out, domain.FinancialFact{
					Date:         month,
					DateKey:      DateKey(month),
					DepartmentID: di + 1,
					RegionID:     ri + 1,
					Revenue:      shared.Round2(revenue),
					Opex:         shared.Round2(opex),
					Capex:        shared.Round2(capex),
					Headcount:    headcount,
					Profit:       shared.Round2(profit),
					Budget:       shared.Round2(budget),
					Forecast:     shared.Round2(forecast),
				})
			}
		}
	}
	return out, nil
}

func (g *Generator) operations(ctx context.Context, months []time.Time) ([]domain.OperationsFact, error) {
	out := make([]domain.OperationsFact, 0, len(months)*len(g.opts.Departments)*len(g.opts.Regions))
	backlogs := make(map[backlogKey]int)
	first := months[0]

	for _, month := range months {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ticketTrend := 1 + ticketTrendPerMonth*float64(MonthsBetween(g.opts.Start, month))

		for di, dept := range g.opts.Departments {
			dp, _ := LookupDepartment(dept)
			for ri, region := range g.opts.Regions {
				rp, _ := LookupRegion(region)

				resolved := int(dp.BaseTickets * rp.TicketMultiplier * ticketTrend *
					g.uniform(ticketNoiseLow, ticketNoiseHigh))
				breaches := int(float64(resolved) * g.uniform(breachRateLow, breachRateHigh))
				cycle := dp.BaseCycleTime * g.uniform(cycleNoiseLow, cycleNoiseHigh)
				utilization := g.uniform(utilizationLow, utilizationHigh)

				key := backlogKey{department: dept, region: region}
				var backlog int
				if month.Equal(first) {
					backlog = int(float64(resolved) * g.uniform(initialBacklogLow, initialBacklogHigh))
				} else {
					arrivals := int(float64(resolved) * g.uniform(arrivalsLow, arrivalsHigh))
					backlog = max(0, backlogs[key]+arrivals-resolved)
				}
				backlogs[key] = backlog

				out = append(out, domain.OperationsFact{
					Date:            month,
					DateKey:         DateKey(month),
					DepartmentID:    di + 1,
					RegionID:        ri + 1,
					TicketsResolved: resolved,
					SLABreaches:     breaches,
					CycleTime:       shared.Round2(cycle),
					Utilization:     shared.Round2(utilization),
					Backlog:         backlog,
				})
			}
		}
	}
	return out, nil
}

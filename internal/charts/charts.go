// Package charts renders dashboard series as PNG images with gonum/plot
// default styling.
package charts

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"finops/pkg/contracts/domain"
)

// Image size of every chart.
const (
	Width  = 10 * vg.Inch
	Height = 5 * vg.Inch
)

// Targets drawn as reference lines on the operations charts.
const (
	SLABreachTarget   = 5.0
	UtilizationTarget = 85.0
)

const million = 1e6

// Chart is a named plot; Name becomes the file name.
type Chart struct {
	Name string
	Plot *plot.Plot
}

func newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	return p
}

func rotateLabels(p *plot.Plot) {
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}

func indexed(values []float64) plotter.XYs {
	pts := make(plotter.XYs, len(values))
	for i, v := range values {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	return pts
}

// Dashboard builds every chart of a dashboard view. Series without data are
// skipped.
func Dashboard(d domain.Dashboard) ([]Chart, error) {
	var out []Chart
	builders := []struct {
		name  string
		empty bool
		build func(domain.Dashboard) (*plot.Plot, error)
	}{
		{"revenue_expenses_trend", len(d.Monthly) == 0, revenueExpensesTrend},
		{"profit_trend", len(d.Monthly) == 0, profitTrend},
		{"revenue_by_department", len(d.ByDepartment) == 0, func(d domain.Dashboard) (*plot.Plot, error) {
			return revenueShares("Total Revenue by Department", "Department", d.ByDepartment)
		}},
		{"revenue_by_region", len(d.ByRegion) == 0, func(d domain.Dashboard) (*plot.Plot, error) {
			return revenueShares("Total Revenue by Region", "Region", d.ByRegion)
		}},
		{"quarterly_comparison", len(d.Quarterly) == 0, quarterlyComparison},
		{"quarterly_variance", len(d.Quarterly) == 0, quarterlyVariance},
		{"sla_breach_rate", len(d.OperationsMonthly) == 0, slaBreachTrend},
		{"utilization", len(d.OperationsMonthly) == 0, utilizationTrend},
	}
	for _, b := range builders {
		if b.empty {
			continue
		}
		p, err := b.build(d)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s chart: %w", b.name, err)
		}
		out = append(out, Chart{Name: b.name, Plot: p})
	}
	return out, nil
}

func monthLabels(monthly []domain.MonthlyFinance) []string {
	out := make([]string, len(monthly))
	for i, m := range monthly {
		out[i] = m.YearMonth
	}
	return out
}

func revenueExpensesTrend(d domain.Dashboard) (*plot.Plot, error) {
	p := newPlot("Revenue vs Expenses Trend", "Date", "Amount (Millions USD)")
	series := func(get func(domain.MonthlyFinance) float64) plotter.XYs {
		v := make([]float64, len(d.Monthly))
		for i, m := range d.Monthly {
			v[i] = get(m) / million
		}
		return indexed(v)
	}
	err := plotutil.AddLinePoints(p,
		"Revenue", series(func(m domain.MonthlyFinance) float64 { return m.Revenue }),
		"OPEX", series(func(m domain.MonthlyFinance) float64 { return m.Opex }),
		"CAPEX", series(func(m domain.MonthlyFinance) float64 { return m.Capex }),
	)
	if err != nil {
		return nil, err
	}
	p.NominalX(monthLabels(d.Monthly)...)
	rotateLabels(p)
	return p, nil
}

func profitTrend(d domain.Dashboard) (*plot.Plot, error) {
	p := newPlot("Profit Trend", "Date", "Profit (Millions USD)")
	v := make([]float64, len(d.Monthly))
	for i, m := range d.Monthly {
		v[i] = m.Profit / million
	}
	if err := plotutil.AddLinePoints(p, "Profit", indexed(v)); err != nil {
		return nil, err
	}
	p.NominalX(monthLabels(d.Monthly)...)
	rotateLabels(p)
	return p, nil
}

func revenueShares(title, xLabel string, shares []domain.RevenueShare) (*plot.Plot, error) {
	p := newPlot(title, xLabel, "Revenue (Millions USD)")
	values := make(plotter.Values, len(shares))
	labels := make([]string, len(shares))
	for i, s := range shares {
		values[i] = s.Revenue / million
		labels[i] = s.Name
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX(labels...)
	rotateLabels(p)
	return p, nil
}

func quarterLabels(q []domain.QuarterlyVariance) []string {
	out := make([]string, len(q))
	for i, v := range q {
		out[i] = v.Quarter
	}
	return out
}

func quarterlyComparison(d domain.Dashboard) (*plot.Plot, error) {
	p := newPlot("Actual vs Budget vs Forecast", "Quarter", "Revenue (Millions USD)")
	width := vg.Points(12)
	series := []struct {
		name string
		get  func(domain.QuarterlyVariance) float64
	}{
		{"Actual", func(q domain.QuarterlyVariance) float64 { return q.Revenue }},
		{"Budget", func(q domain.QuarterlyVariance) float64 { return q.Budget }},
		{"Forecast", func(q domain.QuarterlyVariance) float64 { return q.Forecast }},
	}
	for i, s := range series {
		values := make(plotter.Values, len(d.Quarterly))
		for j, q := range d.Quarterly {
			values[j] = s.get(q) / million
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(i)
		bars.Offset = vg.Length(i-1) * width
		p.Add(bars)
		p.Legend.Add(s.name, bars)
	}
	p.Legend.Top = true
	p.NominalX(quarterLabels(d.Quarterly)...)
	rotateLabels(p)
	return p, nil
}

func quarterlyVariance(d domain.Dashboard) (*plot.Plot, error) {
	p := newPlot("Revenue Variance vs Budget", "Quarter", "Variance (%)")
	values := make(plotter.Values, len(d.Quarterly))
	for i, q := range d.Quarterly {
		values[i] = q.ActualVsBudget
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(1)
	p.Add(bars, referenceLine(0))
	p.NominalX(quarterLabels(d.Quarterly)...)
	rotateLabels(p)
	return p, nil
}

func referenceLine(y float64) *plotter.Function {
	f := plotter.NewFunction(func(float64) float64 { return y })
	f.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
	return f
}

func opsTrend(title, yLabel, name string, d domain.Dashboard, get func(domain.MonthlyOperations) float64, target float64) (*plot.Plot, error) {
	p := newPlot(title, "Date", yLabel)
	v := make([]float64, len(d.OperationsMonthly))
	labels := make([]string, len(d.OperationsMonthly))
	for i, m := range d.OperationsMonthly {
		v[i] = get(m)
		labels[i] = m.YearMonth
	}
	if err := plotutil.AddLinePoints(p, name, indexed(v)); err != nil {
		return nil, err
	}
	line := referenceLine(target)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("Target (%g%%)", target), line)
	p.NominalX(labels...)
	rotateLabels(p)
	return p, nil
}

func slaBreachTrend(d domain.Dashboard) (*plot.Plot, error) {
	return opsTrend("SLA Breach Rate Over Time", "SLA Breach Rate (%)", "SLA breach rate", d,
		func(m domain.MonthlyOperations) float64 { return m.SLABreachRate }, SLABreachTarget)
}

func utilizationTrend(d domain.Dashboard) (*plot.Plot, error) {
	return opsTrend("Utilization Over Time", "Utilization (%)", "Utilization", d,
		func(m domain.MonthlyOperations) float64 { return m.Utilization }, UtilizationTarget)
}

// WritePNG encodes c as a PNG image to w.
func WritePNG(w io.Writer, c Chart) error {
	wt, err := c.Plot.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("failed to render chart %s: %w", c.Name, err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// Save writes each chart to dir as <name>.png and returns the file paths.
func Save(charts []Chart, dir string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path := filepath.Join(dir, c.Name+".png")
		if err := c.Plot.Save(Width, Height, path); err != nil {
			return paths, fmt.Errorf("failed to save chart %s: %w", c.Name, err)
		}
		paths = append(paths, path)
	}
	logger.Info("charts saved", slog.String("dir", dir), slog.Int("count", len(paths)))
	return paths, nil
}

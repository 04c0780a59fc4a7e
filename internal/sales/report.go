package sales

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finops/pkg/contracts/domain"
)

const ruleWidth = 60

// WriteText renders report as aligned plain-text tables.
func WriteText(w io.Writer, report domain.SalesReport) error {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", ruleWidth)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "SALES PERFORMANCE ANALYSIS REPORT")
	fmt.Fprintln(&b, rule)

	k := report.KPIs
	fmt.Fprintln(&b, "\n=== OVERALL KPIs ===")
	p.Fprintf(&b, "Total Revenue: $%.2f\n", k.TotalRevenue)
	if k.TotalTarget > 0 {
		p.Fprintf(&b, "Total Sales Target: $%.2f\n", k.TotalTarget)
		p.Fprintf(&b, "Variance: $%.2f (%.2f%%)\n", k.Variance, k.VariancePct)
	}
	p.Fprintf(&b, "Total Units Sold: %.0f\n", k.TotalUnits)
	p.Fprintf(&b, "Average Order Value: $%.2f\n", k.AvgOrderValue)
	p.Fprintf(&b, "Transaction Count: %d\n", k.TransactionCount)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	sections := []struct {
		title string
		write func(*tabwriter.Writer)
	}{
		{"REGIONAL PERFORMANCE", func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "region\trevenue\tsales_target\tunits_sold\ttransactions\tvariance\tvariance_pct\tavg_order_value\t")
			for _, r := range report.Regions {
				p.Fprintf(tw, "%s\t%.2f\t%.2f\t%.0f\t%d\t%.2f\t%.2f\t%.2f\t\n", r.Region, r.Revenue, r.Target,
					r.UnitsSold, r.TransactionCount, r.Variance, r.VariancePct, r.AvgOrderValue)
			}
		}},
		{"PRODUCT CATEGORY PERFORMANCE", func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "product_category\trevenue\tunits_sold\tunique_products\trevenue_per_product\t")
			for _, c := range report.Categories {
				p.Fprintf(tw, "%s\t%.2f\t%.0f\t%d\t%.2f\t\n", c.Category, c.Revenue, c.UnitsSold,
					c.UniqueProducts, c.RevenuePerProduct)
			}
		}},
		{fmt.Sprintf("TOP %d PRODUCTS BY REVENUE", len(report.TopProducts)), func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "product_name\trevenue\tunits_sold\tregions_sold_in\t")
			for _, t := range report.TopProducts {
				p.Fprintf(tw, "%s\t%.2f\t%.0f\t%d\t\n", t.ProductName, t.Revenue, t.UnitsSold, t.RegionsSoldIn)
			}
		}},
		{"MONTHLY TRENDS", func(tw *tabwriter.Writer) {
			fmt.Fprintln(tw, "year_month\trevenue\tsales_target\tunits_sold\t")
			for _, m := range report.Monthly {
				p.Fprintf(tw, "%s\t%.2f\t%.2f\t%.0f\t\n", m.YearMonth, m.Revenue, m.Target, m.UnitsSold)
			}
		}},
	}

	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "\n=== %s ===\n", s.title); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		s.write(tw)
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

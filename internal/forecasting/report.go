package forecasting

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"finops/internal/config"
	"finops/pkg/contracts/domain"
)

const ruleWidth = 60

// WriteText renders the model fit, the historical comparison and the
// projected periods of result.
func WriteText(w io.Writer, result *domain.ForecastResult) error {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", ruleWidth)
	dash := strings.Repeat("-", ruleWidth)

	var b strings.Builder
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "FINANCIAL FORECASTING MODEL")
	fmt.Fprintln(&b, rule)

	fmt.Fprintf(&b, "\nCategory: %s, scenario: %s\n", result.Category, result.Scenario)
	fmt.Fprintf(&b, "Training data: %d observations\n", result.Observations)
	fmt.Fprintf(&b, "Date range: %s to %s\n",
		result.FirstDate.Format(config.DateLayout), result.LastDate.Format(config.DateLayout))

	fmt.Fprintf(&b, "\n%s\nModel fit\n%s\n", dash, dash)
	p.Fprintf(&b, "Training MAPE: %.2f%%\n", result.Metrics.MAPE)
	p.Fprintf(&b, "Training RMSE: $%.2f\n", result.Metrics.RMSE)
	p.Fprintf(&b, "R² Score: %.4f\n", result.Metrics.R2)

	if result.Historical != nil {
		fmt.Fprintf(&b, "\n%s\nHistorical forecast accuracy\n%s\n", dash, dash)
		p.Fprintf(&b, "Historical Forecast MAPE: %.2f%%\n", result.Historical.MAPE)
		p.Fprintf(&b, "New Model MAPE: %.2f%%\n", result.Metrics.MAPE)
		if result.Improvement != nil {
			p.Fprintf(&b, "Improvement: %.2f percentage points (%.1f%% relative)\n",
				result.Improvement.Points, result.Improvement.RelativePct)
		}
	}

	fmt.Fprintf(&b, "\n=== %d-MONTH FORECAST ===\n", len(result.Forecasts))
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "date\tbaseline_forecast\toptimistic_forecast\tpessimistic_forecast\t")
	for _, f := range result.Forecasts {
		p.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t\n", f.Date.Format(config.DateLayout),
			f.BaselineForecast, f.OptimisticForecast, f.PessimisticForecast)
	}
	return tw.Flush()
}

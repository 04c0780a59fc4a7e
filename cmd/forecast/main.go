package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"finops/internal/app"
	"finops/internal/config"
	"finops/internal/forecasting"
	"finops/internal/operations"
	"finops/pkg/contracts/domain"
)

func main() {
	common := app.RegisterCommonFlags(flag.CommandLine)
	input := flag.String("in", "", "financial CSV (defaults to the processed file, falling back to the raw one)")
	output := flag.String("out", "", "forecast results CSV (defaults to data/forecast_results.csv)")
	periods := flag.Int("periods", 0, "number of monthly periods to forecast")
	category := flag.String("category", "", "category to model")
	scenario := flag.String("scenario", "", "scenario to model")
	flag.Parse()

	cli, err := app.NewCLI(common, func(cfg *config.Config) error {
		if *periods > 0 {
			cfg.Forecast.Periods = *periods
		}
		if *category != "" {
			cfg.Forecast.Category = *category
		}
		if *scenario != "" {
			cfg.Forecast.Scenario = *scenario
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer cli.Close(context.Background())

	opts := operations.ForecastOptions{
		Input:    *input,
		Results:  *output,
		Forecast: forecasting.OptionsFromConfig(cli.Config.Forecast),
	}
	if opts.Input == "" {
		opts.Input = cli.Paths.FinancialProcessedCSV
		if !config.FileExists(opts.Input) {
			cli.Logger.Warn("Processed data not found, loading raw data",
				slog.String("processed", opts.Input),
				slog.String("raw", cli.Paths.FinancialRawCSV))
			opts.Input = cli.Paths.FinancialRawCSV
		}
	}
	if opts.Results == "" {
		opts.Results = cli.Paths.ForecastResultsCSV
	}

	if err := cli.Files.ValidateCSVFile(opts.Input); err != nil {
		cli.Logger.Error("Invalid input file", slog.String("error", err.Error()))
		cli.Close(context.Background())
		os.Exit(1)
	}
	if err := cli.Files.ValidateOutputFile(opts.Results, ".csv"); err != nil {
		cli.Logger.Error("Invalid output file", slog.String("error", err.Error()))
		cli.Close(context.Background())
		os.Exit(1)
	}

	steps, err := operations.ForecastPipeline(cli.Environment(), opts)
	if err != nil {
		cli.Logger.Error("Invalid forecast options", slog.String("error", err.Error()))
		cli.Close(context.Background())
		os.Exit(1)
	}

	state, err := cli.RunPipeline(ctx, operations.PipelineForecast, steps, map[string]any{
		"input":    opts.Input,
		"category": opts.Forecast.Category,
		"scenario": opts.Forecast.Scenario,
		"periods":  opts.Forecast.Periods,
	})
	if state != nil {
		if result, verr := operations.Value[*domain.ForecastResult](state, operations.ContextKeyForecast); verr == nil {
			_ = forecasting.WriteText(os.Stdout, result)
		}
		_ = app.WriteRunSummary(os.Stdout, operations.NewOperationResponse(state))
	}
	if err != nil {
		cli.Close(context.Background())
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"finops/internal/app"
	"finops/internal/operations"
)

func main() {
	common := app.RegisterCommonFlags(flag.CommandLine)
	input := flag.String("in", "", "raw financial CSV (defaults to data/sample_financial_data.csv)")
	output := flag.String("out", "", "processed financial CSV (defaults to data/processed_financial_data.csv)")
	flag.Parse()

	cli, err := app.NewCLI(common, nil)
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer cli.Close(context.Background())

	opts := operations.FinancialOptions{Input: *input, Output: *output}
	if opts.Input == "" {
		opts.Input = cli.Paths.FinancialRawCSV
	}
	if opts.Output == "" {
		opts.Output = cli.Paths.FinancialProcessedCSV
	}

	if err := cli.Files.ValidateCSVFile(opts.Input); err != nil {
		cli.Logger.Error("Invalid input file", slog.String("error", err.Error()))
		cli.Close(context.Background())
		os.Exit(1)
	}
	if err := cli.Files.ValidateOutputFile(opts.Output, ".csv"); err != nil {
		cli.Logger.Error("Invalid output file", slog.String("error", err.Error()))
		cli.Close(context.Background())
		os.Exit(1)
	}

	cli.Logger.Info("Preprocessing financial data",
		slog.String("input", opts.Input),
		slog.String("output", opts.Output))

	state, err := cli.RunPipeline(ctx, operations.PipelineFinancials, operations.FinancialPrepPipeline(cli.Environment(), opts), map[string]any{
		"input":  opts.Input,
		"output": opts.Output,
	})
	if state != nil {
		_ = app.WriteRunSummary(os.Stdout, operations.NewOperationResponse(state))
	}
	if err != nil {
		cli.Close(context.Background())
		os.Exit(1)
	}
}

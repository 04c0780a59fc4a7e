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
	"finops/internal/operations"
)

func main() {
	common := app.RegisterCommonFlags(flag.CommandLine)
	seed := flag.Uint64("seed", 0, "random seed (defaults to the configured seed)")
	start := flag.String("start", "", "first generated day, YYYY-MM-DD")
	end := flag.String("end", "", "last generated day, YYYY-MM-DD")
	charts := flag.Bool("charts", false, "render dashboard chart images into images/")
	noWorkbook := flag.Bool("no-workbook", false, "skip the analytical Excel workbook")
	flag.Parse()

	cli, err := app.NewCLI(common, func(cfg *config.Config) error {
		if *seed != 0 {
			cfg.Generator.Seed = *seed
		}
		if *start != "" {
			cfg.Generator.StartDate = *start
		}
		if *end != "" {
			cfg.Generator.EndDate = *end
		}
		if *charts {
			cfg.Generator.Charts = true
		}
		if *noWorkbook {
			cfg.Generator.Workbook = false
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

	opts, err := operations.FinanceOptionsFromConfig(cli.Config)
	if err != nil {
		cli.Logger.Error("Invalid generator options", slog.String("error", err.Error()))
		os.Exit(1)
	}
	steps, err := operations.FinancePipeline(cli.Environment(), opts)
	if err != nil {
		cli.Logger.Error("Failed to build finance pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cli.Logger.Info("Generating finance and operations data",
		slog.Uint64("seed", opts.Generator.Seed),
		slog.String("start", cli.Config.Generator.StartDate),
		slog.String("end", cli.Config.Generator.EndDate),
		slog.String("output_dir", cli.Paths.DataDir))

	state, err := cli.RunPipeline(ctx, operations.PipelineFinance, steps, map[string]any{
		"seed":  opts.Generator.Seed,
		"start": cli.Config.Generator.StartDate,
		"end":   cli.Config.Generator.EndDate,
	})
	if state != nil {
		_ = app.WriteRunSummary(os.Stdout, operations.NewOperationResponse(state))
	}
	if err != nil {
		cli.Close(context.Background())
		os.Exit(1)
	}
}

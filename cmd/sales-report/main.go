package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"finops/internal/app"
	"finops/internal/config"
	"finops/internal/exporter"
	"finops/internal/sales"
)

func main() {
	common := app.RegisterCommonFlags(flag.CommandLine)
	top := flag.Int("top", config.DefaultTopProducts, "number of products in the revenue ranking")
	workbook := flag.String("workbook", "", "report workbook path (defaults to data/reports/sales_report.xlsx)")
	noWorkbook := flag.Bool("no-workbook", false, "print the report only")
	flag.Parse()

	cli, err := app.NewCLI(common, nil)
	if err != nil {
		slog.Error("Failed to initialize", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cli.Close(context.Background())
	ctx := context.Background()

	records, source, err := sales.LoadFromPaths(ctx, cli.Paths, cli.Logger)
	if err != nil {
		cli.Logger.Error("Failed to load sales data", slog.String("error", err.Error()))
		cli.Close(ctx)
		os.Exit(1)
	}

	report := sales.Analyze(records, *top)
	cli.Logger.Info("Sales report built",
		slog.String("source", source),
		slog.Int("rows", len(records)),
		slog.Int("regions", len(report.Regions)))

	if err := sales.WriteText(os.Stdout, report); err != nil {
		cli.Logger.Error("Failed to print report", slog.String("error", err.Error()))
		cli.Close(ctx)
		os.Exit(1)
	}

	if *noWorkbook {
		return
	}
	path := *workbook
	if path == "" {
		path = cli.Paths.SalesReportWorkbook
	}
	if err := cli.Files.ValidateOutputFile(path, ".xlsx"); err != nil {
		cli.Logger.Error("Invalid workbook path", slog.String("error", err.Error()))
		cli.Close(ctx)
		os.Exit(1)
	}
	writer := exporter.NewCSVWriter(cli.Paths, cli.Logger)
	if err := writer.WriteWorkbook(path, exporter.SalesReportSheets(report)...); err != nil {
		cli.Logger.Error("Failed to write report workbook", slog.String("path", path), slog.String("error", err.Error()))
		cli.Close(ctx)
		os.Exit(1)
	}
	cli.Logger.Info("Report workbook written", slog.String("path", path))
}

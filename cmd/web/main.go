package main

import (
	"flag"
	"log/slog"
	"os"

	"finops/internal/app"
	"finops/internal/config"
)

func main() {
	common := app.RegisterCommonFlags(flag.CommandLine)
	port := flag.Int("port", 0, "HTTP port (defaults to the configured port)")
	flag.Parse()

	application, err := app.NewApplication(common, func(cfg *config.Config) error {
		if *port != 0 {
			cfg.Server.Port = *port
		}
		return nil
	})
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

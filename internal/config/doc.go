// Package config provides centralized configuration for the finops pipelines
// and the dashboard API server.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Command line flags (applied by each cmd after Load)
//	2. Environment variables with the FINOPS_ prefix
//	3. A YAML file (config.yaml or configs/config.yaml)
//	4. Default values
//
// Environment variables follow the struct layout:
//
//	FINOPS_SERVER_PORT=8080
//	FINOPS_LOGGING_LEVEL=debug
//	FINOPS_GENERATOR_SEED=7
//	FINOPS_PATHS_BASE_DIR=/srv/finops
//
// # Path Management
//
// Paths is the single source of truth for every file the pipelines read or
// write. All locations are derived from one base directory:
//
//	paths := config.NewPaths(cfg.Paths.BaseDir)
//	paths.FactFinancialsCSV   // <base>/data/raw/fact_financials.csv
//	paths.SalesProcessedCSV   // <base>/data/processed_sales_data.csv
//
// # Testing
//
// Default returns a fully populated configuration that needs no environment.
package config

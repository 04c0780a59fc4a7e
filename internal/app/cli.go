package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"finops/internal/config"
	"finops/internal/infrastructure"
	"finops/internal/operations"
	"finops/internal/validation"
)

// CommonFlags are accepted by every pipeline command
type CommonFlags struct {
	ConfigFile string
	BaseDir    string
	LogLevel   string
}

// RegisterCommonFlags binds -config, -base-dir and -log-level on fs
func RegisterCommonFlags(fs *flag.FlagSet) *CommonFlags {
	f := &CommonFlags{}
	fs.StringVar(&f.ConfigFile, "config", "", "YAML config file (defaults to config.yaml or configs/config.yaml)")
	fs.StringVar(&f.BaseDir, "base-dir", "", "directory the data, images and logs folders live under")
	fs.StringVar(&f.LogLevel, "log-level", "", "debug, info, warn or error")
	return f
}

// CLI is the runtime of a one-shot pipeline command
type CLI struct {
	Config *config.Config
	Paths  *config.Paths
	Logger *slog.Logger
	Files  *validation.FileValidator

	tracer    *operations.OperationTracer
	providers *infrastructure.OTelProviders
}

// LoadConfig loads configuration from the environment and the YAML file,
// applies the common flags and then configure, and validates the result.
func LoadConfig(flags *CommonFlags, configure func(*config.Config) error) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags != nil && flags.ConfigFile != "" {
		cfg, err = config.LoadFrom(flags.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if flags != nil {
		if flags.BaseDir != "" {
			cfg.Paths.BaseDir = flags.BaseDir
		}
		if flags.LogLevel != "" {
			cfg.Logging.Level = flags.LogLevel
		}
	}
	if configure != nil {
		if err := configure(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// NewCLI loads configuration and prepares logging, directories and tracing
func NewCLI(flags *CommonFlags, configure func(*config.Config) error) (*CLI, error) {
	cfg, err := LoadConfig(flags, configure)
	if err != nil {
		return nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return NewCLIWithConfig(cfg, logger)
}

// NewCLIWithConfig builds the runtime for an already validated cfg
func NewCLIWithConfig(cfg *config.Config, logger *slog.Logger) (*CLI, error) {
	if logger == nil {
		logger = slog.Default()
	}

	paths := config.NewPaths(cfg.Paths.BaseDir)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	// Nothing scrapes a one-shot command
	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelCfg.MetricExporter = "none"
	providers, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	tracer, err := operations.NewOperationTracer(providers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize operation tracer: %w", err)
	}

	return &CLI{
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Files:     validation.NewFileValidator(logger),
		tracer:    tracer,
		providers: providers,
	}, nil
}

// Environment returns the pipeline environment over the CLI's paths
func (c *CLI) Environment() operations.Environment {
	return operations.NewEnvironment(c.Paths, c.Logger)
}

// RunPipeline registers steps under pipeline and runs them once. The final
// state is returned even when the run fails.
func (c *CLI) RunPipeline(ctx context.Context, pipeline string, steps []operations.Step, params map[string]any) (*operations.OperationState, error) {
	manager, err := operations.NewPipelineManager(pipeline, steps, operations.ConfigFrom(c.Config), c.Logger)
	if err != nil {
		return nil, err
	}
	manager.SetTracer(c.tracer)

	return manager.Run(ctx, operations.OperationRequest{Parameters: params})
}

// Close flushes telemetry
func (c *CLI) Close(ctx context.Context) {
	if c.providers == nil {
		return
	}
	if err := c.providers.Shutdown(ctx); err != nil {
		c.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}
}

// WriteRunSummary prints one line per step of resp
func WriteRunSummary(w io.Writer, resp *operations.OperationResponse) error {
	if _, err := fmt.Fprintf(w, "%s pipeline %s in %s (%d rows)\n",
		resp.Pipeline, resp.Status, resp.Duration.Round(time.Millisecond), resp.Rows); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "step\tstatus\trows\tmessage")
	for _, s := range resp.Steps {
		msg := s.Message
		if s.Error != "" {
			msg = s.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, s.Status, s.Rows, msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if resp.Error != "" {
		_, err := fmt.Fprintf(w, "error: %s\n", resp.Error)
		return err
	}
	return nil
}

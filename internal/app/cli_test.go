package app

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finops/internal/config"
	"finops/internal/operations"
	"finops/internal/shared/testutil"
)

func TestNewCLI_FlagsAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("generator:\n  start_date: \"2023-01-01\"\n  end_date: \"2023-03-31\"\n"), 0o644))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterCommonFlags(fs)
	require.NoError(t, fs.Parse([]string{"-config", configFile, "-base-dir", dir, "-log-level", "warn"}))

	var seen *config.Config
	cli, err := NewCLI(flags, func(cfg *config.Config) error {
		seen = cfg
		cfg.Generator.Seed = 7
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(func() { cli.Close(context.Background()) })

	assert.Same(t, seen, cli.Config)
	assert.Equal(t, "2023-03-31", cli.Config.Generator.EndDate)
	assert.Equal(t, uint64(7), cli.Config.Generator.Seed)
	assert.Equal(t, "warn", cli.Config.Logging.Level)
	assert.Equal(t, dir, cli.Config.Paths.BaseDir)
	assert.DirExists(t, cli.Paths.RawDir)
}

func TestNewCLI_ConfigureErrors(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterCommonFlags(fs)
	require.NoError(t, fs.Parse([]string{"-base-dir", t.TempDir()}))

	boom := errors.New("bad flag")
	_, err := NewCLI(flags, func(*config.Config) error { return boom })
	assert.ErrorIs(t, err, boom)

	_, err = NewCLI(flags, func(cfg *config.Config) error {
		cfg.Forecast.Periods = 0
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestCLI_RunPipeline(t *testing.T) {
	cfg := testConfig(t)
	logger, logs := testutil.NewTestLogger(t)
	cli, err := NewCLIWithConfig(cfg, logger)
	require.NoError(t, err)

	opts, err := operations.FinanceOptionsFromConfig(cfg)
	require.NoError(t, err)
	steps, err := operations.FinancePipeline(cli.Environment(), opts)
	require.NoError(t, err)

	state, err := cli.RunPipeline(context.Background(), operations.PipelineFinance, steps, map[string]any{"seed": cfg.Generator.Seed})
	require.NoError(t, err)
	assert.Equal(t, operations.OperationStatusCompleted, state.Status)
	assert.FileExists(t, cli.Paths.FinancialsAnalyticalCSV)
	assert.NotEmpty(t, logs.Records())

	var buf bytes.Buffer
	require.NoError(t, WriteRunSummary(&buf, operations.NewOperationResponse(state)))
	out := buf.String()
	assert.Contains(t, out, "finance pipeline completed")
	assert.Contains(t, out, operations.StepIDGenerate)
	assert.NotContains(t, out, "error:")
}

func TestCLI_RunPipelineFailure(t *testing.T) {
	cli, err := NewCLIWithConfig(testConfig(t), nil)
	require.NoError(t, err)

	steps := operations.SalesPipeline(cli.Environment(), operations.SalesOptions{
		Input:  filepath.Join(t.TempDir(), "missing.csv"),
		Output: cli.Paths.SalesProcessedCSV,
	})
	state, err := cli.RunPipeline(context.Background(), operations.PipelineSales, steps, nil)
	require.Error(t, err)
	require.NotNil(t, state)

	var buf bytes.Buffer
	require.NoError(t, WriteRunSummary(&buf, operations.NewOperationResponse(state)))
	assert.Contains(t, buf.String(), "sales pipeline failed")
	assert.Contains(t, buf.String(), "error:")
}

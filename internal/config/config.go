package config

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "FINOPS"

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Generator GeneratorConfig `yaml:"generator" envconfig:"GENERATOR"`
	Forecast  ForecastConfig  `yaml:"forecast" envconfig:"FORECAST"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port             int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout      time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout      time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"OPERATION_TIMEOUT" default:"10m"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/finops.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir string `yaml:"base_dir" envconfig:"BASE_DIR" default:"."`
}

// GeneratorConfig controls the synthetic finance/operations dataset.
type GeneratorConfig struct {
	Seed      uint64 `yaml:"seed" envconfig:"SEED" default:"42"`
	StartDate string `yaml:"start_date" envconfig:"START_DATE" default:"2021-01-01"`
	EndDate   string `yaml:"end_date" envconfig:"END_DATE" default:"2024-12-31"`
	Charts    bool   `yaml:"charts" envconfig:"CHARTS" default:"false"`
	Workbook  bool   `yaml:"workbook" envconfig:"WORKBOOK" default:"true"`
}

// ForecastConfig controls the regression forecast run.
type ForecastConfig struct {
	Periods           int     `yaml:"periods" envconfig:"PERIODS" default:"6"`
	Category          string  `yaml:"category" envconfig:"CATEGORY" default:"Sales"`
	Scenario          string  `yaml:"scenario" envconfig:"SCENARIO" default:"Baseline"`
	OptimisticFactor  float64 `yaml:"optimistic_factor" envconfig:"OPTIMISTIC_FACTOR" default:"1.05"`
	PessimisticFactor float64 `yaml:"pessimistic_factor" envconfig:"PESSIMISTIC_FACTOR" default:"0.95"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	TraceExporter  string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricExporter string `yaml:"metric_exporter" envconfig:"METRIC_EXPORTER" default:"prometheus"`
	Environment    string `yaml:"environment" envconfig:"ENVIRONMENT" default:"development"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration using the given YAML file, if non-empty.
// Values present in the environment override values from the file.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs overlays file values onto the env-loaded config wherever the
// env value is still the struct-tag default. An explicitly exported variable
// always wins.
func mergeConfigs(fileConfig, envConfig Config) Config {
	defaults := Default()
	mergeStruct(reflect.ValueOf(&envConfig).Elem(), reflect.ValueOf(fileConfig), reflect.ValueOf(*defaults), EnvPrefix)
	return envConfig
}

func mergeStruct(dst, file, def reflect.Value, prefix string) {
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := prefix + "_" + field.Tag.Get("envconfig")
		d, f, df := dst.Field(i), file.Field(i), def.Field(i)

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Duration(0)) {
			mergeStruct(d, f, df, name)
			continue
		}
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if f.IsZero() {
			continue
		}
		if reflect.DeepEqual(d.Interface(), df.Interface()) {
			d.Set(f)
		}
	}
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}
	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	start, err := time.Parse(DateLayout, c.Generator.StartDate)
	if err != nil {
		return fmt.Errorf("invalid generator start date: %w", err)
	}
	end, err := time.Parse(DateLayout, c.Generator.EndDate)
	if err != nil {
		return fmt.Errorf("invalid generator end date: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("generator end date %s is before start date %s", c.Generator.EndDate, c.Generator.StartDate)
	}

	if c.Forecast.Periods < 1 {
		return fmt.Errorf("forecast periods must be at least 1, got %d", c.Forecast.Periods)
	}

	switch c.Telemetry.TraceExporter {
	case "stdout", "none":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}
	switch c.Telemetry.MetricExporter {
	case "prometheus", "none":
	default:
		return fmt.Errorf("unsupported metric exporter: %s", c.Telemetry.MetricExporter)
	}

	return nil
}

// GeneratorRange returns the parsed generator date range.
func (c *Config) GeneratorRange() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, c.Generator.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(DateLayout, c.Generator.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      15 * time.Second,
			WriteTimeout:     60 * time.Second,
			IdleTimeout:      60 * time.Second,
			ShutdownTimeout:  30 * time.Second,
			OperationTimeout: 10 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/finops.log",
		},
		Paths: PathsConfig{
			BaseDir: ".",
		},
		Generator: GeneratorConfig{
			Seed:      DefaultSeed,
			StartDate: "2021-01-01",
			EndDate:   "2024-12-31",
			Workbook:  true,
		},
		Forecast: ForecastConfig{
			Periods:           DefaultForecastPeriods,
			Category:          "Sales",
			Scenario:          "Baseline",
			OptimisticFactor:  1.05,
			PessimisticFactor: 0.95,
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
			Environment:    "development",
		},
	}
}

package operations

import (
	"time"

	"finops/internal/config"
)

// Config represents the pipeline execution configuration
type Config struct {
	// Default timeout for steps without their own entry
	DefaultTimeout time.Duration `json:"default_timeout"`

	// Step-specific timeouts
	StageTimeouts map[string]time.Duration `json:"stage_timeouts"`

	// Retry configuration for steps
	RetryConfig RetryConfig `json:"retry_config"`

	// Whether to keep running independent steps after a failure
	ContinueOnError bool `json:"continue_on_error"`

	// Number of finished runs kept for lookup
	HistorySize int `json:"history_size"`
}

// NewConfig returns the default pipeline configuration
func NewConfig() *Config {
	return &Config{
		DefaultTimeout: DefaultStageTimeout,
		StageTimeouts:  make(map[string]time.Duration),
		RetryConfig:    NewRetryConfig(),
		HistorySize:    20,
	}
}

// ConfigFrom derives the pipeline configuration from the application config:
// the server operation timeout bounds each step.
func ConfigFrom(cfg *config.Config) *Config {
	c := NewConfig()
	if cfg != nil && cfg.Server.OperationTimeout > 0 {
		c.DefaultTimeout = cfg.Server.OperationTimeout
	}
	return c
}

// GetStageTimeout returns the timeout for a specific step
func (c *Config) GetStageTimeout(stepID string) time.Duration {
	if timeout, ok := c.StageTimeouts[stepID]; ok {
		return timeout
	}
	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}
	return DefaultStageTimeout
}

// SetStageTimeout sets the timeout for a specific step
func (c *Config) SetStageTimeout(stepID string, timeout time.Duration) {
	if c.StageTimeouts == nil {
		c.StageTimeouts = make(map[string]time.Duration)
	}
	c.StageTimeouts[stepID] = timeout
}

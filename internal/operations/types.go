package operations

import (
	"time"
)

// Pipeline names
const (
	PipelineFinance    = "finance"
	PipelineSales      = "sales"
	PipelineFinancials = "financial-preprocess"
	PipelineForecast   = "forecast"
)

// Step identifiers
const (
	StepIDGenerate         = "generate"
	StepIDWriteRaw         = "write_raw"
	StepIDAnalytical       = "analytical"
	StepIDWorkbook         = "workbook"
	StepIDCharts           = "charts"
	StepIDLoadSales        = "load_sales"
	StepIDCleanSales       = "clean_sales"
	StepIDSalesFeatures    = "sales_features"
	StepIDSaveSales        = "save_sales"
	StepIDLoadFinancials   = "load_financials"
	StepIDCleanFinancials  = "clean_financials"
	StepIDFinancialFeature = "financial_features"
	StepIDSaveFinancials   = "save_financials"
	StepIDTrain            = "train"
	StepIDForecast         = "forecast"
	StepIDSaveForecast     = "save_forecast"
)

// Context keys for values passed between steps
const (
	ContextKeyDataset    = "dataset"
	ContextKeyAnalytical = "analytical"
	ContextKeyCharts     = "chart_files"
	ContextKeySales      = "sales"
	ContextKeyCleanSales = "clean_sales"
	ContextKeySalesRows  = "processed_sales"
	ContextKeySalesClean = "sales_clean_report"
	ContextKeyFinancials = "financials"
	ContextKeyCleanFin   = "clean_financials"
	ContextKeyFinClean   = "financial_clean_report"
	ContextKeyProcessed  = "processed_financials"
	ContextKeyModel      = "model"
	ContextKeyForecast   = "forecast_result"
)

// Step metadata keys
const (
	MetadataKeyPath  = "path"
	MetadataKeyPaths = "paths"
)

// DefaultStageTimeout bounds a step when the config names none
const DefaultStageTimeout = 10 * time.Minute

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration. Steps here are
// local file work, so a failure is retried only when the step marks it
// retryable.
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  2,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest asks a manager to run its pipeline
type OperationRequest struct {
	ID         string         `json:"id,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// OperationResponse summarizes a finished run
type OperationResponse struct {
	ID       string                `json:"id"`
	Pipeline string                `json:"pipeline"`
	Status   OperationStatusValue  `json:"status"`
	Duration time.Duration         `json:"duration"`
	Rows     int                   `json:"rows"`
	Steps    []*StepState          `json:"steps"`
	Error    string                `json:"error,omitempty"`
}

// NewOperationResponse builds the response for state, with steps in run order
func NewOperationResponse(state *OperationState) *OperationResponse {
	snap := state.Clone()
	resp := &OperationResponse{
		ID:       snap.ID,
		Pipeline: snap.Pipeline,
		Status:   snap.Status,
		Duration: snap.Duration(),
		Rows:     snap.TotalRows(),
		Error:    snap.Error,
	}
	for _, id := range snap.StepOrder {
		resp.Steps = append(resp.Steps, snap.Steps[id])
	}
	return resp
}

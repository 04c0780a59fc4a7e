package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"finops/internal/config"
	"finops/pkg/contracts"
)

// HealthService provides health check functionality
type HealthService struct {
	version    string
	buildTime  string
	paths      *config.Paths
	data       *DataService
	operations *OperationService
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]any           `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. data and operations may be nil.
func NewHealthService(version, buildTime string, paths *config.Paths, data *DataService, operations *OperationService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:    version,
		buildTime:  buildTime,
		paths:      paths,
		data:       data,
		operations: operations,
		startTime:  time.Now(),
		logger:     logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the dashboard can be served
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"data":       hs.checkDataHealth(),
			"operations": hs.checkOperationHealth(),
		},
	}

	for _, sh := range status.Services {
		if sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]any{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]any {
	info := contracts.GetVersionInfo()
	result := map[string]any{
		"version":      hs.version,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"git_commit":   info.GitCommit,
		"data_format":  info.DataFormat,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

// checkDataHealth is ready when the dashboard is cached or the analytical
// tables it loads from exist
func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.data != nil {
		if st := hs.data.Status(); st.Loaded {
			return ServiceHealth{
				Status:  "ready",
				Message: fmt.Sprintf("%d financial and %d operations rows cached", st.FinancialRows, st.OperationsRows),
			}
		}
	}
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}
	for _, path := range []string{hs.paths.FinancialsAnalyticalCSV, hs.paths.OperationsAnalyticalCSV} {
		if _, err := os.Stat(path); err != nil {
			return ServiceHealth{
				Status:  "not_ready",
				Message: fmt.Sprintf("analytical table not found: %s", path),
			}
		}
	}
	return ServiceHealth{Status: "ready", Message: "analytical tables present"}
}

func (hs *HealthService) checkOperationHealth() ServiceHealth {
	if hs.operations == nil {
		return ServiceHealth{Status: "not_ready", Message: "operation service not initialized"}
	}
	if hs.operations.Running() {
		return ServiceHealth{Status: "ready", Message: "pipeline run in progress"}
	}
	return ServiceHealth{Status: "ready", Message: "idle"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]any {
	detail := map[string]any{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
	}
	if hs.data != nil {
		detail["data"] = hs.data.Status()
	}
	return detail
}

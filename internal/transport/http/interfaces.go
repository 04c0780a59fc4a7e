package http

import (
	"context"

	"finops/internal/operations"
	"finops/internal/services"
	"finops/pkg/contracts/domain"
)

// DashboardServiceInterface is what DashboardHandler needs from the data cache
type DashboardServiceInterface interface {
	Dashboard(ctx context.Context, filter domain.DashboardFilter) (domain.Dashboard, error)
	Options(ctx context.Context) (domain.FilterOptions, error)
	Status() services.DataStatus
	Reload(ctx context.Context) error
}

// OperationServiceInterface is what OperationsHandler needs from the pipeline runner
type OperationServiceInterface interface {
	StartGenerate(ctx context.Context, req services.GenerateRequest) (string, error)
	GetOperation(ctx context.Context, id string) (*operations.OperationResponse, error)
	ListOperations(ctx context.Context) []*operations.OperationResponse
	CancelOperation(ctx context.Context, id string) error
}

// HealthServiceInterface is what HealthHandler needs
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]any
	GetDetailedHealth(ctx context.Context) map[string]any
}

var (
	_ DashboardServiceInterface = (*services.DataService)(nil)
	_ OperationServiceInterface = (*services.OperationService)(nil)
	_ HealthServiceInterface    = (*services.HealthService)(nil)
)

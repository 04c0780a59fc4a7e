// Package services is the business layer between the HTTP handlers and the
// pipelines and dashboard computations.
//
// # Available Services
//
//	- DataService: loads the analytical tables once, caches them and builds
//	  dashboard views and filter options from the cache
//	- OperationService: runs the finance pipeline, one run at a time, keeps a
//	  short history of runs and reloads the dashboard cache after a success
//	- HealthService: liveness, readiness and version information
//
// # Error Handling
//
// Services return typed errors that handlers map to problem responses:
//
//	- errors.AppError of type NOT_FOUND when the analytical tables are missing
//	- errors.AppError of type VALIDATION for malformed filters or overrides
//	- ErrOperationRunning when a run is requested while one is in flight
//	- ErrOperationNotFound for unknown run IDs
//
// # Example
//
//	data := services.NewDataService(paths, logger)
//	ops := services.NewOperationService(cfg, paths, data, tracer, logger)
//
//	id, err := ops.StartGenerate(ctx, services.GenerateRequest{})
//	if err != nil {
//	    return err
//	}
//	_ = ops.Wait(ctx)
//	view, err := data.Dashboard(ctx, domain.DashboardFilter{Department: domain.AllValues})
package services

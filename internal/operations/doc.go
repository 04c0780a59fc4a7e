// Package operations runs the batch pipelines: finance (generate the star
// schema, write raw and analytical tables, workbook and charts), sales
// (load, clean, derive features, save) and forecast (load, clean, derive
// features, train, forecast, save).
//
// A pipeline is a set of Steps registered in a Registry. Each step declares
// the steps it depends on; the Manager orders them with Kahn's algorithm and
// runs them one at a time, each under its own timeout. Values flow between
// steps through the OperationState context. When a step fails the remaining
// steps are skipped, or with ContinueOnError only its dependents.
//
// Every run and step attempt gets an OpenTelemetry span, and step counts,
// durations, errors and rows produced are recorded as metrics when the
// manager has a tracer bound to the application's meter.
//
// Example usage:
//
//	env := operations.NewEnvironment(config.NewPaths("."), logger)
//	steps := operations.SalesPipeline(env, operations.SalesOptions{
//		Input:  "data/sample_sales_data.csv",
//		Output: "data/processed_sales_data.csv",
//	})
//	manager, err := operations.NewPipelineManager(operations.PipelineSales, steps, nil, logger)
//	if err != nil {
//		return err
//	}
//	state, err := manager.Run(ctx, operations.OperationRequest{})
package operations

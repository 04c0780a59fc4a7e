// Package http implements the HTTP handlers of the finance and operations
// dashboard service. Handlers stay thin: they parse and validate the request,
// call a service and render the result.
//
// # Routes
//
//	GET  /api/dashboard                 full dashboard for ?start&end&department&region
//	GET  /api/dashboard/finance         finance KPIs and series
//	GET  /api/dashboard/operations      operations KPIs and series
//	GET  /api/dashboard/options         filter values
//	GET  /api/dashboard/status          cache status
//	POST /api/dashboard/reload          reload the analytical tables
//	GET  /api/dashboard/charts          chart names for the filter
//	GET  /api/dashboard/charts/{name}   chart as PNG
//	POST /api/operations/generate       start the generator pipeline (202)
//	GET  /api/operations                runs, newest first (?status&limit)
//	GET  /api/operations/{id}           one run with its steps
//	POST /api/operations/{id}/cancel    cancel the running pipeline
//	GET  /api/files                     generated artefacts
//	GET  /api/files/{name}              download one artefact
//	GET  /api/health[/ready|/live|/detailed], /api/version
//	POST /api/logs                      client-side log forwarding
//
// # Error Handling
//
// Every error is rendered as RFC 7807 problem details by errors.ErrorHandler:
//
//	{
//	    "type": "/errors/data/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "Dashboard dataset has not been generated yet",
//	    "instance": "/api/dashboard",
//	    "error_code": "DATASET_NOT_LOADED",
//	    "trace_id": "..."
//	}
//
// # Testing
//
// Handlers depend on the small interfaces in interfaces.go and are tested
// with testify/mock and httptest.
package http

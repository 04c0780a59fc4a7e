// Package app wires configuration, logging, telemetry, services and the HTTP
// router into a runnable dashboard server.
//
// # Initialization Flow
//
//	1. Load configuration from environment and config file
//	2. Initialize logging and OpenTelemetry
//	3. Resolve and create the data, report and image directories
//	4. Create the data, operation and health services
//	5. Mount the HTTP handlers behind the middleware chain
//	6. Configure the HTTP server
//
// # Usage
//
//	a, err := app.NewApplication(flags, nil)
//	if err != nil {
//	    return err
//	}
//	return a.Run()
//
// # Graceful Shutdown
//
// Run stops on SIGINT or SIGTERM. Stop drains in-flight requests, waits for a
// background generate run to finish and flushes telemetry, all bounded by the
// configured shutdown timeout.
//
// # Error Handling
//
// Initialization errors are returned to the caller. The package never calls
// os.Exit.
package app

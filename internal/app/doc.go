// Package app wires configuration, telemetry, services and the HTTP router
// into a runnable server.
//
// # Initialization Flow
//
//	1. Initialize OpenTelemetry and the analysis metrics
//	2. Build the loader, engine and exporter
//	3. Create the report library and schedule its refresh, when enabled
//	4. Set up middleware and handlers
//	5. Create the HTTP server
//
// # Graceful Shutdown
//
// Run stops on SIGINT, SIGTERM or a cancelled context. The server drains
// active requests, the scheduler waits for a running library scan, and the
// telemetry providers are flushed, all within Server.ShutdownTimeout.
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app

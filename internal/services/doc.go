// Package services sits between the transports (HTTP, CLI, scheduler) and
// the usage engine.
//
// AnalysisService loads reports through the loader, runs the analyzer and
// records metrics. LibraryService keeps the latest analysis of the
// configured reports directory or S3 prefix and is refreshed on a schedule.
// HealthService answers the health and readiness probes.
//
// Services receive their logger and collaborators by constructor
// injection; a nil logger falls back to slog.Default().
package services

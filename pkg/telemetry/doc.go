// Package telemetry groups the observability packages of the archiver.
//
//   - logging: structured slog output with secret redaction
//   - metrics: prometheus counters and step histograms, served by the
//     schedule command or written to a node exporter textfile
//   - tracing: OpenTelemetry spans for runs and their steps
//   - health: liveness and readiness endpoints for the schedule command
package telemetry

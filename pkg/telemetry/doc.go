// Package telemetry groups the observability packages used by the
// pipeline:
//
//   - logging: slog handler with secret redaction and context fields
//   - metrics: Prometheus collector for requests, attempts, tokens and validation
//   - tracing: OpenTelemetry spans for pipeline runs and provider attempts
//   - health: liveness and readiness probes backed by provider handle health
//
// Each is optional. A nil *metrics.Collector or *tracing.Tracer is a
// no-op, so the pipeline wires whatever the configuration enables.
package telemetry

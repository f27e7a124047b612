// Package tracing provides OpenTelemetry tracing for pipeline runs.
//
// Each Execute call opens a "pipeline.execute" span; every provider call
// made by the retry loop becomes a child "provider.attempt" client span.
// Spans carry ajala.* attributes (provider, model, request ID, attempt,
// token counts, validation outcome) and the module error code on failure.
//
// Spans are exported over OTLP/gRPC:
//
//	telemetry:
//	  tracing:
//	    enabled: true
//	    sampler: ratio
//	    sample_ratio: 0.1
//	    endpoint: localhost:4317
//
// A disabled or nil *Tracer hands out noop spans.
package tracing

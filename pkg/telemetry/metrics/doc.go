// Package metrics provides Prometheus metrics for the request pipeline.
//
// # Metrics Categories
//
//   - Request Metrics: executions, end-to-end duration, attempts, tokens
//   - Provider Metrics: per-call latency, errors and retries by code, health
//   - Validation Metrics: validation results, issues, transformations
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//
//	collector.RecordAttempt("claude", "claude-3-5-sonnet-20241022", 850*time.Millisecond)
//	collector.RecordRetry("claude", "RATE_LIMIT_ERROR")
//	collector.RecordRequest("claude", "claude-3-5-sonnet-20241022", "success", 2*time.Second, 2)
//
// A nil *Collector records nothing, so callers never need to check whether
// metrics are configured.
//
// # Custom Histogram Buckets
//
//	Request Duration: 0.1s, 0.25s, 0.5s, 1s, 2s, 5s, 10s, 30s
//	Token Counts: 100, 500, 1K, 5K, 10K, 50K, 100K
//
// # Cardinality Management
//
// Request label sets beyond 10,000 distinct combinations have their model
// label folded into "other".
package metrics

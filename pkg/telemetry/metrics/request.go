package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ajala-hq/ajala/pkg/config"
)

// RequestMetrics tracks pipeline executions.
//
// Metrics:
//   - ajala_pipeline_requests_total: executions by provider, model, status
//   - ajala_pipeline_request_duration_seconds: end-to-end duration
//   - ajala_pipeline_request_attempts: provider attempts per execution
//   - ajala_pipeline_request_tokens: tokens per execution by direction
//   - ajala_pipeline_tokens_total: total tokens by direction
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attempts        *prometheus.HistogramVec
	tokens          *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of pipeline executions",
			},
			[]string{"provider", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end duration of pipeline executions in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "model"},
		),

		attempts: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_attempts",
				Help:      "Provider attempts made per pipeline execution",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
			[]string{"provider"},
		),

		tokens: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_tokens",
				Help:      "Tokens per pipeline execution",
				Buckets:   cfg.TokenCountBuckets,
			},
			[]string{"provider", "model", "type"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "tokens_total",
				Help:      "Total number of tokens reported by providers",
			},
			[]string{"provider", "model", "type"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.attempts,
		rm.tokens,
		rm.tokensTotal,
	)

	return rm
}

// RecordRequest records metrics for a finished execution.
func (rm *RequestMetrics) RecordRequest(provider, model, status string, duration time.Duration, attempts int) {
	rm.requestsTotal.WithLabelValues(provider, model, status).Inc()
	rm.requestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	if attempts > 0 {
		rm.attempts.WithLabelValues(provider).Observe(float64(attempts))
	}
}

// RecordTokens records token counts separately for input and output.
func (rm *RequestMetrics) RecordTokens(provider, model string, inputTokens, outputTokens int) {
	if inputTokens > 0 {
		rm.tokens.WithLabelValues(provider, model, "input").Observe(float64(inputTokens))
		rm.tokensTotal.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		rm.tokens.WithLabelValues(provider, model, "output").Observe(float64(outputTokens))
		rm.tokensTotal.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

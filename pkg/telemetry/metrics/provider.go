package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"ajala-hq/ajala/pkg/config"
)

// ProviderMetrics tracks individual provider calls.
//
// Metrics:
//   - ajala_pipeline_provider_health: provider health status (1=healthy, 0=unhealthy)
//   - ajala_pipeline_provider_latency_seconds: provider call latency
//   - ajala_pipeline_provider_errors_total: failed calls by error code
//   - ajala_pipeline_provider_requests_total: calls by provider and model
//   - ajala_pipeline_retries_total: retries scheduled by error code
type ProviderMetrics struct {
	health   *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
}

// NewProviderMetrics creates and registers provider metrics with the provided registry.
func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	pm := &ProviderMetrics{
		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_health",
				Help:      "Provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_latency_seconds",
				Help:      "Provider call latency in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "model"},
		),

		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_errors_total",
				Help:      "Total number of failed provider calls by error code",
			},
			[]string{"provider", "code"},
		),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "provider_requests_total",
				Help:      "Total number of calls to each provider",
			},
			[]string{"provider", "model"},
		),

		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retries_total",
				Help:      "Total number of retries scheduled by error code",
			},
			[]string{"provider", "code"},
		),
	}

	registry.MustRegister(
		pm.health,
		pm.latency,
		pm.errors,
		pm.requests,
		pm.retries,
	)

	return pm
}

// UpdateHealth updates the health status of a provider.
func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	pm.health.WithLabelValues(provider).Set(value)
}

// RecordLatency records the latency of a provider call.
func (pm *ProviderMetrics) RecordLatency(provider, model string, latencySeconds float64) {
	pm.latency.WithLabelValues(provider, model).Observe(latencySeconds)
}

// RecordError records a failed call. code is the error code name
// (e.g. "RATE_LIMIT_ERROR").
func (pm *ProviderMetrics) RecordError(provider, code string) {
	pm.errors.WithLabelValues(provider, code).Inc()
}

// RecordRequest records a call to a provider.
func (pm *ProviderMetrics) RecordRequest(provider, model string) {
	pm.requests.WithLabelValues(provider, model).Inc()
}

// RecordRetry records a retry scheduled after a failed call.
func (pm *ProviderMetrics) RecordRetry(provider, code string) {
	pm.retries.WithLabelValues(provider, code).Inc()
}

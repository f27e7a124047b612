package metrics

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/schema"
)

// maxCardinality bounds the number of distinct request label sets.
const maxCardinality = 10000

// Collector records pipeline metrics into a Prometheus registry.
// A nil *Collector is valid and records nothing.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics    *RequestMetrics
	providerMetrics   *ProviderMetrics
	validationMetrics *ValidationMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
// Empty names and buckets fall back to the configuration defaults.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	http.Handle("/metrics", collector.Handler())
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		cfg.RequestDurationBuckets = config.DefaultRequestDurationBuckets
	}
	if len(cfg.TokenCountBuckets) == 0 {
		cfg.TokenCountBuckets = config.DefaultTokenCountBuckets
	}
	cfg.RequestDurationBuckets = slices.Clone(cfg.RequestDurationBuckets)
	cfg.TokenCountBuckets = slices.Clone(cfg.TokenCountBuckets)

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(maxCardinality),
	}

	c.requestMetrics = NewRequestMetrics(&c.config, registry)
	c.providerMetrics = NewProviderMetrics(&c.config, registry)
	c.validationMetrics = NewValidationMetrics(&c.config, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRequest records one finished pipeline execution.
//
// Parameters:
//   - provider: provider name ("claude", "openai", "mock")
//   - model: resolved model
//   - status: "success" or the error code name (e.g. "TIMEOUT_ERROR")
//   - duration: end-to-end execution time
//   - attempts: provider attempts made
func (c *Collector) RecordRequest(provider, model, status string, duration time.Duration, attempts int) {
	if !c.enabled() {
		return
	}

	labelSet := fmt.Sprintf("request:%s:%s:%s", provider, model, status)
	if !c.cardinalityLimiter.Allow(labelSet) {
		// Aggregate into "other" to prevent cardinality explosion
		model = "other"
	}

	c.requestMetrics.RecordRequest(provider, model, status, duration, attempts)
}

// RecordTokens records token usage reported by a provider.
func (c *Collector) RecordTokens(provider, model string, inputTokens, outputTokens int) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordTokens(provider, model, inputTokens, outputTokens)
}

// RecordAttempt records one provider call and its latency.
func (c *Collector) RecordAttempt(provider, model string, latency time.Duration) {
	if !c.enabled() {
		return
	}
	c.providerMetrics.RecordRequest(provider, model)
	c.providerMetrics.RecordLatency(provider, model, latency.Seconds())
}

// RecordProviderError records a failed provider call by error code name.
func (c *Collector) RecordProviderError(provider, code string) {
	if !c.enabled() {
		return
	}
	c.providerMetrics.RecordError(provider, code)
}

// RecordRetry records a retry scheduled after a failed attempt.
func (c *Collector) RecordRetry(provider, code string) {
	if !c.enabled() {
		return
	}
	c.providerMetrics.RecordRetry(provider, code)
}

// UpdateProviderHealth updates the health status of a provider.
// The health metric is a gauge where 1=healthy, 0=unhealthy.
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if !c.enabled() {
		return
	}
	c.providerMetrics.UpdateHealth(provider, healthy)
}

// RecordValidation records the outcome of one schema validation.
func (c *Collector) RecordValidation(res *schema.Result) {
	if !c.enabled() || res == nil {
		return
	}
	c.validationMetrics.Record(res)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow checks if a label set is allowed. Returns true if the label set
// already exists or if we haven't reached the cardinality limit yet.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

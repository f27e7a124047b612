package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/schema"
)

// ValidationMetrics tracks schema validation of provider output.
//
// Metrics:
//   - ajala_pipeline_validations_total: validations by result ("valid", "invalid")
//   - ajala_pipeline_validation_issues_total: issues by code and severity
//   - ajala_pipeline_transformations_total: applied transformations by kind
type ValidationMetrics struct {
	validationsTotal     *prometheus.CounterVec
	issuesTotal          *prometheus.CounterVec
	transformationsTotal *prometheus.CounterVec
}

// NewValidationMetrics creates and registers validation metrics with the provided registry.
func NewValidationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ValidationMetrics {
	vm := &ValidationMetrics{
		validationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validations_total",
				Help:      "Total number of schema validations by result",
			},
			[]string{"result"},
		),

		issuesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "validation_issues_total",
				Help:      "Total number of validation issues by code and severity",
			},
			[]string{"code", "severity"},
		),

		transformationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "transformations_total",
				Help:      "Total number of value transformations by kind",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		vm.validationsTotal,
		vm.issuesTotal,
		vm.transformationsTotal,
	)

	return vm
}

// Record records one validation result.
func (vm *ValidationMetrics) Record(res *schema.Result) {
	result := "valid"
	if !res.Valid {
		result = "invalid"
	}
	vm.validationsTotal.WithLabelValues(result).Inc()

	for _, issue := range res.Issues {
		vm.issuesTotal.WithLabelValues(string(issue.Code), string(issue.Severity)).Inc()
	}
	for _, tr := range res.Transformations {
		vm.transformationsTotal.WithLabelValues(string(tr.Kind)).Inc()
	}
}

package config

import (
	"time"

	"ajala-hq/ajala/pkg/retry"
	"ajala-hq/ajala/pkg/schema"
)

// Default values for configuration fields.
const (
	// Settings defaults
	DefaultRetryOnFail = true
	DefaultCachable    = false
	DefaultTrimPrompt  = true
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultDebug       = false

	// JSON defaults
	DefaultJSONStrict           = false
	DefaultJSONAutoFix          = true
	DefaultJSONUseDefaults      = true
	DefaultJSONCoerceTypes      = true
	DefaultJSONRemoveAdditional = false
	DefaultJSONFailFast         = false

	// Validation defaults
	DefaultEnableWarnings = true

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultLoggingRedactSecrets = true
	DefaultMetricsEnabled       = true
	DefaultMetricsNamespace     = "ajala"
	DefaultMetricsSubsystem     = "pipeline"
	DefaultTracingEnabled       = false
	DefaultTracingSampler       = "ratio"
	DefaultTracingSampleRatio   = 0.1
	DefaultTracingServiceName   = "ajala"
	DefaultTracingInsecure      = true
	DefaultTracingTimeout       = 10 * time.Second

	// Journal defaults
	DefaultJournalEnabled    = false
	DefaultJournalBackend    = "sqlite"
	DefaultJournalPath       = "data/journal.db"
	DefaultRetentionDays     = 30
	DefaultRetentionSchedule = "0 3 * * *"
)

// Default histogram buckets.
var (
	DefaultRequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0}
	DefaultTokenCountBuckets      = []float64{100, 500, 1000, 5000, 10000, 50000, 100000}
)

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	cfg := baseConfig()
	ApplyDefaults(cfg)
	return cfg
}

// baseConfig holds only the defaults ApplyDefaults cannot infer from zero
// values. Files are decoded on top of it so that an explicit false survives.
func baseConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			RetryOnFail: DefaultRetryOnFail,
			Cachable:    DefaultCachable,
			TrimPrompt:  DefaultTrimPrompt,
			Debug:       DefaultDebug,
		},
		JSON: JSONConfig{
			Strict:           DefaultJSONStrict,
			AutoFix:          DefaultJSONAutoFix,
			UseDefaults:      DefaultJSONUseDefaults,
			CoerceTypes:      DefaultJSONCoerceTypes,
			RemoveAdditional: DefaultJSONRemoveAdditional,
			FailFast:         DefaultJSONFailFast,
		},
		Validation: ValidationConfig{
			EnableWarnings: DefaultEnableWarnings,
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				RedactSecrets: DefaultLoggingRedactSecrets,
			},
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
			},
			Tracing: TracingConfig{
				Enabled:  DefaultTracingEnabled,
				Insecure: DefaultTracingInsecure,
			},
		},
		Journal: JournalConfig{
			Enabled:   DefaultJournalEnabled,
			Retention: RetentionConfig{Days: DefaultRetentionDays},
		},
	}
}

// ApplyDefaults fills zero-valued fields with their defaults. Boolean
// fields and retention days (where zero is meaningful) are left alone; see
// DefaultConfig.
func ApplyDefaults(cfg *Config) {
	applySettingsDefaults(&cfg.Settings)
	applyRetryDefaults(&cfg.Retry, cfg.Settings.MaxRetries)
	applyValidationDefaults(&cfg.Validation)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyJournalDefaults(&cfg.Journal)
}

func applySettingsDefaults(s *SettingsConfig) {
	if s.Timeout == 0 {
		s.Timeout = DefaultTimeout
	}
	if s.MaxRetries == 0 {
		s.MaxRetries = DefaultMaxRetries
	}
}

// applyRetryDefaults derives max_attempts from max_retries when the retry
// section leaves it unset.
func applyRetryDefaults(p *retry.Policy, maxRetries int) {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = maxRetries
	}
	if p.InitialDelay == 0 {
		p.InitialDelay = retry.DefaultInitialDelay
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = retry.DefaultMaxDelay
	}
	if p.BackoffFactor == 0 {
		p.BackoffFactor = retry.DefaultBackoffFactor
	}
}

func applyValidationDefaults(v *ValidationConfig) {
	d := schema.DefaultLimits()
	if v.MaxDepth == 0 {
		v.MaxDepth = d.MaxDepth
	}
	if v.MaxProperties == 0 {
		v.MaxProperties = d.MaxProperties
	}
	if v.MaxArrayLength == 0 {
		v.MaxArrayLength = d.MaxArrayLength
	}
	if v.MaxStringLength == 0 {
		v.MaxStringLength = d.MaxStringLength
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLoggingLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLoggingFormat
	}

	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.RequestDurationBuckets) == 0 {
		t.Metrics.RequestDurationBuckets = append([]float64(nil), DefaultRequestDurationBuckets...)
	}
	if len(t.Metrics.TokenCountBuckets) == 0 {
		t.Metrics.TokenCountBuckets = append([]float64(nil), DefaultTokenCountBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 && t.Tracing.Sampler == "ratio" {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
}

func applyJournalDefaults(j *JournalConfig) {
	if j.Backend == "" {
		j.Backend = DefaultJournalBackend
	}
	if j.Path == "" && j.Backend == "sqlite" {
		j.Path = DefaultJournalPath
	}
	if j.Retention.Schedule == "" {
		j.Retention.Schedule = DefaultRetentionSchedule
	}
}

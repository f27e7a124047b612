package config

import (
	"time"

	"ajala-hq/ajala/pkg/ratelimit"
	"ajala-hq/ajala/pkg/retry"
	"ajala-hq/ajala/pkg/schema"
	"ajala-hq/ajala/pkg/tokens"
)

// Config is the root configuration structure for Ajala.
// It contains the pipeline defaults, provider catalog overrides, telemetry
// and the execution journal.
type Config struct {
	// Settings contains the global request defaults that every request
	// inherits unless it overrides them.
	Settings SettingsConfig `yaml:"settings"`

	// JSON controls how provider output is parsed and coerced.
	JSON JSONConfig `yaml:"json"`

	// Retry is the default retry policy. When max_attempts is omitted it is
	// taken from settings.max_retries.
	Retry retry.Policy `yaml:"retry"`

	// Validation contains the validator safety ceilings and warning
	// downgrades.
	Validation ValidationConfig `yaml:"validation"`

	// Providers contains per-provider settings.
	// Keys are provider names ("claude", "openai", "mock").
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Tokens tunes the token estimator used when a provider reports no
	// usage and by "ajala render --tokens".
	Tokens tokens.Config `yaml:"tokens"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Journal contains configuration for the execution journal.
	Journal JournalConfig `yaml:"journal"`
}

// SettingsConfig contains the global request defaults.
type SettingsConfig struct {
	// RetryOnFail enables retrying transient provider failures.
	// Default: true
	RetryOnFail bool `yaml:"retry_on_fail"`

	// Cachable marks requests as eligible for an external cache.
	// Default: false
	Cachable bool `yaml:"cachable"`

	// TrimPrompt collapses whitespace runs in the rendered prompt.
	// Default: true
	TrimPrompt bool `yaml:"trim_prompt"`

	// Timeout is the absolute deadline for one request, shared by all
	// attempts.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the default attempt budget.
	// Default: 3
	MaxRetries int `yaml:"max_retries"`

	// Debug logs rendered prompts and raw responses at debug level.
	// Default: false
	Debug bool `yaml:"debug"`
}

// JSONConfig contains JSON parsing and coercion options.
type JSONConfig struct {
	// Default: false
	Strict bool `yaml:"strict"`

	// Default: true
	AutoFix bool `yaml:"auto_fix"`

	// Default: true
	UseDefaults bool `yaml:"use_defaults"`

	// Default: true
	CoerceTypes bool `yaml:"coerce_types"`

	// Default: false
	RemoveAdditional bool `yaml:"remove_additional"`

	// Default: false
	FailFast bool `yaml:"fail_fast"`
}

// ValidationConfig contains validator limits.
type ValidationConfig struct {
	schema.Limits `yaml:",inline"`

	// EnableWarnings downgrades the codes in Warnings to warning severity.
	// Default: true
	EnableWarnings bool `yaml:"enable_warnings"`

	// Warnings lists issue codes reported as warnings.
	Warnings []schema.Code `yaml:"warnings"`
}

// ProviderConfig contains configuration for a single LLM provider.
type ProviderConfig struct {
	// APIKey is the authentication key for the provider. It may be a
	// secret reference, ${env:NAME} or ${file:path}, resolved at load time.
	// Prefer references or AJALA_PROVIDERS_<NAME>_API_KEY over committing
	// keys to the file.
	APIKey string `yaml:"api_key"`

	// Organization is forwarded to providers that support it (OpenAI).
	Organization string `yaml:"organization"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url"`

	// Timeout is the per-call HTTP timeout.
	// Default: 60s (adapter default)
	Timeout time.Duration `yaml:"timeout"`

	// Models replaces the built-in model catalog.
	Models []string `yaml:"models"`

	// DefaultModel is used when a request names no model.
	DefaultModel string `yaml:"default_model"`

	// RateLimit throttles calls to this provider. Unset means unlimited.
	RateLimit ratelimit.Config `yaml:"rate_limit"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets masks API keys, bearer tokens and credential fields.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// RedactPatterns contains custom redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	// Default: "ajala"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "pipeline"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets defines histogram buckets for request duration (seconds).
	// Default: [0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`

	// TokenCountBuckets defines histogram buckets for token counts.
	// Default: [100, 500, 1000, 5000, 10000, 50000, 100000]
	TokenCountBuckets []float64 `yaml:"token_count_buckets"`

	// Listen is the address of the telemetry HTTP server exposing
	// /metrics, /healthz and /readyz (e.g. ":9090"). Empty disables it.
	Listen string `yaml:"listen"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP/gRPC collector endpoint (e.g. "localhost:4317").
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "ajala"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// JournalConfig contains configuration for the execution journal.
type JournalConfig struct {
	// Enabled controls whether pipeline runs are journaled.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file.
	// Default: "data/journal.db"
	Path string `yaml:"path"`

	// Retention controls pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is the number of days to retain records.
	// 0 keeps records forever.
	// Default: 30
	Days int `yaml:"days"`

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// Schedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`
}

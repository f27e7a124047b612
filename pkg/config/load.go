package config

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ajala-hq/ajala/pkg/secrets"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "AJALA_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := readFile(path)
	if err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention AJALA_SECTION_FIELD (e.g., AJALA_SETTINGS_TIMEOUT).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (an empty path starts from the defaults)
// 2. Apply environment variable overrides
// 3. Resolve ${env:...} and ${file:...} references in provider API keys
// 4. Apply default values
// 5. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := baseConfig()
	baseDir := ""
	if path != "" {
		var err error
		if cfg, err = readFile(path); err != nil {
			return nil, err
		}
		baseDir = filepath.Dir(path)
	}

	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := ResolveSecrets(context.Background(), cfg, secrets.Default(baseDir)); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("after environment overrides: %w", err)
	}
	return cfg, nil
}

// ResolveSecrets replaces secret references in every provider API key.
// Relative file references resolve against the config file's directory.
func ResolveSecrets(ctx context.Context, cfg *Config, m *secrets.Manager) error {
	var errs []FieldError
	for _, name := range slices.Sorted(maps.Keys(cfg.Providers)) {
		p := cfg.Providers[name]
		if !secrets.IsReference(p.APIKey) {
			continue
		}
		key, err := m.Resolve(ctx, p.APIKey)
		if err != nil {
			errs = append(errs, FieldError{
				Field:   "providers." + name + ".api_key",
				Message: err.Error(),
			})
			continue
		}
		p.APIKey = key
		cfg.Providers[name] = p
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// Parse decodes YAML on top of the boolean defaults. Unknown keys are
// rejected so typos surface instead of silently keeping a default.
func Parse(data []byte) (*Config, error) {
	cfg := baseConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// envReader collects parse failures so one bad variable does not hide
// another.
type envReader struct {
	getenv func(string) string
	errs   []FieldError
}

func (r *envReader) str(name string, dst *string) {
	if v := r.getenv(EnvPrefix + name); v != "" {
		*dst = v
	}
}

func (r *envReader) boolean(name string, dst *bool) {
	v := r.getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(name, v, "a boolean")
		return
	}
	*dst = b
}

func (r *envReader) integer(name string, dst *int) {
	v := r.getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		r.fail(name, v, "an integer")
		return
	}
	*dst = i
}

func (r *envReader) int64(name string, dst *int64) {
	v := r.getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(name, v, "an integer")
		return
	}
	*dst = i
}

func (r *envReader) float(name string, dst *float64) {
	v := r.getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(name, v, "a number")
		return
	}
	*dst = f
}

func (r *envReader) duration(name string, dst *time.Duration) {
	v := r.getenv(EnvPrefix + name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(name, v, "a duration")
		return
	}
	*dst = d
}

func (r *envReader) fail(name, value, want string) {
	r.errs = append(r.errs, FieldError{
		Field:   EnvPrefix + name,
		Message: fmt.Sprintf("%q is not %s", value, want),
	})
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables use the format AJALA_SECTION_FIELD.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	r := &envReader{getenv: getenv}

	// Settings overrides
	r.boolean("SETTINGS_RETRY_ON_FAIL", &cfg.Settings.RetryOnFail)
	r.boolean("SETTINGS_CACHABLE", &cfg.Settings.Cachable)
	r.boolean("SETTINGS_TRIM_PROMPT", &cfg.Settings.TrimPrompt)
	r.duration("SETTINGS_TIMEOUT", &cfg.Settings.Timeout)
	r.integer("SETTINGS_MAX_RETRIES", &cfg.Settings.MaxRetries)
	r.boolean("SETTINGS_DEBUG", &cfg.Settings.Debug)

	// JSON overrides
	r.boolean("JSON_STRICT", &cfg.JSON.Strict)
	r.boolean("JSON_AUTO_FIX", &cfg.JSON.AutoFix)
	r.boolean("JSON_USE_DEFAULTS", &cfg.JSON.UseDefaults)
	r.boolean("JSON_COERCE_TYPES", &cfg.JSON.CoerceTypes)
	r.boolean("JSON_REMOVE_ADDITIONAL", &cfg.JSON.RemoveAdditional)
	r.boolean("JSON_FAIL_FAST", &cfg.JSON.FailFast)

	// Retry overrides
	r.integer("RETRY_MAX_ATTEMPTS", &cfg.Retry.MaxAttempts)
	r.duration("RETRY_INITIAL_DELAY", &cfg.Retry.InitialDelay)
	r.duration("RETRY_MAX_DELAY", &cfg.Retry.MaxDelay)
	r.float("RETRY_BACKOFF_FACTOR", &cfg.Retry.BackoffFactor)
	r.float("RETRY_JITTER", &cfg.Retry.Jitter)

	// Provider overrides for the closed provider set
	for _, name := range []string{"claude", "openai", "mock"} {
		applyProviderEnvOverrides(cfg, r, name)
	}

	// Telemetry overrides
	r.str("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	r.str("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	r.boolean("TELEMETRY_LOGGING_REDACT_SECRETS", &cfg.Telemetry.Logging.RedactSecrets)
	r.boolean("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	r.str("TELEMETRY_METRICS_LISTEN", &cfg.Telemetry.Metrics.Listen)
	r.boolean("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	r.str("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	r.str("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	r.float("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)

	// Journal overrides
	r.boolean("JOURNAL_ENABLED", &cfg.Journal.Enabled)
	r.str("JOURNAL_BACKEND", &cfg.Journal.Backend)
	r.str("JOURNAL_PATH", &cfg.Journal.Path)
	r.integer("JOURNAL_RETENTION_DAYS", &cfg.Journal.Retention.Days)
	r.int64("JOURNAL_RETENTION_MAX_RECORDS", &cfg.Journal.Retention.MaxRecords)
	r.str("JOURNAL_RETENTION_SCHEDULE", &cfg.Journal.Retention.Schedule)

	if len(r.errs) > 0 {
		return ValidationError{Errors: r.errs}
	}
	return nil
}

// applyProviderEnvOverrides applies environment variable overrides for a specific provider.
// Provider environment variables follow the format AJALA_PROVIDERS_<NAME>_<FIELD>
// where NAME is the uppercase provider name.
func applyProviderEnvOverrides(cfg *Config, r *envReader, providerName string) {
	provider, exists := cfg.Providers[providerName]

	prefix := "PROVIDERS_" + strings.ToUpper(providerName) + "_"
	before := fmt.Sprint(provider)

	r.str(prefix+"API_KEY", &provider.APIKey)
	r.str(prefix+"ORGANIZATION", &provider.Organization)
	r.str(prefix+"BASE_URL", &provider.BaseURL)
	r.duration(prefix+"TIMEOUT", &provider.Timeout)
	r.str(prefix+"DEFAULT_MODEL", &provider.DefaultModel)
	r.integer(prefix+"RATE_LIMIT_REQUESTS_PER_MINUTE", &provider.RateLimit.RequestsPerMinute)
	r.integer(prefix+"RATE_LIMIT_BURST", &provider.RateLimit.Burst)
	r.integer(prefix+"RATE_LIMIT_MAX_CONCURRENT", &provider.RateLimit.MaxConcurrent)
	if v := r.getenv(EnvPrefix + prefix + "MODELS"); v != "" {
		provider.Models = splitList(v)
	}

	// Only update the map if we found at least one override
	if exists || fmt.Sprint(provider) != before {
		if cfg.Providers == nil {
			cfg.Providers = make(map[string]ProviderConfig)
		}
		cfg.Providers[providerName] = provider
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

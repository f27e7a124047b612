package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"

	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/providers"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "settings.timeout").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Code implements codes.Coder.
func (e ValidationError) Code() codes.Code {
	return codes.InvalidConfig
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateSettings(&cfg.Settings)...)
	errs = append(errs, validateRetry(cfg)...)
	errs = append(errs, validateValidation(&cfg.Validation)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	if err := cfg.Tokens.Validate(); err != nil {
		errs = append(errs, FieldError{Field: "tokens.chars_per_token", Message: err.Error()})
	}
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateJournal(&cfg.Journal)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateSettings(s *SettingsConfig) []FieldError {
	var errs []FieldError

	if s.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "settings.timeout",
			Message: "timeout must be positive",
		})
	}
	if s.MaxRetries < 1 {
		errs = append(errs, FieldError{
			Field:   "settings.max_retries",
			Message: "max retries must be at least 1",
		})
	}
	if s.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   "settings.max_retries",
			Message: "max retries exceeds reasonable limit (10)",
		})
	}
	return errs
}

func validateRetry(cfg *Config) []FieldError {
	var errs []FieldError
	if err := cfg.Retry.Validate(); err != nil {
		msg := err.Error()
		var ce *codes.Error
		if errors.As(err, &ce) {
			msg = ce.Message
		}
		errs = append(errs, FieldError{Field: "retry", Message: msg})
	}
	return errs
}

func validateValidation(v *ValidationConfig) []FieldError {
	var errs []FieldError

	limits := []struct {
		field string
		value int
	}{
		{"validation.max_depth", v.MaxDepth},
		{"validation.max_properties", v.MaxProperties},
		{"validation.max_array_length", v.MaxArrayLength},
		{"validation.max_string_length", v.MaxStringLength},
	}
	for _, l := range limits {
		if l.value < 0 {
			errs = append(errs, FieldError{Field: l.field, Message: "must be non-negative"})
		}
	}

	for i, code := range v.Warnings {
		if !code.Known() {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("validation.warnings[%d]", i),
				Message: fmt.Sprintf("unknown issue code %q", string(code)),
			})
		}
	}
	return errs
}

// validateProviders validates provider configurations.
func validateProviders(provs map[string]ProviderConfig) []FieldError {
	var errs []FieldError

	names := make([]string, 0, len(provs))
	for name := range provs {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		provider := provs[name]
		prefix := "providers." + name

		if _, err := providers.ParseName(name); err != nil {
			errs = append(errs, FieldError{
				Field:   prefix,
				Message: err.Error(),
			})
			continue
		}

		if provider.BaseURL != "" {
			u, err := url.Parse(provider.BaseURL)
			if err != nil {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: fmt.Sprintf("invalid URL format: %v", err),
				})
			} else if u.Scheme != "http" && u.Scheme != "https" {
				errs = append(errs, FieldError{
					Field:   prefix + ".base_url",
					Message: "URL must use http or https",
				})
			}
		}

		if provider.Timeout < 0 {
			errs = append(errs, FieldError{
				Field:   prefix + ".timeout",
				Message: "timeout must be positive",
			})
		}

		if err := provider.RateLimit.Validate(); err != nil {
			errs = append(errs, FieldError{
				Field:   prefix + ".rate_limit",
				Message: err.Error(),
			})
		}

		if provider.DefaultModel != "" && len(provider.Models) > 0 && !slices.Contains(provider.Models, provider.DefaultModel) {
			errs = append(errs, FieldError{
				Field:   prefix + ".default_model",
				Message: fmt.Sprintf("default model %q is not in models", provider.DefaultModel),
			})
		}
	}

	return errs
}

func validateTelemetry(t *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch strings.ToLower(t.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn or error)", t.Logging.Level),
		})
	}
	switch strings.ToLower(t.Logging.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json, text or console)", t.Logging.Format),
		})
	}
	for i, p := range t.Logging.RedactPatterns {
		if p.Pattern == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: "pattern is required",
			})
		}
	}

	if t.Metrics.Listen != "" {
		if _, _, err := net.SplitHostPort(t.Metrics.Listen); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.listen",
				Message: fmt.Sprintf("invalid listen address %q: %v", t.Metrics.Listen, err),
			})
		}
	}

	if t.Tracing.Enabled {
		switch t.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be always, never or ratio)", t.Tracing.Sampler),
			})
		}
		if t.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
	}
	if t.Tracing.SampleRatio < 0 || t.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0 and 1",
		})
	}

	return errs
}

func validateJournal(j *JournalConfig) []FieldError {
	var errs []FieldError

	switch j.Backend {
	case "memory":
	case "sqlite":
		if j.Path == "" {
			errs = append(errs, FieldError{
				Field:   "journal.path",
				Message: "path is required for the sqlite backend",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "journal.backend",
			Message: fmt.Sprintf("invalid backend %q (must be memory or sqlite)", j.Backend),
		})
	}

	if j.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if j.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "journal.retention.max_records",
			Message: "max records must be non-negative",
		})
	}
	if j.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(j.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "journal.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

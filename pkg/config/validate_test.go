package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/ratelimit"
	"ajala-hq/ajala/pkg/schema"
	"ajala-hq/ajala/pkg/tokens"
)

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	var validationErr ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(validationErr.Errors) < 2 {
		t.Errorf("expected multiple errors, got %d", len(validationErr.Errors))
	}
	if !strings.Contains(validationErr.Error(), "validation failed with") {
		t.Errorf("error message should mention multiple errors: %s", validationErr.Error())
	}
	if codes.Of(err) != codes.InvalidConfig {
		t.Errorf("expected INVALID_CONFIG, got %s", codes.Of(err))
	}
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		errorField string
	}{
		{
			name:       "zero timeout",
			mutate:     func(c *Config) { c.Settings.Timeout = 0 },
			errorField: "settings.timeout",
		},
		{
			name:       "zero max retries",
			mutate:     func(c *Config) { c.Settings.MaxRetries = 0 },
			errorField: "settings.max_retries",
		},
		{
			name:       "too many retries",
			mutate:     func(c *Config) { c.Settings.MaxRetries = 11 },
			errorField: "settings.max_retries",
		},
		{
			name:       "initial delay above max delay",
			mutate:     func(c *Config) { c.Retry.InitialDelay = 20 * time.Second },
			errorField: "retry",
		},
		{
			name:       "unknown retryable code",
			mutate:     func(c *Config) { c.Retry.Retryable = []codes.Code{"AJALA_999"} },
			errorField: "retry",
		},
		{
			name:       "negative limit",
			mutate:     func(c *Config) { c.Validation.MaxDepth = -1 },
			errorField: "validation.max_depth",
		},
		{
			name:       "unknown warning code",
			mutate:     func(c *Config) { c.Validation.Warnings = []schema.Code{"NOPE"} },
			errorField: "validation.warnings[0]",
		},
		{
			name: "unknown provider",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{"gemini": {}}
			},
			errorField: "providers.gemini",
		},
		{
			name: "bad base url scheme",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{"openai": {BaseURL: "ftp://example.com"}}
			},
			errorField: "providers.openai.base_url",
		},
		{
			name: "negative provider timeout",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{"claude": {Timeout: -time.Second}}
			},
			errorField: "providers.claude.timeout",
		},
		{
			name: "negative rate limit",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{"openai": {RateLimit: ratelimit.Config{MaxConcurrent: -1}}}
			},
			errorField: "providers.openai.rate_limit",
		},
		{
			name: "non-positive token ratio",
			mutate: func(c *Config) {
				c.Tokens = tokens.Config{CharsPerToken: map[string]float64{"gpt-4o": -1}}
			},
			errorField: "tokens.chars_per_token",
		},
		{
			name: "default model outside models",
			mutate: func(c *Config) {
				c.Providers = map[string]ProviderConfig{"openai": {Models: []string{"gpt-4o"}, DefaultModel: "gpt-4"}}
			},
			errorField: "providers.openai.default_model",
		},
		{
			name:       "bad log level",
			mutate:     func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			errorField: "telemetry.logging.level",
		},
		{
			name:       "bad log format",
			mutate:     func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			errorField: "telemetry.logging.format",
		},
		{
			name: "empty redact pattern",
			mutate: func(c *Config) {
				c.Telemetry.Logging.RedactPatterns = []RedactPattern{{Name: "x"}}
			},
			errorField: "telemetry.logging.redact_patterns[0].pattern",
		},
		{
			name:       "metrics listen without port",
			mutate:     func(c *Config) { c.Telemetry.Metrics.Listen = "localhost" },
			errorField: "telemetry.metrics.listen",
		},
		{
			name:       "tracing without endpoint",
			mutate:     func(c *Config) { c.Telemetry.Tracing.Enabled = true },
			errorField: "telemetry.tracing.endpoint",
		},
		{
			name:       "sample ratio out of range",
			mutate:     func(c *Config) { c.Telemetry.Tracing.SampleRatio = 1.5 },
			errorField: "telemetry.tracing.sample_ratio",
		},
		{
			name:       "unknown journal backend",
			mutate:     func(c *Config) { c.Journal.Backend = "postgres" },
			errorField: "journal.backend",
		},
		{
			name:       "sqlite without path",
			mutate:     func(c *Config) { c.Journal.Path = "" },
			errorField: "journal.path",
		},
		{
			name:       "negative retention",
			mutate:     func(c *Config) { c.Journal.Retention.Days = -1 },
			errorField: "journal.retention.days",
		},
		{
			name:       "invalid cron",
			mutate:     func(c *Config) { c.Journal.Retention.Schedule = "every day" },
			errorField: "journal.retention.schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			found := false
			for _, fe := range ve.Errors {
				if fe.Field == tt.errorField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error for field %q, got %v", tt.errorField, ve.Errors)
			}
		})
	}
}

func TestValidate_ProviderAlias(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = map[string]ProviderConfig{
		"anthropic": {BaseURL: "https://api.anthropic.com", Models: []string{"a", "b"}, DefaultModel: "b"},
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("anthropic alias should be accepted: %v", err)
	}
}

func TestFieldError(t *testing.T) {
	fe := FieldError{Field: "settings.timeout", Message: "timeout must be positive"}
	if got := fe.Error(); got != "settings.timeout: timeout must be positive" {
		t.Errorf("unexpected message %q", got)
	}

	single := ValidationError{Errors: []FieldError{fe}}
	if !strings.HasPrefix(single.Error(), "configuration validation failed: settings.timeout") {
		t.Errorf("unexpected single error message %q", single.Error())
	}
}

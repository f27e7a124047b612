package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ajala.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}

	s := cfg.Settings
	if !s.RetryOnFail || s.Cachable || !s.TrimPrompt || s.Debug {
		t.Errorf("unexpected boolean settings: %+v", s)
	}
	if s.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", s.Timeout)
	}
	if s.MaxRetries != 3 {
		t.Errorf("expected max retries 3, got %d", s.MaxRetries)
	}

	j := cfg.JSON
	if j.Strict || !j.AutoFix || !j.UseDefaults || !j.CoerceTypes || j.RemoveAdditional || j.FailFast {
		t.Errorf("unexpected JSON defaults: %+v", j)
	}

	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.InitialDelay != time.Second ||
		cfg.Retry.MaxDelay != 10*time.Second || cfg.Retry.BackoffFactor != 2 {
		t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
	}

	if cfg.Validation.Limits != schema.DefaultLimits() {
		t.Errorf("expected default limits, got %+v", cfg.Validation.Limits)
	}
	if cfg.Journal.Backend != "sqlite" || cfg.Journal.Path != DefaultJournalPath {
		t.Errorf("unexpected journal defaults: %+v", cfg.Journal)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
settings:
  timeout: 20s
  max_retries: 5
  trim_prompt: false

json:
  strict: true
  remove_additional: true

validation:
  max_depth: 10
  warnings: [INVALID_FORMAT]

providers:
  openai:
    api_key: "test-key-123"
    organization: "org-1"
    timeout: 15s
    models: [gpt-4o, gpt-4o-mini]
    default_model: gpt-4o-mini

telemetry:
  logging:
    level: debug
    format: json

journal:
  enabled: true
  backend: memory
  retention:
    days: 7
    max_records: 1000
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Settings.Timeout != 20*time.Second {
		t.Errorf("expected timeout 20s, got %v", cfg.Settings.Timeout)
	}
	if cfg.Settings.TrimPrompt {
		t.Error("explicit trim_prompt: false was overwritten by the default")
	}
	if !cfg.Settings.RetryOnFail {
		t.Error("retry_on_fail should keep its default of true")
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("retry.max_attempts should follow settings.max_retries, got %d", cfg.Retry.MaxAttempts)
	}
	if !cfg.JSON.Strict || !cfg.JSON.RemoveAdditional || !cfg.JSON.AutoFix {
		t.Errorf("unexpected JSON options: %+v", cfg.JSON)
	}
	if cfg.Validation.MaxDepth != 10 {
		t.Errorf("expected max depth 10, got %d", cfg.Validation.MaxDepth)
	}
	if cfg.Validation.MaxProperties != schema.DefaultMaxProperties {
		t.Errorf("expected default max properties, got %d", cfg.Validation.MaxProperties)
	}

	openai, ok := cfg.Providers["openai"]
	if !ok {
		t.Fatal("expected openai provider")
	}
	if openai.APIKey != "test-key-123" || openai.Timeout != 15*time.Second || openai.DefaultModel != "gpt-4o-mini" {
		t.Errorf("unexpected provider config: %+v", openai)
	}

	if cfg.Journal.Backend != "memory" || cfg.Journal.Path != "" {
		t.Errorf("memory journal should not get a default path: %+v", cfg.Journal)
	}
	if cfg.Journal.Retention.Days != 7 || cfg.Journal.Retention.MaxRecords != 1000 {
		t.Errorf("unexpected retention: %+v", cfg.Journal.Retention)
	}
}

func TestLoadConfig_ExplicitRetrySection(t *testing.T) {
	path := writeConfig(t, `
settings:
  max_retries: 5
retry:
  max_attempts: 2
  initial_delay: 10ms
  max_delay: 40ms
  retryable: [AJALA_004]
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Errorf("explicit max_attempts should win, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.InitialDelay != 10*time.Millisecond || cfg.Retry.MaxDelay != 40*time.Millisecond {
		t.Errorf("unexpected delays: %+v", cfg.Retry)
	}
	if len(cfg.Retry.Retryable) != 1 || cfg.Retry.Retryable[0] != codes.NetworkError {
		t.Errorf("unexpected retryable set: %v", cfg.Retry.Retryable)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "unknown key",
			content: "settings:\n  timout: 5s\n",
			wantMsg: "failed to parse",
		},
		{
			name:    "invalid yaml",
			content: "settings: [unterminated\n",
			wantMsg: "failed to parse",
		},
		{
			name:    "invalid value",
			content: "settings:\n  timeout: -5s\n",
			wantMsg: "settings.timeout",
		},
		{
			name:    "unknown provider",
			content: "providers:\n  gemini:\n    api_key: x\n",
			wantMsg: "providers.gemini",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadConfig_ValidationErrorPrefix(t *testing.T) {
	tests := []struct {
		name string
		load func(path string) (*Config, error)
	}{
		{name: "file only", load: LoadConfig},
		{name: "with env overrides", load: LoadConfigWithEnvOverrides},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.load(writeConfig(t, "settings:\n  timeout: -5s\n"))
			if err == nil {
				t.Fatal("expected error")
			}
			if n := strings.Count(err.Error(), "configuration validation failed"); n != 1 {
				t.Errorf("prefix appears %d times in %q", n, err)
			}
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError in chain, got %T", err)
			}
		})
	}
}

func TestLoadConfig_TimeoutBelowMaxDelay(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "settings:\n  timeout: 5s\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Settings.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", cfg.Settings.Timeout)
	}
	if cfg.Retry.MaxDelay <= cfg.Settings.Timeout {
		t.Fatalf("default MaxDelay %v should exceed the timeout for this case", cfg.Retry.MaxDelay)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse([]byte("  \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Settings.RetryOnFail || !cfg.Settings.TrimPrompt {
		t.Error("empty document should keep boolean defaults")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"AJALA_SETTINGS_TIMEOUT":              "45s",
		"AJALA_SETTINGS_RETRY_ON_FAIL":        "false",
		"AJALA_JSON_STRICT":                   "true",
		"AJALA_RETRY_MAX_ATTEMPTS":            "4",
		"AJALA_PROVIDERS_CLAUDE_API_KEY":      "sk-ant-env",
		"AJALA_PROVIDERS_OPENAI_MODELS":       "gpt-4o, gpt-4o-mini,,",
		"AJALA_TELEMETRY_LOGGING_LEVEL":       "warn",
		"AJALA_JOURNAL_RETENTION_MAX_RECORDS": "50",

		"AJALA_PROVIDERS_OPENAI_RATE_LIMIT_REQUESTS_PER_MINUTE": "120",
		"AJALA_PROVIDERS_OPENAI_RATE_LIMIT_MAX_CONCURRENT":      "4",
	}
	cfg := baseConfig()

	if err := applyEnvOverrides(cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Settings.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Settings.Timeout)
	}
	if cfg.Settings.RetryOnFail {
		t.Error("expected retry_on_fail false")
	}
	if !cfg.JSON.Strict {
		t.Error("expected strict true")
	}
	if cfg.Retry.MaxAttempts != 4 {
		t.Errorf("expected max attempts 4, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Providers["claude"].APIKey != "sk-ant-env" {
		t.Errorf("expected claude key from env, got %+v", cfg.Providers["claude"])
	}
	if got := cfg.Providers["openai"].Models; len(got) != 2 || got[1] != "gpt-4o-mini" {
		t.Errorf("unexpected openai models: %v", got)
	}
	if rl := cfg.Providers["openai"].RateLimit; rl.RequestsPerMinute != 120 || rl.MaxConcurrent != 4 {
		t.Errorf("unexpected openai rate limit: %+v", rl)
	}
	if _, ok := cfg.Providers["mock"]; ok {
		t.Error("mock provider should not be created without overrides")
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected level warn, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Journal.Retention.MaxRecords != 50 {
		t.Errorf("expected max records 50, got %d", cfg.Journal.Retention.MaxRecords)
	}
}

func TestApplyEnvOverrides_InvalidValues(t *testing.T) {
	env := map[string]string{
		"AJALA_SETTINGS_TIMEOUT":   "soon",
		"AJALA_SETTINGS_DEBUG":     "maybe",
		"AJALA_RETRY_MAX_ATTEMPTS": "three",
	}
	err := applyEnvOverrides(baseConfig(), func(k string) string { return env[k] })
	if err == nil {
		t.Fatal("expected error")
	}

	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
	if codes.Of(err) != codes.InvalidConfig {
		t.Errorf("expected INVALID_CONFIG, got %s", codes.Of(err))
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
settings:
  timeout: 20s
providers:
  openai:
    api_key: "file-key"
`)
	t.Setenv("AJALA_SETTINGS_TIMEOUT", "25s")
	t.Setenv("AJALA_PROVIDERS_OPENAI_API_KEY", "env-key")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Settings.Timeout != 25*time.Second {
		t.Errorf("env should override file timeout, got %v", cfg.Settings.Timeout)
	}
	if cfg.Providers["openai"].APIKey != "env-key" {
		t.Errorf("env should override file api key")
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("AJALA_SETTINGS_MAX_RETRIES", "2")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Settings.MaxRetries != 2 || cfg.Retry.MaxAttempts != 2 {
		t.Errorf("expected 2 retries and attempts, got %d/%d", cfg.Settings.MaxRetries, cfg.Retry.MaxAttempts)
	}
}

func TestLoadConfigWithEnvOverrides_SecretReferences(t *testing.T) {
	path := writeConfig(t, `
providers:
  openai:
    api_key: ${env:TEST_OPENAI_KEY}
  claude:
    api_key: ${file:claude.key}
`)
	keyFile := filepath.Join(filepath.Dir(path), "claude.key")
	if err := os.WriteFile(keyFile, []byte("sk-ant-from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Providers["openai"].APIKey; got != "sk-from-env" {
		t.Errorf("openai key = %q", got)
	}
	if got := cfg.Providers["claude"].APIKey; got != "sk-ant-from-file" {
		t.Errorf("claude key = %q, want the file contents relative to the config", got)
	}
}

func TestLoadConfigWithEnvOverrides_UnresolvedSecret(t *testing.T) {
	path := writeConfig(t, `
providers:
  openai:
    api_key: ${env:AJALA_TEST_UNSET_KEY}
`)

	_, err := LoadConfigWithEnvOverrides(path)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Errors[0].Field != "providers.openai.api_key" {
		t.Errorf("field = %q", verr.Errors[0].Field)
	}
	if codes.Of(err) != codes.InvalidConfig {
		t.Errorf("code = %v", codes.Of(err))
	}
}

package config

import (
	"testing"
	"time"

	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/providers"
	"ajala-hq/ajala/pkg/providers/openai"
	"ajala-hq/ajala/pkg/ratelimit"
	"ajala-hq/ajala/pkg/schema"
)

func TestSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.Timeout = 12 * time.Second
	cfg.JSON.Strict = true
	cfg.Validation.MaxDepth = 7
	cfg.Validation.Warnings = []schema.Code{schema.InvalidFormat}
	cfg.Retry.Retryable = []codes.Code{codes.NetworkError}

	s := cfg.Runtime()

	if s.Timeout != 12*time.Second || !s.RetryOnFail || !s.TrimPrompt {
		t.Errorf("unexpected settings: %+v", s)
	}
	if !s.JSON.Strict || !s.JSON.AutoFix {
		t.Errorf("JSON options not carried: %+v", s.JSON)
	}
	if s.JSON.Limits.MaxDepth != 7 || s.JSON.Limits.MaxArrayLength != schema.DefaultMaxArrayLength {
		t.Errorf("limits not carried: %+v", s.JSON.Limits)
	}
	if s.Retry.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", s.Retry.MaxAttempts)
	}

	// later edits to the config must not leak into the derived value
	cfg.Validation.Warnings[0] = schema.OutOfRange
	cfg.Retry.Retryable[0] = codes.TimeoutError
	if s.JSON.Warnings[0] != schema.InvalidFormat {
		t.Error("warnings slice shared with config")
	}
	if s.Retry.Retryable[0] != codes.NetworkError {
		t.Error("retryable slice shared with config")
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	if s.Timeout != DefaultTimeout || s.MaxRetries != DefaultMaxRetries {
		t.Errorf("unexpected defaults: %+v", s)
	}
	if s.JSON.Limits != schema.DefaultLimits() {
		t.Errorf("unexpected limits: %+v", s.JSON.Limits)
	}
}

func TestCatalog(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = map[string]ProviderConfig{
		"anthropic": {BaseURL: "http://localhost:9000", Timeout: time.Second},
		"openai":    {Models: []string{"gpt-4o"}, DefaultModel: "gpt-4o"},
		"gemini":    {BaseURL: "http://ignored"},
	}

	cat := cfg.Catalog()
	if len(cat) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(cat))
	}
	if e := cat[providers.Claude]; e.BaseURL != "http://localhost:9000" || e.Timeout != time.Second {
		t.Errorf("unexpected claude entry: %+v", e)
	}
	if e := cat[providers.OpenAI]; e.DefaultModel != "gpt-4o" || len(e.Models) != 1 {
		t.Errorf("unexpected openai entry: %+v", e)
	}
}

func TestCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = map[string]ProviderConfig{
		"openai": {APIKey: "sk-test", Organization: "org-1"},
		"claude": {APIKey: "sk-ant"},
	}

	oc := cfg.Credentials(providers.OpenAI)
	if oc.APIKey != "sk-test" || oc.Extra[openai.OrganizationKey] != "org-1" {
		t.Errorf("unexpected openai credentials: %+v", oc.Extra)
	}
	if cc := cfg.Credentials(providers.Claude); cc.APIKey != "sk-ant" || cc.Extra != nil {
		t.Errorf("unexpected claude credentials")
	}
	if mc := cfg.Credentials(providers.Mock); mc.APIKey != "" {
		t.Errorf("expected empty mock credentials")
	}
}

func TestRateLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers = map[string]ProviderConfig{
		"anthropic": {RateLimit: ratelimit.Config{RequestsPerMinute: 50, Burst: 5}},
		"openai":    {APIKey: "sk-test"},
		"gemini":    {RateLimit: ratelimit.Config{MaxConcurrent: 1}},
	}

	limits := cfg.RateLimits()
	if len(limits) != 1 {
		t.Fatalf("expected 1 limit, got %v", limits)
	}
	if rl := limits[string(providers.Claude)]; rl.RequestsPerMinute != 50 || rl.Burst != 5 {
		t.Errorf("unexpected claude limit: %+v", rl)
	}
}

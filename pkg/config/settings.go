package config

import (
	"slices"
	"time"

	"ajala-hq/ajala/pkg/providers"
	"ajala-hq/ajala/pkg/providers/openai"
	"ajala-hq/ajala/pkg/providers/registry"
	"ajala-hq/ajala/pkg/ratelimit"
	"ajala-hq/ajala/pkg/retry"
	"ajala-hq/ajala/pkg/schema"
)

// Settings is the immutable runtime view of a Config. Every request starts
// from these values and overrides them field by field. A Settings value is
// never modified after it is built; a reload produces a new one.
type Settings struct {
	RetryOnFail bool
	Cachable    bool
	TrimPrompt  bool
	Timeout     time.Duration
	MaxRetries  int
	Debug       bool

	// Retry is the default retry policy.
	Retry retry.Policy

	// JSON carries the parse and validation options, limits included.
	JSON schema.Options
}

// DefaultSettings returns the settings derived from DefaultConfig.
func DefaultSettings() *Settings {
	return DefaultConfig().Runtime()
}

// Runtime derives the runtime settings. Slices are copied so later edits
// to cfg cannot reach the returned value.
func (cfg *Config) Runtime() *Settings {
	policy := cfg.Retry
	policy.Retryable = slices.Clone(cfg.Retry.Retryable)

	return &Settings{
		RetryOnFail: cfg.Settings.RetryOnFail,
		Cachable:    cfg.Settings.Cachable,
		TrimPrompt:  cfg.Settings.TrimPrompt,
		Timeout:     cfg.Settings.Timeout,
		MaxRetries:  cfg.Settings.MaxRetries,
		Debug:       cfg.Settings.Debug,
		Retry:       policy,
		JSON: schema.Options{
			Strict:           cfg.JSON.Strict,
			AutoFix:          cfg.JSON.AutoFix,
			UseDefaults:      cfg.JSON.UseDefaults,
			CoerceTypes:      cfg.JSON.CoerceTypes,
			RemoveAdditional: cfg.JSON.RemoveAdditional,
			FailFast:         cfg.JSON.FailFast,
			Limits:           cfg.Validation.Limits,
			EnableWarnings:   cfg.Validation.EnableWarnings,
			Warnings:         slices.Clone(cfg.Validation.Warnings),
		},
	}
}

// Catalog converts the providers section into registry catalog overrides.
// Unknown provider keys are skipped; Validate reports them.
func (cfg *Config) Catalog() registry.Catalog {
	out := make(registry.Catalog, len(cfg.Providers))
	for key, p := range cfg.Providers {
		name, err := providers.ParseName(key)
		if err != nil {
			continue
		}
		out[name] = registry.Entry{
			BaseURL:      p.BaseURL,
			Timeout:      p.Timeout,
			Models:       slices.Clone(p.Models),
			DefaultModel: p.DefaultModel,
		}
	}
	return out
}

// RateLimits returns the rate limit of every provider that sets one, keyed
// by canonical provider name.
func (cfg *Config) RateLimits() map[string]ratelimit.Config {
	out := make(map[string]ratelimit.Config)
	for key, p := range cfg.Providers {
		name, err := providers.ParseName(key)
		if err != nil || !p.RateLimit.Enabled() {
			continue
		}
		out[string(name)] = p.RateLimit
	}
	return out
}

// Credentials returns the configured credentials for a provider. The result
// is empty when the provider has no section.
func (cfg *Config) Credentials(name providers.Name) providers.Credentials {
	for key, p := range cfg.Providers {
		n, err := providers.ParseName(key)
		if err != nil || n != name {
			continue
		}
		creds := providers.Credentials{APIKey: p.APIKey}
		if p.Organization != "" {
			creds.Extra = map[string]string{openai.OrganizationKey: p.Organization}
		}
		return creds
	}
	return providers.Credentials{}
}

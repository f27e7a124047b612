package pipeline

import (
	"slices"
	"time"

	"ajala-hq/ajala/pkg/config"
	"ajala-hq/ajala/pkg/providers"
	"ajala-hq/ajala/pkg/retry"
	"ajala-hq/ajala/pkg/schema"
)

// Request is one prompt to execute. The pipeline never writes to it.
type Request struct {
	// Template contains {{name}} placeholders.
	Template string `json:"template" yaml:"template"`

	Variables map[string]string `json:"variables,omitempty" yaml:"variables,omitempty"`

	// Schema is applied when Options.ValidateJSON is set.
	Schema *schema.Schema `json:"schema,omitempty" yaml:"schema,omitempty"`

	Options Options `json:"options" yaml:"options"`
}

// Options are the per-request switches. Pointer fields are overrides: nil
// inherits the pipeline settings, any non-nil value (false and zero
// included) replaces them.
type Options struct {
	// ExpectJSON parses the response as JSON.
	ExpectJSON bool `json:"expect_json,omitempty" yaml:"expect_json,omitempty"`

	// ValidateJSON runs the parsed value through Schema.
	ValidateJSON bool `json:"validate_json,omitempty" yaml:"validate_json,omitempty"`

	// ErrorOnInvalidJSON turns parse failures and invalid values into
	// errors instead of returning them as data.
	ErrorOnInvalidJSON bool `json:"error_on_invalid_json,omitempty" yaml:"error_on_invalid_json,omitempty"`

	// Lenient leaves unresolved placeholders in the prompt.
	Lenient bool `json:"lenient,omitempty" yaml:"lenient,omitempty"`

	// System is passed to the provider as the system instruction.
	System string `json:"system,omitempty" yaml:"system,omitempty"`

	// MaxTokens bounds the generated output; 0 selects the adapter default.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`

	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`

	RetryOnFail *bool           `json:"retry_on_fail,omitempty" yaml:"retry_on_fail,omitempty"`
	Cachable    *bool           `json:"cachable,omitempty" yaml:"cachable,omitempty"`
	TrimPrompt  *bool           `json:"trim_prompt,omitempty" yaml:"trim_prompt,omitempty"`
	Timeout     *time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Retry       *retry.Policy   `json:"retry,omitempty" yaml:"retry,omitempty"`
	JSON        *schema.Options `json:"json,omitempty" yaml:"json,omitempty"`
}

// effective is the merge of Settings and a request's overrides.
type effective struct {
	retryOnFail bool
	cachable    bool
	trimPrompt  bool
	timeout     time.Duration
	debug       bool
	policy      retry.Policy
	json        schema.Options
}

func resolve(s *config.Settings, o Options) effective {
	e := effective{
		retryOnFail: s.RetryOnFail,
		cachable:    s.Cachable,
		trimPrompt:  s.TrimPrompt,
		timeout:     s.Timeout,
		debug:       s.Debug,
		policy:      s.Retry,
		json:        s.JSON,
	}
	if o.RetryOnFail != nil {
		e.retryOnFail = *o.RetryOnFail
	}
	if o.Cachable != nil {
		e.cachable = *o.Cachable
	}
	if o.TrimPrompt != nil {
		e.trimPrompt = *o.TrimPrompt
	}
	if o.Timeout != nil {
		e.timeout = *o.Timeout
	}
	if o.Retry != nil {
		e.policy = *o.Retry
	}
	if o.JSON != nil {
		e.json = *o.JSON
	}
	e.policy.Retryable = slices.Clone(e.policy.Retryable)
	if !e.retryOnFail {
		e.policy.MaxAttempts = 1
	}
	return e
}

// Result is the outcome of a successful Execute. It is not modified after
// Execute returns.
type Result struct {
	RequestID string `json:"request_id"`

	// Prompt is the rendered prompt that was sent.
	Prompt string `json:"prompt"`

	Raw *providers.Response `json:"raw"`

	// Parsed is the decoded JSON value, transformed by validation when a
	// schema was applied. Nil when JSON was not expected or did not parse.
	Parsed any `json:"parsed,omitempty"`

	// ParseError is set when the response was not JSON and
	// ErrorOnInvalidJSON was off.
	ParseError error `json:"-"`

	Validation *schema.Result `json:"validation,omitempty"`

	// Attempts is the number of provider calls made.
	Attempts int `json:"attempts"`

	// UsageEstimated is set when Raw's usage was estimated locally because
	// the provider reported none.
	UsageEstimated bool `json:"usage_estimated,omitempty"`

	// Fingerprint identifies the request for an external cache. Empty
	// unless the request is cachable.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// BatchItem is one entry of ExecuteBatch.
type BatchItem struct {
	Request  *Request
	Provider providers.ProviderConfig
}

// BatchResult pairs a batch item with its outcome. Exactly one of Result
// and Err is set.
type BatchResult struct {
	Index  int
	Result *Result
	Err    error
}

// Package mock implements a deterministic in-process provider for tests
// and offline runs.
//
// By default it echoes the prompt. A script of Steps can be queued to
// return fixed content or fail with any of the typed provider errors, which
// is how retry and pipeline contract tests drive specific failure
// sequences.
package mock

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"ajala-hq/ajala/pkg/providers"
)

const (
	// DefaultModel is used when a request names no model
	DefaultModel = "mock-model-1"

	// RequestID is reported on every response
	RequestID = "mock-request-id"

	// InvalidKey is the API key Authenticate rejects
	InvalidKey = "invalid"

	// ReportedLatency is the latency reported in response metadata
	ReportedLatency = 100 * time.Millisecond
)

// DefaultModels is the built-in mock catalog.
var DefaultModels = []string{"mock-model-1", "mock-model-2"}

// Step is one scripted outcome. A non-nil Err fails the call; otherwise
// Content is returned verbatim.
type Step struct {
	Content string
	Err     error

	// NoUsage reports zero token usage, like a backend that omits it.
	NoUsage bool
}

// Config configures the mock. Zero values select the defaults above.
type Config struct {
	Models       []string
	DefaultModel string

	// Delay is slept (context-aware) before every response
	Delay time.Duration
}

// Call records one SendPrompt invocation.
type Call struct {
	Prompt string
	Opts   providers.SendOptions
}

// Provider is the mock backend. It is safe for concurrent use.
type Provider struct {
	models       []string
	defaultModel string
	delay        time.Duration

	mu            sync.Mutex
	authenticated bool
	authCalls     int
	script        []Step
	calls         []Call
}

// New creates a mock provider.
func New(cfg Config) *Provider {
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	return &Provider{
		models:       slices.Clone(cfg.Models),
		defaultModel: cfg.DefaultModel,
		delay:        cfg.Delay,
	}
}

// Name implements providers.Provider.
func (p *Provider) Name() providers.Name {
	return providers.Mock
}

// Models implements providers.Provider.
func (p *Provider) Models() []string {
	return slices.Clone(p.models)
}

// DefaultModel implements providers.Provider.
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// Authenticate rejects an empty key (MISSING_AUTH) and the literal key
// "invalid" (AUTH_ERROR); anything else is accepted.
func (p *Provider) Authenticate(ctx context.Context, creds providers.Credentials) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authCalls++

	switch strings.TrimSpace(creds.APIKey) {
	case "":
		return &providers.AuthError{Provider: providers.Mock, Message: "API key is required", Missing: true}
	case InvalidKey:
		return &providers.AuthError{Provider: providers.Mock, Message: "invalid API key"}
	}
	p.authenticated = true
	return nil
}

// Script appends steps to the queue consumed by SendPrompt. When the queue
// is empty the mock falls back to its echo behaviour.
func (p *Provider) Script(steps ...Step) *Provider {
	p.mu.Lock()
	p.script = append(p.script, steps...)
	p.mu.Unlock()
	return p
}

// SendPrompt implements providers.Provider.
func (p *Provider) SendPrompt(ctx context.Context, prompt string, opts providers.SendOptions) (*providers.Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Prompt: prompt, Opts: opts})
	authenticated := p.authenticated
	var step *Step
	if len(p.script) > 0 {
		s := p.script[0]
		p.script = p.script[1:]
		step = &s
	}
	p.mu.Unlock()

	if !authenticated {
		return nil, &providers.AuthError{Provider: providers.Mock, Message: "not authenticated", Missing: true}
	}

	if p.delay > 0 {
		t := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, &providers.TimeoutError{Provider: providers.Mock, Cause: ctx.Err()}
		case <-t.C:
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, &providers.TimeoutError{Provider: providers.Mock, Cause: err}
	}

	var content string
	switch {
	case step != nil && step.Err != nil:
		return nil, step.Err
	case step != nil:
		content = step.Content
	case opts.ExpectJSON:
		b, err := json.Marshal(struct {
			Result string `json:"result"`
			Data   string `json:"data"`
		}{"Mock JSON response", prompt})
		if err != nil {
			return nil, &providers.ParseError{Provider: providers.Mock, Cause: err}
		}
		content = string(b)
	default:
		content = "Mock response for: " + prompt
	}

	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	usage := providers.Usage{InputTokens: 10, OutputTokens: 20, TotalTokens: 30}
	if step != nil && step.NoUsage {
		usage = providers.Usage{}
	}
	return &providers.Response{
		Content:  content,
		Provider: providers.Mock,
		Model:    model,
		Metadata: providers.Metadata{
			Timestamp:    time.Now(),
			Latency:      ReportedLatency,
			Usage:        usage,
			RequestID:    RequestID,
			FinishReason: providers.FinishReasonStop,
		},
	}, nil
}

// Calls returns a copy of the recorded SendPrompt invocations.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.calls)
}

// AuthCalls returns how many times Authenticate ran.
func (p *Provider) AuthCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authCalls
}

package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"ajala-hq/ajala/pkg/providers"
)

const (
	// DefaultAnthropicVersion is the API version to use
	DefaultAnthropicVersion = "2023-06-01"

	// DefaultBaseURL is the public Anthropic endpoint
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultModel is used when a request names no model
	DefaultModel = "claude-3-5-sonnet-20241022"

	// MaxOutputTokens is the default max_tokens (required by Anthropic)
	MaxOutputTokens = 4096
)

// DefaultModels is the built-in Claude catalog.
var DefaultModels = []string{
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
	"claude-3-7-sonnet-20250219",
	"claude-opus-4-20250514",
	"claude-sonnet-4-20250514",
	"claude-4-5-sonnet-20240627",
}

// jsonInstruction is appended to the system prompt when JSON is expected;
// the Messages API has no response_format switch.
const jsonInstruction = "Respond only with valid JSON. Do not wrap it in markdown or add commentary."

// Config configures the adapter. Zero values select the defaults above.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	Models       []string
	DefaultModel string
	MaxTokens    int
}

// Provider is the Anthropic provider adapter.
// It implements the providers.Provider interface for Anthropic's Messages API.
type Provider struct {
	*providers.HTTPProvider

	models       []string
	defaultModel string
	maxTokens    int

	mu     sync.RWMutex
	apiKey string
}

// New creates a new Anthropic provider instance. It does not contact the
// network; call Authenticate before SendPrompt.
func New(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = MaxOutputTokens
	}

	p := &Provider{
		HTTPProvider: providers.NewHTTPProvider(providers.HTTPConfig{
			Name:    providers.Claude,
			BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
			Timeout: cfg.Timeout,
		}),
		models:       slices.Clone(cfg.Models),
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
	}

	slog.Debug("Anthropic provider initialized",
		"provider", providers.Claude,
		"base_url", cfg.BaseURL,
	)
	return p
}

// Name implements providers.Provider.
func (p *Provider) Name() providers.Name {
	return providers.Claude
}

// Models implements providers.Provider.
func (p *Provider) Models() []string {
	return slices.Clone(p.models)
}

// DefaultModel implements providers.Provider.
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// Authenticate binds the API key. Anthropic has no free key-check endpoint,
// so a rejected key surfaces as *providers.AuthError on the first call.
func (p *Provider) Authenticate(ctx context.Context, creds providers.Credentials) error {
	if strings.TrimSpace(creds.APIKey) == "" {
		return &providers.AuthError{
			Provider: providers.Claude,
			Message:  "API key is required for Anthropic",
			Missing:  true,
		}
	}
	p.mu.Lock()
	p.apiKey = creds.APIKey
	p.mu.Unlock()
	return nil
}

// SendPrompt sends a single-turn Messages API request.
func (p *Provider) SendPrompt(ctx context.Context, prompt string, opts providers.SendOptions) (*providers.Response, error) {
	p.mu.RLock()
	apiKey := p.apiKey
	p.mu.RUnlock()
	if apiKey == "" {
		return nil, &providers.AuthError{Provider: providers.Claude, Message: "not authenticated", Missing: true}
	}

	req := transformRequest(prompt, opts, p.defaultModel, p.maxTokens)

	url := fmt.Sprintf("%s/v1/messages", p.Config().BaseURL)
	headers := map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": DefaultAnthropicVersion,
		"Content-Type":      "application/json",
	}

	start := time.Now()
	var anthropicResp AnthropicResponse
	if err := p.DoJSON(ctx, "POST", url, req, &anthropicResp, headers); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&anthropicResp, time.Since(start))
	if err != nil {
		return nil, &providers.ParseError{
			Provider: providers.Claude,
			Cause:    err,
		}
	}

	slog.Debug("prompt request succeeded",
		"provider", providers.Claude,
		"model", resp.Model,
		"tokens", resp.Metadata.Usage.TotalTokens,
	)
	return resp, nil
}

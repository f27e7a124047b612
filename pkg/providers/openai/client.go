package openai

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"ajala-hq/ajala/pkg/providers"
)

const (
	// DefaultBaseURL is the public OpenAI endpoint
	DefaultBaseURL = "https://api.openai.com"

	// DefaultModel is used when a request names no model
	DefaultModel = "gpt-4o"

	// OrganizationKey is the Credentials.Extra key forwarded as the
	// OpenAI-Organization header
	OrganizationKey = "organization"
)

// DefaultModels is the built-in OpenAI catalog.
var DefaultModels = []string{
	"gpt-4",
	"gpt-4-turbo",
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-3.5-turbo",
}

// Config configures the adapter. Zero values select the defaults above.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	Models       []string
	DefaultModel string
}

// Provider is the OpenAI provider adapter.
type Provider struct {
	*providers.HTTPProvider

	models       []string
	defaultModel string

	mu    sync.RWMutex
	creds providers.Credentials
}

// New creates a new OpenAI provider instance.
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

	slog.Debug("OpenAI provider initialized",
		"provider", providers.OpenAI,
		"base_url", cfg.BaseURL,
	)
	return &Provider{
		HTTPProvider: providers.NewHTTPProvider(providers.HTTPConfig{
			Name:    providers.OpenAI,
			BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
			Timeout: cfg.Timeout,
		}),
		models:       slices.Clone(cfg.Models),
		defaultModel: cfg.DefaultModel,
	}
}

// Name implements providers.Provider.
func (p *Provider) Name() providers.Name {
	return providers.OpenAI
}

// Models implements providers.Provider.
func (p *Provider) Models() []string {
	return slices.Clone(p.models)
}

// DefaultModel implements providers.Provider.
func (p *Provider) DefaultModel() string {
	return p.defaultModel
}

// Authenticate binds the credentials.
func (p *Provider) Authenticate(ctx context.Context, creds providers.Credentials) error {
	if strings.TrimSpace(creds.APIKey) == "" {
		return &providers.AuthError{
			Provider: providers.OpenAI,
			Message:  "API key is required for OpenAI",
			Missing:  true,
		}
	}
	p.mu.Lock()
	p.creds = creds
	p.mu.Unlock()
	return nil
}

// SendPrompt sends a single-turn chat completion request.
func (p *Provider) SendPrompt(ctx context.Context, prompt string, opts providers.SendOptions) (*providers.Response, error) {
	p.mu.RLock()
	creds := p.creds
	p.mu.RUnlock()
	if creds.APIKey == "" {
		return nil, &providers.AuthError{Provider: providers.OpenAI, Message: "not authenticated", Missing: true}
	}

	headers := map[string]string{
		"Authorization": "Bearer " + creds.APIKey,
		"Content-Type":  "application/json",
	}
	if org := creds.Extra[OrganizationKey]; org != "" {
		headers["OpenAI-Organization"] = org
	}

	start := time.Now()
	var openaiResp OpenAIResponse
	url := p.Config().BaseURL + "/v1/chat/completions"
	if err := p.DoJSON(ctx, "POST", url, transformRequest(prompt, opts, p.defaultModel), &openaiResp, headers); err != nil {
		return nil, err
	}

	resp, err := transformResponse(&openaiResp, time.Since(start))
	if err != nil {
		return nil, &providers.ParseError{Provider: providers.OpenAI, Cause: err}
	}
	return resp, nil
}

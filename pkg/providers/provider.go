package providers

import (
	"context"
	"strings"
)

// Name identifies a provider backend. The set is closed: claude, openai and
// mock.
type Name string

const (
	Claude Name = "claude"
	OpenAI Name = "openai"
	Mock   Name = "mock"
)

// Names lists every supported provider.
func Names() []Name {
	return []Name{Claude, OpenAI, Mock}
}

// ParseName resolves a provider name. "anthropic" is accepted as an alias
// for claude.
func ParseName(s string) (Name, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "claude", "anthropic":
		return Claude, nil
	case "openai":
		return OpenAI, nil
	case "mock":
		return Mock, nil
	}
	return "", &UnknownProviderError{Name: s}
}

func (n Name) String() string {
	return string(n)
}

// Provider is implemented by every backend adapter.
//
// A Provider instance is bound to one credential set by Authenticate and
// may then serve concurrent SendPrompt calls. SendPrompt makes exactly one
// attempt; retries belong to the caller.
//
// Example usage:
//
//	p := anthropic.New(anthropic.Config{})
//	if err := p.Authenticate(ctx, providers.Credentials{APIKey: key}); err != nil {
//	    return err
//	}
//	resp, err := p.SendPrompt(ctx, "Hello!", providers.SendOptions{Model: p.DefaultModel()})
type Provider interface {
	// Name returns the provider identifier.
	Name() Name

	// Models returns the supported model identifiers.
	Models() []string

	// DefaultModel returns the model used when a request names none.
	DefaultModel() string

	// Authenticate binds and checks the credentials. It fails with
	// *AuthError when they are absent or rejected.
	Authenticate(ctx context.Context, creds Credentials) error

	// SendPrompt sends a rendered prompt and returns the normalized
	// response. Failures are one of the typed errors in this package.
	SendPrompt(ctx context.Context, prompt string, opts SendOptions) (*Response, error)
}

// SupportsModel reports whether model is in p's supported set.
func SupportsModel(p Provider, model string) bool {
	for _, m := range p.Models() {
		if m == model {
			return true
		}
	}
	return false
}

// ResolveModel returns model, or p's default when model is empty. It fails
// with *ModelNotFoundError when the model is not supported.
func ResolveModel(p Provider, model string) (string, error) {
	if model == "" {
		model = p.DefaultModel()
	}
	if !SupportsModel(p, model) {
		return "", &ModelNotFoundError{
			Provider:  p.Name(),
			Model:     model,
			Supported: p.Models(),
		}
	}
	return model, nil
}

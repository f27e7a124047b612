// Package registry turns a ProviderConfig into an authenticated provider.
//
// The registry owns the model catalog and a cache of authenticated handles
// keyed by provider and credential fingerprint, so Authenticate runs at
// most once per credential set per process. Unknown providers and
// unsupported models are rejected before any adapter is built.
package registry

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ajala-hq/ajala/pkg/providers"
	"ajala-hq/ajala/pkg/providers/anthropic"
	"ajala-hq/ajala/pkg/providers/mock"
	"ajala-hq/ajala/pkg/providers/openai"
)

// Entry is the catalog entry for one provider.
type Entry struct {
	BaseURL      string
	Timeout      time.Duration
	Models       []string
	DefaultModel string
}

// Catalog maps each provider to its settings.
type Catalog map[providers.Name]Entry

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		providers.Claude: {
			BaseURL:      anthropic.DefaultBaseURL,
			Models:       slices.Clone(anthropic.DefaultModels),
			DefaultModel: anthropic.DefaultModel,
		},
		providers.OpenAI: {
			BaseURL:      openai.DefaultBaseURL,
			Models:       slices.Clone(openai.DefaultModels),
			DefaultModel: openai.DefaultModel,
		},
		providers.Mock: {
			Models:       slices.Clone(mock.DefaultModels),
			DefaultModel: mock.DefaultModel,
		},
	}
}

// withDefaults fills every empty field of c from the built-in catalog.
func (c Catalog) withDefaults() Catalog {
	out := DefaultCatalog()
	for name, e := range c {
		base := out[name]
		if e.BaseURL != "" {
			base.BaseURL = e.BaseURL
		}
		if e.Timeout > 0 {
			base.Timeout = e.Timeout
		}
		if len(e.Models) > 0 {
			base.Models = slices.Clone(e.Models)
		}
		if e.DefaultModel != "" {
			base.DefaultModel = e.DefaultModel
		}
		out[name] = base
	}
	return out
}

// Factory builds an unauthenticated provider from its catalog entry.
type Factory func(Entry) providers.Provider

// DefaultFactories returns the factories of the built-in adapters.
func DefaultFactories() map[providers.Name]Factory {
	return map[providers.Name]Factory{
		providers.Claude: func(e Entry) providers.Provider {
			return anthropic.New(anthropic.Config{
				BaseURL:      e.BaseURL,
				Timeout:      e.Timeout,
				Models:       e.Models,
				DefaultModel: e.DefaultModel,
			})
		},
		providers.OpenAI: func(e Entry) providers.Provider {
			return openai.New(openai.Config{
				BaseURL:      e.BaseURL,
				Timeout:      e.Timeout,
				Models:       e.Models,
				DefaultModel: e.DefaultModel,
			})
		},
		providers.Mock: func(e Entry) providers.Provider {
			return mock.New(mock.Config{Models: e.Models, DefaultModel: e.DefaultModel})
		},
	}
}

// Option configures a Registry.
type Option func(*Registry)

// WithFactory replaces the factory for one provider.
func WithFactory(name providers.Name, f Factory) Option {
	return func(r *Registry) {
		r.factories[name] = f
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Registry resolves and caches authenticated providers.
//
// Registry is thread-safe and can be used concurrently.
type Registry struct {
	catalog   Catalog
	factories map[providers.Name]Factory
	logger    *slog.Logger

	mu      sync.RWMutex
	handles map[handleKey]providers.Provider
	group   singleflight.Group
}

type handleKey struct {
	name        providers.Name
	fingerprint string
}

func (k handleKey) String() string {
	return string(k.name) + "/" + k.fingerprint
}

// New creates a registry. Catalog entries override the built-in defaults
// field by field; a nil catalog uses the defaults unchanged.
func New(catalog Catalog, opts ...Option) *Registry {
	r := &Registry{
		catalog:   catalog.withDefaults(),
		factories: DefaultFactories(),
		logger:    slog.Default().With("component", "registry"),
		handles:   make(map[handleKey]providers.Provider),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []providers.Name {
	names := make([]providers.Name, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Entry returns the catalog entry for name.
func (r *Registry) Entry(name providers.Name) (Entry, error) {
	if _, ok := r.factories[name]; !ok {
		return Entry{}, &providers.UnknownProviderError{Name: string(name)}
	}
	e := r.catalog[name]
	e.Models = slices.Clone(e.Models)
	return e, nil
}

// ResolveModel validates model against the catalog without building or
// authenticating anything. An empty model selects the default.
func (r *Registry) ResolveModel(name providers.Name, model string) (string, error) {
	e, err := r.Entry(name)
	if err != nil {
		return "", err
	}
	if model == "" {
		model = e.DefaultModel
	}
	if !slices.Contains(e.Models, model) {
		return "", &providers.ModelNotFoundError{Provider: name, Model: model, Supported: e.Models}
	}
	return model, nil
}

// Resolve returns an authenticated provider and the resolved model for pc.
func (r *Registry) Resolve(ctx context.Context, pc providers.ProviderConfig) (providers.Provider, string, error) {
	model, err := r.ResolveModel(pc.Provider, pc.Model)
	if err != nil {
		return nil, "", err
	}

	key := handleKey{name: pc.Provider, fingerprint: pc.Credentials.Fingerprint()}
	if p, ok := r.lookup(key); ok {
		return p, model, nil
	}

	v, err, _ := r.group.Do(key.String(), func() (any, error) {
		if p, ok := r.lookup(key); ok {
			return p, nil
		}

		p := r.factories[pc.Provider](r.catalog[pc.Provider])
		if err := p.Authenticate(ctx, pc.Credentials); err != nil {
			if c, ok := p.(io.Closer); ok {
				_ = c.Close()
			}
			r.logger.Warn("provider authentication failed",
				"provider", pc.Provider,
				"credentials", pc.Credentials,
				"error", err,
			)
			return nil, err
		}

		r.mu.Lock()
		r.handles[key] = p
		r.mu.Unlock()

		r.logger.Debug("provider authenticated",
			"provider", pc.Provider,
			"credentials", pc.Credentials,
		)
		return p, nil
	})
	if err != nil {
		return nil, "", err
	}
	return v.(providers.Provider), model, nil
}

func (r *Registry) lookup(key handleKey) (providers.Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.handles[key]
	return p, ok
}

// HandleHealth reports the health of one cached handle.
type HandleHealth struct {
	Provider    providers.Name
	Fingerprint string
	Health      providers.Health
}

// Health returns the health of every cached handle that tracks it.
func (r *Registry) Health() []HandleHealth {
	type healthReporter interface {
		Health() providers.Health
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []HandleHealth
	for key, p := range r.handles {
		if hr, ok := p.(healthReporter); ok {
			out = append(out, HandleHealth{Provider: key.name, Fingerprint: key.fingerprint, Health: hr.Health()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	return out
}

// Len returns the number of cached handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Close closes and forgets every cached handle.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, p := range r.handles {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				r.logger.Error("error closing provider", "provider", key.name, "error", err)
			}
		}
		delete(r.handles, key)
	}
	return nil
}

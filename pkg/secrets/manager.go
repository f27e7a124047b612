package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"
)

// refPattern matches ${scheme:name} references.
var refPattern = regexp.MustCompile(`\$\{([a-z]+):([^}]+)\}`)

// Manager resolves references through the provider registered for each
// scheme. It is safe for concurrent use.
type Manager struct {
	providers map[string]Provider
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCacheTTL caches resolved values for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a Manager. A later provider with the same scheme
// replaces an earlier one.
func NewManager(providers []Provider, opts ...Option) *Manager {
	m := &Manager{
		providers: make(map[string]Provider, len(providers)),
		now:       time.Now,
		logger:    slog.Default().With("component", "secrets"),
		cache:     make(map[string]cacheEntry),
	}
	for _, p := range providers {
		m.providers[p.Scheme()] = p
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Default returns a manager with the environment provider and a file
// provider rooted at basePath.
func Default(basePath string, opts ...Option) *Manager {
	return NewManager([]Provider{NewEnvProvider(""), NewFileProvider(basePath)}, opts...)
}

// IsReference reports whether value contains a secret reference.
func IsReference(value string) bool {
	return refPattern.MatchString(value)
}

// Get resolves one secret through the provider for scheme.
func (m *Manager) Get(ctx context.Context, scheme, name string) (string, error) {
	key := scheme + ":" + name
	if v, ok := m.cached(key); ok {
		return v, nil
	}

	p, ok := m.providers[scheme]
	if !ok {
		return "", fmt.Errorf("unknown secret scheme %q", scheme)
	}
	value, err := p.Get(ctx, name)
	if err != nil {
		return "", err
	}

	if m.ttl > 0 {
		m.mu.Lock()
		m.cache[key] = cacheEntry{value: value, expiresAt: m.now().Add(m.ttl)}
		m.mu.Unlock()
	}
	m.logger.Debug("secret resolved", "scheme", scheme, "name", redactName(name))
	return value, nil
}

func (m *Manager) cached(key string) (string, bool) {
	if m.ttl <= 0 {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.cache[key]
	if !ok {
		return "", false
	}
	if m.now().After(e.expiresAt) {
		delete(m.cache, key)
		return "", false
	}
	return e.value, true
}

// Resolve replaces every ${scheme:name} reference in input. References that
// fail are left in place and reported together.
func (m *Manager) Resolve(ctx context.Context, input string) (string, error) {
	var errs []error
	out := refPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := refPattern.FindStringSubmatch(match)
		value, err := m.Get(ctx, sub[1], sub[2])
		if err != nil {
			errs = append(errs, err)
			return match
		}
		return value
	})
	if len(errs) > 0 {
		return input, fmt.Errorf("failed to resolve secret references: %w", errors.Join(errs...))
	}
	return out, nil
}

// Clear drops every cached value.
func (m *Manager) Clear() {
	m.mu.Lock()
	clear(m.cache)
	m.mu.Unlock()
}

// redactName keeps the first and last two characters of a secret name.
func redactName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Config configures the limiter of one provider. Zero values disable the
// corresponding limit.
type Config struct {
	// RequestsPerMinute is the average request rate.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// Burst is the bucket capacity. Default: RequestsPerMinute/60, at
	// least 1.
	Burst int `yaml:"burst"`

	// MaxConcurrent caps in-flight provider calls.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// Enabled reports whether any limit is set.
func (c Config) Enabled() bool {
	return c.RequestsPerMinute > 0 || c.MaxConcurrent > 0
}

// Validate rejects negative values.
func (c Config) Validate() error {
	switch {
	case c.RequestsPerMinute < 0:
		return fmt.Errorf("requests_per_minute must be >= 0, got %d", c.RequestsPerMinute)
	case c.Burst < 0:
		return fmt.Errorf("burst must be >= 0, got %d", c.Burst)
	case c.MaxConcurrent < 0:
		return fmt.Errorf("max_concurrent must be >= 0, got %d", c.MaxConcurrent)
	}
	return nil
}

// Limiter combines a request-rate bucket and a concurrency cap. A nil
// *Limiter admits everything immediately.
type Limiter struct {
	config     Config
	bucket     *TokenBucket
	concurrent *semaphore.Weighted
}

// New creates a limiter, or returns nil when cfg sets no limit.
func New(cfg Config) *Limiter {
	return newLimiter(cfg, time.Now)
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	if !cfg.Enabled() {
		return nil
	}
	l := &Limiter{config: cfg}
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst == 0 {
			burst = max(1, cfg.RequestsPerMinute/60)
		}
		l.bucket = newTokenBucket(int64(burst), float64(cfg.RequestsPerMinute)/60, now)
	}
	if cfg.MaxConcurrent > 0 {
		l.concurrent = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}
	return l
}

// Acquire waits for a concurrency slot and a rate token. On success the
// caller must call release when the provider call returns. waited is the
// time spent queueing.
func (l *Limiter) Acquire(ctx context.Context) (release func(), waited time.Duration, err error) {
	if l == nil {
		return func() {}, 0, nil
	}

	start := time.Now()
	release = func() {}
	if l.concurrent != nil {
		if err := l.concurrent.Acquire(ctx, 1); err != nil {
			return nil, time.Since(start), err
		}
		release = func() { l.concurrent.Release(1) }
	}
	if l.bucket != nil {
		if _, err := l.bucket.Wait(ctx); err != nil {
			release()
			return nil, time.Since(start), err
		}
	}
	return release, time.Since(start), nil
}

// Config returns the limiter's configuration.
func (l *Limiter) Config() Config {
	if l == nil {
		return Config{}
	}
	return l.config
}

// Set holds one limiter per key (provider name). Keys without a limiter
// are unrestricted.
type Set map[string]*Limiter

// NewSet builds a Set from per-key configurations, skipping those that set
// no limit.
func NewSet(configs map[string]Config) Set {
	s := make(Set, len(configs))
	for key, cfg := range configs {
		if l := New(cfg); l != nil {
			s[key] = l
		}
	}
	return s
}

// Get returns the limiter for key, or nil.
func (s Set) Get(key string) *Limiter {
	return s[key]
}

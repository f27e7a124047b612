package retry

import (
	"fmt"
	"math"
	"slices"
	"time"

	"ajala-hq/ajala/pkg/codes"
)

// Default policy values.
const (
	DefaultMaxAttempts   = 3
	DefaultInitialDelay  = time.Second
	DefaultMaxDelay      = 10 * time.Second
	DefaultBackoffFactor = 2.0
)

// DefaultRetryable lists the codes retried when a policy does not name its own.
var DefaultRetryable = []codes.Code{
	codes.NetworkError,
	codes.TimeoutError,
	codes.RateLimitError,
	codes.ProviderUnavailable,
}

// Policy controls how many attempts are made and how long to wait between
// them.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// InitialDelay is the wait after the first failed attempt.
	// Default: 1s
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`

	// MaxDelay caps every wait, including provider retry-after hints.
	// Default: 10s
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay"`

	// BackoffFactor multiplies the delay after each failed attempt.
	// Default: 2
	BackoffFactor float64 `yaml:"backoff_factor" json:"backoff_factor"`

	// Jitter subtracts a random fraction (0 to Jitter) of each delay.
	// Default: 0 (deterministic)
	Jitter float64 `yaml:"jitter" json:"jitter"`

	// Retryable is the set of codes worth another attempt. nil selects
	// DefaultRetryable; an empty non-nil slice retries nothing.
	Retryable []codes.Code `yaml:"retryable" json:"retryable"`
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   DefaultMaxAttempts,
		InitialDelay:  DefaultInitialDelay,
		MaxDelay:      DefaultMaxDelay,
		BackoffFactor: DefaultBackoffFactor,
		Retryable:     slices.Clone(DefaultRetryable),
	}
}

// Validate checks the policy invariants.
func (p Policy) Validate() error {
	var problem string
	switch {
	case p.MaxAttempts < 1:
		problem = fmt.Sprintf("max_attempts must be at least 1, got %d", p.MaxAttempts)
	case p.InitialDelay < 0:
		problem = fmt.Sprintf("initial_delay must not be negative, got %s", p.InitialDelay)
	case p.InitialDelay > p.MaxDelay:
		problem = fmt.Sprintf("initial_delay (%s) must not exceed max_delay (%s)", p.InitialDelay, p.MaxDelay)
	case p.BackoffFactor < 1:
		problem = fmt.Sprintf("backoff_factor must be at least 1, got %g", p.BackoffFactor)
	case p.Jitter < 0 || p.Jitter > 1:
		problem = fmt.Sprintf("jitter must be between 0 and 1, got %g", p.Jitter)
	default:
		for _, c := range p.Retryable {
			if !c.Known() {
				problem = fmt.Sprintf("unknown retryable code %q", string(c))
				break
			}
		}
	}
	if problem == "" {
		return nil
	}
	return codes.New(codes.InvalidConfig, "retry.policy", problem)
}

// IsRetryable reports whether code is in the policy's retryable set.
func (p Policy) IsRetryable(code codes.Code) bool {
	set := p.Retryable
	if set == nil {
		set = DefaultRetryable
	}
	return slices.Contains(set, code)
}

// Delay returns the backoff wait after the given failed attempt (1-based),
// before jitter: min(InitialDelay * BackoffFactor^(attempt-1), MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.InitialDelay) * math.Pow(p.BackoffFactor, float64(attempt-1))
	if d >= float64(p.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

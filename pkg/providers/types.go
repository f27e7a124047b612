package providers

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sort"
	"time"
)

// Credentials is the opaque secret bag handed to Authenticate. It never
// prints or logs its contents.
type Credentials struct {
	// APIKey is the provider secret
	APIKey string

	// Extra carries provider-specific fields (e.g. an organization id)
	Extra map[string]string
}

// String implements fmt.Stringer with the secret redacted.
func (c Credentials) String() string {
	if c.APIKey == "" {
		return "Credentials{<empty>}"
	}
	return "Credentials{<redacted>}"
}

// LogValue implements slog.LogValuer with the secret redacted.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("present", c.APIKey != ""),
		slog.String("fingerprint", c.Fingerprint()),
	)
}

// Fingerprint returns a short stable digest of the credentials, safe to log
// and to use as a cache key.
func (c Credentials) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(c.APIKey))
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(c.Extra[k]))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// SendOptions carries per-call settings to SendPrompt.
type SendOptions struct {
	// Model is the resolved model identifier
	Model string

	// ExpectJSON asks the backend for a JSON-only answer where supported
	ExpectJSON bool

	// MaxTokens bounds the generated output (0 selects the adapter default)
	MaxTokens int

	// Temperature controls randomness (nil leaves the backend default)
	Temperature *float64

	// System is an optional system instruction
	System string
}

// Usage tracks token consumption for a request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Metadata describes a response.
type Metadata struct {
	// Timestamp is when the response was received
	Timestamp time.Time `json:"timestamp"`

	// Latency is the round-trip duration of the call
	Latency time.Duration `json:"latency"`

	Usage Usage `json:"usage"`

	// RequestID is the backend's response identifier
	RequestID string `json:"request_id,omitempty"`

	// FinishReason indicates why generation stopped
	// (stop, length, content_filter)
	FinishReason string `json:"finish_reason,omitempty"`
}

// Response is the provider-agnostic result of SendPrompt.
type Response struct {
	Content  string   `json:"content"`
	Provider Name     `json:"provider"`
	Model    string   `json:"model"`
	Metadata Metadata `json:"metadata"`
}

// Health tracks the health status of a provider.
type Health struct {
	// IsHealthy indicates whether the provider is currently healthy
	IsHealthy bool

	// LastCheck is the timestamp of the last recorded outcome
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failed requests
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful request
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of requests sent to this provider
	TotalRequests int64

	// FailedRequests is the total number of failed requests
	FailedRequests int64
}

// HTTPConfig configures the shared HTTP transport of an adapter.
type HTTPConfig struct {
	// Name is the provider identifier
	Name Name

	// BaseURL is the API endpoint base URL
	BaseURL string

	// Timeout is the per-call HTTP timeout; the caller's context deadline
	// still applies
	Timeout time.Duration

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration

	// UnhealthyThreshold is the number of consecutive failures after which
	// the provider is reported unhealthy
	UnhealthyThreshold int
}

// Finish reason constants
const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonContentFilter = "content_filter"
)

// ProviderConfig selects the backend, model and credentials for a request.
type ProviderConfig struct {
	// Provider is one of claude, openai or mock
	Provider Name `json:"provider" yaml:"provider"`

	// Model must be in the provider's supported set; empty selects the
	// provider default
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Credentials are never serialized
	Credentials Credentials `json:"-" yaml:"-"`
}

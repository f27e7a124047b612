package providers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ajala-hq/ajala/pkg/codes"
)

// APIError represents a backend-reported failure that is not transient
// (e.g. HTTP 400 or 404).
type APIError struct {
	// Provider is the name of the provider that returned the error
	Provider Name

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// Code implements codes.Coder.
func (e *APIError) Code() codes.Code {
	return codes.APIError
}

// UnavailableError represents a transient server-side failure (HTTP 500,
// 502, 503 or 529).
type UnavailableError struct {
	Provider   Name
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %q unavailable (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Code implements codes.Coder.
func (e *UnavailableError) Code() codes.Code {
	return codes.ProviderUnavailable
}

// AuthError represents an authentication failure.
// This occurs when credentials are absent or the provider rejects them
// (HTTP 401 or 403).
type AuthError struct {
	// Provider is the name of the provider that rejected authentication
	Provider Name

	// Message is the error message from the provider
	Message string

	// Missing is set when no credentials were supplied at all
	Missing bool
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %q authentication failed: %s", e.Provider, e.Message)
}

// Code implements codes.Coder.
func (e *AuthError) Code() codes.Code {
	if e.Missing {
		return codes.MissingAuth
	}
	return codes.AuthError
}

// RateLimitError represents a rate limit exceeded error (HTTP 429).
// It includes the retry-after duration if provided by the provider.
type RateLimitError struct {
	// Provider is the name of the provider that rate limited the request
	Provider Name

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the provider
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// Code implements codes.Coder.
func (e *RateLimitError) Code() codes.Code {
	return codes.RateLimitError
}

// RetryHint implements retry.Hinter.
func (e *RateLimitError) RetryHint() time.Duration {
	return e.RetryAfter
}

// TimeoutError represents a request timeout, either from the HTTP client,
// the caller's deadline or an HTTP 408/504.
type TimeoutError struct {
	// Provider is the name of the provider where the timeout occurred
	Provider Name

	// Timeout is the configured timeout duration (0 if unknown)
	Timeout time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("provider %q request timeout after %s", e.Provider, e.Timeout)
	}
	if e.Cause != nil {
		return fmt.Sprintf("provider %q request timeout: %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("provider %q request timeout", e.Provider)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Code implements codes.Coder.
func (e *TimeoutError) Code() codes.Code {
	return codes.TimeoutError
}

// NetworkError represents a transport failure before any HTTP response
// was received.
type NetworkError struct {
	Provider Name
	Cause    error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("provider %q network error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Code implements codes.Coder.
func (e *NetworkError) Code() codes.Code {
	return codes.NetworkError
}

// ParseError represents a response parsing failure.
// This occurs when the provider returns a malformed response.
type ParseError struct {
	// Provider is the name of the provider that returned the malformed response
	Provider Name

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("provider %q response parse error: %v", e.Provider, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Code implements codes.Coder.
func (e *ParseError) Code() codes.Code {
	return codes.ResponseInvalid
}

// ModelNotFoundError represents an unknown model error.
// This occurs when a requested model is not in the provider's supported set.
type ModelNotFoundError struct {
	// Provider is the name of the provider
	Provider Name

	// Model is the requested model identifier
	Model string

	// Supported lists the models the provider accepts
	Supported []string
}

// Error implements the error interface.
func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("provider %q does not support model %q (supported: %s)",
		e.Provider, e.Model, strings.Join(e.Supported, ", "))
}

// Code implements codes.Coder.
func (e *ModelNotFoundError) Code() codes.Code {
	return codes.UnsupportedModel
}

// UnknownProviderError is returned for a provider name outside the
// supported set.
type UnknownProviderError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q (supported: claude, openai, mock)", e.Name)
}

// Code implements codes.Coder.
func (e *UnknownProviderError) Code() codes.Code {
	return codes.InvalidProvider
}

// ConfigError represents a provider configuration error.
// This occurs when the provider configuration is invalid.
type ConfigError struct {
	// Provider is the name of the provider with invalid configuration
	Provider Name

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("provider %q configuration error for field %q: %s",
		e.Provider, e.Field, e.Message)
}

// Code implements codes.Coder.
func (e *ConfigError) Code() codes.Code {
	return codes.InvalidConfig
}

// ClassifyStatus maps a non-2xx HTTP response onto the typed error set:
// 401/403 auth, 429 rate limit, 408/504 timeout, 500/502/503/529
// unavailable and any other status an API error.
func ClassifyStatus(provider Name, status int, header http.Header, body []byte) error {
	msg := errorMessage(body)
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Provider: provider, Message: msg}
	case http.StatusTooManyRequests:
		return &RateLimitError{
			Provider:   provider,
			RetryAfter: parseRetryAfter(header.Get("Retry-After")),
			Message:    msg,
		}
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return &TimeoutError{Provider: provider, Cause: fmt.Errorf("status %d: %s", status, msg)}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, 529:
		return &UnavailableError{Provider: provider, StatusCode: status, Message: msg}
	default:
		return &APIError{Provider: provider, StatusCode: status, Message: msg}
	}
}

// maxErrorMessage bounds how much of an error body ends up in messages.
const maxErrorMessage = 512

// errorMessage extracts {"error":{"message":...}} (the shape used by both
// Anthropic and OpenAI) or falls back to the raw body.
func errorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Type != "" {
			return envelope.Error.Type + ": " + envelope.Error.Message
		}
		return envelope.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage] + "..."
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}

	// Try parsing as seconds
	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	// Try parsing as HTTP date
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

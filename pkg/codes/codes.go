package codes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Code is a stable error token attached to every error raised by this module.
// Callers switch on codes instead of matching error strings.
type Code string

// Core codes.
const (
	MissingVariable Code = "AJALA_001"
	InvalidJSON     Code = "AJALA_002"
	APIError        Code = "AJALA_003"
	NetworkError    Code = "AJALA_004"
	AuthError       Code = "AJALA_005"
	ValidationError Code = "AJALA_006"
	RateLimitError  Code = "AJALA_007"
	SchemaError     Code = "AJALA_008"
	TimeoutError    Code = "AJALA_009"
	ProviderError   Code = "AJALA_010"
	ParsingError    Code = "AJALA_011"
)

// Configuration codes.
const (
	InvalidConfig    Code = "AJALA_020"
	MissingAuth      Code = "AJALA_021"
	InvalidProvider  Code = "AJALA_022"
	UnsupportedModel Code = "AJALA_023"
)

// Runtime codes.
const (
	ProviderUnavailable Code = "AJALA_030"
	RequestFailed       Code = "AJALA_031"
	ResponseInvalid     Code = "AJALA_032"
	MiddlewareError     Code = "AJALA_033"
)

// Range partitions the code space.
type Range string

const (
	RangeCore          Range = "core"
	RangeConfiguration Range = "configuration"
	RangeRuntime       Range = "runtime"
	RangeUnknown       Range = "unknown"
)

type codeInfo struct {
	name    string
	message string
}

var registry = map[Code]codeInfo{
	MissingVariable:     {"MISSING_VARIABLE", "Required variable not provided"},
	InvalidJSON:         {"INVALID_JSON", "Response does not match expected JSON structure"},
	APIError:            {"API_ERROR", "AI provider returned an error"},
	NetworkError:        {"NETWORK_ERROR", "Network request failed"},
	AuthError:           {"AUTH_ERROR", "Authentication failed"},
	ValidationError:     {"VALIDATION_ERROR", "Input validation failed"},
	RateLimitError:      {"RATE_LIMIT_ERROR", "Rate limit exceeded"},
	SchemaError:         {"SCHEMA_ERROR", "Schema validation error"},
	TimeoutError:        {"TIMEOUT_ERROR", "Request timeout"},
	ProviderError:       {"PROVIDER_ERROR", "Provider-specific error"},
	ParsingError:        {"PARSING_ERROR", "Failed to parse response"},
	InvalidConfig:       {"INVALID_CONFIG", "Invalid configuration provided"},
	MissingAuth:         {"MISSING_AUTH", "Authentication configuration missing"},
	InvalidProvider:     {"INVALID_PROVIDER", "Invalid or unsupported provider"},
	UnsupportedModel:    {"UNSUPPORTED_MODEL", "Model not supported by provider"},
	ProviderUnavailable: {"PROVIDER_UNAVAILABLE", "Provider is currently unavailable"},
	RequestFailed:       {"REQUEST_FAILED", "Request execution failed"},
	ResponseInvalid:     {"RESPONSE_INVALID", "Provider response is invalid"},
	MiddlewareError:     {"MIDDLEWARE_ERROR", "Middleware processing error"},
}

// Name returns the symbolic name of the code (e.g. "RATE_LIMIT_ERROR").
func (c Code) Name() string {
	if info, ok := registry[c]; ok {
		return info.name
	}
	return string(c)
}

// Message returns the default human-readable message for the code.
func (c Code) Message() string {
	if info, ok := registry[c]; ok {
		return info.message
	}
	return "Unknown error"
}

// Range reports which partition of the code space the code belongs to.
func (c Code) Range() Range {
	digits, ok := strings.CutPrefix(string(c), "AJALA_")
	if !ok || len(digits) != 3 {
		return RangeUnknown
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return RangeUnknown
	}
	switch {
	case n >= 1 && n < 20:
		return RangeCore
	case n >= 20 && n < 30:
		return RangeConfiguration
	case n >= 30 && n < 40:
		return RangeRuntime
	default:
		return RangeUnknown
	}
}

// Known reports whether the code is part of the enumerated code space.
func (c Code) Known() bool {
	_, ok := registry[c]
	return ok
}

// String implements fmt.Stringer.
func (c Code) String() string {
	return string(c)
}

// Parse resolves either a token ("AJALA_007") or a symbolic name
// ("RATE_LIMIT_ERROR", case-insensitive) to a Code.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if c := Code(strings.ToUpper(s)); c.Known() {
		return c, nil
	}
	for c, info := range registry {
		if strings.EqualFold(info.name, s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown error code %q", s)
}

// All returns every known code.
func All() []Code {
	out := make([]Code, 0, len(registry))
	for c := range registry {
		out = append(out, c)
	}
	return out
}

// Coder is implemented by errors that carry a stable code.
type Coder interface {
	Code() Code
}

// Of extracts the code from err. Context errors map to TimeoutError; anything
// else without a code maps to RequestFailed. Of(nil) returns "".
func Of(err error) Code {
	if err == nil {
		return ""
	}
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return TimeoutError
	}
	return RequestFailed
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return Of(err) == code
}

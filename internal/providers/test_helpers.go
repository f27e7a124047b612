package providers

import (
	"encoding/json"
	"errors"
	"testing"

	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/providers"
)

// TestCredentials returns credentials with a fixed test key.
func TestCredentials() providers.Credentials {
	return providers.Credentials{APIKey: "test-key"}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertCode fails the test unless err carries the expected code.
func AssertCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := codes.Of(err); got != want {
		t.Fatalf("expected code %s, got %s (%T: %v)", want, got, err, err)
	}
}

// AssertErrorAs fails the test unless err matches target via errors.As.
func AssertErrorAs[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	if !errors.As(err, &target) {
		t.Fatalf("expected %T, got %T: %v", target, err, err)
	}
	return target
}

// DecodeBody unmarshals a recorded request body into a generic map.
func DecodeBody(t *testing.T, req RecordedRequest) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(req.Body, &out); err != nil {
		t.Fatalf("failed to decode request body %q: %v", req.Body, err)
	}
	return out
}

package openai

import (
	"context"
	"testing"
	"time"

	testhelpers "ajala-hq/ajala/internal/providers"
	"ajala-hq/ajala/pkg/codes"
	"ajala-hq/ajala/pkg/providers"
)

func newTestProvider(t *testing.T, baseURL string, creds providers.Credentials) *Provider {
	t.Helper()
	p := New(Config{BaseURL: baseURL, Timeout: 2 * time.Second})
	t.Cleanup(func() { _ = p.Close() })
	testhelpers.AssertNoError(t, p.Authenticate(context.Background(), creds))
	return p
}

func TestOpenAIProvider_SendPrompt(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse("Hello there", "gpt-4o-mini"),
	})

	p := newTestProvider(t, mock.URL(), providers.Credentials{
		APIKey: "sk-test",
		Extra:  map[string]string{OrganizationKey: "org-1"},
	})

	resp, err := p.SendPrompt(context.Background(), "Hi", providers.SendOptions{Model: "gpt-4o-mini", System: "sys"})
	testhelpers.AssertNoError(t, err)

	if resp.Content != "Hello there" {
		t.Errorf("expected content %q, got %q", "Hello there", resp.Content)
	}
	if resp.Provider != providers.OpenAI {
		t.Errorf("expected provider openai, got %s", resp.Provider)
	}
	if resp.Metadata.Usage.InputTokens != 10 || resp.Metadata.Usage.OutputTokens != 20 || resp.Metadata.Usage.TotalTokens != 30 {
		t.Errorf("unexpected usage %+v", resp.Metadata.Usage)
	}

	req, _ := mock.LastRequest()
	if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("unexpected Authorization header %q", got)
	}
	if got := req.Header.Get("OpenAI-Organization"); got != "org-1" {
		t.Errorf("unexpected organization header %q", got)
	}

	body := testhelpers.DecodeBody(t, req)
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", body["messages"])
	}
	if _, ok := body["response_format"]; ok {
		t.Error("response_format should be omitted when JSON is not expected")
	}
}

func TestOpenAIProvider_JSONMode(t *testing.T) {
	mock := testhelpers.NewMockServer()
	defer mock.Close()
	mock.SetResponse("/v1/chat/completions", testhelpers.MockResponse{
		StatusCode: 200,
		Body:       testhelpers.MockOpenAIResponse(`{"a":1}`, DefaultModel),
	})

	p := newTestProvider(t, mock.URL(), testhelpers.TestCredentials())
	_, err := p.SendPrompt(context.Background(), "json please", providers.SendOptions{ExpectJSON: true})
	testhelpers.AssertNoError(t, err)

	req, _ := mock.LastRequest()
	body := testhelpers.DecodeBody(t, req)
	rf, _ := body["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", body["response_format"])
	}
	if body["model"] != DefaultModel {
		t.Errorf("expected default model %s, got %v", DefaultModel, body["model"])
	}
}

func TestOpenAIProvider_Errors(t *testing.T) {
	tests := []struct {
		name     string
		response testhelpers.MockResponse
		want     codes.Code
	}{
		{"unauthorized", testhelpers.MockAuthError(), codes.AuthError},
		{"forbidden", testhelpers.MockErrorResponse(403, "nope"), codes.AuthError},
		{"rate limited", testhelpers.MockRateLimitError(1), codes.RateLimitError},
		{"bad gateway", testhelpers.MockErrorResponse(502, "upstream"), codes.ProviderUnavailable},
		{"gateway timeout", testhelpers.MockErrorResponse(504, "slow"), codes.TimeoutError},
		{"not found", testhelpers.MockErrorResponse(404, "model not found"), codes.APIError},
		{"no choices", testhelpers.MockResponse{StatusCode: 200, Body: map[string]any{"id": "x", "choices": []any{}}}, codes.ResponseInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testhelpers.NewMockServer()
			defer mock.Close()
			mock.SetResponse("/v1/chat/completions", tt.response)

			p := newTestProvider(t, mock.URL(), testhelpers.TestCredentials())
			_, err := p.SendPrompt(context.Background(), "Hi", providers.SendOptions{})
			testhelpers.AssertCode(t, err, tt.want)
		})
	}
}

func TestOpenAIProvider_Unauthenticated(t *testing.T) {
	p := New(Config{})
	defer p.Close()

	testhelpers.AssertCode(t, p.Authenticate(context.Background(), providers.Credentials{APIKey: "  "}), codes.MissingAuth)

	_, err := p.SendPrompt(context.Background(), "Hi", providers.SendOptions{})
	testhelpers.AssertCode(t, err, codes.MissingAuth)
}

func TestOpenAIProvider_NetworkError(t *testing.T) {
	mock := testhelpers.NewMockServer()
	url := mock.URL()
	mock.Close()

	p := newTestProvider(t, url, testhelpers.TestCredentials())
	_, err := p.SendPrompt(context.Background(), "Hi", providers.SendOptions{})
	testhelpers.AssertCode(t, err, codes.NetworkError)
}

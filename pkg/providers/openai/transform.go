package openai

import (
	"errors"
	"time"

	"ajala-hq/ajala/pkg/providers"
)

// OpenAI API request/response types

// OpenAIRequest represents an OpenAI chat completion request.
type OpenAIRequest struct {
	Model          string          `json:"model"`
	Messages       []OpenAIMessage `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// OpenAIMessage represents a message in OpenAI format.
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects JSON mode.
type ResponseFormat struct {
	Type string `json:"type"`
}

// OpenAIResponse represents an OpenAI chat completion response.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

// OpenAIChoice represents a completion choice in OpenAI format.
type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// OpenAIUsage represents token usage in OpenAI format.
type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func transformRequest(prompt string, opts providers.SendOptions, defaultModel string) *OpenAIRequest {
	req := &OpenAIRequest{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if req.Model == "" {
		req.Model = defaultModel
	}
	if opts.System != "" {
		req.Messages = append(req.Messages, OpenAIMessage{Role: "system", Content: opts.System})
	}
	req.Messages = append(req.Messages, OpenAIMessage{Role: "user", Content: prompt})
	if opts.ExpectJSON {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	return req
}

// transformResponse takes the first choice.
func transformResponse(resp *OpenAIResponse, latency time.Duration) (*providers.Response, error) {
	if len(resp.Choices) == 0 {
		return nil, errors.New("response contains no choices")
	}
	choice := resp.Choices[0]

	total := resp.Usage.TotalTokens
	if total == 0 {
		total = resp.Usage.PromptTokens + resp.Usage.CompletionTokens
	}

	return &providers.Response{
		Content:  choice.Message.Content,
		Provider: providers.OpenAI,
		Model:    resp.Model,
		Metadata: providers.Metadata{
			Timestamp: time.Now(),
			Latency:   latency,
			Usage: providers.Usage{
				InputTokens:  resp.Usage.PromptTokens,
				OutputTokens: resp.Usage.CompletionTokens,
				TotalTokens:  total,
			},
			RequestID:    resp.ID,
			FinishReason: choice.FinishReason,
		},
	}, nil
}

package anthropic

import (
	"errors"
	"strings"
	"time"

	"ajala-hq/ajala/pkg/providers"
)

// Anthropic API request/response types

// AnthropicRequest represents an Anthropic messages request.
type AnthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []AnthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

// AnthropicMessage represents a message in Anthropic format.
type AnthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ContentBlock represents a content block in Anthropic format.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// AnthropicResponse represents an Anthropic messages response.
type AnthropicResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   string         `json:"stop_reason"`
	StopSequence string         `json:"stop_sequence,omitempty"`
	Usage        AnthropicUsage `json:"usage"`
}

// AnthropicUsage represents token usage in Anthropic format.
type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// transformRequest builds a single user-turn request.
func transformRequest(prompt string, opts providers.SendOptions, defaultModel string, defaultMaxTokens int) *AnthropicRequest {
	req := &AnthropicRequest{
		Model:       opts.Model,
		Messages:    []AnthropicMessage{{Role: "user", Content: prompt}},
		System:      opts.System,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if req.Model == "" {
		req.Model = defaultModel
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}
	if opts.ExpectJSON {
		if req.System == "" {
			req.System = jsonInstruction
		} else {
			req.System = req.System + "\n\n" + jsonInstruction
		}
	}
	return req
}

// transformResponse concatenates the text blocks of an Anthropic response.
func transformResponse(resp *AnthropicResponse, latency time.Duration) (*providers.Response, error) {
	var content strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}
	if resp.Type == "error" || (len(resp.Content) == 0 && resp.StopReason == "") {
		return nil, errors.New("response contains no content")
	}

	return &providers.Response{
		Content:  content.String(),
		Provider: providers.Claude,
		Model:    resp.Model,
		Metadata: providers.Metadata{
			Timestamp: time.Now(),
			Latency:   latency,
			Usage: providers.Usage{
				InputTokens:  resp.Usage.InputTokens,
				OutputTokens: resp.Usage.OutputTokens,
				TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			},
			RequestID:    resp.ID,
			FinishReason: normalizeStopReason(resp.StopReason),
		},
	}, nil
}

// normalizeStopReason normalizes Anthropic stop reasons to provider-agnostic values.
func normalizeStopReason(reason string) string {
	switch reason {
	case "end_turn", "stop_sequence":
		return providers.FinishReasonStop
	case "max_tokens":
		return providers.FinishReasonLength
	case "refusal":
		return providers.FinishReasonContentFilter
	default:
		return reason
	}
}

package tokens

import (
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"
)

// DefaultModel is the ratio key used when no prefix matches.
const DefaultModel = "default"

// DefaultCharsPerToken is the ratio of last resort.
const DefaultCharsPerToken = 4.0

// Formatting overheads added to prompt estimates.
const (
	messageOverhead = 4
	requestOverhead = 3

	minCompletion = 100
	maxCompletion = 1000
)

// DefaultRatios returns the built-in characters-per-token ratios.
func DefaultRatios() map[string]float64 {
	return map[string]float64{
		"gpt-4o":        4.0,
		"gpt-4":         4.0,
		"gpt-3.5-turbo": 4.0,
		"claude-3":      3.5,
		"claude-3-5":    3.5,
		"mock-model":    4.0,
		DefaultModel:    DefaultCharsPerToken,
	}
}

// Config configures the estimator.
type Config struct {
	// CharsPerToken maps model prefixes to ratios. Entries are merged over
	// DefaultRatios.
	CharsPerToken map[string]float64 `yaml:"chars_per_token"`
}

// Validate rejects non-positive ratios.
func (c Config) Validate() error {
	for model, ratio := range c.CharsPerToken {
		if ratio <= 0 {
			return fmt.Errorf("chars_per_token for %q must be positive, got %v", model, ratio)
		}
	}
	return nil
}

// Estimate is the breakdown of a prompt estimate.
type Estimate struct {
	Model string `json:"model"`

	SystemTokens   int `json:"system_tokens"`
	PromptTokens   int `json:"prompt_tokens"`
	OverheadTokens int `json:"overhead_tokens"`

	// InputTokens is the sum of system, prompt and overhead tokens.
	InputTokens int `json:"input_tokens"`

	// CompletionTokens is MaxTokens when set, otherwise a third of the
	// input clamped to [100, 1000].
	CompletionTokens int `json:"completion_tokens"`

	TotalTokens int `json:"total_tokens"`
}

// Estimator estimates token counts. It is immutable and safe for
// concurrent use.
type Estimator struct {
	ratios map[string]float64
}

// New creates an estimator from cfg.
func New(cfg Config) *Estimator {
	ratios := DefaultRatios()
	maps.Copy(ratios, cfg.CharsPerToken)
	return &Estimator{ratios: ratios}
}

// Text estimates the tokens in text. Non-empty text is at least one token.
func (e *Estimator) Text(text, model string) int {
	if text == "" {
		return 0
	}
	chars := utf8.RuneCountInString(text)
	n := int(float64(chars)/e.CharsPerToken(model) + 0.5)
	return max(n, 1)
}

// Prompt estimates a single prompt with an optional system instruction.
// maxTokens, when positive, is taken as the completion estimate.
func (e *Estimator) Prompt(prompt, system, model string, maxTokens int) *Estimate {
	est := &Estimate{
		Model:          model,
		PromptTokens:   e.Text(prompt, model),
		OverheadTokens: requestOverhead + messageOverhead,
	}
	if system != "" {
		est.SystemTokens = e.Text(system, model)
		est.OverheadTokens += messageOverhead
	}
	est.InputTokens = est.SystemTokens + est.PromptTokens + est.OverheadTokens

	if maxTokens > 0 {
		est.CompletionTokens = maxTokens
	} else {
		est.CompletionTokens = min(max(est.InputTokens/3, minCompletion), maxCompletion)
	}
	est.TotalTokens = est.InputTokens + est.CompletionTokens
	return est
}

// CharsPerToken returns the ratio for model: the longest matching prefix,
// then the default entry.
func (e *Estimator) CharsPerToken(model string) float64 {
	if r, ok := e.ratios[model]; ok {
		return r
	}
	best, ratio := "", 0.0
	for prefix, r := range e.ratios {
		if prefix == DefaultModel || !strings.HasPrefix(model, prefix) {
			continue
		}
		if len(prefix) > len(best) {
			best, ratio = prefix, r
		}
	}
	if best != "" {
		return ratio
	}
	if r, ok := e.ratios[DefaultModel]; ok {
		return r
	}
	return DefaultCharsPerToken
}

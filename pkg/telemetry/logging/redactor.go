package logging

import (
	"log/slog"
	"regexp"
	"strings"

	"ajala-hq/ajala/pkg/config"
)

// Redactor masks credentials in log messages and attribute values.
type Redactor struct {
	patterns []*redactPattern
}

// redactPattern contains a compiled regex and replacement string.
type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Built-in pattern names.
const (
	PatternAnthropicKey = "anthropic_key"
	PatternOpenAIKey    = "openai_key"
	PatternAPIKeyField  = "api_key_field"
	PatternBearerToken  = "bearer_token"
	PatternPassword     = "password"
)

// Built-in patterns, applied in order. Anthropic keys share the sk- prefix
// so they come first.
var defaultPatterns = []struct {
	name        string
	regex       string
	replacement string
}{
	{PatternAnthropicKey, `sk-ant-[a-zA-Z0-9_\-]+`, "sk-ant-***"},
	{PatternOpenAIKey, `sk-(?:proj-)?[a-zA-Z0-9_\-]{8,}`, "sk-***"},
	{PatternAPIKeyField, `(?i)(x-api-key|api[-_]?key)(["']?\s*[:=]\s*["']?)[a-zA-Z0-9_\-\.]+`, "$1$2***"},
	{PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, "Bearer ***"},
	{PatternPassword, `(?i)(password|passwd|pwd)[:=]\s*[^\s]+`, "$1: ***"},
}

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = []string{
	"password", "passwd", "pwd",
	"secret", "token", "api_key", "apikey",
	"authorization", "credential",
	"private_key", "privatekey",
}

// NewRedactor creates a Redactor with the built-in patterns followed by
// custom ones. Invalid custom patterns are skipped; config validation
// reports them before they get here.
func NewRedactor(customPatterns []config.RedactPattern) *Redactor {
	r := &Redactor{}

	for _, p := range defaultPatterns {
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.name,
			regex:       regexp.MustCompile(p.regex),
			replacement: p.replacement,
		})
	}

	for _, p := range customPatterns {
		regex, err := regexp.Compile(p.Pattern)
		if err != nil {
			continue
		}
		replacement := p.Replacement
		if replacement == "" {
			replacement = "***"
		}
		r.patterns = append(r.patterns, &redactPattern{
			name:        p.Name,
			regex:       regex,
			replacement: replacement,
		})
	}

	return r
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, pattern := range r.patterns {
		value = pattern.regex.ReplaceAllString(value, pattern.replacement)
	}
	return value
}

// RedactAttr masks the value of a sensitive key entirely and runs the
// patterns over string values. Groups are redacted recursively.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = r.RedactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactSecret(a.Value.String()))
	}

	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(r.RedactString(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			a.Value = slog.StringValue(r.RedactString(err.Error()))
		}
	}
	return a
}

// isSensitiveKey checks if a key name indicates sensitive data. Suffix
// matching keeps counters such as "total_tokens" readable.
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.HasSuffix(lowerKey, sensitive) {
			return true
		}
	}
	return false
}

// RedactSecret masks a secret, keeping a short prefix for identification.
func RedactSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***"
}

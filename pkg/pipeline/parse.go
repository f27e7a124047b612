package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"

	"ajala-hq/ajala/pkg/codes"
)

var fence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ParseJSON decodes a model response. With autoFix, content that is not JSON as a
// whole is searched for a fenced code block, then for the first balanced
// object or array that decodes. Numbers decode as float64.
func ParseJSON(content string, autoFix bool) (any, error) {
	trimmed := strings.TrimSpace(content)

	var v any
	err := json.Unmarshal([]byte(trimmed), &v)
	if err == nil {
		return v, nil
	}
	if !autoFix {
		return nil, codes.Wrap(codes.ParsingError, "pipeline.parse", err)
	}

	if candidate, ok := extractJSON(trimmed); ok {
		if json.Unmarshal([]byte(candidate), &v) == nil {
			return v, nil
		}
	}
	return nil, codes.Wrap(codes.ParsingError, "pipeline.parse", err)
}

// extractJSON finds a JSON document embedded in prose or markdown.
func extractJSON(s string) (string, bool) {
	for _, m := range fence.FindAllStringSubmatch(s, -1) {
		candidate := strings.TrimSpace(m[1])
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}

	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		if end, ok := matchBracket(s, i); ok {
			candidate := s[i : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
	}
	return "", false
}

// matchBracket returns the index of the bracket closing the one at start,
// skipping brackets inside string literals.
func matchBracket(s string, start int) (int, bool) {
	open, closing := s[start], byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for j := start; j < len(s); j++ {
		c := s[j]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return j, true
			}
		}
	}
	return 0, false
}
